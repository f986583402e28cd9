package types

import (
	"encoding/json"
	"slices"
	"time"
)

// OracleRegistry is the singleton allow-list of operators permitted to run
// hardware oracles, with the daily quota applied to each oracle.
type OracleRegistry struct {
	Authority              Identity   `json:"authority"`
	AllowedOperators       []Identity `json:"allowed_operators"`
	MaxVerificationsPerDay uint16     `json:"max_verifications_per_day"`
	TotalOracles           uint64     `json:"total_oracles"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// IsAllowed reports whether operator is on the allow-list.
func (r OracleRegistry) IsAllowed(operator Identity) bool {
	return slices.Contains(r.AllowedOperators, operator)
}

// OracleStatus is the operator- or authority-owned liveness of an oracle.
type OracleStatus struct {
	Active        bool       `json:"active"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}

// OracleQuota is the rolling daily counter owned by the verification engine.
// LastDay is the UTC day number (unix seconds / 86400) Today counts against.
type OracleQuota struct {
	TotalVerifications uint64 `json:"total_verifications"`
	LastDay            int64  `json:"last_day"`
	Today              uint16 `json:"today"`
}

// Oracle is a registered hardware attestation signer.
type Oracle struct {
	ID                string          `json:"id"`
	Operator          Identity        `json:"operator"`
	HardwareID        string          `json:"hardware_id"`
	HardwareType      HardwareType    `json:"hardware_type"`
	PublicKey         Identity        `json:"public_key"`
	CertificationHash string          `json:"certification_hash"`
	Trusted           TrustedHardware `json:"-"`
	RegisteredAt      time.Time       `json:"registered_at"`

	Status OracleStatus `json:"status"`
	Quota  OracleQuota  `json:"quota"`
}

type oracleJSON Oracle

// MarshalJSON encodes Trusted through its tagged envelope.
func (o Oracle) MarshalJSON() ([]byte, error) {
	trusted, err := MarshalTrustedHardware(o.Trusted)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		oracleJSON
		Trusted json.RawMessage `json:"trusted_hardware"`
	}{oracleJSON(o), trusted})
}

// UnmarshalJSON decodes the envelope written by MarshalJSON.
func (o *Oracle) UnmarshalJSON(data []byte) error {
	var wire struct {
		oracleJSON
		Trusted json.RawMessage `json:"trusted_hardware"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*o = Oracle(wire.oracleJSON)
	if len(wire.Trusted) == 0 {
		o.Trusted = OtherHardware{}
		return nil
	}
	trusted, err := UnmarshalTrustedHardware(wire.Trusted)
	if err != nil {
		return err
	}
	o.Trusted = trusted
	return nil
}
