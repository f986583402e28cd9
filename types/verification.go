package types

import "time"

// VerificationMethod tags which attestation a verification record carries.
type VerificationMethod string

const (
	MethodProof  VerificationMethod = "proof"
	MethodOracle VerificationMethod = "oracle"
)

// ProofAttestation is the decoded result of a proof-of-computation.
// The raw proof and public values are kept only as digests.
type ProofAttestation struct {
	ProofDigest        Digest `json:"proof_digest"`
	PublicValuesDigest Digest `json:"public_values_digest"`
	VerificationScore  uint8  `json:"verification_score"`
	AntiSynthesisScore uint8  `json:"anti_synthesis_score"`
	PhysicsConsistent  bool   `json:"physics_consistent"`
}

// SensorReading is one measurement reported alongside an oracle attestation.
type SensorReading struct {
	SensorType string  `json:"sensor_type"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	Calibrated bool    `json:"calibrated"`
}

// OracleAttestation is an accepted hardware-oracle signature.
type OracleAttestation struct {
	OracleID        string          `json:"oracle_id"`
	HardwareID      string          `json:"hardware_id"`
	DataHash        string          `json:"data_hash"`
	SignatureDigest Digest          `json:"signature_digest"`
	SignedAt        time.Time       `json:"signed_at"`
	LocationDigest  *Digest         `json:"location_digest,omitempty"`
	SensorReadings  []SensorReading `json:"sensor_readings,omitempty"`
}

// VerificationRecord is the tamper-evident trail of an accepted verification.
// Exactly one of Proof and Oracle is set, matching Method.
type VerificationRecord struct {
	ID         string             `json:"id"`
	ListingID  string             `json:"listing_id"`
	Method     VerificationMethod `json:"method"`
	Commitment Digest             `json:"commitment"`
	Verifier   Identity           `json:"verifier"`
	Nonce      Digest             `json:"nonce"`
	VerifiedAt time.Time          `json:"verified_at"`

	Proof  *ProofAttestation  `json:"proof,omitempty"`
	Oracle *OracleAttestation `json:"oracle,omitempty"`
}
