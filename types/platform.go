package types

import "time"

// PlatformSettings is the authority-owned part of the platform singleton.
type PlatformSettings struct {
	Treasury Identity `json:"treasury"`
	FeeBps   uint64   `json:"fee_bps"`
	Paused   bool     `json:"paused"`
}

// PlatformTotals are the aggregate counters maintained by the engines.
type PlatformTotals struct {
	Revenue   uint64 `json:"revenue"`
	Datasets  uint64 `json:"datasets"`
	Purchases uint64 `json:"purchases"`
}

// Platform is the marketplace-wide configuration. It is created once.
type Platform struct {
	Authority     Identity         `json:"authority"`
	Settings      PlatformSettings `json:"settings"`
	Totals        PlatformTotals   `json:"totals"`
	InitializedAt time.Time        `json:"initialized_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ConsentDecision is the provider-owned outcome of a consent request.
type ConsentDecision struct {
	Decided   bool       `json:"decided"`
	Approved  bool       `json:"approved"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

// ConsentRequest asks a provider to approve the resale of a license on a
// listing whose usage rights require consent.
type ConsentRequest struct {
	ListingID   string          `json:"listing_id"`
	Requester   Identity        `json:"requester"`
	RequestedAt time.Time       `json:"requested_at"`
	Decision    ConsentDecision `json:"decision"`
}

// Approved reports whether the provider approved the request.
func (c ConsentRequest) Approved() bool {
	return c.Decision.Decided && c.Decision.Approved
}
