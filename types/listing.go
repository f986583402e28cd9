package types

import "time"

// UsageRights is the permission bundle attached to a listing and copied
// into every license sold from it.
type UsageRights struct {
	CommercialUse          bool    `json:"commercial_use"`
	DerivativeWorksAllowed bool    `json:"derivative_works_allowed"`
	RedistributionAllowed  bool    `json:"redistribution_allowed"`
	AttributionRequired    bool    `json:"attribution_required"`
	ConsentRequired        bool    `json:"consent_required"`
	AITrainingAllowed      bool    `json:"ai_training_allowed"`
	GeographicRestrictions *string `json:"geographic_restrictions,omitempty"`
}

// Clone returns a copy that shares no pointers with u.
func (u UsageRights) Clone() UsageRights {
	if u.GeographicRestrictions != nil {
		geo := *u.GeographicRestrictions
		u.GeographicRestrictions = &geo
	}
	return u
}

// Terms is the provider-owned part of a listing.
type Terms struct {
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	URI         string      `json:"uri,omitempty"`
	Price       uint64      `json:"price"`
	UsageRights UsageRights `json:"usage_rights"`
	RoyaltyBps  uint16      `json:"royalty_bps"`
}

// VerificationState is the part of a listing owned by the verification engine.
type VerificationState struct {
	Verified   bool       `json:"verified"`
	Commitment Digest     `json:"commitment"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	RecordID   string     `json:"record_id,omitempty"`
}

// SalesState is the part of a listing owned by the licensing engine.
// TotalSales and RevenueEarned never decrease.
type SalesState struct {
	TotalSales    uint64 `json:"total_sales"`
	RevenueEarned uint64 `json:"revenue_earned"`
	SoldOut       bool   `json:"sold_out"`
}

// Deactivation records an irreversible takedown by the provider or authority.
type Deactivation struct {
	Deactivated bool       `json:"deactivated"`
	Reason      string     `json:"reason,omitempty"`
	At          *time.Time `json:"at,omitempty"`
	By          Identity   `json:"by,omitempty"`
}

// Listing is a dataset offered for license.
type Listing struct {
	ID          string      `json:"id"`
	Provider    Identity    `json:"provider"`
	LicenseType LicenseType `json:"license_type"`
	ContentHash string      `json:"content_hash"`
	MaxOwners   *uint32     `json:"max_owners,omitempty"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
	UsageLimit  *uint64     `json:"usage_limit,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	Terms        Terms             `json:"terms"`
	Verification VerificationState `json:"verification"`
	Sales        SalesState        `json:"sales"`
	Deactivation Deactivation      `json:"deactivation"`
}

// IsActive reports whether the listing can still be verified or sold.
// An Exclusive listing stops being active once sold.
func (l Listing) IsActive() bool {
	return !l.Deactivation.Deactivated && !l.Sales.SoldOut
}

// IsExpired reports whether the listing's license-duration clock has run out.
func (l Listing) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}
