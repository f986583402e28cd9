package types

import "time"

// Ownership is the part of a license owned by the transfer and revocation paths.
type Ownership struct {
	Owner         Identity   `json:"owner"`
	TransferCount uint8      `json:"transfer_count"`
	Revoked       bool       `json:"revoked"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	RevokedBy     Identity   `json:"revoked_by,omitempty"`
	RevokeReason  string     `json:"revoke_reason,omitempty"`
}

// Usage is the part of a license owned by access control.
type Usage struct {
	AccessCount uint64     `json:"access_count"`
	LastAccess  *time.Time `json:"last_access,omitempty"`
}

// License is a buyer's purchased right to a listing. LicenseType and
// UsageRights are snapshots taken at purchase; later listing edits do not
// reach them.
type License struct {
	ID            string      `json:"id"`
	ListingID     string      `json:"listing_id"`
	Provider      Identity    `json:"provider"`
	OriginalBuyer Identity    `json:"original_buyer"`
	LicenseType   LicenseType `json:"license_type"`
	UsageRights   UsageRights `json:"usage_rights"`
	PurchasePrice uint64      `json:"purchase_price"`
	PlatformFee   uint64      `json:"platform_fee"`
	SellerShare   uint64      `json:"seller_share"`
	PurchasedAt   time.Time   `json:"purchased_at"`
	ExpiresAt     *time.Time  `json:"expires_at,omitempty"`
	UsageLimit    *uint64     `json:"usage_limit,omitempty"`
	Transferable  bool        `json:"transferable"`

	Ownership Ownership `json:"ownership"`
	Usage     Usage     `json:"usage"`
}

// IsExpired reports whether now is past the license's expiration.
// The expiration instant itself is still valid.
func (l License) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// IsLive reports whether the license is neither revoked nor expired.
func (l License) IsLive(now time.Time) bool {
	return !l.Ownership.Revoked && !l.IsExpired(now)
}

// Remaining returns the accesses left under the usage limit, or nil when
// the license is unlimited.
func (l License) Remaining() *uint64 {
	if l.UsageLimit == nil {
		return nil
	}
	var left uint64
	if *l.UsageLimit > l.Usage.AccessCount {
		left = *l.UsageLimit - l.Usage.AccessCount
	}
	return &left
}
