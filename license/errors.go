package license

import (
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/ledger"
	"github.com/teranos/exchainge/listing"
)

var (
	ErrNotFound        = ledger.ErrLicenseNotFound
	ErrListingInactive = listing.ErrInactive
	ErrListingExpired  = listing.ErrExpired
	ErrNotProvider     = listing.ErrNotProvider
	ErrReasonTooLong   = listing.ErrReasonTooLong

	// Purchase
	ErrNotVerified      = errors.Reason("listing_not_verified", errors.ErrConflict, "listing is not verified")
	ErrSelfPurchase     = errors.Reason("self_purchase", errors.ErrValidation, "provider cannot buy their own listing")
	ErrPaymentTooLow    = errors.Reason("payment_too_low", errors.ErrValidation, "payment is below the listing price")
	ErrPaymentTooHigh   = errors.Reason("payment_too_high", errors.ErrValidation, "payment exceeds ten times the listing price")
	ErrExclusiveSold    = errors.Reason("exclusive_already_sold", errors.ErrConflict, "exclusive listing is already sold")
	ErrMaxOwnersReached = errors.Reason("max_owners_reached", errors.ErrConflict, "listing has reached its maximum owners")
	ErrAlreadyLicensed  = errors.Reason("already_licensed", errors.ErrConflict, "buyer already holds a live license for this listing")
	ErrPaymentFailed    = errors.Reason("payment_failed", errors.ErrExternal, "payment transfer failed")

	// Ownership
	ErrNotOwner             = errors.Reason("not_owner", errors.ErrUnauthorized, "caller does not own the license")
	ErrRevoked              = errors.Reason("license_revoked", errors.ErrConflict, "license is revoked")
	ErrExpired              = errors.Reason("license_expired", errors.ErrConflict, "license has expired")
	ErrNotTransferable      = errors.Reason("not_transferable", errors.ErrConflict, "license type does not allow transfer")
	ErrTransferLimitReached = errors.Reason("transfer_limit_reached", errors.ErrConflict, "license has been transferred the maximum number of times")
	ErrTransferToSelf       = errors.Reason("transfer_to_self", errors.ErrValidation, "recipient already owns the license")
	ErrRecipientLicensed    = errors.Reason("recipient_already_licensed", errors.ErrConflict, "recipient already holds a live license for this listing")
	ErrNotAuthorized        = errors.Reason("not_authorized", errors.ErrUnauthorized, "caller may not revoke this license")
	ErrAlreadyRevoked       = errors.Reason("license_already_revoked", errors.ErrConflict, "license is already revoked")

	// Consent
	ErrConsentMissing     = errors.Reason("consent_missing", errors.ErrUnauthorized, "transfer requires approved provider consent")
	ErrConsentNotRequired = errors.Reason("consent_not_required", errors.ErrConflict, "license does not require consent")
	ErrConsentPending     = errors.Reason("consent_pending", errors.ErrConflict, "a consent request is already pending")
	ErrConsentDecided     = errors.Reason("consent_already_decided", errors.ErrConflict, "consent request is already decided")
	ErrLicenseRequired    = errors.Reason("license_required", errors.ErrUnauthorized, "requester holds no live license for this listing")
)
