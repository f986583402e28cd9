package listing

import (
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/ledger"
)

var (
	ErrNotFound = ledger.ErrListingNotFound

	ErrTitleEmpty             = errors.Reason("title_empty", errors.ErrValidation, "title is empty")
	ErrTitleTooLong           = errors.Reason("title_too_long", errors.ErrValidation, "title is too long")
	ErrPriceTooLow            = errors.Reason("price_too_low", errors.ErrValidation, "price is below the minimum")
	ErrPriceTooHigh           = errors.Reason("price_too_high", errors.ErrValidation, "price is above the maximum")
	ErrRoyaltyTooHigh         = errors.Reason("royalty_too_high", errors.ErrValidation, "royalty exceeds 5000 bps")
	ErrMaxOwnersInvalid       = errors.Reason("max_owners_invalid", errors.ErrValidation, "max owners out of range")
	ErrDurationInvalid        = errors.Reason("duration_invalid", errors.ErrValidation, "license duration out of range")
	ErrDescriptionTooLong     = errors.Reason("description_too_long", errors.ErrValidation, "description is too long")
	ErrURITooLong             = errors.Reason("uri_too_long", errors.ErrValidation, "uri is too long")
	ErrGeoRestrictionLong     = errors.Reason("geo_restriction_too_long", errors.ErrValidation, "geographic restriction is too long")
	ErrUsageLimitInvalid      = errors.Reason("usage_limit_invalid", errors.ErrValidation, "usage limit must be positive")
	ErrReasonTooLong          = errors.Reason("reason_too_long", errors.ErrValidation, "reason is too long")
	ErrNotProvider            = errors.Reason("not_provider", errors.ErrUnauthorized, "caller is not the listing provider")
	ErrNotAuthorized          = errors.Reason("not_authorized", errors.ErrUnauthorized, "caller may not deactivate this listing")
	ErrInactive               = errors.Reason("listing_inactive", errors.ErrConflict, "listing is not active")
	ErrExpired                = errors.Reason("listing_expired", errors.ErrConflict, "listing license window has expired")
	ErrAlreadyDeactivated     = errors.Reason("listing_already_deactivated", errors.ErrConflict, "listing is already deactivated")
	ErrPriceDecreaseAfterSale = errors.Reason("price_decrease_after_sale", errors.ErrConflict, "price cannot decrease after a sale")
)
