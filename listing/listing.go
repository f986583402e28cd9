// Package listing is the registry of datasets offered for license.
//
// A listing's fields are split by owner. The provider edits Terms and may
// deactivate; the verification engine owns Verification; the licensing
// engine owns Sales. This package only ever holds the ProviderWriter side.
package listing

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/filecoin-project/go-clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/exchainge/amount"
	"github.com/teranos/exchainge/contenthash"
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/events"
	"github.com/teranos/exchainge/ledger"
	"github.com/teranos/exchainge/logger"
	"github.com/teranos/exchainge/platform"
	"github.com/teranos/exchainge/types"
)

// Config holds the pricing bounds.
type Config struct {
	MinPrice uint64
	MaxPrice uint64
}

// CreateParams describes a new listing. Optional bounds are nil when unset.
type CreateParams struct {
	Provider     types.Identity
	Title        string
	Description  string
	URI          string
	Price        uint64
	LicenseType  types.LicenseType
	ContentHash  string
	UsageRights  types.UsageRights
	RoyaltyBps   uint16
	MaxOwners    *uint32
	DurationDays *uint32
	UsageLimit   *uint64
}

// UpdateParams changes the provider-editable fields that are set.
type UpdateParams struct {
	URI         *string
	Description *string
	Price       *uint64
}

// Registry creates and edits listings.
type Registry struct {
	store  ledger.Store
	cfg    Config
	clock  clock.Clock
	sink   events.Sink
	logger *zap.SugaredLogger
}

// NewRegistry creates a listing registry.
func NewRegistry(store ledger.Store, cfg Config, clk clock.Clock, sink events.Sink, log *zap.SugaredLogger) *Registry {
	if clk == nil {
		clk = clock.New()
	}
	if sink == nil {
		sink = events.Discard
	}
	if log == nil {
		log = logger.ComponentLogger("listing")
	}
	return &Registry{store: store, cfg: cfg, clock: clk, sink: sink, logger: log}
}

type createTx interface {
	ledger.Reader
	ledger.ProviderWriter
	ledger.TotalsWriter
}

// Create validates p and stores a new unverified, active listing.
func (r *Registry) Create(ctx context.Context, p CreateParams) (types.Listing, error) {
	log := logger.FromContext(ctx, r.logger)
	now := r.clock.Now().UTC()

	var created types.Listing
	err := r.store.Update(ctx, func(tx ledger.Tx) error {
		var err error
		created, err = r.create(tx, p, now)
		return err
	})
	if err != nil {
		logger.Rejected(log, "listing.create", err, logger.FieldProvider, p.Provider)
		return types.Listing{}, err
	}

	log.Infow("Listing created",
		logger.FieldListingID, created.ID,
		logger.FieldProvider, created.Provider,
		logger.FieldAmount, created.Terms.Price,
		"license_type", created.LicenseType.String(),
	)
	r.sink.Emit(ctx, events.New(events.ListingCreated, created.ID, created.Provider, now, map[string]any{
		"price":        created.Terms.Price,
		"license_type": created.LicenseType.String(),
		"content_hash": created.ContentHash,
	}))
	return created, nil
}

func (r *Registry) create(tx createTx, p CreateParams, now time.Time) (types.Listing, error) {
	if _, err := platform.RequireActive(tx); err != nil {
		return types.Listing{}, err
	}
	if err := p.Provider.Validate(); err != nil {
		return types.Listing{}, errors.Wrap(err, "provider")
	}
	if err := ValidateCreate(p, r.cfg); err != nil {
		return types.Listing{}, err
	}

	l := types.Listing{
		ID:          uuid.NewString(),
		Provider:    p.Provider,
		LicenseType: p.LicenseType,
		ContentHash: p.ContentHash,
		MaxOwners:   p.MaxOwners,
		UsageLimit:  p.UsageLimit,
		CreatedAt:   now,
		UpdatedAt:   now,
		Terms: types.Terms{
			Title:       strings.TrimSpace(p.Title),
			Description: p.Description,
			URI:         p.URI,
			Price:       p.Price,
			UsageRights: p.UsageRights.Clone(),
			RoyaltyBps:  p.RoyaltyBps,
		},
	}
	if p.DurationDays != nil {
		expires := now.Add(time.Duration(*p.DurationDays) * 24 * time.Hour)
		l.ExpiresAt = &expires
	}

	if _, err := tx.UpdatePlatformTotals(now, func(_ types.Platform, t *types.PlatformTotals) error {
		n, err := amount.Inc(t.Datasets)
		if err != nil {
			return errors.Wrap(err, "total datasets")
		}
		t.Datasets = n
		return nil
	}); err != nil {
		return types.Listing{}, err
	}
	if err := tx.CreateListing(l); err != nil {
		return types.Listing{}, err
	}
	return l, nil
}

// ValidateCreate checks p field by field and returns the first failing
// reason. It does not consult any stored state.
func ValidateCreate(p CreateParams, cfg Config) error {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return errors.WithStack(ErrTitleEmpty)
	}
	if n := utf8.RuneCountInString(title); n > types.MaxTitleLength {
		return errors.Wrapf(ErrTitleTooLong, "%d characters, max %d", n, types.MaxTitleLength)
	}
	if err := checkPrice(p.Price, cfg); err != nil {
		return err
	}
	if p.RoyaltyBps > types.MaxRoyaltyBps {
		return errors.Wrapf(ErrRoyaltyTooHigh, "%d bps", p.RoyaltyBps)
	}
	if !p.LicenseType.Valid() {
		return errors.Wrapf(types.ErrUnknownLicenseType, "value %d", uint8(p.LicenseType))
	}
	if _, err := contenthash.Validate(p.ContentHash); err != nil {
		return err
	}
	if p.MaxOwners != nil && (*p.MaxOwners == 0 || *p.MaxOwners > types.MaxOwnersLimit) {
		return errors.Wrapf(ErrMaxOwnersInvalid, "%d, want 1..%d", *p.MaxOwners, types.MaxOwnersLimit)
	}
	if p.DurationDays != nil && (*p.DurationDays == 0 || *p.DurationDays > types.MaxLicenseDurationDays) {
		return errors.Wrapf(ErrDurationInvalid, "%d days, want 1..%d", *p.DurationDays, types.MaxLicenseDurationDays)
	}
	if len(p.Description) > types.MaxDescriptionLength {
		return errors.Wrapf(ErrDescriptionTooLong, "%d bytes, max %d", len(p.Description), types.MaxDescriptionLength)
	}
	if len(p.URI) > types.MaxURILength {
		return errors.Wrapf(ErrURITooLong, "%d bytes, max %d", len(p.URI), types.MaxURILength)
	}
	if geo := p.UsageRights.GeographicRestrictions; geo != nil && len(*geo) > types.MaxGeoRestrictionLength {
		return errors.Wrapf(ErrGeoRestrictionLong, "%d bytes, max %d", len(*geo), types.MaxGeoRestrictionLength)
	}
	if p.UsageLimit != nil && *p.UsageLimit == 0 {
		return errors.WithStack(ErrUsageLimitInvalid)
	}
	return nil
}

func checkPrice(price uint64, cfg Config) error {
	if price < cfg.MinPrice {
		return errors.Wrapf(ErrPriceTooLow, "%d < %d", price, cfg.MinPrice)
	}
	if cfg.MaxPrice > 0 && price > cfg.MaxPrice {
		return errors.Wrapf(ErrPriceTooHigh, "%d > %d", price, cfg.MaxPrice)
	}
	return nil
}

// Update applies u to a listing. Only the provider may update, only while
// the listing is active, and once a sale exists the price may not drop.
func (r *Registry) Update(ctx context.Context, caller types.Identity, id string, u UpdateParams) (types.Listing, error) {
	log := logger.FromContext(ctx, r.logger)
	now := r.clock.Now().UTC()

	var updated types.Listing
	err := r.store.Update(ctx, func(tx ledger.Tx) error {
		var err error
		updated, err = tx.UpdateListingTerms(id, now, func(view types.Listing, terms *types.Terms) error {
			if caller != view.Provider {
				return errors.Wrapf(ErrNotProvider, "caller %s on listing %s", caller.Short(), id)
			}
			if !view.IsActive() {
				return errors.Wrapf(ErrInactive, "listing %s", id)
			}
			if u.Price != nil {
				if view.Sales.TotalSales > 0 && *u.Price < terms.Price {
					return errors.Wrapf(ErrPriceDecreaseAfterSale, "%d -> %d after %d sales", terms.Price, *u.Price, view.Sales.TotalSales)
				}
				if err := checkPrice(*u.Price, r.cfg); err != nil {
					return err
				}
				terms.Price = *u.Price
			}
			if u.URI != nil {
				if len(*u.URI) > types.MaxURILength {
					return errors.Wrapf(ErrURITooLong, "%d bytes, max %d", len(*u.URI), types.MaxURILength)
				}
				terms.URI = *u.URI
			}
			if u.Description != nil {
				if len(*u.Description) > types.MaxDescriptionLength {
					return errors.Wrapf(ErrDescriptionTooLong, "%d bytes, max %d", len(*u.Description), types.MaxDescriptionLength)
				}
				terms.Description = *u.Description
			}
			return nil
		})
		return err
	})
	if err != nil {
		logger.Rejected(log, "listing.update", err, logger.FieldListingID, id, logger.FieldCaller, caller)
		return types.Listing{}, err
	}

	log.Infow("Listing updated", logger.FieldListingID, id, logger.FieldAmount, updated.Terms.Price)
	r.sink.Emit(ctx, events.New(events.ListingUpdated, id, caller, now, map[string]any{
		"price": updated.Terms.Price,
		"uri":   updated.Terms.URI,
	}))
	return updated, nil
}

// Deactivate takes a listing off the market permanently. The provider or
// the platform authority may call it.
func (r *Registry) Deactivate(ctx context.Context, caller types.Identity, id, reason string) (types.Listing, error) {
	log := logger.FromContext(ctx, r.logger)
	now := r.clock.Now().UTC()

	var updated types.Listing
	err := r.store.Update(ctx, func(tx ledger.Tx) error {
		if len(reason) > types.MaxReasonLength {
			return errors.Wrapf(ErrReasonTooLong, "%d bytes, max %d", len(reason), types.MaxReasonLength)
		}
		p, err := tx.Platform()
		if err != nil {
			return err
		}
		updated, err = tx.UpdateListingDeactivation(id, now, func(view types.Listing, d *types.Deactivation) error {
			if caller != view.Provider && caller != p.Authority {
				return errors.Wrapf(ErrNotAuthorized, "caller %s on listing %s", caller.Short(), id)
			}
			if d.Deactivated {
				return errors.Wrapf(ErrAlreadyDeactivated, "listing %s", id)
			}
			d.Deactivated = true
			d.Reason = reason
			d.At = &now
			d.By = caller
			return nil
		})
		return err
	})
	if err != nil {
		logger.Rejected(log, "listing.deactivate", err, logger.FieldListingID, id, logger.FieldCaller, caller)
		return types.Listing{}, err
	}

	log.Infow("Listing deactivated", logger.FieldListingID, id, logger.FieldCaller, caller, "reason", reason)
	r.sink.Emit(ctx, events.New(events.ListingDeactivated, id, caller, now, map[string]any{"reason": reason}))
	return updated, nil
}

// Get returns a listing by id.
func (r *Registry) Get(ctx context.Context, id string) (types.Listing, error) {
	var l types.Listing
	err := r.store.View(ctx, func(rd ledger.Reader) error {
		var err error
		l, err = rd.Listing(id)
		return err
	})
	return l, err
}

// ListByProvider returns a provider's listings in creation order.
func (r *Registry) ListByProvider(ctx context.Context, provider types.Identity) ([]types.Listing, error) {
	var out []types.Listing
	err := r.store.View(ctx, func(rd ledger.Reader) error {
		var err error
		out, err = rd.ListingsByProvider(provider)
		return err
	})
	return out, err
}
