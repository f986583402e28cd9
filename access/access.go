// Package access decides whether a license holder may use the licensed
// data, and counts each use against the license.
package access

import (
	"context"
	"time"

	"github.com/filecoin-project/go-clock"
	"go.uber.org/zap"

	"github.com/teranos/exchainge/amount"
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/events"
	"github.com/teranos/exchainge/ledger"
	"github.com/teranos/exchainge/license"
	"github.com/teranos/exchainge/logger"
	"github.com/teranos/exchainge/types"
)

// Type is the kind of use being requested.
type Type string

const (
	Download Type = "download"
	Stream   Type = "stream"
	// API serves the data to third parties and needs commercial use rights.
	API Type = "api"
	// Compute runs training in place and needs AI training rights.
	Compute Type = "compute"
)

var (
	ErrNotOwner = license.ErrNotOwner
	ErrRevoked  = license.ErrRevoked
	ErrExpired  = license.ErrExpired

	ErrUsageLimitReached     = errors.Reason("usage_limit_reached", errors.ErrConflict, "license usage limit reached")
	ErrCommercialUseRequired = errors.Reason("commercial_use_required", errors.ErrUnauthorized, "api access requires commercial use rights")
	ErrAITrainingRequired    = errors.Reason("ai_training_required", errors.ErrUnauthorized, "compute access requires ai training rights")
	ErrUnknownType           = errors.Reason("access_type_unknown", errors.ErrValidation, "unknown access type")
)

// Types lists every access type.
func Types() []Type {
	return []Type{Download, Stream, API, Compute}
}

// ParseType parses an access type name.
func ParseType(s string) (Type, error) {
	for _, t := range Types() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownType, "%q", s)
}

// Grant is the outcome of a successful authorization. It is returned to the
// caller and never stored; only the license's usage counters persist.
type Grant struct {
	LicenseID   string    `json:"license_id"`
	Type        Type      `json:"type"`
	GrantedAt   time.Time `json:"granted_at"`
	AccessCount uint64    `json:"access_count"`
	// Remaining is nil for licenses without a usage limit.
	Remaining *uint64 `json:"remaining,omitempty"`
}

// Check reports whether requester may use lic for t at now. It reads lic
// only. The usage limit is checked before expiry, so an exhausted license
// reports usage_limit_reached whether or not it has also expired.
func Check(lic types.License, requester types.Identity, t Type, now time.Time) error {
	if lic.Ownership.Owner != requester {
		return errors.Wrapf(ErrNotOwner, "requester %s on license %s", requester.Short(), lic.ID)
	}
	if lic.Ownership.Revoked {
		return errors.Wrapf(ErrRevoked, "license %s", lic.ID)
	}
	if lic.UsageLimit != nil && lic.Usage.AccessCount >= *lic.UsageLimit {
		return errors.Wrapf(ErrUsageLimitReached, "%d of %d used", lic.Usage.AccessCount, *lic.UsageLimit)
	}
	if lic.IsExpired(now) {
		return errors.Wrapf(ErrExpired, "license %s expired at %s", lic.ID, lic.ExpiresAt.Format(time.RFC3339))
	}
	switch t {
	case Download, Stream:
	case API:
		if !lic.UsageRights.CommercialUse {
			return errors.WithStack(ErrCommercialUseRequired)
		}
	case Compute:
		if !lic.UsageRights.AITrainingAllowed {
			return errors.WithStack(ErrAITrainingRequired)
		}
	default:
		return errors.Wrapf(ErrUnknownType, "%q", string(t))
	}
	return nil
}

// Controller authorizes and records access.
type Controller struct {
	store  ledger.Store
	clock  clock.Clock
	sink   events.Sink
	logger *zap.SugaredLogger
}

// NewController creates an access controller.
func NewController(store ledger.Store, clk clock.Clock, sink events.Sink, log *zap.SugaredLogger) *Controller {
	if clk == nil {
		clk = clock.New()
	}
	if sink == nil {
		sink = events.Discard
	}
	if log == nil {
		log = logger.ComponentLogger("access")
	}
	return &Controller{store: store, clock: clk, sink: sink, logger: log}
}

// Authorize checks the request and, when it passes, counts the access.
// A denied request changes nothing.
func (c *Controller) Authorize(ctx context.Context, licenseID string, requester types.Identity, t Type) (Grant, error) {
	log := logger.FromContext(ctx, c.logger)
	now := c.clock.Now().UTC()

	var used types.License
	err := c.store.Update(ctx, func(tx ledger.Tx) error {
		var err error
		used, err = tx.UpdateLicenseUsage(licenseID, func(view types.License, u *types.Usage) error {
			if err := Check(view, requester, t, now); err != nil {
				return err
			}
			count, err := amount.Inc(u.AccessCount)
			if err != nil {
				return errors.Wrap(err, "access count")
			}
			u.AccessCount = count
			u.LastAccess = &now
			return nil
		})
		return err
	})
	if err != nil {
		logger.Rejected(log, "access.authorize", err,
			logger.FieldLicenseID, licenseID,
			logger.FieldCaller, requester,
			"access_type", string(t),
		)
		return Grant{}, err
	}

	g := Grant{
		LicenseID:   licenseID,
		Type:        t,
		GrantedAt:   now,
		AccessCount: used.Usage.AccessCount,
		Remaining:   used.Remaining(),
	}
	log.Infow("Access granted",
		logger.FieldLicenseID, licenseID,
		logger.FieldCaller, requester,
		"access_type", string(t),
		logger.FieldCount, g.AccessCount,
	)
	c.sink.Emit(ctx, events.New(events.AccessRecorded, licenseID, requester, now, map[string]any{
		"listing_id":   used.ListingID,
		"access_type":  string(t),
		"access_count": g.AccessCount,
	}))
	return g, nil
}
