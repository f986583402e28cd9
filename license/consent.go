package license

import (
	"context"
	"time"

	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/events"
	"github.com/teranos/exchainge/ledger"
	"github.com/teranos/exchainge/logger"
	"github.com/teranos/exchainge/types"
)

// RequestConsent asks a listing's provider to approve the resale of
// requester's license. A decided request may be replaced by a new one;
// a pending one may not.
func (e *Engine) RequestConsent(ctx context.Context, listingID string, requester types.Identity) (types.ConsentRequest, error) {
	log := logger.FromContext(ctx, e.logger)
	now := e.clock.Now().UTC()

	req := types.ConsentRequest{ListingID: listingID, Requester: requester, RequestedAt: now}
	err := e.store.Update(ctx, func(tx ledger.Tx) error {
		if _, err := tx.Listing(listingID); err != nil {
			return err
		}
		held, err := liveLicense(tx, listingID, requester, now)
		if err != nil {
			return err
		}
		if held == nil {
			return errors.Wrapf(ErrLicenseRequired, "requester %s on listing %s", requester.Short(), listingID)
		}
		if !held.UsageRights.ConsentRequired {
			return errors.Wrapf(ErrConsentNotRequired, "license %s", held.ID)
		}

		prev, err := tx.Consent(listingID, requester)
		switch {
		case errors.Is(err, ledger.ErrConsentNotFound):
		case err != nil:
			return err
		case !prev.Decision.Decided:
			return errors.Wrapf(ErrConsentPending, "requested at %s", prev.RequestedAt.Format(time.RFC3339))
		default:
			if err := tx.CloseConsent(listingID, requester); err != nil {
				return err
			}
		}
		return tx.CreateConsent(req)
	})
	if err != nil {
		logger.Rejected(log, "license.consent_request", err, logger.FieldListingID, listingID, logger.FieldCaller, requester)
		return types.ConsentRequest{}, err
	}

	log.Infow("Consent requested", logger.FieldListingID, listingID, logger.FieldCaller, requester)
	e.sink.Emit(ctx, events.New(events.ConsentRequested, listingID, requester, now, nil))
	return req, nil
}

// DecideConsent records the provider's answer to a pending request.
func (e *Engine) DecideConsent(ctx context.Context, listingID string, requester, caller types.Identity, approve bool) (types.ConsentRequest, error) {
	log := logger.FromContext(ctx, e.logger)
	now := e.clock.Now().UTC()

	var decided types.ConsentRequest
	err := e.store.Update(ctx, func(tx ledger.Tx) error {
		l, err := tx.Listing(listingID)
		if err != nil {
			return err
		}
		if caller != l.Provider {
			return errors.Wrapf(ErrNotProvider, "caller %s on listing %s", caller.Short(), listingID)
		}
		decided, err = tx.UpdateConsentDecision(listingID, requester, func(_ types.ConsentRequest, d *types.ConsentDecision) error {
			if d.Decided {
				return errors.WithStack(ErrConsentDecided)
			}
			d.Decided = true
			d.Approved = approve
			d.DecidedAt = &now
			return nil
		})
		return err
	})
	if err != nil {
		logger.Rejected(log, "license.consent_decide", err, logger.FieldListingID, listingID, logger.FieldCaller, caller)
		return types.ConsentRequest{}, err
	}

	log.Infow("Consent decided", logger.FieldListingID, listingID, "requester", requester, "approved", approve)
	e.sink.Emit(ctx, events.New(events.ConsentDecided, listingID, caller, now, map[string]any{
		"requester": requester.String(),
		"approved":  approve,
	}))
	return decided, nil
}
