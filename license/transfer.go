package license

import (
	"context"
	"time"

	"github.com/teranos/exchainge/amount"
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/events"
	"github.com/teranos/exchainge/ledger"
	"github.com/teranos/exchainge/logger"
	"github.com/teranos/exchainge/platform"
	"github.com/teranos/exchainge/types"
)

type transferTx interface {
	ledger.Reader
	ledger.OwnershipWriter
	ledger.ConsentWriter
}

// Transfer hands a license from its owner to another identity. Only
// transferable license types may move, at most types.MaxTransfers times.
// When the license requires consent the owner needs an approved request,
// which the transfer consumes.
func (e *Engine) Transfer(ctx context.Context, licenseID string, caller, to types.Identity) (types.License, error) {
	log := logger.FromContext(ctx, e.logger)
	now := e.clock.Now().UTC()

	var moved types.License
	err := e.store.Update(ctx, func(tx ledger.Tx) error {
		var err error
		moved, err = transfer(tx, licenseID, caller, to, now)
		return err
	})
	if err != nil {
		logger.Rejected(log, "license.transfer", err, logger.FieldLicenseID, licenseID, logger.FieldCaller, caller)
		return types.License{}, err
	}

	log.Infow("License transferred",
		logger.FieldLicenseID, licenseID,
		"from", caller,
		"to", to,
		logger.FieldCount, moved.Ownership.TransferCount,
	)
	e.sink.Emit(ctx, events.New(events.LicenseTransferred, licenseID, caller, now, map[string]any{
		"listing_id":     moved.ListingID,
		"to":             to.String(),
		"transfer_count": moved.Ownership.TransferCount,
	}))
	return moved, nil
}

func transfer(tx transferTx, licenseID string, caller, to types.Identity, now time.Time) (types.License, error) {
	if _, err := platform.RequireActive(tx); err != nil {
		return types.License{}, err
	}
	if err := to.Validate(); err != nil {
		return types.License{}, errors.Wrap(err, "recipient")
	}

	var needsConsent bool
	moved, err := tx.UpdateLicenseOwnership(licenseID, func(view types.License, o *types.Ownership) error {
		if caller != o.Owner {
			return errors.Wrapf(ErrNotOwner, "caller %s on license %s", caller.Short(), licenseID)
		}
		if o.Revoked {
			return errors.Wrapf(ErrRevoked, "license %s", licenseID)
		}
		if view.IsExpired(now) {
			return errors.Wrapf(ErrExpired, "license %s", licenseID)
		}
		if !view.Transferable {
			return errors.Wrapf(ErrNotTransferable, "%s license", view.LicenseType)
		}
		if o.TransferCount >= types.MaxTransfers {
			return errors.Wrapf(ErrTransferLimitReached, "%d transfers", o.TransferCount)
		}
		if to == o.Owner {
			return errors.WithStack(ErrTransferToSelf)
		}
		held, err := liveLicense(tx, view.ListingID, to, now)
		if err != nil {
			return err
		}
		if held != nil {
			return errors.Wrapf(ErrRecipientLicensed, "license %s", held.ID)
		}
		if view.UsageRights.ConsentRequired {
			c, err := tx.Consent(view.ListingID, caller)
			if errors.Is(err, ledger.ErrConsentNotFound) || (err == nil && !c.Approved()) {
				return errors.Wrapf(ErrConsentMissing, "license %s", licenseID)
			}
			if err != nil {
				return err
			}
			needsConsent = true
		}

		count, err := amount.Inc(uint64(o.TransferCount))
		if err != nil {
			return err
		}
		o.Owner = to
		o.TransferCount = uint8(count)
		return nil
	})
	if err != nil {
		return types.License{}, err
	}
	if needsConsent {
		if err := tx.CloseConsent(moved.ListingID, caller); err != nil {
			return types.License{}, err
		}
	}
	return moved, nil
}

// Revoke ends a license. The listing's provider or the platform authority
// may revoke; the license stays readable but grants no further access.
func (e *Engine) Revoke(ctx context.Context, licenseID string, caller types.Identity, reason string) (types.License, error) {
	log := logger.FromContext(ctx, e.logger)
	now := e.clock.Now().UTC()

	var revoked types.License
	err := e.store.Update(ctx, func(tx ledger.Tx) error {
		if len(reason) > types.MaxReasonLength {
			return errors.Wrapf(ErrReasonTooLong, "%d bytes, max %d", len(reason), types.MaxReasonLength)
		}
		p, err := tx.Platform()
		if err != nil {
			return err
		}
		revoked, err = tx.UpdateLicenseOwnership(licenseID, func(view types.License, o *types.Ownership) error {
			if caller != view.Provider && caller != p.Authority {
				return errors.Wrapf(ErrNotAuthorized, "caller %s on license %s", caller.Short(), licenseID)
			}
			if o.Revoked {
				return errors.Wrapf(ErrAlreadyRevoked, "license %s", licenseID)
			}
			o.Revoked = true
			o.RevokedAt = &now
			o.RevokedBy = caller
			o.RevokeReason = reason
			return nil
		})
		return err
	})
	if err != nil {
		logger.Rejected(log, "license.revoke", err, logger.FieldLicenseID, licenseID, logger.FieldCaller, caller)
		return types.License{}, err
	}

	log.Infow("License revoked", logger.FieldLicenseID, licenseID, logger.FieldCaller, caller, "reason", reason)
	e.sink.Emit(ctx, events.New(events.LicenseRevoked, licenseID, caller, now, map[string]any{
		"listing_id": revoked.ListingID,
		"reason":     reason,
	}))
	return revoked, nil
}
