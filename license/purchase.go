package license

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/exchainge/amount"
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/events"
	"github.com/teranos/exchainge/ledger"
	"github.com/teranos/exchainge/logger"
	"github.com/teranos/exchainge/platform"
	"github.com/teranos/exchainge/types"
)

type purchaseTx interface {
	ledger.Reader
	ledger.SalesWriter
	ledger.TotalsWriter
}

// Purchase sells buyer a license on a listing for payment.
//
// Both rail transfers (seller share to the provider, fee to the treasury)
// run before anything is written. If either fails the purchase fails and
// no counter moves. A failure of the second leg after the first succeeded
// is logged at Error, since the seller has been paid for a sale that did
// not happen.
func (e *Engine) Purchase(ctx context.Context, listingID string, buyer types.Identity, payment uint64) (types.License, error) {
	log := logger.FromContext(ctx, e.logger)
	now := e.clock.Now().UTC()

	var lic types.License
	err := e.store.Update(ctx, func(tx ledger.Tx) error {
		var err error
		lic, err = e.purchase(ctx, log, tx, listingID, buyer, payment, now)
		return err
	})
	if err != nil {
		logger.Rejected(log, "license.purchase", err,
			logger.FieldListingID, listingID,
			logger.FieldBuyer, buyer,
			logger.FieldAmount, payment,
		)
		return types.License{}, err
	}

	log.Infow("License purchased",
		logger.FieldLicenseID, lic.ID,
		logger.FieldListingID, listingID,
		logger.FieldBuyer, buyer,
		logger.FieldAmount, lic.PurchasePrice,
		logger.FieldFee, lic.PlatformFee,
		logger.FieldSellerShare, lic.SellerShare,
	)
	e.sink.Emit(ctx, events.New(events.LicensePurchased, lic.ID, buyer, now, map[string]any{
		"listing_id":   listingID,
		"provider":     lic.Provider.String(),
		"price":        lic.PurchasePrice,
		"platform_fee": lic.PlatformFee,
		"seller_share": lic.SellerShare,
		"license_type": lic.LicenseType.String(),
	}))
	return lic, nil
}

func (e *Engine) purchase(ctx context.Context, log *zap.SugaredLogger, tx purchaseTx, listingID string, buyer types.Identity, payment uint64, now time.Time) (types.License, error) {
	p, err := platform.RequireActive(tx)
	if err != nil {
		return types.License{}, err
	}
	if err := buyer.Validate(); err != nil {
		return types.License{}, errors.Wrap(err, "buyer")
	}
	l, err := tx.Listing(listingID)
	if err != nil {
		return types.License{}, err
	}
	if err := checkSale(tx, l, buyer, payment, now); err != nil {
		return types.License{}, err
	}

	fee, share, err := amount.SplitFee(payment, p.Settings.FeeBps, amount.BPSDenominator)
	if err != nil {
		return types.License{}, errors.Wrap(err, "fee split")
	}

	// All counter arithmetic happens before the rail moves value.
	sales, err := amount.Inc(l.Sales.TotalSales)
	if err != nil {
		return types.License{}, errors.Wrap(err, "listing total sales")
	}
	earned, err := amount.Add(l.Sales.RevenueEarned, share)
	if err != nil {
		return types.License{}, errors.Wrap(err, "listing revenue")
	}
	revenue, err := amount.Add(p.Totals.Revenue, fee)
	if err != nil {
		return types.License{}, errors.Wrap(err, "platform revenue")
	}
	purchases, err := amount.Inc(p.Totals.Purchases)
	if err != nil {
		return types.License{}, errors.Wrap(err, "platform purchases")
	}

	if err := e.rail.Transfer(ctx, buyer, l.Provider, share); err != nil {
		return types.License{}, errors.WithSecondaryError(
			errors.Wrapf(ErrPaymentFailed, "seller share %d to %s", share, l.Provider.Short()), err)
	}
	if err := e.rail.Transfer(ctx, buyer, p.Settings.Treasury, fee); err != nil {
		log.Errorw("Platform fee transfer failed after seller was paid",
			logger.FieldListingID, l.ID,
			logger.FieldBuyer, buyer,
			logger.FieldProvider, l.Provider,
			logger.FieldSellerShare, share,
			logger.FieldFee, fee,
			logger.FieldError, err,
		)
		return types.License{}, errors.WithSecondaryError(
			errors.Wrapf(ErrPaymentFailed, "platform fee %d to treasury", fee), err)
	}

	if _, err := tx.UpdateListingSales(l.ID, now, func(view types.Listing, s *types.SalesState) error {
		s.TotalSales = sales
		s.RevenueEarned = earned
		if view.LicenseType == types.Exclusive {
			s.SoldOut = true
		}
		return nil
	}); err != nil {
		return types.License{}, err
	}
	if _, err := tx.UpdatePlatformTotals(now, func(_ types.Platform, t *types.PlatformTotals) error {
		t.Revenue = revenue
		t.Purchases = purchases
		return nil
	}); err != nil {
		return types.License{}, err
	}

	lic := types.License{
		ID:            uuid.NewString(),
		ListingID:     l.ID,
		Provider:      l.Provider,
		OriginalBuyer: buyer,
		LicenseType:   l.LicenseType,
		UsageRights:   l.Terms.UsageRights.Clone(),
		PurchasePrice: payment,
		PlatformFee:   fee,
		SellerShare:   share,
		PurchasedAt:   now,
		ExpiresAt:     l.ExpiresAt,
		UsageLimit:    l.UsageLimit,
		Transferable:  l.LicenseType.Transferable(),
		Ownership:     types.Ownership{Owner: buyer},
	}
	if err := tx.CreateLicense(lic); err != nil {
		return types.License{}, err
	}
	return lic, nil
}

// checkSale applies the purchase preconditions in order and returns the
// first that fails. A sold-out Exclusive listing is reported as sold rather
// than inactive.
func checkSale(r ledger.Reader, l types.Listing, buyer types.Identity, payment uint64, now time.Time) error {
	if l.Deactivation.Deactivated {
		return errors.Wrapf(ErrListingInactive, "listing %s", l.ID)
	}
	if !l.Verification.Verified {
		return errors.Wrapf(ErrNotVerified, "listing %s", l.ID)
	}
	if l.IsExpired(now) {
		return errors.Wrapf(ErrListingExpired, "listing %s expired at %s", l.ID, l.ExpiresAt.Format(time.RFC3339))
	}
	if buyer == l.Provider {
		return errors.Wrapf(ErrSelfPurchase, "listing %s", l.ID)
	}

	price := l.Terms.Price
	if payment < price {
		return errors.Wrapf(ErrPaymentTooLow, "%d < price %d", payment, price)
	}
	ceiling, err := amount.Mul(price, types.MaxPaymentMultiplier)
	if err != nil {
		return errors.Wrap(err, "payment ceiling")
	}
	if payment > ceiling {
		return errors.Wrapf(ErrPaymentTooHigh, "%d > %d", payment, ceiling)
	}

	if l.LicenseType.IsExclusive() {
		if l.Sales.TotalSales > 0 {
			return errors.Wrapf(ErrExclusiveSold, "listing %s", l.ID)
		}
	} else if l.MaxOwners != nil && l.Sales.TotalSales >= uint64(*l.MaxOwners) {
		return errors.Wrapf(ErrMaxOwnersReached, "%d of %d sold", l.Sales.TotalSales, *l.MaxOwners)
	}

	held, err := liveLicense(r, l.ID, buyer, now)
	if err != nil {
		return err
	}
	if held != nil {
		return errors.Wrapf(ErrAlreadyLicensed, "license %s", held.ID)
	}
	return nil
}

// liveLicense returns the unrevoked, unexpired license owner holds on a
// listing, or nil.
func liveLicense(r ledger.Reader, listingID string, owner types.Identity, now time.Time) (*types.License, error) {
	owned, err := r.LicensesByOwner(owner)
	if err != nil {
		return nil, err
	}
	for i := range owned {
		if owned[i].ListingID == listingID && owned[i].IsLive(now) {
			return &owned[i], nil
		}
	}
	return nil, nil
}
