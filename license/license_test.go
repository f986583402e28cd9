package license

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/filecoin-project/go-clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/exchainge/amount"
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/events"
	"github.com/teranos/exchainge/internal/testutil"
	"github.com/teranos/exchainge/ledger"
	"github.com/teranos/exchainge/listing"
	"github.com/teranos/exchainge/payment"
	"github.com/teranos/exchainge/platform"
	"github.com/teranos/exchainge/types"
)

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	price  uint64 = 100_000
	feeBps uint64 = 500
)

type fixture struct {
	engine    *Engine
	store     ledger.Store
	wallet    *payment.MemoryWallet
	clock     *clock.Mock
	events    *events.Recorder
	listings  *listing.Registry
	authority types.Identity
	treasury  types.Identity
	provider  types.Identity
	buyer     types.Identity
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithRail(t, nil)
}

// newFixtureWithRail settles purchases over rail when it is set, and over
// the fixture's wallet otherwise.
func newFixtureWithRail(t *testing.T, rail payment.Rail) *fixture {
	clk := clock.NewMock()
	clk.Set(start)
	return newFixtureOn(t, ledger.NewMemoryStore(ledger.WithClock(clk)), clk, rail)
}

// newFixtureOnSQLite runs the engine over a file-backed SQLite ledger, so
// concurrent purchases contend for the database write lock.
func newFixtureOnSQLite(t *testing.T) *fixture {
	clk := clock.NewMock()
	clk.Set(start)
	store, err := ledger.OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"), ledger.WithClock(clk))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return newFixtureOn(t, store, clk, nil)
}

func newFixtureOn(t *testing.T, store ledger.Store, clk *clock.Mock, rail payment.Rail) *fixture {
	ctx := context.Background()
	f := &fixture{
		store:     store,
		wallet:    payment.NewMemoryWallet(),
		clock:     clk,
		events:    &events.Recorder{},
		authority: testutil.Identity(t, "authority"),
		treasury:  testutil.Identity(t, "treasury"),
		provider:  testutil.Identity(t, "provider"),
		buyer:     testutil.Identity(t, "buyer"),
	}
	if rail == nil {
		rail = f.wallet
	}
	f.engine = NewEngine(store, rail, clk, f.events, zap.NewNop().Sugar())
	f.listings = listing.NewRegistry(store, listing.Config{MinPrice: 1}, clk, nil, zap.NewNop().Sugar())

	require.NoError(t, store.Update(ctx, func(tx ledger.Tx) error {
		return tx.CreatePlatform(types.Platform{
			Authority: f.authority,
			Settings:  types.PlatformSettings{Treasury: f.treasury, FeeBps: feeBps},
		})
	}))
	require.NoError(t, f.wallet.Deposit(ctx, f.buyer, 10*price))
	return f
}

type listingOpt func(*listing.CreateParams)

func withType(lt types.LicenseType) listingOpt {
	return func(p *listing.CreateParams) { p.LicenseType = lt }
}

func withRights(r types.UsageRights) listingOpt {
	return func(p *listing.CreateParams) { p.UsageRights = r }
}

// listing creates a listing and marks it verified unless unverified is set.
func (f *fixture) listing(t *testing.T, verified bool, opts ...listingOpt) types.Listing {
	ctx := context.Background()
	p := listing.CreateParams{
		Provider:    f.provider,
		Title:       "Harbour sonar sweeps",
		Price:       price,
		LicenseType: types.SharedOwnership,
		ContentHash: testutil.ContentHash("sonar"),
		UsageRights: types.UsageRights{CommercialUse: true},
	}
	for _, opt := range opts {
		opt(&p)
	}
	l, err := f.listings.Create(ctx, p)
	require.NoError(t, err)
	if !verified {
		return l
	}
	require.NoError(t, f.store.Update(ctx, func(tx ledger.Tx) error {
		l, err = tx.UpdateListingVerification(l.ID, start, func(_ types.Listing, v *types.VerificationState) error {
			v.Verified = true
			v.Commitment = types.Digest{1}
			v.VerifiedAt = testutil.Ptr(start)
			return nil
		})
		return err
	}))
	return l
}

func (f *fixture) stored(t *testing.T, id string) types.Listing {
	var l types.Listing
	require.NoError(t, f.store.View(context.Background(), func(r ledger.Reader) error {
		var err error
		l, err = r.Listing(id)
		return err
	}))
	return l
}

func (f *fixture) platform(t *testing.T) types.Platform {
	var p types.Platform
	require.NoError(t, f.store.View(context.Background(), func(r ledger.Reader) error {
		var err error
		p, err = r.Platform()
		return err
	}))
	return p
}

func (f *fixture) balance(t *testing.T, id types.Identity) uint64 {
	b, err := f.wallet.Balance(context.Background(), id)
	require.NoError(t, err)
	return b
}

func (f *fixture) fund(t *testing.T, name string) types.Identity {
	id := testutil.Identity(t, name)
	require.NoError(t, f.wallet.Deposit(context.Background(), id, 10*price))
	return id
}

func TestPurchase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	geo := "EU"
	l := f.listing(t, true, withRights(types.UsageRights{CommercialUse: true, GeographicRestrictions: &geo}))

	lic, err := f.engine.Purchase(ctx, l.ID, f.buyer, price)
	require.NoError(t, err)

	assert.Equal(t, l.ID, lic.ListingID)
	assert.Equal(t, f.provider, lic.Provider)
	assert.Equal(t, f.buyer, lic.OriginalBuyer)
	assert.Equal(t, f.buyer, lic.Ownership.Owner)
	assert.Equal(t, types.SharedOwnership, lic.LicenseType)
	assert.True(t, lic.Transferable)
	assert.Equal(t, price, lic.PurchasePrice)
	assert.Equal(t, uint64(5_000), lic.PlatformFee)
	assert.Equal(t, uint64(95_000), lic.SellerShare)
	assert.Equal(t, start, lic.PurchasedAt)
	assert.Nil(t, lic.ExpiresAt)

	assert.Equal(t, uint64(95_000), f.balance(t, f.provider))
	assert.Equal(t, uint64(5_000), f.balance(t, f.treasury))
	assert.Equal(t, 9*price, f.balance(t, f.buyer))

	stored := f.stored(t, l.ID)
	assert.Equal(t, uint64(1), stored.Sales.TotalSales)
	assert.True(t, stored.IsActive())

	totals := f.platform(t).Totals
	assert.Equal(t, uint64(5_000), totals.Revenue)
	assert.Equal(t, uint64(1), totals.Purchases)
	assert.Equal(t, []string{events.LicensePurchased}, f.events.Types())

	got, err := f.engine.Get(ctx, lic.ID)
	require.NoError(t, err)
	assert.Equal(t, lic, got)

	// The license keeps the rights it was sold with.
	require.NoError(t, f.store.Update(ctx, func(tx ledger.Tx) error {
		_, err := tx.UpdateListingTerms(l.ID, start, func(_ types.Listing, terms *types.Terms) error {
			terms.UsageRights.GeographicRestrictions = testutil.Ptr("worldwide")
			return nil
		})
		return err
	}))
	got, err = f.engine.Get(ctx, lic.ID)
	require.NoError(t, err)
	require.NotNil(t, got.UsageRights.GeographicRestrictions)
	assert.Equal(t, "EU", *got.UsageRights.GeographicRestrictions)
}

func TestPurchaseRevenueRoundTrip(t *testing.T) {
	f := newFixture(t)
	l := f.listing(t, true)

	_, err := f.engine.Purchase(context.Background(), l.ID, f.buyer, price)
	require.NoError(t, err)

	_, share, err := amount.SplitFee(price, feeBps, amount.BPSDenominator)
	require.NoError(t, err)
	assert.Equal(t, share, f.stored(t, l.ID).Sales.RevenueEarned)
}

func TestPurchaseFeeOnPayment(t *testing.T) {
	f := newFixture(t)
	l := f.listing(t, true)

	lic, err := f.engine.Purchase(context.Background(), l.ID, f.buyer, 3*price)
	require.NoError(t, err)
	assert.Equal(t, uint64(15_000), lic.PlatformFee)
	assert.Equal(t, uint64(285_000), lic.SellerShare)
	assert.Equal(t, 3*price, lic.PlatformFee+lic.SellerShare)
}

func TestPurchaseExclusive(t *testing.T) {
	ctx := context.Background()

	t.Run("exclusive sells once and closes", func(t *testing.T) {
		f := newFixture(t)
		l := f.listing(t, true, withType(types.Exclusive))

		lic, err := f.engine.Purchase(ctx, l.ID, f.buyer, price)
		require.NoError(t, err)
		assert.False(t, lic.Transferable)

		_, err = f.engine.Purchase(ctx, l.ID, f.fund(t, "second-buyer"), price)
		assert.True(t, errors.Is(err, ErrExclusiveSold), "got %v", err)

		stored := f.stored(t, l.ID)
		assert.Equal(t, uint64(1), stored.Sales.TotalSales)
		assert.True(t, stored.Sales.SoldOut)
		assert.False(t, stored.IsActive())
	})

	t.Run("transferable exclusive stays active", func(t *testing.T) {
		f := newFixture(t)
		l := f.listing(t, true, withType(types.TransferableExclusive))

		lic, err := f.engine.Purchase(ctx, l.ID, f.buyer, price)
		require.NoError(t, err)
		assert.True(t, lic.Transferable)

		_, err = f.engine.Purchase(ctx, l.ID, f.fund(t, "second-buyer"), price)
		assert.True(t, errors.Is(err, ErrExclusiveSold))

		stored := f.stored(t, l.ID)
		assert.Equal(t, uint64(1), stored.Sales.TotalSales)
		assert.True(t, stored.IsActive())
	})
}

func TestPurchaseExclusiveConcurrent(t *testing.T) {
	const buyers = 16
	fixtures := map[string]func(t *testing.T) *fixture{
		"memory": newFixture,
		"sqlite": newFixtureOnSQLite,
	}
	for name, newF := range fixtures {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newF(t)
			l := f.listing(t, true, withType(types.Exclusive))

			ids := make([]types.Identity, buyers)
			for i := range ids {
				ids[i] = f.fund(t, "racer-"+string(rune('a'+i)))
			}

			errs := make([]error, buyers)
			var wg sync.WaitGroup
			for i, id := range ids {
				wg.Add(1)
				go func(i int, id types.Identity) {
					defer wg.Done()
					_, errs[i] = f.engine.Purchase(ctx, l.ID, id, price)
				}(i, id)
			}
			wg.Wait()

			won := 0
			for _, err := range errs {
				if err == nil {
					won++
					continue
				}
				assert.True(t, errors.Is(err, ErrExclusiveSold), "got %v", err)
			}
			assert.Equal(t, 1, won)

			stored := f.stored(t, l.ID)
			assert.Equal(t, uint64(1), stored.Sales.TotalSales)
			assert.True(t, stored.Sales.SoldOut)
			assert.Equal(t, uint64(1), f.platform(t).Totals.Purchases)
			assert.Equal(t, uint64(5_000), f.platform(t).Totals.Revenue)
			assert.Equal(t, uint64(95_000), f.balance(t, f.provider))

			lics, err := f.engine.ListByListing(ctx, l.ID)
			require.NoError(t, err)
			assert.Len(t, lics, 1)
		})
	}
}

func TestPurchaseMaxOwners(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	l := f.listing(t, true, func(p *listing.CreateParams) {
		p.LicenseType = types.ViewOnlyShared
		p.MaxOwners = testutil.Ptr(uint32(2))
	})

	_, err := f.engine.Purchase(ctx, l.ID, f.buyer, price)
	require.NoError(t, err)
	_, err = f.engine.Purchase(ctx, l.ID, f.fund(t, "second"), price)
	require.NoError(t, err)
	_, err = f.engine.Purchase(ctx, l.ID, f.fund(t, "third"), price)
	assert.True(t, errors.Is(err, ErrMaxOwnersReached))
	assert.Equal(t, uint64(2), f.stored(t, l.ID).Sales.TotalSales)
}

func TestPurchasePreconditions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		setup  func(t *testing.T, f *fixture) (listingID string, buyer types.Identity, pay uint64)
		reason error
	}{
		{"unknown listing", func(t *testing.T, f *fixture) (string, types.Identity, uint64) {
			return "missing", f.buyer, price
		}, listing.ErrNotFound},
		{"unverified", func(t *testing.T, f *fixture) (string, types.Identity, uint64) {
			return f.listing(t, false).ID, f.buyer, price
		}, ErrNotVerified},
		{"deactivated", func(t *testing.T, f *fixture) (string, types.Identity, uint64) {
			l := f.listing(t, true)
			_, err := f.listings.Deactivate(ctx, f.provider, l.ID, "")
			require.NoError(t, err)
			return l.ID, f.buyer, price
		}, ErrListingInactive},
		{"expired", func(t *testing.T, f *fixture) (string, types.Identity, uint64) {
			l := f.listing(t, true, func(p *listing.CreateParams) { p.DurationDays = testutil.Ptr(uint32(30)) })
			f.clock.Add(30*24*time.Hour + time.Second)
			return l.ID, f.buyer, price
		}, ErrListingExpired},
		{"self purchase", func(t *testing.T, f *fixture) (string, types.Identity, uint64) {
			return f.listing(t, true).ID, f.provider, price
		}, ErrSelfPurchase},
		{"underpaid", func(t *testing.T, f *fixture) (string, types.Identity, uint64) {
			return f.listing(t, true).ID, f.buyer, price - 1
		}, ErrPaymentTooLow},
		{"more than ten times the price", func(t *testing.T, f *fixture) (string, types.Identity, uint64) {
			return f.listing(t, true).ID, f.buyer, 10*price + 1
		}, ErrPaymentTooHigh},
		{"already licensed", func(t *testing.T, f *fixture) (string, types.Identity, uint64) {
			l := f.listing(t, true)
			_, err := f.engine.Purchase(ctx, l.ID, f.buyer, price)
			require.NoError(t, err)
			return l.ID, f.buyer, price
		}, ErrAlreadyLicensed},
		{"invalid buyer", func(t *testing.T, f *fixture) (string, types.Identity, uint64) {
			return f.listing(t, true).ID, "", price
		}, types.ErrInvalidIdentity},
		{"paused", func(t *testing.T, f *fixture) (string, types.Identity, uint64) {
			l := f.listing(t, true)
			require.NoError(t, f.store.Update(ctx, func(tx ledger.Tx) error {
				_, err := tx.UpdatePlatformSettings(start, func(_ types.Platform, s *types.PlatformSettings) error {
					s.Paused = true
					return nil
				})
				return err
			}))
			return l.ID, f.buyer, price
		}, platform.ErrPaused},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id, buyer, pay := tt.setup(t, f)
			before := f.balance(t, f.buyer)
			purchases := f.platform(t).Totals.Purchases

			_, err := f.engine.Purchase(ctx, id, buyer, pay)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.reason), "got %v", err)

			assert.Equal(t, before, f.balance(t, f.buyer))
			assert.Equal(t, purchases, f.platform(t).Totals.Purchases)
		})
	}
}

func TestPurchaseAtTenTimesPrice(t *testing.T) {
	f := newFixture(t)
	l := f.listing(t, true)
	_, err := f.engine.Purchase(context.Background(), l.ID, f.buyer, 10*price)
	assert.NoError(t, err)
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	l := f.listing(t, true)
	poor := testutil.Identity(t, "poor")

	_, err := f.engine.Purchase(ctx, l.ID, poor, price)
	assert.True(t, errors.Is(err, ErrPaymentFailed))
	assert.Equal(t, errors.ErrExternal, errors.KindOf(err))

	stored := f.stored(t, l.ID)
	assert.Zero(t, stored.Sales.TotalSales)
	assert.Zero(t, stored.Sales.RevenueEarned)
	assert.Zero(t, f.balance(t, f.provider))

	owned, err := f.engine.ListByOwner(ctx, poor)
	require.NoError(t, err)
	assert.Empty(t, owned)
	assert.Empty(t, f.events.Events())
}

// secondLegFails passes the first transfer to the wallet and fails the next.
type secondLegFails struct {
	w     *payment.MemoryWallet
	calls int
}

func (r *secondLegFails) Transfer(ctx context.Context, from, to types.Identity, amt uint64) error {
	r.calls++
	if r.calls == 2 {
		return errors.New("treasury rail unavailable")
	}
	return r.w.Transfer(ctx, from, to, amt)
}

func TestPurchaseSecondLegFailure(t *testing.T) {
	ctx := context.Background()
	rail := &secondLegFails{}
	f := newFixtureWithRail(t, rail)
	rail.w = f.wallet

	core, logs := observer.New(zapcore.ErrorLevel)
	f.engine = NewEngine(f.store, rail, f.clock, f.events, zap.New(core).Sugar())
	l := f.listing(t, true)

	_, err := f.engine.Purchase(ctx, l.ID, f.buyer, price)
	assert.True(t, errors.Is(err, ErrPaymentFailed))
	assert.Equal(t, 2, rail.calls)

	assert.Zero(t, f.stored(t, l.ID).Sales.TotalSales)
	assert.Zero(t, f.platform(t).Totals.Revenue)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, uint64(95_000), logs.All()[0].ContextMap()["seller_share"])
}

func TestPurchaseCopiesExpiryAndUsageLimit(t *testing.T) {
	f := newFixture(t)
	l := f.listing(t, true, func(p *listing.CreateParams) {
		p.DurationDays = testutil.Ptr(uint32(7))
		p.UsageLimit = testutil.Ptr(uint64(3))
	})

	lic, err := f.engine.Purchase(context.Background(), l.ID, f.buyer, price)
	require.NoError(t, err)
	require.NotNil(t, lic.ExpiresAt)
	assert.Equal(t, start.Add(7*24*time.Hour), *lic.ExpiresAt)
	require.NotNil(t, lic.UsageLimit)
	assert.Equal(t, uint64(3), *lic.UsageLimit)
}

func TestListByListing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	l := f.listing(t, true)

	first, err := f.engine.Purchase(ctx, l.ID, f.buyer, price)
	require.NoError(t, err)
	second, err := f.engine.Purchase(ctx, l.ID, f.fund(t, "second"), price)
	require.NoError(t, err)

	sold, err := f.engine.ListByListing(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, sold, 2)
	assert.Equal(t, first.ID, sold[0].ID)
	assert.Equal(t, second.ID, sold[1].ID)
}
