package listing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/filecoin-project/go-clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/exchainge/contenthash"
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/events"
	"github.com/teranos/exchainge/internal/testutil"
	"github.com/teranos/exchainge/ledger"
	"github.com/teranos/exchainge/platform"
	"github.com/teranos/exchainge/types"
)

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var testConfig = Config{MinPrice: 100_000, MaxPrice: 1_000_000_000_000}

type fixture struct {
	reg       *Registry
	store     ledger.Store
	clock     *clock.Mock
	events    *events.Recorder
	provider  types.Identity
	authority types.Identity
}

func newFixture(t *testing.T) *fixture {
	clk := clock.NewMock()
	clk.Set(start)
	store := ledger.NewMemoryStore(ledger.WithClock(clk))
	f := &fixture{
		store:     store,
		clock:     clk,
		events:    &events.Recorder{},
		provider:  testutil.Identity(t, "provider"),
		authority: testutil.Identity(t, "authority"),
	}
	f.reg = NewRegistry(store, testConfig, clk, f.events, zap.NewNop().Sugar())

	require.NoError(t, store.Update(context.Background(), func(tx ledger.Tx) error {
		return tx.CreatePlatform(types.Platform{
			Authority: f.authority,
			Settings:  types.PlatformSettings{Treasury: testutil.Identity(t, "treasury"), FeeBps: 500},
		})
	}))
	return f
}

func (f *fixture) params() CreateParams {
	return CreateParams{
		Provider:    f.provider,
		Title:       "  Alpine weather station, 2025  ",
		Price:       100_000,
		LicenseType: types.SharedOwnership,
		ContentHash: testutil.ContentHash("alpine"),
		UsageRights: types.UsageRights{CommercialUse: true},
		RoyaltyBps:  250,
	}
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

func TestCreate(t *testing.T) {
	f := newFixture(t)
	p := f.params()
	p.DurationDays = testutil.Ptr(uint32(30))
	p.MaxOwners = testutil.Ptr(uint32(3))

	l, err := f.reg.Create(context.Background(), p)
	require.NoError(t, err)

	assert.NotEmpty(t, l.ID)
	assert.Equal(t, "Alpine weather station, 2025", l.Terms.Title)
	assert.True(t, l.IsActive())
	assert.False(t, l.Verification.Verified)
	assert.True(t, l.Verification.Commitment.IsZero())
	assert.Zero(t, l.Sales)
	assert.Equal(t, start, l.CreatedAt)
	assert.Equal(t, start, l.UpdatedAt)
	require.NotNil(t, l.ExpiresAt)
	assert.Equal(t, start.Add(30*24*time.Hour), *l.ExpiresAt)
	assert.Nil(t, l.UsageLimit)

	got, err := f.reg.Get(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, l, got)
	assert.Equal(t, uint64(1), f.platform(t).Totals.Datasets)
	assert.Equal(t, []string{events.ListingCreated}, f.events.Types())
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *CreateParams)
		want   error
	}{
		{"blank title", func(p *CreateParams) { p.Title = "   " }, ErrTitleEmpty},
		{"long title", func(p *CreateParams) { p.Title = strings.Repeat("é", 101) }, ErrTitleTooLong},
		{"price below minimum", func(p *CreateParams) { p.Price = 99_999 }, ErrPriceTooLow},
		{"price above maximum", func(p *CreateParams) { p.Price = 1_000_000_000_001 }, ErrPriceTooHigh},
		{"royalty", func(p *CreateParams) { p.RoyaltyBps = 5001 }, ErrRoyaltyTooHigh},
		{"license type", func(p *CreateParams) { p.LicenseType = 0 }, types.ErrUnknownLicenseType},
		{"empty hash", func(p *CreateParams) { p.ContentHash = "" }, contenthash.ErrEmpty},
		{"long hash", func(p *CreateParams) { p.ContentHash = strings.Repeat("a", 129) }, contenthash.ErrTooLong},
		{"unrecognized hash", func(p *CreateParams) { p.ContentHash = "md5:abc" }, contenthash.ErrUnrecognized},
		{"zero max owners", func(p *CreateParams) { p.MaxOwners = testutil.Ptr(uint32(0)) }, ErrMaxOwnersInvalid},
		{"too many owners", func(p *CreateParams) { p.MaxOwners = testutil.Ptr(uint32(10_001)) }, ErrMaxOwnersInvalid},
		{"zero duration", func(p *CreateParams) { p.DurationDays = testutil.Ptr(uint32(0)) }, ErrDurationInvalid},
		{"duration over ten years", func(p *CreateParams) { p.DurationDays = testutil.Ptr(uint32(3651)) }, ErrDurationInvalid},
		{"description", func(p *CreateParams) { p.Description = strings.Repeat("d", 501) }, ErrDescriptionTooLong},
		{"uri", func(p *CreateParams) { p.URI = strings.Repeat("u", 201) }, ErrURITooLong},
		{"geo", func(p *CreateParams) { p.UsageRights.GeographicRestrictions = testutil.Ptr(strings.Repeat("g", 101)) }, ErrGeoRestrictionLong},
		{"zero usage limit", func(p *CreateParams) { p.UsageLimit = testutil.Ptr(uint64(0)) }, ErrUsageLimitInvalid},
		{"provider", func(p *CreateParams) { p.Provider = "" }, types.ErrInvalidIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := f.params()
			tt.mutate(&p)

			_, err := f.reg.Create(context.Background(), p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "want %v, got %v", tt.want, err)
			assert.True(t, errors.Is(err, errors.ErrValidation))

			listings, err := f.reg.ListByProvider(context.Background(), f.provider)
			require.NoError(t, err)
			assert.Empty(t, listings)
			assert.Zero(t, f.platform(t).Totals.Datasets)
			assert.Empty(t, f.events.Events())
		})
	}
}

func TestCreateValidationOrder(t *testing.T) {
	p := CreateParams{Title: "", Price: 1, RoyaltyBps: 9999}
	assert.True(t, errors.Is(ValidateCreate(p, testConfig), ErrTitleEmpty))

	p.Title = "ok"
	assert.True(t, errors.Is(ValidateCreate(p, testConfig), ErrPriceTooLow))

	p.Price = 100_000
	assert.True(t, errors.Is(ValidateCreate(p, testConfig), ErrRoyaltyTooHigh))
}

func TestCreateBoundaries(t *testing.T) {
	f := newFixture(t)
	p := f.params()
	p.Title = strings.Repeat("t", 100)
	p.MaxOwners = testutil.Ptr(uint32(10_000))
	p.DurationDays = testutil.Ptr(uint32(3650))
	p.RoyaltyBps = 5000
	p.ContentHash = testutil.ContentHash("boundaries")

	_, err := f.reg.Create(context.Background(), p)
	assert.NoError(t, err)
}

func TestCreateRequiresActivePlatform(t *testing.T) {
	t.Run("not initialized", func(t *testing.T) {
		clk := clock.NewMock()
		reg := NewRegistry(ledger.NewMemoryStore(), testConfig, clk, nil, zap.NewNop().Sugar())
		_, err := reg.Create(context.Background(), CreateParams{Provider: testutil.Identity(t, "provider")})
		assert.True(t, errors.Is(err, platform.ErrNotInitialized))
	})

	t.Run("paused", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.Update(context.Background(), func(tx ledger.Tx) error {
			_, err := tx.UpdatePlatformSettings(start, func(_ types.Platform, s *types.PlatformSettings) error {
				s.Paused = true
				return nil
			})
			return err
		}))
		_, err := f.reg.Create(context.Background(), f.params())
		assert.True(t, errors.Is(err, platform.ErrPaused))
	})
}

func recordSale(t *testing.T, f *fixture, id string) {
	require.NoError(t, f.store.Update(context.Background(), func(tx ledger.Tx) error {
		_, err := tx.UpdateListingSales(id, f.clock.Now().UTC(), func(_ types.Listing, s *types.SalesState) error {
			s.TotalSales++
			return nil
		})
		return err
	}))
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("provider only", func(t *testing.T) {
		f := newFixture(t)
		l, err := f.reg.Create(ctx, f.params())
		require.NoError(t, err)

		_, err = f.reg.Update(ctx, testutil.Identity(t, "mallory"), l.ID, UpdateParams{Price: testutil.Ptr(uint64(200_000))})
		assert.True(t, errors.Is(err, ErrNotProvider))
	})

	t.Run("free price change before any sale", func(t *testing.T) {
		f := newFixture(t)
		p := f.params()
		p.Price = 500_000
		l, err := f.reg.Create(ctx, p)
		require.NoError(t, err)

		f.clock.Add(time.Minute)
		updated, err := f.reg.Update(ctx, f.provider, l.ID, UpdateParams{
			Price: testutil.Ptr(uint64(200_000)),
			URI:   testutil.Ptr("ipfs://bafk/data.parquet"),
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(200_000), updated.Terms.Price)
		assert.Equal(t, "ipfs://bafk/data.parquet", updated.Terms.URI)
		assert.Equal(t, start.Add(time.Minute), updated.UpdatedAt)
		assert.Equal(t, start, updated.CreatedAt)
	})

	t.Run("price only rises after a sale", func(t *testing.T) {
		f := newFixture(t)
		p := f.params()
		p.Price = 500_000
		l, err := f.reg.Create(ctx, p)
		require.NoError(t, err)
		recordSale(t, f, l.ID)

		_, err = f.reg.Update(ctx, f.provider, l.ID, UpdateParams{Price: testutil.Ptr(uint64(499_999))})
		assert.True(t, errors.Is(err, ErrPriceDecreaseAfterSale))

		_, err = f.reg.Update(ctx, f.provider, l.ID, UpdateParams{Price: testutil.Ptr(uint64(500_000))})
		assert.NoError(t, err)

		updated, err := f.reg.Update(ctx, f.provider, l.ID, UpdateParams{Price: testutil.Ptr(uint64(750_000))})
		require.NoError(t, err)
		assert.Equal(t, uint64(750_000), updated.Terms.Price)
		assert.Equal(t, uint64(1), updated.Sales.TotalSales)
	})

	t.Run("price bounds", func(t *testing.T) {
		f := newFixture(t)
		l, err := f.reg.Create(ctx, f.params())
		require.NoError(t, err)

		_, err = f.reg.Update(ctx, f.provider, l.ID, UpdateParams{Price: testutil.Ptr(uint64(1))})
		assert.True(t, errors.Is(err, ErrPriceTooLow))
	})

	t.Run("inactive listing", func(t *testing.T) {
		f := newFixture(t)
		l, err := f.reg.Create(ctx, f.params())
		require.NoError(t, err)
		_, err = f.reg.Deactivate(ctx, f.provider, l.ID, "retired")
		require.NoError(t, err)

		_, err = f.reg.Update(ctx, f.provider, l.ID, UpdateParams{URI: testutil.Ptr("x")})
		assert.True(t, errors.Is(err, ErrInactive))
	})

	t.Run("missing listing", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.reg.Update(ctx, f.provider, "nope", UpdateParams{})
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestDeactivate(t *testing.T) {
	ctx := context.Background()

	t.Run("provider", func(t *testing.T) {
		f := newFixture(t)
		l, err := f.reg.Create(ctx, f.params())
		require.NoError(t, err)

		d, err := f.reg.Deactivate(ctx, f.provider, l.ID, "superseded by v2")
		require.NoError(t, err)
		assert.False(t, d.IsActive())
		assert.Equal(t, "superseded by v2", d.Deactivation.Reason)
		assert.Equal(t, f.provider, d.Deactivation.By)

		_, err = f.reg.Deactivate(ctx, f.provider, l.ID, "again")
		assert.True(t, errors.Is(err, ErrAlreadyDeactivated))
		assert.Equal(t, []string{events.ListingCreated, events.ListingDeactivated}, f.events.Types())
	})

	t.Run("authority", func(t *testing.T) {
		f := newFixture(t)
		l, err := f.reg.Create(ctx, f.params())
		require.NoError(t, err)
		_, err = f.reg.Deactivate(ctx, f.authority, l.ID, "takedown")
		assert.NoError(t, err)
	})

	t.Run("stranger", func(t *testing.T) {
		f := newFixture(t)
		l, err := f.reg.Create(ctx, f.params())
		require.NoError(t, err)
		_, err = f.reg.Deactivate(ctx, testutil.Identity(t, "mallory"), l.ID, "")
		assert.True(t, errors.Is(err, ErrNotAuthorized))
	})

	t.Run("reason length", func(t *testing.T) {
		f := newFixture(t)
		l, err := f.reg.Create(ctx, f.params())
		require.NoError(t, err)
		_, err = f.reg.Deactivate(ctx, f.provider, l.ID, strings.Repeat("r", 201))
		assert.True(t, errors.Is(err, ErrReasonTooLong))
	})
}
