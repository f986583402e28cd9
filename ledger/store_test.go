package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/filecoin-project/go-clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/internal/testutil"
	"github.com/teranos/exchainge/types"
)

var errAbort = errors.New("abort")

func backends(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore(WithClock(clock.NewMock()))
		},
		"sqlite": func(t *testing.T) Store {
			return NewSQLStore(testutil.SetupTestDB(t), WithClock(clock.NewMock()))
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { s.Close() })
			fn(t, s)
		})
	}
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleListing(t *testing.T, id, provider string) types.Listing {
	return types.Listing{
		ID:          id,
		Provider:    testutil.Identity(t, provider),
		LicenseType: types.SharedOwnership,
		ContentHash: testutil.ContentHash(id),
		MaxOwners:   testutil.Ptr(uint32(5)),
		CreatedAt:   epoch,
		UpdatedAt:   epoch,
		Terms: types.Terms{
			Title: "Lidar sweep " + id,
			Price: 1_000_000,
			UsageRights: types.UsageRights{
				CommercialUse:          true,
				GeographicRestrictions: testutil.Ptr("EU"),
			},
		},
	}
}

func sampleLicense(t *testing.T, id, listingID, owner string) types.License {
	return types.License{
		ID:            id,
		ListingID:     listingID,
		Provider:      testutil.Identity(t, "provider"),
		OriginalBuyer: testutil.Identity(t, owner),
		LicenseType:   types.SharedOwnership,
		PurchasePrice: 1_000_000,
		PurchasedAt:   epoch,
		Transferable:  true,
		Ownership:     types.Ownership{Owner: testutil.Identity(t, owner)},
	}
}

func TestStore_CreateAndRead(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		listing := sampleListing(t, "l-1", "provider")

		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			require.NoError(t, tx.CreatePlatform(types.Platform{
				Authority:     testutil.Identity(t, "authority"),
				Settings:      types.PlatformSettings{Treasury: testutil.Identity(t, "treasury"), FeeBps: 500},
				InitializedAt: epoch,
			}))
			return tx.CreateListing(listing)
		}))

		require.NoError(t, s.View(ctx, func(r Reader) error {
			got, err := r.Listing("l-1")
			require.NoError(t, err)
			assert.Equal(t, listing, got)

			p, err := r.Platform()
			require.NoError(t, err)
			assert.Equal(t, uint64(500), p.Settings.FeeBps)
			return nil
		}))
	})
}

func TestStore_MissingRecords(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		err := s.View(context.Background(), func(r Reader) error {
			_, err := r.Platform()
			assert.True(t, errors.Is(err, ErrPlatformNotInitialized))

			_, err = r.Listing("nope")
			assert.True(t, errors.Is(err, ErrListingNotFound))
			assert.True(t, errors.IsNotFoundError(err))

			_, err = r.License("nope")
			assert.True(t, errors.Is(err, ErrLicenseNotFound))

			_, err = r.Verification("nope")
			assert.True(t, errors.Is(err, ErrVerificationNotFound))

			_, err = r.OracleRegistry()
			assert.True(t, errors.Is(err, ErrOracleRegistryNotInitialized))

			_, err = r.Oracle("nope")
			assert.True(t, errors.Is(err, ErrOracleNotFound))

			_, err = r.Consent("nope", testutil.Identity(t, "buyer"))
			assert.True(t, errors.Is(err, ErrConsentNotFound))

			listings, err := r.ListingsByProvider(testutil.Identity(t, "provider"))
			require.NoError(t, err)
			assert.Empty(t, listings)
			return nil
		})
		require.NoError(t, err)
	})
}

func TestStore_DuplicateCreate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		rec := types.VerificationRecord{ID: "v-1", ListingID: "l-1", Method: types.MethodProof, VerifiedAt: epoch}

		require.NoError(t, s.Update(ctx, func(tx Tx) error { return tx.CreateVerification(rec) }))

		rec.ID = "v-2"
		err := s.Update(ctx, func(tx Tx) error { return tx.CreateVerification(rec) })
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrVerificationExists))
		assert.Equal(t, "verification_exists", errors.CodeOf(err))

		err = s.Update(ctx, func(tx Tx) error {
			if err := tx.CreatePlatform(types.Platform{}); err != nil {
				return err
			}
			return tx.CreatePlatform(types.Platform{})
		})
		assert.True(t, errors.Is(err, ErrPlatformExists))
	})
}

func TestStore_FailedUpdateLeavesNoTrace(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			return tx.CreateListing(sampleListing(t, "l-1", "provider"))
		}))

		err := s.Update(ctx, func(tx Tx) error {
			if err := tx.CreateListing(sampleListing(t, "l-2", "provider")); err != nil {
				return err
			}
			if _, err := tx.UpdateListingSales("l-1", epoch, func(_ types.Listing, st *types.SalesState) error {
				st.TotalSales = 9
				return nil
			}); err != nil {
				return err
			}
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)

		require.NoError(t, s.View(ctx, func(r Reader) error {
			_, err := r.Listing("l-2")
			assert.True(t, errors.Is(err, ErrListingNotFound))

			l, err := r.Listing("l-1")
			require.NoError(t, err)
			assert.Zero(t, l.Sales.TotalSales)
			return nil
		}))
	})
}

func TestStore_MutatorOwnsOnlyItsPart(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			return tx.CreateListing(sampleListing(t, "l-1", "provider"))
		}))

		later := epoch.Add(time.Hour)
		var returned types.Listing
		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			var err error
			returned, err = tx.UpdateListingTerms("l-1", later, func(view types.Listing, terms *types.Terms) error {
				// Writes through the view must not reach the stored record
				*view.MaxOwners = 99
				*view.Terms.UsageRights.GeographicRestrictions = "US"
				terms.Price = 2_000_000
				return nil
			})
			return err
		}))

		assert.Equal(t, uint64(2_000_000), returned.Terms.Price)
		assert.Equal(t, later, returned.UpdatedAt)

		require.NoError(t, s.View(ctx, func(r Reader) error {
			l, err := r.Listing("l-1")
			require.NoError(t, err)
			assert.Equal(t, returned, l)
			assert.Equal(t, uint32(5), *l.MaxOwners)
			assert.Equal(t, "EU", *l.Terms.UsageRights.GeographicRestrictions)
			return nil
		}))
	})
}

func TestStore_MutatorErrorSkipsWrite(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			return tx.CreateListing(sampleListing(t, "l-1", "provider"))
		}))

		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			_, err := tx.UpdateListingDeactivation("l-1", epoch, func(_ types.Listing, d *types.Deactivation) error {
				d.Deactivated = true
				return errAbort
			})
			assert.ErrorIs(t, err, errAbort)

			l, err := tx.Listing("l-1")
			require.NoError(t, err)
			assert.False(t, l.Deactivation.Deactivated)
			return nil
		}))
	})
}

func TestStore_UpdateMissing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		err := s.Update(context.Background(), func(tx Tx) error {
			_, err := tx.UpdateLicenseUsage("nope", func(types.License, *types.Usage) error {
				t.Fatal("mutator must not run for a missing record")
				return nil
			})
			return err
		})
		assert.True(t, errors.Is(err, ErrLicenseNotFound))
	})
}

func TestStore_LookupsFollowOwnership(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		alice := testutil.Identity(t, "alice")
		bob := testutil.Identity(t, "bob")

		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			for _, id := range []string{"lic-1", "lic-2", "lic-3"} {
				listing := "l-1"
				if id == "lic-3" {
					listing = "l-2"
				}
				if err := tx.CreateLicense(sampleLicense(t, id, listing, "alice")); err != nil {
					return err
				}
			}
			return nil
		}))

		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			_, err := tx.UpdateLicenseOwnership("lic-2", func(_ types.License, o *types.Ownership) error {
				o.Owner = bob
				o.TransferCount++
				return nil
			})
			return err
		}))

		require.NoError(t, s.View(ctx, func(r Reader) error {
			owned, err := r.LicensesByOwner(alice)
			require.NoError(t, err)
			require.Len(t, owned, 2)
			assert.Equal(t, "lic-1", owned[0].ID)
			assert.Equal(t, "lic-3", owned[1].ID)

			owned, err = r.LicensesByOwner(bob)
			require.NoError(t, err)
			require.Len(t, owned, 1)
			assert.Equal(t, uint8(1), owned[0].Ownership.TransferCount)

			byListing, err := r.LicensesByListing("l-1")
			require.NoError(t, err)
			assert.Len(t, byListing, 2)
			return nil
		}))
	})
}

func TestStore_Oracles(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		operator := testutil.Identity(t, "operator")
		oracle := types.Oracle{
			ID:           "o-1",
			Operator:     operator,
			HardwareID:   "jetson-7",
			HardwareType: types.HardwareRobot,
			PublicKey:    testutil.Identity(t, "oracle-key"),
			Trusted:      types.NvidiaJetson{SiliconID: [16]byte{1, 2, 3}},
			RegisteredAt: epoch,
			Status:       types.OracleStatus{Active: true},
		}

		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			if err := tx.CreateOracleRegistry(types.OracleRegistry{MaxVerificationsPerDay: 10}); err != nil {
				return err
			}
			if _, err := tx.UpdateOracleRegistry(epoch, func(r *types.OracleRegistry) error {
				r.AllowedOperators = append(r.AllowedOperators, operator)
				r.TotalOracles++
				return nil
			}); err != nil {
				return err
			}
			return tx.CreateOracle(oracle)
		}))

		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			_, err := tx.UpdateOracleQuota("o-1", func(_ types.Oracle, q *types.OracleQuota) error {
				q.Today = 3
				q.LastDay = 20000
				return nil
			})
			return err
		}))

		require.NoError(t, s.View(ctx, func(r Reader) error {
			reg, err := r.OracleRegistry()
			require.NoError(t, err)
			assert.True(t, reg.IsAllowed(operator))
			assert.Equal(t, uint64(1), reg.TotalOracles)

			got, err := r.Oracle("o-1")
			require.NoError(t, err)
			assert.Equal(t, types.NvidiaJetson{SiliconID: [16]byte{1, 2, 3}}, got.Trusted)
			assert.Equal(t, uint16(3), got.Quota.Today)

			mine, err := r.OraclesByOperator(operator)
			require.NoError(t, err)
			assert.Len(t, mine, 1)
			return nil
		}))
	})
}

func TestStore_ConsentLifecycle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		buyer := testutil.Identity(t, "buyer")

		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			return tx.CreateConsent(types.ConsentRequest{ListingID: "l-1", Requester: buyer, RequestedAt: epoch})
		}))
		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			c, err := tx.UpdateConsentDecision("l-1", buyer, func(_ types.ConsentRequest, d *types.ConsentDecision) error {
				d.Decided = true
				d.Approved = true
				return nil
			})
			assert.True(t, c.Approved())
			return err
		}))
		require.NoError(t, s.Update(ctx, func(tx Tx) error { return tx.CloseConsent("l-1", buyer) }))

		err := s.Update(ctx, func(tx Tx) error { return tx.CloseConsent("l-1", buyer) })
		assert.True(t, errors.Is(err, ErrConsentNotFound))
	})
}

func TestStore_RegistrationLifecycle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		owner := testutil.Identity(t, "owner")
		reg := types.DatasetRegistration{
			Key:       "dataset_7",
			Owner:     owner,
			Hash:      types.Digest{7},
			Method:    types.RegistrationDerived,
			DatasetID: testutil.Ptr(uint64(7)),
			FileSize:  testutil.Ptr(uint64(1024)),
			FileKey:   "uploads/scan.laz",
			CreatedAt: epoch,
			UpdatedAt: epoch,
		}

		require.NoError(t, s.Update(ctx, func(tx Tx) error { return tx.CreateRegistration(reg) }))
		err := s.Update(ctx, func(tx Tx) error { return tx.CreateRegistration(reg) })
		assert.True(t, errors.Is(err, ErrRegistrationExists))

		later := epoch.Add(time.Minute)
		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			updated, err := tx.UpdateRegistrationHash("dataset_7", later, func(_ types.DatasetRegistration, h *types.Digest) error {
				*h = types.Digest{8}
				return nil
			})
			assert.Equal(t, later, updated.UpdatedAt)
			return err
		}))

		require.NoError(t, s.View(ctx, func(r Reader) error {
			got, err := r.Registration("dataset_7")
			require.NoError(t, err)
			assert.Equal(t, types.Digest{8}, got.Hash)
			assert.Equal(t, uint64(7), *got.DatasetID)

			mine, err := r.RegistrationsByOwner(owner)
			require.NoError(t, err)
			assert.Len(t, mine, 1)
			return nil
		}))

		require.NoError(t, s.Update(ctx, func(tx Tx) error { return tx.RemoveRegistration("dataset_7") }))
		err = s.View(ctx, func(r Reader) error {
			_, err := r.Registration("dataset_7")
			return err
		})
		assert.True(t, errors.Is(err, ErrRegistrationNotFound))
		assert.Equal(t, "registration_not_found", errors.CodeOf(err))
	})
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	err := s.Update(context.Background(), func(Tx) error { return nil })
	assert.ErrorIs(t, err, ErrStoreClosed)
	err = s.View(context.Background(), func(Reader) error { return nil })
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Update(ctx, func(Tx) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
