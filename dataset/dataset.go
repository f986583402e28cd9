// Package dataset keeps the owner-held registry of dataset digests that
// listings point at.
//
// A digest enters the registry one of two ways. Register derives it from
// the stored file's key, dataset id and size, so anyone can recompute it.
// RegisterHash stores a digest the owner computed elsewhere. Either way the
// registration belongs to the identity that made it: only that owner may
// replace the digest or close the registration.
package dataset

import (
	"context"
	"strconv"

	"github.com/filecoin-project/go-clock"
	"go.uber.org/zap"

	"github.com/teranos/exchainge/contenthash"
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/events"
	"github.com/teranos/exchainge/ledger"
	"github.com/teranos/exchainge/logger"
	"github.com/teranos/exchainge/types"
)

var (
	ErrNotFound      = ledger.ErrRegistrationNotFound
	ErrAlreadyExists = ledger.ErrRegistrationExists

	ErrFileKeyInvalid = errors.Reason("file_key_invalid", errors.ErrValidation, "file key is empty or too long")
	ErrFileSizeZero   = errors.Reason("file_size_invalid", errors.ErrValidation, "file size must be greater than 0")
	ErrKeyInvalid     = errors.Reason("registration_key_invalid", errors.ErrValidation, "registration key is empty or too long")
	ErrHashZero       = errors.Reason("dataset_hash_invalid", errors.ErrValidation, "dataset hash is all zeros")
	ErrNotOwner       = errors.Reason("not_owner", errors.ErrUnauthorized, "caller does not own this registration")
)

// Key returns the registration key of a derived registration.
func Key(datasetID uint64) string {
	return "dataset_" + strconv.FormatUint(datasetID, 10)
}

// Registry manages dataset registrations.
type Registry struct {
	store  ledger.Store
	clock  clock.Clock
	sink   events.Sink
	logger *zap.SugaredLogger
}

// NewRegistry creates the dataset registry.
func NewRegistry(store ledger.Store, clk clock.Clock, sink events.Sink, log *zap.SugaredLogger) *Registry {
	if clk == nil {
		clk = clock.New()
	}
	if sink == nil {
		sink = events.Discard
	}
	if log == nil {
		log = logger.ComponentLogger("dataset")
	}
	return &Registry{store: store, clock: clk, sink: sink, logger: log}
}

// Register derives the digest of a stored file and records it under
// Key(datasetID) for owner.
func (r *Registry) Register(ctx context.Context, owner types.Identity, datasetID, fileSize uint64, fileKey string) (types.DatasetRegistration, error) {
	log := logger.FromContext(ctx, r.logger)
	now := r.clock.Now().UTC()
	reg := types.DatasetRegistration{
		Key:       Key(datasetID),
		Owner:     owner,
		Method:    types.RegistrationDerived,
		DatasetID: &datasetID,
		FileSize:  &fileSize,
		FileKey:   fileKey,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.store.Update(ctx, func(tx ledger.Tx) error {
		if err := owner.Validate(); err != nil {
			return errors.Wrap(err, "owner")
		}
		if fileKey == "" || len(fileKey) > contenthash.MaxFileKeyLength {
			return errors.Wrapf(ErrFileKeyInvalid, "%d characters, want 1..%d", len(fileKey), contenthash.MaxFileKeyLength)
		}
		if fileSize == 0 {
			return errors.WithStack(ErrFileSizeZero)
		}
		sum, err := contenthash.DeriveDigest(fileKey, datasetID, fileSize)
		if err != nil {
			return err
		}
		reg.Hash = sum
		return tx.CreateRegistration(reg)
	})
	if err != nil {
		logger.Rejected(log, "dataset.register", err, logger.FieldIdentity, owner, logger.FieldDatasetKey, reg.Key)
		return types.DatasetRegistration{}, err
	}

	log.Infow("Dataset registered",
		logger.FieldDatasetKey, reg.Key,
		logger.FieldIdentity, owner,
		"hash", reg.Hash,
	)
	r.sink.Emit(ctx, events.New(events.DatasetRegistered, reg.Key, owner, now, map[string]any{
		"dataset_id": datasetID,
		"file_size":  fileSize,
		"file_key":   fileKey,
		"hash":       reg.Hash,
	}))
	return reg, nil
}

// RegisterHash records a digest the owner computed under key.
func (r *Registry) RegisterHash(ctx context.Context, owner types.Identity, key string, hash types.Digest) (types.DatasetRegistration, error) {
	log := logger.FromContext(ctx, r.logger)
	now := r.clock.Now().UTC()
	reg := types.DatasetRegistration{
		Key:       key,
		Owner:     owner,
		Hash:      hash,
		Method:    types.RegistrationPrecomputed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.store.Update(ctx, func(tx ledger.Tx) error {
		if err := owner.Validate(); err != nil {
			return errors.Wrap(err, "owner")
		}
		if key == "" || len(key) > types.MaxRegistrationKeyLength {
			return errors.Wrapf(ErrKeyInvalid, "%d characters, want 1..%d", len(key), types.MaxRegistrationKeyLength)
		}
		if hash.IsZero() {
			return errors.WithStack(ErrHashZero)
		}
		return tx.CreateRegistration(reg)
	})
	if err != nil {
		logger.Rejected(log, "dataset.register_hash", err, logger.FieldIdentity, owner, logger.FieldDatasetKey, key)
		return types.DatasetRegistration{}, err
	}

	log.Infow("Dataset hash registered", logger.FieldDatasetKey, key, logger.FieldIdentity, owner)
	r.sink.Emit(ctx, events.New(events.DatasetHashRegistered, key, owner, now, map[string]any{
		"hash": hash,
	}))
	return reg, nil
}

// UpdateHash replaces the digest of the registration under key.
func (r *Registry) UpdateHash(ctx context.Context, caller types.Identity, key string, hash types.Digest) (types.DatasetRegistration, error) {
	log := logger.FromContext(ctx, r.logger)
	now := r.clock.Now().UTC()

	var (
		updated  types.DatasetRegistration
		previous types.Digest
	)
	err := r.store.Update(ctx, func(tx ledger.Tx) error {
		if hash.IsZero() {
			return errors.WithStack(ErrHashZero)
		}
		var err error
		updated, err = tx.UpdateRegistrationHash(key, now, func(view types.DatasetRegistration, h *types.Digest) error {
			if caller != view.Owner {
				return errors.Wrapf(ErrNotOwner, "caller %s on %s", caller.Short(), key)
			}
			previous = *h
			*h = hash
			return nil
		})
		return err
	})
	if err != nil {
		logger.Rejected(log, "dataset.update_hash", err, logger.FieldCaller, caller, logger.FieldDatasetKey, key)
		return types.DatasetRegistration{}, err
	}

	log.Infow("Dataset hash updated", logger.FieldDatasetKey, key, logger.FieldCaller, caller)
	r.sink.Emit(ctx, events.New(events.DatasetHashUpdated, key, caller, now, map[string]any{
		"previous_hash": previous,
		"hash":          hash,
	}))
	return updated, nil
}

// Close removes the registration under key. The key may be registered again afterwards.
func (r *Registry) Close(ctx context.Context, caller types.Identity, key string) error {
	log := logger.FromContext(ctx, r.logger)
	now := r.clock.Now().UTC()

	err := r.store.Update(ctx, func(tx ledger.Tx) error {
		reg, err := tx.Registration(key)
		if err != nil {
			return err
		}
		if caller != reg.Owner {
			return errors.Wrapf(ErrNotOwner, "caller %s on %s", caller.Short(), key)
		}
		return tx.RemoveRegistration(key)
	})
	if err != nil {
		logger.Rejected(log, "dataset.close", err, logger.FieldCaller, caller, logger.FieldDatasetKey, key)
		return err
	}

	log.Infow("Dataset registration closed", logger.FieldDatasetKey, key, logger.FieldCaller, caller)
	r.sink.Emit(ctx, events.New(events.DatasetClosed, key, caller, now, nil))
	return nil
}

// Get returns the registration under key.
func (r *Registry) Get(ctx context.Context, key string) (types.DatasetRegistration, error) {
	var reg types.DatasetRegistration
	err := r.store.View(ctx, func(rd ledger.Reader) error {
		var err error
		reg, err = rd.Registration(key)
		return err
	})
	return reg, err
}

// ListByOwner returns owner's registrations in creation order.
func (r *Registry) ListByOwner(ctx context.Context, owner types.Identity) ([]types.DatasetRegistration, error) {
	var regs []types.DatasetRegistration
	err := r.store.View(ctx, func(rd ledger.Reader) error {
		var err error
		regs, err = rd.RegistrationsByOwner(owner)
		return err
	})
	return regs, err
}
