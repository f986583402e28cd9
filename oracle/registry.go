// Package oracle keeps the registry of hardware oracles allowed to attest
// listings, and bounds how often each one may do so.
//
// The registry is a singleton owned by its authority, who maintains the
// operator allow-list and the per-oracle daily quota. Allow-listed
// operators register oracles; each oracle carries its own quota counter,
// which the verification engine advances through ConsumeQuota.
package oracle

import (
	"context"
	"slices"
	"time"

	"github.com/filecoin-project/go-clock"
	"go.uber.org/zap"

	"github.com/teranos/exchainge/amount"
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/events"
	"github.com/teranos/exchainge/ledger"
	"github.com/teranos/exchainge/logger"
	"github.com/teranos/exchainge/types"
)

// RegistryUpdate changes the allow-list and quota. Additions that are
// already listed and removals that are not are ignored.
type RegistryUpdate struct {
	Add       []types.Identity
	Remove    []types.Identity
	MaxPerDay *uint16
}

// RegisterParams describes a new oracle.
type RegisterParams struct {
	Operator          types.Identity
	HardwareID        string
	HardwareType      types.HardwareType
	PublicKey         types.Identity
	CertificationHash string
	Trusted           types.TrustedHardware
}

// Registry manages the oracle registry and oracle records.
type Registry struct {
	store  ledger.Store
	clock  clock.Clock
	sink   events.Sink
	logger *zap.SugaredLogger
}

// NewRegistry creates the oracle registry service.
func NewRegistry(store ledger.Store, clk clock.Clock, sink events.Sink, log *zap.SugaredLogger) *Registry {
	if clk == nil {
		clk = clock.New()
	}
	if sink == nil {
		sink = events.Discard
	}
	if log == nil {
		log = logger.ComponentLogger("oracle")
	}
	return &Registry{store: store, clock: clk, sink: sink, logger: log}
}

func checkMaxPerDay(n uint16) error {
	if n == 0 || n > types.MaxVerificationsPerDayLimit {
		return errors.Wrapf(ErrMaxPerDayInvalid, "%d, want 1..%d", n, types.MaxVerificationsPerDayLimit)
	}
	return nil
}

// Init creates the registry singleton.
func (r *Registry) Init(ctx context.Context, authority types.Identity, maxPerDay uint16) (types.OracleRegistry, error) {
	log := logger.FromContext(ctx, r.logger)
	now := r.clock.Now().UTC()
	reg := types.OracleRegistry{
		Authority:              authority,
		AllowedOperators:       []types.Identity{},
		MaxVerificationsPerDay: maxPerDay,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	err := r.store.Update(ctx, func(tx ledger.Tx) error {
		if err := authority.Validate(); err != nil {
			return errors.Wrap(err, "registry authority")
		}
		if err := checkMaxPerDay(maxPerDay); err != nil {
			return err
		}
		return tx.CreateOracleRegistry(reg)
	})
	if err != nil {
		logger.Rejected(log, "oracle.registry_init", err, logger.FieldIdentity, authority)
		return types.OracleRegistry{}, err
	}

	log.Infow("Oracle registry initialized", logger.FieldIdentity, authority, "max_per_day", maxPerDay)
	r.sink.Emit(ctx, events.New(events.OracleRegistryInitialized, "oracle_registry", authority, now, map[string]any{
		"max_per_day": maxPerDay,
	}))
	return reg, nil
}

// Update applies u. Only the registry authority may call it.
func (r *Registry) Update(ctx context.Context, caller types.Identity, u RegistryUpdate) (types.OracleRegistry, error) {
	log := logger.FromContext(ctx, r.logger)
	now := r.clock.Now().UTC()

	var updated types.OracleRegistry
	err := r.store.Update(ctx, func(tx ledger.Tx) error {
		var err error
		updated, err = tx.UpdateOracleRegistry(now, func(reg *types.OracleRegistry) error {
			if caller != reg.Authority {
				return errors.Wrapf(ErrNotRegistryAuthority, "caller %s", caller.Short())
			}
			if u.MaxPerDay != nil {
				if err := checkMaxPerDay(*u.MaxPerDay); err != nil {
					return err
				}
				reg.MaxVerificationsPerDay = *u.MaxPerDay
			}
			reg.AllowedOperators = slices.DeleteFunc(reg.AllowedOperators, func(id types.Identity) bool {
				return slices.Contains(u.Remove, id)
			})
			for _, id := range u.Add {
				if err := id.Validate(); err != nil {
					return errors.Wrap(err, "operator")
				}
				if slices.Contains(reg.AllowedOperators, id) {
					continue
				}
				if len(reg.AllowedOperators) >= types.MaxOperators {
					return errors.Wrapf(ErrTooManyOperators, "max %d", types.MaxOperators)
				}
				reg.AllowedOperators = append(reg.AllowedOperators, id)
			}
			return nil
		})
		return err
	})
	if err != nil {
		logger.Rejected(log, "oracle.registry_update", err, logger.FieldCaller, caller)
		return types.OracleRegistry{}, err
	}

	log.Infow("Oracle registry updated",
		logger.FieldCaller, caller,
		logger.FieldCount, len(updated.AllowedOperators),
		"max_per_day", updated.MaxVerificationsPerDay,
	)
	r.sink.Emit(ctx, events.New(events.OracleRegistryUpdated, "oracle_registry", caller, now, map[string]any{
		"operators":   len(updated.AllowedOperators),
		"max_per_day": updated.MaxVerificationsPerDay,
	}))
	return updated, nil
}

type registerTx interface {
	ledger.Reader
	ledger.OracleWriter
}

// Register records a new oracle for an allow-listed operator. The oracle's
// id is its hardware id, so a device registers at most once.
func (r *Registry) Register(ctx context.Context, p RegisterParams) (types.Oracle, error) {
	log := logger.FromContext(ctx, r.logger)
	now := r.clock.Now().UTC()

	var o types.Oracle
	err := r.store.Update(ctx, func(tx ledger.Tx) error {
		var err error
		o, err = r.register(tx, p, now)
		return err
	})
	if err != nil {
		logger.Rejected(log, "oracle.register", err, logger.FieldOperator, p.Operator, logger.FieldOracleID, p.HardwareID)
		return types.Oracle{}, err
	}

	log.Infow("Oracle registered",
		logger.FieldOracleID, o.ID,
		logger.FieldOperator, o.Operator,
		"hardware_type", o.HardwareType,
		"vendor", o.Trusted.Vendor(),
	)
	r.sink.Emit(ctx, events.New(events.OracleRegistered, o.ID, o.Operator, now, map[string]any{
		"hardware_type": o.HardwareType,
		"vendor":        o.Trusted.Vendor(),
		"public_key":    o.PublicKey,
	}))
	return o, nil
}

func (r *Registry) register(tx registerTx, p RegisterParams, now time.Time) (types.Oracle, error) {
	reg, err := tx.OracleRegistry()
	if err != nil {
		return types.Oracle{}, err
	}
	if !reg.IsAllowed(p.Operator) {
		return types.Oracle{}, errors.Wrapf(ErrOperatorNotAllowed, "operator %s", p.Operator.Short())
	}
	if p.HardwareID == "" || len(p.HardwareID) > types.MaxHardwareIDLength {
		return types.Oracle{}, errors.Wrapf(ErrHardwareIDInvalid, "%d bytes, want 1..%d", len(p.HardwareID), types.MaxHardwareIDLength)
	}
	if !p.HardwareType.Valid() {
		return types.Oracle{}, errors.Wrapf(types.ErrUnknownHardwareType, "%q", p.HardwareType)
	}
	if err := p.PublicKey.Validate(); err != nil {
		return types.Oracle{}, errors.Wrap(err, "oracle public key")
	}
	if p.CertificationHash == "" || len(p.CertificationHash) > types.MaxCertificationHashLength {
		return types.Oracle{}, errors.Wrapf(ErrCertificationInvalid, "%d bytes, want 1..%d", len(p.CertificationHash), types.MaxCertificationHashLength)
	}
	trusted := p.Trusted
	if trusted == nil {
		trusted = types.OtherHardware{}
	}
	if err := trusted.Validate(); err != nil {
		return types.Oracle{}, err
	}

	if _, err := tx.UpdateOracleRegistry(now, func(reg *types.OracleRegistry) error {
		n, err := amount.Inc(reg.TotalOracles)
		if err != nil {
			return errors.Wrap(err, "total oracles")
		}
		reg.TotalOracles = n
		return nil
	}); err != nil {
		return types.Oracle{}, err
	}

	o := types.Oracle{
		ID:                p.HardwareID,
		Operator:          p.Operator,
		HardwareID:        p.HardwareID,
		HardwareType:      p.HardwareType,
		PublicKey:         p.PublicKey,
		CertificationHash: p.CertificationHash,
		Trusted:           trusted,
		RegisteredAt:      now,
		Status:            types.OracleStatus{Active: true},
	}
	if err := tx.CreateOracle(o); err != nil {
		return types.Oracle{}, err
	}
	return o, nil
}

// Deactivate permanently stops an oracle from attesting. Its operator or the
// registry authority may call it.
func (r *Registry) Deactivate(ctx context.Context, caller types.Identity, id, reason string) (types.Oracle, error) {
	log := logger.FromContext(ctx, r.logger)
	now := r.clock.Now().UTC()

	var o types.Oracle
	err := r.store.Update(ctx, func(tx ledger.Tx) error {
		if len(reason) > types.MaxReasonLength {
			return errors.Wrapf(ErrReasonTooLong, "%d bytes, max %d", len(reason), types.MaxReasonLength)
		}
		reg, err := tx.OracleRegistry()
		if err != nil {
			return err
		}
		o, err = tx.UpdateOracleStatus(id, func(view types.Oracle, s *types.OracleStatus) error {
			if caller != view.Operator && caller != reg.Authority {
				return errors.Wrapf(ErrNotOperator, "caller %s on oracle %s", caller.Short(), id)
			}
			if !s.Active {
				return errors.Wrapf(ErrAlreadyDeactivated, "oracle %s", id)
			}
			s.Active = false
			s.DeactivatedAt = &now
			s.Reason = reason
			return nil
		})
		return err
	})
	if err != nil {
		logger.Rejected(log, "oracle.deactivate", err, logger.FieldOracleID, id, logger.FieldCaller, caller)
		return types.Oracle{}, err
	}

	log.Infow("Oracle deactivated", logger.FieldOracleID, id, logger.FieldCaller, caller, "reason", reason)
	r.sink.Emit(ctx, events.New(events.OracleDeactivated, id, caller, now, map[string]any{"reason": reason}))
	return o, nil
}

// Get returns an oracle by id.
func (r *Registry) Get(ctx context.Context, id string) (types.Oracle, error) {
	var o types.Oracle
	err := r.store.View(ctx, func(rd ledger.Reader) error {
		var err error
		o, err = rd.Oracle(id)
		return err
	})
	return o, err
}

// GetRegistry returns the registry singleton.
func (r *Registry) GetRegistry(ctx context.Context) (types.OracleRegistry, error) {
	var reg types.OracleRegistry
	err := r.store.View(ctx, func(rd ledger.Reader) error {
		var err error
		reg, err = rd.OracleRegistry()
		return err
	})
	return reg, err
}

// ListByOperator returns the oracles an operator registered.
func (r *Registry) ListByOperator(ctx context.Context, operator types.Identity) ([]types.Oracle, error) {
	var out []types.Oracle
	err := r.store.View(ctx, func(rd ledger.Reader) error {
		var err error
		out, err = rd.OraclesByOperator(operator)
		return err
	})
	return out, err
}

// CheckSigner rejects an oracle that may not attest right now: it must be
// active and its operator must still be on the allow-list.
func CheckSigner(reg types.OracleRegistry, o types.Oracle) error {
	if !o.Status.Active {
		return errors.Wrapf(ErrInactive, "oracle %s", o.ID)
	}
	if !reg.IsAllowed(o.Operator) {
		return errors.Wrapf(ErrOperatorNotAllowed, "operator %s of oracle %s", o.Operator.Short(), o.ID)
	}
	return nil
}
