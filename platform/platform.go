// Package platform manages the marketplace's singleton configuration: the
// authority, the fee treasury, the fee rate and the pause switch.
package platform

import (
	"context"

	"github.com/filecoin-project/go-clock"
	"go.uber.org/zap"

	"github.com/teranos/exchainge/amount"
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/events"
	"github.com/teranos/exchainge/ledger"
	"github.com/teranos/exchainge/logger"
	"github.com/teranos/exchainge/types"
)

var (
	ErrNotInitialized     = ledger.ErrPlatformNotInitialized
	ErrAlreadyInitialized = ledger.ErrPlatformExists

	ErrFeeTooHigh   = errors.Reason("fee_too_high", errors.ErrValidation, "platform fee exceeds the maximum")
	ErrNotAuthority = errors.Reason("not_authority", errors.ErrUnauthorized, "caller is not the platform authority")
	ErrPaused       = errors.Reason("platform_paused", errors.ErrConflict, "platform is paused")
)

// Config bounds what the authority may set.
type Config struct {
	MaxFeeBps uint64
}

// SettingsUpdate changes the fields that are set.
type SettingsUpdate struct {
	Treasury *types.Identity
	FeeBps   *uint64
	Paused   *bool
}

// Service owns the platform record.
type Service struct {
	store  ledger.Store
	cfg    Config
	clock  clock.Clock
	sink   events.Sink
	logger *zap.SugaredLogger
}

// NewService creates the platform service.
func NewService(store ledger.Store, cfg Config, clk clock.Clock, sink events.Sink, log *zap.SugaredLogger) *Service {
	if cfg.MaxFeeBps == 0 || cfg.MaxFeeBps > amount.BPSDenominator {
		cfg.MaxFeeBps = amount.BPSDenominator
	}
	if clk == nil {
		clk = clock.New()
	}
	if sink == nil {
		sink = events.Discard
	}
	if log == nil {
		log = logger.ComponentLogger("platform")
	}
	return &Service{store: store, cfg: cfg, clock: clk, sink: sink, logger: log}
}

func (s *Service) checkFee(feeBps uint64) error {
	if feeBps > s.cfg.MaxFeeBps {
		return errors.Wrapf(ErrFeeTooHigh, "%d bps > %d bps", feeBps, s.cfg.MaxFeeBps)
	}
	return nil
}

// Initialize creates the platform record. It succeeds at most once.
func (s *Service) Initialize(ctx context.Context, authority, treasury types.Identity, feeBps uint64) (types.Platform, error) {
	log := logger.FromContext(ctx, s.logger)
	now := s.clock.Now().UTC()
	p := types.Platform{
		Authority:     authority,
		Settings:      types.PlatformSettings{Treasury: treasury, FeeBps: feeBps},
		InitializedAt: now,
		UpdatedAt:     now,
	}

	err := s.store.Update(ctx, func(tx ledger.Tx) error {
		if err := authority.Validate(); err != nil {
			return errors.Wrap(err, "authority")
		}
		if err := treasury.Validate(); err != nil {
			return errors.Wrap(err, "treasury")
		}
		if err := s.checkFee(feeBps); err != nil {
			return err
		}
		return tx.CreatePlatform(p)
	})
	if err != nil {
		logger.Rejected(log, "platform.initialize", err, logger.FieldIdentity, authority)
		return types.Platform{}, err
	}

	log.Infow("Platform initialized", logger.FieldIdentity, authority, logger.FieldFeeBps, feeBps)
	s.sink.Emit(ctx, events.New(events.PlatformInitialized, "platform", authority, now, map[string]any{
		"treasury": treasury,
		"fee_bps":  feeBps,
	}))
	return p, nil
}

// UpdateSettings applies u. Only the authority may call it.
func (s *Service) UpdateSettings(ctx context.Context, caller types.Identity, u SettingsUpdate) (types.Platform, error) {
	log := logger.FromContext(ctx, s.logger)
	now := s.clock.Now().UTC()

	var updated types.Platform
	err := s.store.Update(ctx, func(tx ledger.Tx) error {
		var err error
		updated, err = tx.UpdatePlatformSettings(now, func(view types.Platform, settings *types.PlatformSettings) error {
			if caller != view.Authority {
				return errors.Wrapf(ErrNotAuthority, "caller %s", caller.Short())
			}
			if u.Treasury != nil {
				if err := u.Treasury.Validate(); err != nil {
					return errors.Wrap(err, "treasury")
				}
				settings.Treasury = *u.Treasury
			}
			if u.FeeBps != nil {
				if err := s.checkFee(*u.FeeBps); err != nil {
					return err
				}
				settings.FeeBps = *u.FeeBps
			}
			if u.Paused != nil {
				settings.Paused = *u.Paused
			}
			return nil
		})
		return err
	})
	if err != nil {
		logger.Rejected(log, "platform.update", err, logger.FieldCaller, caller)
		return types.Platform{}, err
	}

	log.Infow("Platform settings updated",
		logger.FieldCaller, caller,
		logger.FieldFeeBps, updated.Settings.FeeBps,
		"paused", updated.Settings.Paused,
	)
	s.sink.Emit(ctx, events.New(events.PlatformUpdated, "platform", caller, now, map[string]any{
		"treasury": updated.Settings.Treasury,
		"fee_bps":  updated.Settings.FeeBps,
		"paused":   updated.Settings.Paused,
	}))
	return updated, nil
}

// Get returns the platform record.
func (s *Service) Get(ctx context.Context) (types.Platform, error) {
	var p types.Platform
	err := s.store.View(ctx, func(r ledger.Reader) error {
		var err error
		p, err = r.Platform()
		return err
	})
	return p, err
}

// RequireActive loads the platform inside a transaction and rejects when it
// is not initialized or paused.
func RequireActive(r ledger.Reader) (types.Platform, error) {
	p, err := r.Platform()
	if err != nil {
		return p, err
	}
	if p.Settings.Paused {
		return p, errors.Wrap(ErrPaused, "platform")
	}
	return p, nil
}
