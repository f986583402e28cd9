// Package exchange wires the ledger, the payment rail and every engine into
// one marketplace, configured from a config.Config.
package exchange

import (
	"time"

	"github.com/filecoin-project/go-clock"
	"go.uber.org/zap"

	"github.com/teranos/exchainge/access"
	"github.com/teranos/exchainge/config"
	"github.com/teranos/exchainge/dataset"
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/events"
	"github.com/teranos/exchainge/internal/httpclient"
	"github.com/teranos/exchainge/ledger"
	"github.com/teranos/exchainge/license"
	"github.com/teranos/exchainge/listing"
	"github.com/teranos/exchainge/logger"
	"github.com/teranos/exchainge/oracle"
	"github.com/teranos/exchainge/payment"
	"github.com/teranos/exchainge/platform"
	"github.com/teranos/exchainge/verify"
)

// Exchange holds the marketplace's engines over one ledger and one rail.
type Exchange struct {
	Platform *platform.Service
	Listings *listing.Registry
	Oracles  *oracle.Registry
	Verifier *verify.Engine
	Licenses *license.Engine
	Access   *access.Controller
	Datasets *dataset.Registry

	Store  ledger.Store
	Wallet payment.Wallet
	// Outbox is nil unless events.outbox is set and the ledger is SQLite.
	Outbox *events.Outbox

	cfg     *config.Config
	closers []func() error
}

// Option adjusts how an Exchange is assembled.
type Option func(*options)

type options struct {
	clock      clock.Clock
	logger     *zap.SugaredLogger
	sinks      []events.Sink
	verifyOpts []verify.Option
}

// WithClock replaces the wall clock for every engine.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the parent logger. Engines log through named children.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) { o.logger = l }
}

// WithSink adds an event sink alongside the log sink and outbox.
func WithSink(s events.Sink) Option {
	return func(o *options) { o.sinks = append(o.sinks, s) }
}

// WithVerifyOptions passes options to the verification engine.
func WithVerifyOptions(opts ...verify.Option) Option {
	return func(o *options) { o.verifyOpts = append(o.verifyOpts, opts...) }
}

// Open opens the SQLite ledger and wallet named by cfg and assembles the
// engines over them.
func Open(cfg *config.Config, opts ...Option) (*Exchange, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	if err := o.addProofVerifier(cfg); err != nil {
		return nil, err
	}

	store, err := ledger.OpenSQLite(cfg.Database.Path, ledger.WithClock(o.clock), ledger.WithLogger(o.logger.Named("ledger")))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open ledger")
	}
	wallet, err := payment.OpenSQLWallet(cfg.Wallet.Path, o.clock, o.logger.Named("wallet"))
	if err != nil {
		store.Close()
		return nil, errors.Wrap(err, "failed to open wallet")
	}

	var outbox *events.Outbox
	if cfg.Events.Outbox {
		outbox = events.NewOutbox(store.DB(), o.logger.Named("outbox"))
	}

	x := assemble(cfg, store, wallet, outbox, o)
	x.closers = []func() error{wallet.Close, store.Close}
	return x, nil
}

// New assembles the engines over an existing store and wallet. The caller
// keeps ownership of both.
func New(cfg *config.Config, store ledger.Store, wallet payment.Wallet, opts ...Option) (*Exchange, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	if err := o.addProofVerifier(cfg); err != nil {
		return nil, err
	}
	return assemble(cfg, store, wallet, nil, o), nil
}

// addProofVerifier installs the remote prover named by verification.proof_verifier_url.
// A verifier passed through WithVerifyOptions is applied later and wins.
func (o *options) addProofVerifier(cfg *config.Config) error {
	vc := cfg.Verification
	if vc.ProofVerifierURL == "" {
		return nil
	}
	v, err := verify.NewRemoteProofVerifier(vc.ProofVerifierURL,
		time.Duration(vc.ProofVerifierTimeoutSeconds)*time.Second,
		httpclient.Options{AllowPrivate: vc.ProofVerifierAllowPrivate})
	if err != nil {
		return err
	}
	o.verifyOpts = append([]verify.Option{verify.WithProofVerifier(v)}, o.verifyOpts...)
	return nil
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	if o.logger == nil {
		o.logger = logger.Logger
	}
	return o
}

func assemble(cfg *config.Config, store ledger.Store, wallet payment.Wallet, outbox *events.Outbox, o options) *Exchange {
	sinks := events.Multi{events.NewLog(o.logger.Named("events"))}
	if outbox != nil {
		sinks = append(sinks, outbox)
	}
	sinks = append(sinks, o.sinks...)

	verifyOpts := o.verifyOpts
	if cfg.Oracle.BurstPerMinute > 0 {
		verifyOpts = append([]verify.Option{verify.WithThrottle(oracle.NewThrottle(cfg.Oracle.BurstPerMinute))}, verifyOpts...)
	}
	verifyCfg := verify.Config{
		MinScore:        cfg.Verification.MinScore,
		SignatureMaxAge: time.Duration(cfg.Verification.SignatureMaxAgeSeconds) * time.Second,
	}

	return &Exchange{
		Platform: platform.NewService(store, platform.Config{MaxFeeBps: cfg.Platform.MaxFeeBps}, o.clock, sinks, o.logger.Named("platform")),
		Listings: listing.NewRegistry(store, listing.Config{MinPrice: cfg.Platform.MinPrice, MaxPrice: cfg.Platform.MaxPrice}, o.clock, sinks, o.logger.Named("listing")),
		Oracles:  oracle.NewRegistry(store, o.clock, sinks, o.logger.Named("oracle")),
		Verifier: verify.NewEngine(store, verifyCfg, o.clock, sinks, o.logger.Named("verify"), verifyOpts...),
		Licenses: license.NewEngine(store, wallet, o.clock, sinks, o.logger.Named("license")),
		Access:   access.NewController(store, o.clock, sinks, o.logger.Named("access")),
		Datasets: dataset.NewRegistry(store, o.clock, sinks, o.logger.Named("dataset")),
		Store:    store,
		Wallet:   wallet,
		Outbox:   outbox,
		cfg:      cfg,
	}
}

// Config returns the configuration the exchange was built from.
func (x *Exchange) Config() *config.Config {
	return x.cfg
}

// Close releases what Open opened. It is a no-op for an Exchange from New.
func (x *Exchange) Close() error {
	var errs []error
	for _, c := range x.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	x.closers = nil
	return errors.Join(errs...)
}
