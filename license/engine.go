// Package license sells licenses on verified listings and manages them
// afterwards: resale transfers, revocation and the provider consent that
// some listings require before a license may change hands.
package license

import (
	"context"

	"github.com/filecoin-project/go-clock"
	"go.uber.org/zap"

	"github.com/teranos/exchainge/events"
	"github.com/teranos/exchainge/ledger"
	"github.com/teranos/exchainge/logger"
	"github.com/teranos/exchainge/payment"
	"github.com/teranos/exchainge/types"
)

// Engine is the licensing and purchase engine.
type Engine struct {
	store  ledger.Store
	rail   payment.Rail
	clock  clock.Clock
	sink   events.Sink
	logger *zap.SugaredLogger
}

// NewEngine creates a licensing engine that settles purchases over rail.
func NewEngine(store ledger.Store, rail payment.Rail, clk clock.Clock, sink events.Sink, log *zap.SugaredLogger) *Engine {
	if clk == nil {
		clk = clock.New()
	}
	if sink == nil {
		sink = events.Discard
	}
	if log == nil {
		log = logger.ComponentLogger("license")
	}
	return &Engine{store: store, rail: rail, clock: clk, sink: sink, logger: log}
}

// Get returns a license by id.
func (e *Engine) Get(ctx context.Context, id string) (types.License, error) {
	var l types.License
	err := e.store.View(ctx, func(r ledger.Reader) error {
		var err error
		l, err = r.License(id)
		return err
	})
	return l, err
}

// ListByOwner returns the licenses currently owned by owner.
func (e *Engine) ListByOwner(ctx context.Context, owner types.Identity) ([]types.License, error) {
	var out []types.License
	err := e.store.View(ctx, func(r ledger.Reader) error {
		var err error
		out, err = r.LicensesByOwner(owner)
		return err
	})
	return out, err
}

// ListByListing returns every license sold on a listing, in sale order.
func (e *Engine) ListByListing(ctx context.Context, listingID string) ([]types.License, error) {
	var out []types.License
	err := e.store.View(ctx, func(r ledger.Reader) error {
		var err error
		out, err = r.LicensesByListing(listingID)
		return err
	})
	return out, err
}

// Consent returns the consent request requester opened on a listing.
func (e *Engine) Consent(ctx context.Context, listingID string, requester types.Identity) (types.ConsentRequest, error) {
	var c types.ConsentRequest
	err := e.store.View(ctx, func(r ledger.Reader) error {
		var err error
		c, err = r.Consent(listingID, requester)
		return err
	})
	return c, err
}

