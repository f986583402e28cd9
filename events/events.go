// Package events carries the ledger's domain events to their consumers.
//
// Engines emit after their store transaction commits, so a rejected
// operation never produces an event. Emit is fire-and-forget: a sink that
// cannot deliver logs the failure instead of failing the operation.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/exchainge/types"
)

// Event types, named <aggregate>.<past_tense>.
const (
	PlatformInitialized       = "platform.initialized"
	PlatformUpdated           = "platform.updated"
	ListingCreated            = "listing.created"
	ListingUpdated            = "listing.updated"
	ListingDeactivated        = "listing.deactivated"
	VerificationAccepted      = "verification.accepted"
	OracleRegistryInitialized = "oracle.registry_initialized"
	OracleRegistryUpdated     = "oracle.registry_updated"
	OracleRegistered          = "oracle.registered"
	OracleDeactivated         = "oracle.deactivated"
	LicensePurchased          = "license.purchased"
	LicenseTransferred        = "license.transferred"
	LicenseRevoked            = "license.revoked"
	ConsentRequested          = "consent.requested"
	ConsentDecided            = "consent.decided"
	AccessRecorded            = "access.recorded"
	DatasetRegistered         = "dataset.registered"
	DatasetHashRegistered     = "dataset.hash_registered"
	DatasetHashUpdated        = "dataset.hash_updated"
	DatasetClosed             = "dataset.closed"
)

// Event is one domain occurrence. Subject is the id of the record it is about.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Subject    string         `json:"subject"`
	Actor      types.Identity `json:"actor,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// New builds an event with a fresh id.
func New(eventType, subject string, actor types.Identity, at time.Time, data map[string]any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: at,
		Subject:    subject,
		Actor:      actor,
		Data:       data,
	}
}

// Sink receives events.
type Sink interface {
	Emit(ctx context.Context, e Event)
}

// Multi fans each event out to every sink in order.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, e Event) {
	for _, s := range m {
		s.Emit(ctx, e)
	}
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(context.Context, Event) {}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in emission order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
