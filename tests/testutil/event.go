package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/domain/shipping"
)

// EventRecorder captures domain events. It subscribes to an event bus as a
// handler and stands in for the publisher given to application services.
type EventRecorder struct {
	mu         sync.Mutex
	eventTypes []string
	events     []shared.DomainEvent
	err        error
	panicMsg   string
	gate       chan struct{}
}

// NewEventRecorder subscribes to eventTypes, or to everything when none
// are given
func NewEventRecorder(eventTypes ...string) *EventRecorder {
	return &EventRecorder{eventTypes: eventTypes}
}

// EventTypes implements shared.EventHandler
func (r *EventRecorder) EventTypes() []string {
	return r.eventTypes
}

// Handle records event and returns the configured failure. A held recorder
// blocks until released.
func (r *EventRecorder) Handle(_ context.Context, event shared.DomainEvent) error {
	r.mu.Lock()
	gate, panicMsg := r.gate, r.panicMsg
	r.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if panicMsg != "" {
		panic(panicMsg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

// Publish implements shared.EventPublisher
func (r *EventRecorder) Publish(_ context.Context, events ...shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return r.err
}

// FailWith makes Handle and Publish return err after recording
func (r *EventRecorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// PanicWith makes Handle panic before recording
func (r *EventRecorder) PanicWith(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panicMsg = msg
}

// Hold blocks Handle until the returned release func is called
func (r *EventRecorder) Hold() (release func()) {
	gate := make(chan struct{})
	r.mu.Lock()
	r.gate = gate
	r.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Events returns a copy of the recorded events
func (r *EventRecorder) Events() []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.DomainEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order
func (r *EventRecorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType())
	}
	return out
}

// Count returns the number of recorded events
func (r *EventRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// NewShipmentPaidEvent builds a paid event for a fresh order of userID
func NewShipmentPaidEvent(userID uuid.UUID, trackingNumber string) *shipping.ShipmentPaidEvent {
	orderID := uuid.New()
	return &shipping.ShipmentPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(shipping.EventTypeShipmentPaid, shipping.AggregateTypeOrder, orderID, userID),
		OrderID:         orderID,
		RateID:          "rate_1",
		TrackingNumber:  trackingNumber,
	}
}

// NewTrackingUpdatedEvent builds a tracking event for a fresh order of userID
func NewTrackingUpdatedEvent(userID uuid.UUID, trackingNumber string) *shipping.TrackingUpdatedEvent {
	orderID := uuid.New()
	return &shipping.TrackingUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(shipping.EventTypeTrackingUpdated, shipping.AggregateTypeOrder, orderID, userID),
		OrderID:         orderID,
		TrackingNumber:  trackingNumber,
	}
}

var (
	_ shared.EventHandler   = (*EventRecorder)(nil)
	_ shared.EventPublisher = (*EventRecorder)(nil)
)
