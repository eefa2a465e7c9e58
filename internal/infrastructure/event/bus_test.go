package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/domain/shipping"
	"github.com/shipflow/backend/internal/infrastructure/cache"
	"github.com/shipflow/backend/tests/testutil"
)

func paidEvent() shared.DomainEvent {
	return testutil.NewShipmentPaidEvent(uuid.New(), "1Z999")
}

func trackingEvent() shared.DomainEvent {
	return testutil.NewTrackingUpdatedEvent(uuid.New(), "1Z999")
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryEventBus(nil)

	paid := testutil.NewEventRecorder(shipping.EventTypeShipmentPaid)
	tracking := testutil.NewEventRecorder(shipping.EventTypeTrackingUpdated)
	all := testutil.NewEventRecorder()
	bus.Subscribe(paid)
	bus.Subscribe(tracking)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(ctx, paidEvent(), trackingEvent()))
	assert.Equal(t, 1, paid.Count())
	assert.Equal(t, 1, tracking.Count())
	assert.Equal(t, 2, all.Count())

	bus.Unsubscribe(paid)
	require.NoError(t, bus.Publish(ctx, paidEvent()))
	assert.Equal(t, 1, paid.Count())
	assert.Equal(t, 3, all.Count())
}

func TestInMemoryEventBus_HandlerFailuresAreContained(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryEventBus(nil)

	failing := testutil.NewEventRecorder(shipping.EventTypeShipmentPaid)
	failing.FailWith(errors.New("storefront down"))
	panicking := testutil.NewEventRecorder(shipping.EventTypeShipmentPaid)
	panicking.PanicWith("boom")
	healthy := testutil.NewEventRecorder(shipping.EventTypeShipmentPaid)
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	assert.NoError(t, bus.Publish(ctx, paidEvent()))
	assert.Equal(t, 1, healthy.Count())

	err := bus.dispatchToHandler(ctx, panicking, paidEvent())
	assert.ErrorContains(t, err, "panicked")
}

func TestInMemoryEventBus_AsyncDispatch(t *testing.T) {
	bus := NewInMemoryEventBus(nil, WithAsyncDispatch())
	handler := testutil.NewEventRecorder(shipping.EventTypeShipmentPaid)
	release := handler.Hold()
	bus.Subscribe(handler)
	require.NoError(t, bus.Start(context.Background()))

	// a cancelled publisher context does not stop the handler
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Publish(ctx, paidEvent()))
	cancel()
	assert.Equal(t, 0, handler.Count())

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stopCancel()
	assert.Error(t, bus.Stop(stopCtx), "stop waits for the blocked handler")

	release()
	require.NoError(t, bus.Stop(context.Background()))
	assert.Equal(t, 1, handler.Count())

	// once stopped, publishing is synchronous again
	require.NoError(t, bus.Publish(context.Background(), paidEvent()))
	assert.Equal(t, 2, handler.Count())
}

func TestHandlerRegistry(t *testing.T) {
	r := NewHandlerRegistry()
	a := testutil.NewEventRecorder()
	b := testutil.NewEventRecorder()
	w := testutil.NewEventRecorder()

	r.Register(a, "X", "Y")
	r.Register(b, "X")
	r.Register(w)

	assert.Equal(t, []shared.EventHandler{a, b, w}, r.GetHandlers("X"))
	assert.Equal(t, []shared.EventHandler{w}, r.GetHandlers("Z"))
	assert.ElementsMatch(t, []string{"X", "Y"}, r.EventTypes())

	r.Unregister(a)
	assert.Equal(t, []shared.EventHandler{b, w}, r.GetHandlers("X"))
	assert.ElementsMatch(t, []string{"X"}, r.EventTypes())
}

func TestIdempotentHandler(t *testing.T) {
	ctx := context.Background()
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	inner := testutil.NewEventRecorder(shipping.EventTypeShipmentPaid)
	h := NewIdempotentHandler(inner, store, nil)
	assert.Equal(t, []string{shipping.EventTypeShipmentPaid}, h.EventTypes())

	event := paidEvent()
	require.NoError(t, h.Handle(ctx, event))
	require.NoError(t, h.Handle(ctx, event))
	require.NoError(t, h.Handle(ctx, paidEvent()))

	assert.Equal(t, 2, inner.Count())
	assert.Equal(t, IdempotencyStats{Processed: 2, Duplicate: 1}, h.Stats())

	t.Run("disabled passes everything through", func(t *testing.T) {
		inner := testutil.NewEventRecorder(shipping.EventTypeShipmentPaid)
		h := NewIdempotentHandlerWithConfig(inner, store, shared.IdempotencyConfig{Enabled: false}, nil)
		require.NoError(t, h.Handle(ctx, event))
		require.NoError(t, h.Handle(ctx, event))
		assert.Equal(t, 2, inner.Count())
	})

	t.Run("failures are counted", func(t *testing.T) {
		inner := testutil.NewEventRecorder(shipping.EventTypeShipmentPaid)
		inner.FailWith(errors.New("nope"))
		h := NewIdempotentHandler(inner, store, nil)
		assert.Error(t, h.Handle(ctx, paidEvent()))
		assert.Equal(t, int64(1), h.Stats().Failed)
	})
}
