package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipflow/backend/internal/domain/shipping"
)

func TestEventRecorder_HandleAndPublish(t *testing.T) {
	ctx := context.Background()
	rec := NewEventRecorder(shipping.EventTypeShipmentPaid)
	userID := uuid.New()

	require.NoError(t, rec.Handle(ctx, NewShipmentPaidEvent(userID, "1Z1")))
	require.NoError(t, rec.Publish(ctx, NewTrackingUpdatedEvent(userID, "1Z2")))

	assert.Equal(t, []string{shipping.EventTypeShipmentPaid}, rec.EventTypes())
	assert.Equal(t, []string{shipping.EventTypeShipmentPaid, shipping.EventTypeTrackingUpdated}, rec.Types())
	require.Equal(t, 2, rec.Count())
	assert.Equal(t, userID, rec.Events()[0].UserID())
}

func TestEventRecorder_FailWith(t *testing.T) {
	rec := NewEventRecorder()
	rec.FailWith(assert.AnError)

	err := rec.Handle(context.Background(), NewShipmentPaidEvent(uuid.New(), "1Z1"))
	assert.Equal(t, assert.AnError, err)
	assert.Equal(t, 1, rec.Count())
}

func TestEventRecorder_Hold(t *testing.T) {
	rec := NewEventRecorder()
	release := rec.Hold()
	go func() {
		_ = rec.Handle(context.Background(), NewShipmentPaidEvent(uuid.New(), "1Z1"))
	}()

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, rec.Count())

	release()
	release()
	RequireEventually(t, func() bool { return rec.Count() == 1 }, time.Second)
}

func TestEventRecorder_PanicWith(t *testing.T) {
	rec := NewEventRecorder()
	rec.PanicWith("boom")
	assert.PanicsWithValue(t, "boom", func() {
		_ = rec.Handle(context.Background(), NewShipmentPaidEvent(uuid.New(), "1Z1"))
	})
	assert.Zero(t, rec.Count())
}
