package integration

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/domain/shipping"
)

// ShipmentEventHandler notifies storefronts when an order is paid or its
// tracking number changes
type ShipmentEventHandler struct {
	notifier *FulfillmentNotifier
	logger   *zap.Logger
}

// NewShipmentEventHandler creates the handler
func NewShipmentEventHandler(notifier *FulfillmentNotifier, logger *zap.Logger) *ShipmentEventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShipmentEventHandler{notifier: notifier, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *ShipmentEventHandler) EventTypes() []string {
	return []string{shipping.EventTypeShipmentPaid, shipping.EventTypeTrackingUpdated}
}

// Handle notifies every item of the event's order
func (h *ShipmentEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var orderID uuid.UUID
	switch e := event.(type) {
	case *shipping.ShipmentPaidEvent:
		orderID = e.OrderID
	case *shipping.TrackingUpdatedEvent:
		orderID = e.OrderID
	default:
		h.logger.Error("unexpected event type", zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	result, err := h.notifier.NotifyOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("notify order %s: %w", orderID, err)
	}
	if result.Failed > 0 {
		h.logger.Warn("some lines were not notified and will be retried",
			zap.String("order_id", orderID.String()),
			zap.String("event_type", event.EventType()),
			zap.Int("failed", result.Failed),
		)
	}
	return nil
}
