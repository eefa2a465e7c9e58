package shipping

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shipflow/backend/internal/domain/shared"
)

const (
	AggregateTypeOrder = "Order"

	EventTypeShipmentPaid    = "ShipmentPaid"
	EventTypeTrackingUpdated = "ShipmentTrackingUpdated"
)

// ShipmentPaidEvent is raised once a label was purchased for an order
type ShipmentPaidEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID       `json:"order_id"`
	RateID         string          `json:"rate_id"`
	ShipmentCost   decimal.Decimal `json:"shipment_cost"`
	IsPlatformRate bool            `json:"is_platform_rate"`
	TrackingNumber string          `json:"tracking_number"`
}

// NewShipmentPaidEvent creates the event from the paid order
func NewShipmentPaidEvent(o *Order) *ShipmentPaidEvent {
	return &ShipmentPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentPaid, AggregateTypeOrder, o.ID, o.UserID),
		OrderID:         o.ID,
		RateID:          o.RateID,
		ShipmentCost:    o.ShipmentCost,
		IsPlatformRate:  o.IsPlatformRate,
		TrackingNumber:  o.TrackingNumber,
	}
}

// TrackingUpdatedEvent is raised when a paid order receives a new tracking number
type TrackingUpdatedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID `json:"order_id"`
	TrackingNumber string    `json:"tracking_number"`
}

// NewTrackingUpdatedEvent creates the event from the order
func NewTrackingUpdatedEvent(o *Order) *TrackingUpdatedEvent {
	return &TrackingUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTrackingUpdated, AggregateTypeOrder, o.ID, o.UserID),
		OrderID:         o.ID,
		TrackingNumber:  o.TrackingNumber,
	}
}
