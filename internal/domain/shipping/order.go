package shipping

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shipflow/backend/internal/domain/integration"
	"github.com/shipflow/backend/internal/domain/shared"
)

// Status is the derived shipment state of an Order
type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusPaid           Status = "PAID"
	StatusShipped        Status = "SHIPPED"
)

// storefrontStatusPrefix marks statuses pushed to storefronts as ours
const storefrontStatusPrefix = "D_"

// Order is one parcel: a bundle of storefront order lines shipped from one
// warehouse to one address. Its identity is its accumulated items, so address
// corrections update it in place.
type Order struct {
	shared.OwnedAggregateRoot
	WarehouseID      uuid.UUID
	StoreType        integration.StoreType
	StoreID          string
	StoreOrderNumber string
	ToAddress        ResolvedAddress
	FromAddress      ResolvedAddress
	Package          *Package
	RateID           string
	TrackingNumber   string
	LabelURL         string
	IsPlatformRate   bool
	IsPaid           bool
	ShipmentCost     decimal.Decimal
	IsCancelled      bool
	PaidAt           *time.Time

	quoteData []byte
	quote     *ShipmentQuote
}

// NewOrder creates an order with address snapshots taken now
func NewOrder(userID, warehouseID uuid.UUID, storeType integration.StoreType, storeID, storeOrderNumber string, to, from ResolvedAddress) (*Order, error) {
	if !storeType.IsValid() {
		return nil, shared.ErrInvalidInput.Withf("unknown store type %q", storeType)
	}
	if strings.TrimSpace(storeID) == "" || strings.TrimSpace(storeOrderNumber) == "" {
		return nil, shared.ErrInvalidInput.Withf("store id and store order number are required")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.ErrInvalidInput.Withf("warehouse is required")
	}
	return &Order{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(userID),
		WarehouseID:        warehouseID,
		StoreType:          storeType,
		StoreID:            storeID,
		StoreOrderNumber:   storeOrderNumber,
		ToAddress:          to,
		FromAddress:        from,
		ShipmentCost:       decimal.Zero,
	}, nil
}

// Status derives the shipment state from the stored flags
func (o *Order) Status() Status {
	switch {
	case o.TrackingNumber != "":
		return StatusShipped
	case o.IsPaid:
		return StatusPaid
	default:
		return StatusPendingPayment
	}
}

// StorefrontStatus is the status string reported to storefronts
func (o *Order) StorefrontStatus() string {
	return storefrontStatusPrefix + string(o.Status())
}

// ToAddressHash is the bundling key of the destination
func (o *Order) ToAddressHash() string {
	return o.ToAddress.Hash
}

// IsOpen reports whether lines may still be attached
func (o *Order) IsOpen() bool {
	return !o.IsPaid && !o.IsCancelled
}

// IsCrossBorder reports whether origin and destination countries differ
func (o *Order) IsCrossBorder() bool {
	return !o.FromAddress.Address.IsDomesticTo(o.ToAddress.Address)
}

// CanBundle reports whether a line resolved to addressHash and stocked at
// warehouseID may join this order. constrained is true when the order
// already holds items tied to a supplier warehouse.
func (o *Order) CanBundle(addressHash string, warehouseID uuid.UUID, constrained bool) bool {
	if !o.IsOpen() || o.ToAddress.Hash != addressHash {
		return false
	}
	return !constrained || o.WarehouseID == warehouseID
}

// AssignWarehouse moves an unconstrained order to a new origin
func (o *Order) AssignWarehouse(warehouseID uuid.UUID, from ResolvedAddress) error {
	if !o.IsOpen() {
		return shared.ErrInvalidState.Withf("order %s is no longer open", o.ID)
	}
	if o.WarehouseID == warehouseID {
		return nil
	}
	o.WarehouseID = warehouseID
	o.FromAddress = from
	o.ClearQuote()
	o.Touch()
	return nil
}

// UpdateToAddress replaces the destination in place. A changed hash drops the
// cached quote.
func (o *Order) UpdateToAddress(to ResolvedAddress) (bool, error) {
	if to.Hash == o.ToAddress.Hash && to.ProviderID == o.ToAddress.ProviderID {
		return false, nil
	}
	if o.IsPaid {
		return false, shared.ErrInvalidState.Withf("cannot change the address of a paid order")
	}
	if to.Hash != o.ToAddress.Hash {
		o.ClearQuote()
	}
	o.ToAddress = to
	o.Touch()
	return true, nil
}

// Quote lazily decodes the cached quote. Returns nil when there is none.
func (o *Order) Quote() (*ShipmentQuote, error) {
	if o.quote != nil || len(o.quoteData) == 0 {
		return o.quote, nil
	}
	var q ShipmentQuote
	if err := json.Unmarshal(o.quoteData, &q); err != nil {
		return nil, fmt.Errorf("decode quote for order %s: %w", o.ID, err)
	}
	q.Normalize()
	o.quote = &q
	return o.quote, nil
}

// SetQuote caches a fresh quote. A paid order's quote is immutable.
func (o *Order) SetQuote(q *ShipmentQuote) error {
	if o.IsPaid {
		return shared.ErrInvalidState.Withf("quote of a paid order cannot change")
	}
	q.Normalize()
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode quote: %w", err)
	}
	pkg := q.Package
	o.Package = &pkg
	o.quoteData = data
	o.quote = q
	o.Touch()
	return nil
}

// ClearQuote drops the cached quote
func (o *Order) ClearQuote() {
	o.quoteData = nil
	o.quote = nil
}

// QuoteData returns the serialized quote for storage
func (o *Order) QuoteData() []byte {
	return o.quoteData
}

// RestoreQuoteData loads the serialized quote from storage
func (o *Order) RestoreQuoteData(data []byte) {
	o.quoteData = data
	o.quote = nil
}

// MarkPaid records a purchased label for the selected rate
func (o *Order) MarkPaid(rate Rate, label *Label) error {
	if o.IsPaid {
		return shared.ErrInvalidState.Withf("order %s is already paid", o.ID)
	}
	if o.IsCancelled {
		return shared.ErrInvalidState.Withf("order %s is cancelled", o.ID)
	}
	now := time.Now()
	o.RateID = rate.ID
	o.TrackingNumber = label.TrackingNumber
	o.LabelURL = label.LabelURL
	o.ShipmentCost = rate.Price
	o.IsPlatformRate = rate.IsRoot
	o.IsPaid = true
	o.PaidAt = &now
	o.UpdatedAt = now
	o.AddDomainEvent(NewShipmentPaidEvent(o))
	return nil
}

// UpdateTracking records a later tracking number. Returns false when unchanged.
func (o *Order) UpdateTracking(trackingNumber string) (bool, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if !o.IsPaid {
		return false, shared.ErrInvalidState.Withf("order %s has no purchased label", o.ID)
	}
	if trackingNumber == "" || trackingNumber == o.TrackingNumber {
		return false, nil
	}
	o.TrackingNumber = trackingNumber
	o.Touch()
	o.AddDomainEvent(NewTrackingUpdatedEvent(o))
	return true, nil
}

// Cancel flags an unpaid order as cancelled. Refunds are handled elsewhere.
func (o *Order) Cancel() error {
	if o.IsPaid {
		return shared.ErrInvalidState.Withf("paid order %s cannot be cancelled here", o.ID)
	}
	if o.IsCancelled {
		return nil
	}
	o.IsCancelled = true
	o.Touch()
	return nil
}
