package shipping

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shipflow/backend/internal/domain/integration"
	"github.com/shipflow/backend/internal/domain/shared"
)

// OrderDataID identifies a storefront order line across re-deliveries
func OrderDataID(storeType integration.StoreType, storeID, sourceOrderID, lineID string) string {
	return fmt.Sprintf("%s_%s_%s_%s", storeType, storeID, sourceOrderID, lineID)
}

// Customs carries the per-line fields required for cross-border parcels
type Customs struct {
	HSTariff    string
	CountryCode string
	Weight      decimal.Decimal
}

// OrderItem is one storefront order line attached to an Order. ListingID is
// nil for lines that ship without a catalog match.
type OrderItem struct {
	shared.BaseEntity
	UserID              uuid.UUID
	OrderID             uuid.UUID
	ListingID           *uuid.UUID
	OrderDataID         string
	StoreLineID         string
	SourceOrderID       string
	Title               string
	Quantity            int
	UnitCost            decimal.Decimal
	Customs             Customs
	RemoteFulfillmentID string
	InventoryDeducted   bool
	NotifyPending       bool
	NotifyAttempts      int
	NotifyError         string
}

// NewOrderItem creates an item for a storefront line
func NewOrderItem(userID, orderID uuid.UUID, listingID *uuid.UUID, orderDataID, lineID, sourceOrderID string) *OrderItem {
	return &OrderItem{
		BaseEntity:    shared.NewBaseEntity(),
		UserID:        userID,
		OrderID:       orderID,
		ListingID:     listingID,
		OrderDataID:   orderDataID,
		StoreLineID:   lineID,
		SourceOrderID: sourceOrderID,
		Quantity:      1,
		UnitCost:      decimal.Zero,
		Customs:       Customs{Weight: decimal.Zero},
	}
}

// ApplyLine refreshes the mutable line fields
func (i *OrderItem) ApplyLine(title string, quantity int, unitCost decimal.Decimal, customs Customs) {
	i.Title = title
	if quantity > 0 {
		i.Quantity = quantity
	}
	i.UnitCost = unitCost
	i.Customs = customs
	i.Touch()
}

// SameListing reports whether the item references listingID (nil matches nil)
func (i *OrderItem) SameListing(listingID *uuid.UUID) bool {
	if i.ListingID == nil || listingID == nil {
		return i.ListingID == nil && listingID == nil
	}
	return *i.ListingID == *listingID
}

// HasCustomsInfo reports whether the line can be declared at customs
func (i *OrderItem) HasCustomsInfo() bool {
	return i.Customs.Weight.IsPositive() && i.Customs.HSTariff != ""
}

// IsFulfillmentCreated reports whether the storefront fulfillment exists
func (i *OrderItem) IsFulfillmentCreated() bool {
	return i.RemoteFulfillmentID != ""
}

// MarkNotified clears any pending retry
func (i *OrderItem) MarkNotified() {
	i.NotifyPending = false
	i.NotifyError = ""
	i.Touch()
}

// MarkNotifyFailed records a failed storefront call for out-of-band retry
func (i *OrderItem) MarkNotifyFailed(err error) {
	i.NotifyPending = true
	i.NotifyAttempts++
	i.NotifyError = err.Error()
	i.Touch()
}
