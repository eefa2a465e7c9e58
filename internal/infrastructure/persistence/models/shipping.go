package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/shipflow/backend/internal/domain/integration"
	"github.com/shipflow/backend/internal/domain/shipping"
)

// OrderModel is the persistence model for the Order aggregate root.
// The address snapshots and cached quote are JSON; the bundling key
// (store order number, to_address_hash, warehouse) is structured.
type OrderModel struct {
	OwnedAggregateModel
	WarehouseID      uuid.UUID                                    `gorm:"type:uuid;not null;index"`
	StoreType        string                                       `gorm:"type:varchar(20);not null;index:idx_order_store_number,priority:1"`
	StoreID          string                                       `gorm:"type:varchar(64);not null;index:idx_order_store_number,priority:2"`
	StoreOrderNumber string                                       `gorm:"type:varchar(128);not null;index:idx_order_store_number,priority:3"`
	ToAddress        datatypes.JSONType[shipping.ResolvedAddress] `gorm:"not null"`
	ToAddressHash    string                                       `gorm:"type:varchar(64);not null;index"`
	FromAddress      datatypes.JSONType[shipping.ResolvedAddress] `gorm:"not null"`
	PackageLength    *decimal.Decimal                             `gorm:"type:decimal(18,4)"`
	PackageWidth     *decimal.Decimal                             `gorm:"type:decimal(18,4)"`
	PackageHeight    *decimal.Decimal                             `gorm:"type:decimal(18,4)"`
	PackageWeight    *decimal.Decimal                             `gorm:"type:decimal(18,4)"`
	QuoteData        datatypes.JSON
	RateID           string                                       `gorm:"type:varchar(128)"`
	TrackingNumber   string                                       `gorm:"type:varchar(128);index"`
	LabelURL         string                                       `gorm:"type:text"`
	IsPlatformRate   bool                                         `gorm:"not null;default:false"`
	IsPaid           bool                                         `gorm:"not null;default:false;index"`
	ShipmentCost     decimal.Decimal                              `gorm:"type:decimal(18,4);not null;default:0"`
	IsCancelled      bool                                         `gorm:"not null;default:false"`
	PaidAt           *time.Time
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *shipping.Order {
	o := &shipping.Order{
		OwnedAggregateRoot: m.ToDomainOwned(),
		WarehouseID:        m.WarehouseID,
		StoreType:          integration.StoreType(m.StoreType),
		StoreID:            m.StoreID,
		StoreOrderNumber:   m.StoreOrderNumber,
		ToAddress:          m.ToAddress.Data(),
		FromAddress:        m.FromAddress.Data(),
		RateID:             m.RateID,
		TrackingNumber:     m.TrackingNumber,
		LabelURL:           m.LabelURL,
		IsPlatformRate:     m.IsPlatformRate,
		IsPaid:             m.IsPaid,
		ShipmentCost:       m.ShipmentCost,
		IsCancelled:        m.IsCancelled,
		PaidAt:             m.PaidAt,
	}
	if m.PackageWeight != nil {
		o.Package = &shipping.Package{
			Length: valueOrZero(m.PackageLength),
			Width:  valueOrZero(m.PackageWidth),
			Height: valueOrZero(m.PackageHeight),
			Weight: *m.PackageWeight,
		}
	}
	if len(m.QuoteData) > 0 && m.QuoteData.String() != "null" {
		o.RestoreQuoteData([]byte(m.QuoteData))
	}
	return o
}

// FromDomain populates the persistence model from a domain Order
func (m *OrderModel) FromDomain(o *shipping.Order) {
	m.FromDomainOwned(o.OwnedAggregateRoot)
	m.WarehouseID = o.WarehouseID
	m.StoreType = string(o.StoreType)
	m.StoreID = o.StoreID
	m.StoreOrderNumber = o.StoreOrderNumber
	m.ToAddress = datatypes.NewJSONType(o.ToAddress)
	m.ToAddressHash = o.ToAddressHash()
	m.FromAddress = datatypes.NewJSONType(o.FromAddress)
	m.PackageLength, m.PackageWidth, m.PackageHeight, m.PackageWeight = nil, nil, nil, nil
	if o.Package != nil {
		m.PackageLength = &o.Package.Length
		m.PackageWidth = &o.Package.Width
		m.PackageHeight = &o.Package.Height
		m.PackageWeight = &o.Package.Weight
	}
	m.QuoteData = datatypes.JSON(o.QuoteData())
	m.RateID = o.RateID
	m.TrackingNumber = o.TrackingNumber
	m.LabelURL = o.LabelURL
	m.IsPlatformRate = o.IsPlatformRate
	m.IsPaid = o.IsPaid
	m.ShipmentCost = o.ShipmentCost
	m.IsCancelled = o.IsCancelled
	m.PaidAt = o.PaidAt
}

// OrderModelFromDomain creates a new persistence model from a domain Order
func OrderModelFromDomain(o *shipping.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

func valueOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// OrderItemModel is the persistence model for OrderItem
type OrderItemModel struct {
	BaseModel
	UserID              uuid.UUID       `gorm:"type:uuid;not null;index:idx_order_item_data,priority:1"`
	OrderID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	ListingID           *uuid.UUID      `gorm:"type:uuid;index"`
	OrderDataID         string          `gorm:"type:varchar(255);not null;index:idx_order_item_data,priority:2"`
	StoreLineID         string          `gorm:"type:varchar(64);not null"`
	SourceOrderID       string          `gorm:"type:varchar(64);not null"`
	Title               string          `gorm:"type:varchar(500)"`
	Quantity            int             `gorm:"not null;default:1"`
	UnitCost            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	HSTariff            string          `gorm:"column:hs_tariff;type:varchar(32)"`
	CountryCode         string          `gorm:"type:varchar(2)"`
	Weight              decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	RemoteFulfillmentID string          `gorm:"type:varchar(128)"`
	InventoryDeducted   bool            `gorm:"not null;default:false"`
	NotifyPending       bool            `gorm:"not null;default:false;index"`
	NotifyAttempts      int             `gorm:"not null;default:0"`
	NotifyError         string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem
func (m *OrderItemModel) ToDomain() *shipping.OrderItem {
	return &shipping.OrderItem{
		BaseEntity:    m.BaseModel.ToDomain(),
		UserID:        m.UserID,
		OrderID:       m.OrderID,
		ListingID:     m.ListingID,
		OrderDataID:   m.OrderDataID,
		StoreLineID:   m.StoreLineID,
		SourceOrderID: m.SourceOrderID,
		Title:         m.Title,
		Quantity:      m.Quantity,
		UnitCost:      m.UnitCost,
		Customs: shipping.Customs{
			HSTariff:    m.HSTariff,
			CountryCode: m.CountryCode,
			Weight:      m.Weight,
		},
		RemoteFulfillmentID: m.RemoteFulfillmentID,
		InventoryDeducted:   m.InventoryDeducted,
		NotifyPending:       m.NotifyPending,
		NotifyAttempts:      m.NotifyAttempts,
		NotifyError:         m.NotifyError,
	}
}

// FromDomain populates the persistence model from a domain OrderItem
func (m *OrderItemModel) FromDomain(i *shipping.OrderItem) {
	m.FromDomainBaseEntity(i.BaseEntity)
	m.UserID = i.UserID
	m.OrderID = i.OrderID
	m.ListingID = i.ListingID
	m.OrderDataID = i.OrderDataID
	m.StoreLineID = i.StoreLineID
	m.SourceOrderID = i.SourceOrderID
	m.Title = i.Title
	m.Quantity = i.Quantity
	m.UnitCost = i.UnitCost
	m.HSTariff = i.Customs.HSTariff
	m.CountryCode = i.Customs.CountryCode
	m.Weight = i.Customs.Weight
	m.RemoteFulfillmentID = i.RemoteFulfillmentID
	m.InventoryDeducted = i.InventoryDeducted
	m.NotifyPending = i.NotifyPending
	m.NotifyAttempts = i.NotifyAttempts
	m.NotifyError = i.NotifyError
}

// AccountModel is the persistence model for the provider root Account
type AccountModel struct {
	AggregateModel
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	ProviderID string    `gorm:"type:varchar(128);not null"`
	APIKey     string    `gorm:"column:api_key;type:varchar(255);not null"`
	TestAPIKey string    `gorm:"column:test_api_key;type:varchar(255)"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account
func (m *AccountModel) ToDomain() *shipping.Account {
	a := &shipping.Account{
		ProviderID: m.ProviderID,
		APIKey:     m.APIKey,
		TestAPIKey: m.TestAPIKey,
	}
	a.ID = m.ID
	a.CreatedAt = m.CreatedAt
	a.UpdatedAt = m.UpdatedAt
	a.Version = m.Version
	a.UserID = m.UserID
	return a
}

// FromDomain populates the persistence model from a domain Account
func (m *AccountModel) FromDomain(a *shipping.Account) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.UserID = a.UserID
	m.ProviderID = a.ProviderID
	m.APIKey = a.APIKey
	m.TestAPIKey = a.TestAPIKey
}

// CarrierModel is the persistence model for a connected Carrier
type CarrierModel struct {
	OwnedAggregateModel
	CarrierType string `gorm:"type:varchar(64);not null"`
	Description string `gorm:"type:varchar(255)"`
	Reference   string `gorm:"type:varchar(255)"`
	ProviderID  string `gorm:"type:varchar(128);not null"`
}

// TableName returns the table name for GORM
func (CarrierModel) TableName() string {
	return "carriers"
}

// ToDomain converts the persistence model to a domain Carrier
func (m *CarrierModel) ToDomain() *shipping.Carrier {
	return &shipping.Carrier{
		OwnedAggregateRoot: m.ToDomainOwned(),
		CarrierType:        m.CarrierType,
		Description:        m.Description,
		Reference:          m.Reference,
		ProviderID:         m.ProviderID,
	}
}

// FromDomain populates the persistence model from a domain Carrier
func (m *CarrierModel) FromDomain(c *shipping.Carrier) {
	m.FromDomainOwned(c.OwnedAggregateRoot)
	m.CarrierType = c.CarrierType
	m.Description = c.Description
	m.Reference = c.Reference
	m.ProviderID = c.ProviderID
}
