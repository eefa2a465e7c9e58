package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/shipflow/backend/internal/domain/catalog"
	"github.com/shipflow/backend/internal/domain/shared"
)

// ProductModel is the persistence model for the Product aggregate root
type ProductModel struct {
	OwnedAggregateModel
	Title      string                                        `gorm:"type:varchar(500);not null"`
	Images     datatypes.JSONSlice[string]                   `gorm:"not null"`
	Dimensions datatypes.JSONSlice[catalog.VariantDimension] `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	images := []string(m.Images)
	if images == nil {
		images = []string{}
	}
	dims := []catalog.VariantDimension(m.Dimensions)
	if dims == nil {
		dims = []catalog.VariantDimension{}
	}
	return &catalog.Product{
		OwnedAggregateRoot: m.ToDomainOwned(),
		Title:              m.Title,
		Images:             images,
		Dimensions:         dims,
	}
}

// FromDomain populates the persistence model from a domain Product
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainOwned(p.OwnedAggregateRoot)
	m.Title = p.Title
	m.Images = datatypes.NewJSONSlice(p.Images)
	m.Dimensions = datatypes.NewJSONSlice(p.Dimensions)
}

// VariantModel is the persistence model for Variant
type VariantModel struct {
	BaseModel
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Title     string          `gorm:"type:varchar(500);not null"`
	SKU       string          `gorm:"column:sku;type:varchar(255);index"`
	Weight    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Length    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Width     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Height    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (VariantModel) TableName() string {
	return "variants"
}

// ToDomain converts the persistence model to a domain Variant
func (m *VariantModel) ToDomain() *catalog.Variant {
	return &catalog.Variant{
		BaseEntity: m.BaseModel.ToDomain(),
		ProductID:  m.ProductID,
		Title:      m.Title,
		SKU:        m.SKU,
		Weight:     m.Weight,
		Length:     m.Length,
		Width:      m.Width,
		Height:     m.Height,
	}
}

// FromDomain populates the persistence model from a domain Variant
func (m *VariantModel) FromDomain(v *catalog.Variant) {
	m.FromDomainBaseEntity(v.BaseEntity)
	m.ProductID = v.ProductID
	m.Title = v.Title
	m.SKU = v.SKU
	m.Weight = v.Weight
	m.Length = v.Length
	m.Width = v.Width
	m.Height = v.Height
}

// SupplierModel is the persistence model for the Supplier aggregate root.
// SourceIDs keeps the comma-joined storefront references.
type SupplierModel struct {
	OwnedAggregateModel
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_supplier_product_warehouse,priority:1"`
	WarehouseID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_supplier_product_warehouse,priority:2"`
	SourceIDs   string    `gorm:"column:source_ids;type:text;not null;default:''"`
}

// TableName returns the table name for GORM
func (SupplierModel) TableName() string {
	return "suppliers"
}

// ToDomain converts the persistence model to a domain Supplier
func (m *SupplierModel) ToDomain() *catalog.Supplier {
	return &catalog.Supplier{
		OwnedAggregateRoot: m.ToDomainOwned(),
		ProductID:          m.ProductID,
		WarehouseID:        m.WarehouseID,
		SourceIDs:          catalog.SplitSourceIDs(m.SourceIDs),
	}
}

// FromDomain populates the persistence model from a domain Supplier
func (m *SupplierModel) FromDomain(s *catalog.Supplier) {
	m.FromDomainOwned(s.OwnedAggregateRoot)
	m.ProductID = s.ProductID
	m.WarehouseID = s.WarehouseID
	m.SourceIDs = catalog.JoinSourceIDs(s.SourceIDs)
}

// SourceLockModel is the claim row for one storefront reference of a user.
// Matching locks it so first sight of a reference is resolved once.
type SourceLockModel struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	SourceRef string    `gorm:"type:varchar(255);primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SourceLockModel) TableName() string {
	return "source_locks"
}

// ListingModel is the persistence model for Listing
type ListingModel struct {
	BaseModel
	UserID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	SupplierID uuid.UUID       `gorm:"type:uuid;not null;index"`
	VariantID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Inventory  *int            `gorm:"column:inventory"`
	Price      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (ListingModel) TableName() string {
	return "listings"
}

// ToDomain converts the persistence model to a domain Listing
func (m *ListingModel) ToDomain() *catalog.Listing {
	return &catalog.Listing{
		BaseEntity: shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		UserID:     m.UserID,
		SupplierID: m.SupplierID,
		VariantID:  m.VariantID,
		Inventory:  m.Inventory,
		Price:      m.Price,
	}
}

// FromDomain populates the persistence model from a domain Listing
func (m *ListingModel) FromDomain(l *catalog.Listing) {
	m.FromDomainBaseEntity(l.BaseEntity)
	m.UserID = l.UserID
	m.SupplierID = l.SupplierID
	m.VariantID = l.VariantID
	m.Inventory = l.Inventory
	m.Price = l.Price
}
