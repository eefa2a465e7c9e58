package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shipflow/backend/internal/domain/shared"
)

// Listing is a Variant as stocked by a Supplier. A nil Inventory means
// stock is not tracked.
type Listing struct {
	shared.BaseEntity
	UserID     uuid.UUID
	SupplierID uuid.UUID
	VariantID  uuid.UUID
	Inventory  *int
	Price      decimal.Decimal
}

// NewListing creates an untracked listing
func NewListing(userID, supplierID, variantID uuid.UUID, price decimal.Decimal) *Listing {
	return &Listing{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		SupplierID: supplierID,
		VariantID:  variantID,
		Price:      price,
	}
}

// IsTracked reports whether inventory is counted for this listing
func (l *Listing) IsTracked() bool {
	return l.Inventory != nil
}
