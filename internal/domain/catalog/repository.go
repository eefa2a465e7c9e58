package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository persists products
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	Save(ctx context.Context, product *Product) error
}

// VariantRepository persists variants
type VariantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Variant, error)
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]Variant, error)
	Save(ctx context.Context, variant *Variant) error
}

// SupplierRepository persists suppliers
type SupplierRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Supplier, error)
	// FindBySource returns the first supplier of the user tagged with ref
	FindBySource(ctx context.Context, userID uuid.UUID, ref string) (*Supplier, error)
	FindByProductAndWarehouse(ctx context.Context, productID, warehouseID uuid.UUID) (*Supplier, error)
	Save(ctx context.Context, supplier *Supplier) error
	// LockSource holds an exclusive claim on the user's storefront
	// reference until the surrounding transaction ends
	LockSource(ctx context.Context, userID uuid.UUID, ref string) error
	// AppendSource tags the stored supplier with ref in place. It is a
	// no-op when ref is already present.
	AppendSource(ctx context.Context, id uuid.UUID, ref string) error
}

// ListingRepository persists listings
type ListingRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	FindBySupplier(ctx context.Context, supplierID uuid.UUID) ([]Listing, error)
	Save(ctx context.Context, listing *Listing) error
	// DecrementInventory atomically lowers a tracked listing's counter;
	// untracked listings are left unchanged
	DecrementInventory(ctx context.Context, id uuid.UUID, quantity int) error
}
