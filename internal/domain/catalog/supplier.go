package catalog

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/shipflow/backend/internal/domain/integration"
	"github.com/shipflow/backend/internal/domain/shared"
)

// SourceRef identifies a storefront product: {storeType}_{storeId}_{productId}
type SourceRef struct {
	StoreType integration.StoreType
	StoreID   string
	ProductID string
}

func (r SourceRef) String() string {
	return fmt.Sprintf("%s_%s_%s", r.StoreType, r.StoreID, r.ProductID)
}

// Validate checks that all parts are present
func (r SourceRef) Validate() error {
	if !r.StoreType.IsValid() {
		return shared.ErrInvalidInput.Withf("unknown store type %q", r.StoreType)
	}
	if r.StoreID == "" || r.ProductID == "" {
		return shared.ErrInvalidInput.Withf("store id and product id are required")
	}
	return nil
}

// Supplier pairs a Product with the Warehouse stocking it. SourceIDs is the
// append-mostly set of storefront products recognised as this product at
// this warehouse.
type Supplier struct {
	shared.OwnedAggregateRoot
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	SourceIDs   []string
}

// NewSupplier creates a supplier for product at warehouse
func NewSupplier(userID, productID, warehouseID uuid.UUID) *Supplier {
	return &Supplier{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(userID),
		ProductID:          productID,
		WarehouseID:        warehouseID,
		SourceIDs:          []string{},
	}
}

// HasSource reports whether the storefront reference is tagged on this supplier
func (s *Supplier) HasSource(ref string) bool {
	for _, id := range s.SourceIDs {
		if id == ref {
			return true
		}
	}
	return false
}

// AddSource tags the supplier with a storefront reference. Returns false if
// it was already present.
func (s *Supplier) AddSource(ref string) bool {
	if ref == "" || s.HasSource(ref) {
		return false
	}
	s.SourceIDs = append(s.SourceIDs, ref)
	s.Touch()
	return true
}

// JoinSourceIDs renders the set in its comma-joined storage form
func JoinSourceIDs(ids []string) string {
	return strings.Join(ids, ",")
}

// SplitSourceIDs parses the comma-joined storage form
func SplitSourceIDs(s string) []string {
	out := []string{}
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
