package partner

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/domain/shared/valueobject"
)

// Warehouse is a physical ship-from location owned by one user.
// It is soft-deleted rather than removed so that suppliers and orders
// referencing it keep a valid origin address.
type Warehouse struct {
	shared.OwnedAggregateRoot
	Name      string
	Address   valueobject.Address
	DeletedAt *time.Time
}

// NewWarehouse creates a new warehouse
func NewWarehouse(userID uuid.UUID, name string, address valueobject.Address) (*Warehouse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.ErrInvalidInput.Withf("warehouse name is required")
	}
	if len(name) > 200 {
		return nil, shared.ErrInvalidInput.Withf("warehouse name cannot exceed 200 characters")
	}
	if err := address.Validate(); err != nil {
		return nil, shared.ErrInvalidInput.Withf("warehouse address: %v", err)
	}
	return &Warehouse{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(userID),
		Name:               name,
		Address:            address,
	}, nil
}

// IsDeleted reports whether the warehouse was soft-deleted
func (w *Warehouse) IsDeleted() bool {
	return w.DeletedAt != nil
}

// SoftDelete marks the warehouse deleted
func (w *Warehouse) SoftDelete() error {
	if w.IsDeleted() {
		return shared.ErrInvalidState.Withf("warehouse is already deleted")
	}
	now := time.Now()
	w.DeletedAt = &now
	w.UpdatedAt = now
	w.IncrementVersion()
	return nil
}

// WarehouseRepository persists warehouses. FindByIDForUser and FindByUser
// skip soft-deleted rows; FindByID does not, so paid orders keep their origin.
type WarehouseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Warehouse, error)
	FindByIDForUser(ctx context.Context, userID, id uuid.UUID) (*Warehouse, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]Warehouse, error)
	Save(ctx context.Context, warehouse *Warehouse) error
}
