package shipping

import (
	"context"

	"github.com/google/uuid"

	"github.com/shipflow/backend/internal/domain/integration"
)

// OrderRepository persists orders
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByIDForUser(ctx context.Context, userID, id uuid.UUID) (*Order, error)
	// FindByIDForUpdate loads the order holding a row lock until the
	// surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)
	// FindOpenByStoreOrder returns unpaid, uncancelled orders for a storefront
	// order number, oldest first
	FindOpenByStoreOrder(ctx context.Context, userID uuid.UUID, storeType integration.StoreType, storeID, storeOrderNumber string) ([]Order, error)
	ExistsOpenForWarehouse(ctx context.Context, warehouseID uuid.UUID) (bool, error)
	Save(ctx context.Context, order *Order) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// OrderItemRepository persists order items
type OrderItemRepository interface {
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error)
	FindByOrderDataID(ctx context.Context, userID uuid.UUID, orderDataID string) ([]OrderItem, error)
	CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	// CountListedByOrder counts items tied to a catalog listing, i.e. items
	// that constrain the order's warehouse
	CountListedByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	// FindPendingNotification returns items of paid orders whose storefront
	// notification failed, with fewer than maxAttempts tries
	FindPendingNotification(ctx context.Context, limit, maxAttempts int) ([]OrderItem, error)
	Save(ctx context.Context, item *OrderItem) error
	Delete(ctx context.Context, ids ...uuid.UUID) error
}

// AccountRepository persists provider root accounts, one per user
type AccountRepository interface {
	FindByUser(ctx context.Context, userID uuid.UUID) (*Account, error)
	// Create inserts the account; shared.ErrAlreadyExists if the user has one
	Create(ctx context.Context, account *Account) error
}

// CarrierRepository persists connected carrier accounts
type CarrierRepository interface {
	FindByUser(ctx context.Context, userID uuid.UUID) ([]Carrier, error)
	Save(ctx context.Context, carrier *Carrier) error
}
