package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shipflow/backend/internal/domain/integration"
	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/domain/shipping"
	"github.com/shipflow/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) first(query *gorm.DB) (*shipping.Order, error) {
	var model models.OrderModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds an order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*shipping.Order, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByIDForUser finds an order by ID scoped to its owner
func (r *GormOrderRepository) FindByIDForUser(ctx context.Context, userID, id uuid.UUID) (*shipping.Order, error) {
	return r.first(r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id))
}

// FindByIDForUpdate finds an order and locks its row (SELECT ... FOR UPDATE).
// Must be called inside a transaction.
func (r *GormOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*shipping.Order, error) {
	return r.first(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

// FindOpenByStoreOrder lists unpaid, uncancelled orders for a storefront order number
func (r *GormOrderRepository) FindOpenByStoreOrder(
	ctx context.Context,
	userID uuid.UUID,
	storeType integration.StoreType,
	storeID, storeOrderNumber string,
) ([]shipping.Order, error) {
	var rows []models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND store_type = ? AND store_id = ? AND store_order_number = ?",
			userID, storeType.String(), storeID, storeOrderNumber).
		Where("is_paid = ? AND is_cancelled = ?", false, false).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	orders := make([]shipping.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, nil
}

// ExistsOpenForWarehouse reports whether any unpaid, uncancelled order ships from the warehouse
func (r *GormOrderRepository) ExistsOpenForWarehouse(ctx context.Context, warehouseID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("warehouse_id = ? AND is_paid = ? AND is_cancelled = ?", warehouseID, false, false).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save inserts a new order or updates a stored one whose version still
// matches. A successful update advances the version. A stale copy gets
// shared.ErrConcurrencyConflict and leaves the row untouched.
func (r *GormOrderRepository) Save(ctx context.Context, order *shipping.Order) error {
	db := r.db.WithContext(ctx)
	expected := order.Version
	model := models.OrderModelFromDomain(order)
	model.Version = expected + 1
	model.UpdatedAt = time.Now()

	result := db.Model(&models.OrderModel{}).
		Where("id = ? AND version = ?", order.ID, expected).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		order.Version = model.Version
		order.UpdatedAt = model.UpdatedAt
		return nil
	}

	var stored int64
	if err := db.Model(&models.OrderModel{}).Where("id = ?", order.ID).Count(&stored).Error; err != nil {
		return err
	}
	if stored > 0 {
		return shared.ErrConcurrencyConflict.Withf("order %s was modified concurrently", order.ID)
	}
	model.Version = expected
	return db.Create(model).Error
}

// Delete removes an order
func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.OrderModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GormOrderItemRepository implements OrderItemRepository using GORM
type GormOrderItemRepository struct {
	db *gorm.DB
}

// NewGormOrderItemRepository creates a new GormOrderItemRepository
func NewGormOrderItemRepository(db *gorm.DB) *GormOrderItemRepository {
	return &GormOrderItemRepository{db: db}
}

func (r *GormOrderItemRepository) find(query *gorm.DB) ([]shipping.OrderItem, error) {
	var rows []models.OrderItemModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]shipping.OrderItem, len(rows))
	for i := range rows {
		items[i] = *rows[i].ToDomain()
	}
	return items, nil
}

// FindByOrder lists the items of an order in creation order
func (r *GormOrderItemRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]shipping.OrderItem, error) {
	return r.find(r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC"))
}

// FindByOrderDataID lists the user's items carrying a storefront line identity
func (r *GormOrderItemRepository) FindByOrderDataID(ctx context.Context, userID uuid.UUID, orderDataID string) ([]shipping.OrderItem, error) {
	return r.find(r.db.WithContext(ctx).
		Where("user_id = ? AND order_data_id = ?", userID, orderDataID).
		Order("created_at ASC"))
}

// CountByOrder counts an order's items
func (r *GormOrderItemRepository) CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItemModel{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	return count, err
}

// CountListedByOrder counts an order's items that reference a listing
func (r *GormOrderItemRepository) CountListedByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItemModel{}).
		Where("order_id = ? AND listing_id IS NOT NULL", orderID).
		Count(&count).Error
	return count, err
}

// FindPendingNotification lists items of paid orders awaiting a storefront retry
func (r *GormOrderItemRepository) FindPendingNotification(ctx context.Context, limit, maxAttempts int) ([]shipping.OrderItem, error) {
	return r.find(r.db.WithContext(ctx).
		Select("order_items.*").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.notify_pending = ? AND order_items.notify_attempts < ?", true, maxAttempts).
		Where("orders.is_paid = ?", true).
		Order("order_items.updated_at ASC").
		Limit(limit))
}

// Save creates or updates an order item
func (r *GormOrderItemRepository) Save(ctx context.Context, item *shipping.OrderItem) error {
	model := &models.OrderItemModel{}
	model.FromDomain(item)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes the given items
func (r *GormOrderItemRepository) Delete(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Delete(&models.OrderItemModel{}, "id IN ?", ids).Error
}

// GormAccountRepository implements AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByUser finds the user's provider root account
func (r *GormAccountRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*shipping.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts the account unless the user already has one
func (r *GormAccountRepository) Create(ctx context.Context, account *shipping.Account) error {
	model := &models.AccountModel{}
	model.FromDomain(account)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrAlreadyExists
	}
	return nil
}

// GormCarrierRepository implements CarrierRepository using GORM
type GormCarrierRepository struct {
	db *gorm.DB
}

// NewGormCarrierRepository creates a new GormCarrierRepository
func NewGormCarrierRepository(db *gorm.DB) *GormCarrierRepository {
	return &GormCarrierRepository{db: db}
}

// FindByUser lists the user's connected carrier accounts
func (r *GormCarrierRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]shipping.Carrier, error) {
	var rows []models.CarrierModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	carriers := make([]shipping.Carrier, len(rows))
	for i := range rows {
		carriers[i] = *rows[i].ToDomain()
	}
	return carriers, nil
}

// Save creates or updates a carrier account
func (r *GormCarrierRepository) Save(ctx context.Context, carrier *shipping.Carrier) error {
	model := &models.CarrierModel{}
	model.FromDomain(carrier)
	return r.db.WithContext(ctx).Save(model).Error
}

var (
	_ shipping.OrderRepository     = (*GormOrderRepository)(nil)
	_ shipping.OrderItemRepository = (*GormOrderItemRepository)(nil)
	_ shipping.AccountRepository   = (*GormAccountRepository)(nil)
	_ shipping.CarrierRepository   = (*GormCarrierRepository)(nil)
)
