package persistence

import (
	"context"

	"gorm.io/gorm"

	appshared "github.com/shipflow/backend/internal/application/shared"
)

// GormTransactionScope implements TransactionScope using GORM transactions
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. If fn returns an error,
// the transaction is rolled back; otherwise it is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appshared.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// NewRepositories builds the full repository set over db, which may be a
// transaction handle
func NewRepositories(db *gorm.DB) *appshared.Repositories {
	return &appshared.Repositories{
		Warehouses: NewGormWarehouseRepository(db),
		Products:   NewGormProductRepository(db),
		Variants:   NewGormVariantRepository(db),
		Suppliers:  NewGormSupplierRepository(db),
		Listings:   NewGormListingRepository(db),
		Orders:     NewGormOrderRepository(db),
		OrderItems: NewGormOrderItemRepository(db),
		Accounts:   NewGormAccountRepository(db),
		Carriers:   NewGormCarrierRepository(db),
		Balances:   NewGormBalanceRepository(db),
		Credits:    NewGormCreditRepository(db),
	}
}

var _ appshared.TransactionScope = (*GormTransactionScope)(nil)
