// Package shared holds application-layer plumbing used by more than one
// service package.
package shared

import (
	"context"

	"github.com/shipflow/backend/internal/domain/billing"
	"github.com/shipflow/backend/internal/domain/catalog"
	"github.com/shipflow/backend/internal/domain/partner"
	"github.com/shipflow/backend/internal/domain/shipping"
)

// TransactionScope provides transactional access to the repositories.
// All repository operations inside fn commit or roll back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to every repository within a
// transaction. All repositories returned share the same underlying transaction.
type TransactionalRepositories interface {
	WarehouseRepo() partner.WarehouseRepository
	ProductRepo() catalog.ProductRepository
	VariantRepo() catalog.VariantRepository
	SupplierRepo() catalog.SupplierRepository
	ListingRepo() catalog.ListingRepository
	OrderRepo() shipping.OrderRepository
	OrderItemRepo() shipping.OrderItemRepository
	AccountRepo() shipping.AccountRepository
	CarrierRepo() shipping.CarrierRepository
	BalanceRepo() billing.BalanceRepository
	CreditRepo() billing.CreditRepository
}

// Repositories is a plain set of repositories. It satisfies
// TransactionalRepositories so services can use it outside a transaction.
type Repositories struct {
	Warehouses partner.WarehouseRepository
	Products   catalog.ProductRepository
	Variants   catalog.VariantRepository
	Suppliers  catalog.SupplierRepository
	Listings   catalog.ListingRepository
	Orders     shipping.OrderRepository
	OrderItems shipping.OrderItemRepository
	Accounts   shipping.AccountRepository
	Carriers   shipping.CarrierRepository
	Balances   billing.BalanceRepository
	Credits    billing.CreditRepository
}

func (r *Repositories) WarehouseRepo() partner.WarehouseRepository  { return r.Warehouses }
func (r *Repositories) ProductRepo() catalog.ProductRepository      { return r.Products }
func (r *Repositories) VariantRepo() catalog.VariantRepository      { return r.Variants }
func (r *Repositories) SupplierRepo() catalog.SupplierRepository    { return r.Suppliers }
func (r *Repositories) ListingRepo() catalog.ListingRepository      { return r.Listings }
func (r *Repositories) OrderRepo() shipping.OrderRepository         { return r.Orders }
func (r *Repositories) OrderItemRepo() shipping.OrderItemRepository { return r.OrderItems }
func (r *Repositories) AccountRepo() shipping.AccountRepository     { return r.Accounts }
func (r *Repositories) CarrierRepo() shipping.CarrierRepository     { return r.Carriers }
func (r *Repositories) BalanceRepo() billing.BalanceRepository      { return r.Balances }
func (r *Repositories) CreditRepo() billing.CreditRepository        { return r.Credits }

// NoOpTransactionScope runs functions against a fixed repository set
// without a real transaction. Useful for tests with in-memory repositories.
type NoOpTransactionScope struct {
	repos *Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over repos
func NewNoOpTransactionScope(repos *Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs fn without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s.repos)
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*Repositories)(nil)
)
