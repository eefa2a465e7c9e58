package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shipflow/backend/internal/domain/billing"
	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/infrastructure/persistence/models"
)

// GormBalanceRepository implements BalanceRepository using GORM
type GormBalanceRepository struct {
	db *gorm.DB
}

// NewGormBalanceRepository creates a new GormBalanceRepository
func NewGormBalanceRepository(db *gorm.DB) *GormBalanceRepository {
	return &GormBalanceRepository{db: db}
}

func (r *GormBalanceRepository) first(query *gorm.DB) (*billing.AccountBalance, error) {
	var model models.AccountBalanceModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUser finds the user's balance
func (r *GormBalanceRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*billing.AccountBalance, error) {
	return r.first(r.db.WithContext(ctx).Where("user_id = ?", userID))
}

// FindByUserForUpdate finds the user's balance and locks the row.
// Must be called inside a transaction.
func (r *GormBalanceRepository) FindByUserForUpdate(ctx context.Context, userID uuid.UUID) (*billing.AccountBalance, error) {
	return r.first(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID))
}

// GetOrCreate returns the user's balance, inserting an empty row when missing.
// Concurrent callers converge on the same row through the unique user index.
func (r *GormBalanceRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*billing.AccountBalance, error) {
	model := &models.AccountBalanceModel{}
	model.FromDomain(billing.NewAccountBalance(userID))
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(model).Error; err != nil {
		return nil, err
	}
	return r.FindByUser(ctx, userID)
}

// Increment adds amount to the balance in a single statement
func (r *GormBalanceRepository) Increment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	result := r.adjust(r.db.WithContext(ctx).Where("id = ?", id), gorm.Expr("balance + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Decrement subtracts amount in a single statement guarded by balance >= amount.
// Returns ErrInsufficientFunds when the guard rejects the debit.
func (r *GormBalanceRepository) Decrement(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	db := r.db.WithContext(ctx)
	result := r.adjust(db.Where("id = ? AND balance >= ?", id, amount), gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	var n int64
	if err := db.Model(&models.AccountBalanceModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return shared.ErrNotFound
	}
	return shared.ErrInsufficientFunds.Withf("balance %s cannot cover %s", id, amount.StringFixed(2))
}

func (r *GormBalanceRepository) adjust(scoped *gorm.DB, expr clause.Expr) *gorm.DB {
	return scoped.
		Model(&models.AccountBalanceModel{}).
		Updates(map[string]any{
			"balance": expr,
			"version": gorm.Expr("version + 1"),
		})
}

// GormCreditRepository implements CreditRepository using GORM
type GormCreditRepository struct {
	db *gorm.DB
}

// NewGormCreditRepository creates a new GormCreditRepository
func NewGormCreditRepository(db *gorm.DB) *GormCreditRepository {
	return &GormCreditRepository{db: db}
}

// Create inserts a credit entry. A payment reference that is already
// recorded leaves the table untouched and reports false.
func (r *GormCreditRepository) Create(ctx context.Context, credit *billing.AccountCredit) (bool, error) {
	model := &models.AccountCreditModel{}
	model.FromDomain(credit)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "payment_reference"}}, DoNothing: true}).
		Create(model)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindByReference finds the credit recorded for a payment reference
func (r *GormCreditRepository) FindByReference(ctx context.Context, paymentReference string) (*billing.AccountCredit, error) {
	var model models.AccountCreditModel
	if err := r.db.WithContext(ctx).
		Where("payment_reference = ?", paymentReference).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUser lists the user's credits, newest first
func (r *GormCreditRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]billing.AccountCredit, error) {
	var rows []models.AccountCreditModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	credits := make([]billing.AccountCredit, len(rows))
	for i := range rows {
		credits[i] = *rows[i].ToDomain()
	}
	return credits, nil
}

var (
	_ billing.BalanceRepository = (*GormBalanceRepository)(nil)
	_ billing.CreditRepository  = (*GormCreditRepository)(nil)
)
