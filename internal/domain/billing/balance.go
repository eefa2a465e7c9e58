package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shipflow/backend/internal/domain/shared"
)

// AccountBalance is a user's running total of prepaid platform-rate credits.
// It is mutated only through the ledger and never recomputed from credits.
type AccountBalance struct {
	shared.OwnedAggregateRoot
	Balance decimal.Decimal
}

// NewAccountBalance creates an empty balance for userID
func NewAccountBalance(userID uuid.UUID) *AccountBalance {
	return &AccountBalance{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(userID),
		Balance:            decimal.Zero,
	}
}

// CanAfford reports whether amount fits in the balance
func (b *AccountBalance) CanAfford(amount decimal.Decimal) bool {
	return amount.LessThanOrEqual(b.Balance)
}

// AccountCredit is an append-only record of purchased credits
type AccountCredit struct {
	shared.BaseEntity
	UserID           uuid.UUID
	BalanceID        uuid.UUID
	Amount           decimal.Decimal
	PaymentReference string
}

// NewAccountCredit creates a credit entry
func NewAccountCredit(balance *AccountBalance, amount decimal.Decimal, paymentReference string) (*AccountCredit, error) {
	if !amount.IsPositive() {
		return nil, shared.ErrInvalidInput.Withf("credit amount must be positive")
	}
	return &AccountCredit{
		BaseEntity:       shared.NewBaseEntity(),
		UserID:           balance.UserID,
		BalanceID:        balance.ID,
		Amount:           amount,
		PaymentReference: paymentReference,
	}, nil
}

// BalanceRepository persists balances. Increment and Decrement are atomic
// column updates, never read-modify-write.
type BalanceRepository interface {
	FindByUser(ctx context.Context, userID uuid.UUID) (*AccountBalance, error)
	// FindByUserForUpdate loads the balance holding a row lock
	FindByUserForUpdate(ctx context.Context, userID uuid.UUID) (*AccountBalance, error)
	// GetOrCreate returns the user's balance, inserting an empty one if missing
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*AccountBalance, error)
	Increment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	Decrement(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
}

// CreditRepository persists credit entries
type CreditRepository interface {
	// Create inserts the credit unless its payment reference is already
	// recorded, reporting whether a row was written
	Create(ctx context.Context, credit *AccountCredit) (bool, error)
	FindByReference(ctx context.Context, paymentReference string) (*AccountCredit, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]AccountCredit, error)
}
