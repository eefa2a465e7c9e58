// Package billing keeps the prepaid balance that pays for platform-rate
// labels.
package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appshared "github.com/shipflow/backend/internal/application/shared"
	"github.com/shipflow/backend/internal/domain/billing"
	"github.com/shipflow/backend/internal/domain/shared"
)

// Ledger is the only writer of account balances
type Ledger struct {
	txScope  appshared.TransactionScope
	balances billing.BalanceRepository
	credits  billing.CreditRepository
	payments billing.PaymentProcessor
	logger   *zap.Logger
}

// NewLedger creates a Ledger. payments may be nil when credit purchases
// are disabled.
func NewLedger(
	txScope appshared.TransactionScope,
	balances billing.BalanceRepository,
	credits billing.CreditRepository,
	payments billing.PaymentProcessor,
	logger *zap.Logger,
) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		txScope:  txScope,
		balances: balances,
		credits:  credits,
		payments: payments,
		logger:   logger,
	}
}

// Balance returns the user's balance, zero when none was ever funded
func (l *Ledger) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	balance, err := l.balances.FindByUser(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return balance.Balance, nil
}

// Credits lists the user's credit purchases, newest first
func (l *Ledger) Credits(ctx context.Context, userID uuid.UUID) ([]billing.AccountCredit, error) {
	return l.credits.FindByUser(ctx, userID)
}

// AddCredits records a credit and raises the balance by amount in one
// transaction. A payment reference is credited at most once: repeating it
// returns the recorded credit and leaves the balance alone.
func (l *Ledger) AddCredits(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, paymentReference string) (*billing.AccountCredit, error) {
	var credit *billing.AccountCredit
	duplicate := false
	err := l.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		balance, err := repos.BalanceRepo().GetOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		credit, err = billing.NewAccountCredit(balance, amount, paymentReference)
		if err != nil {
			return err
		}
		created, err := repos.CreditRepo().Create(ctx, credit)
		if err != nil {
			return err
		}
		if !created {
			duplicate = true
			credit, err = repos.CreditRepo().FindByReference(ctx, paymentReference)
			if err != nil {
				return err
			}
			if credit.UserID != userID {
				return shared.ErrAlreadyExists.Withf("payment reference %s belongs to another account", paymentReference)
			}
			return nil
		}
		return repos.BalanceRepo().Increment(ctx, balance.ID, amount)
	})
	if err != nil {
		return nil, err
	}

	if duplicate {
		l.logger.Info("credit already recorded",
			zap.String("user_id", userID.String()),
			zap.String("payment_reference", paymentReference),
		)
		return credit, nil
	}
	l.logger.Info("credits added",
		zap.String("user_id", userID.String()),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("payment_reference", paymentReference),
	)
	return credit, nil
}

// Debit lowers balance by amount with an atomic decrement. It only runs
// inside the caller's transaction, which must already hold the balance row.
func (l *Ledger) Debit(ctx context.Context, repos appshared.TransactionalRepositories, balance *billing.AccountBalance, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.ErrInvalidInput.Withf("debit amount cannot be negative")
	}
	if amount.IsZero() {
		return nil
	}
	if err := repos.BalanceRepo().Decrement(ctx, balance.ID, amount); err != nil {
		return fmt.Errorf("debit balance %s: %w", balance.ID, err)
	}
	return nil
}

// PurchaseCredits charges the customer's default payment method and funds
// the balance only once the charge is confirmed paid
func (l *Ledger) PurchaseCredits(ctx context.Context, userID uuid.UUID, customerID string, credits decimal.Decimal) (*billing.AccountCredit, error) {
	if l.payments == nil {
		return nil, shared.ErrInvalidState.Withf("credit purchases are not enabled")
	}
	if customerID == "" {
		return nil, shared.ErrInvalidInput.Withf("payment customer is required")
	}
	if !credits.IsPositive() {
		return nil, shared.ErrInvalidInput.Withf("credits must be positive")
	}
	if !credits.Equal(credits.Round(2)) {
		return nil, shared.ErrInvalidInput.Withf("credits cannot have more than two decimals")
	}

	cents := credits.Shift(2).IntPart()
	description := fmt.Sprintf("Shipping credits $%s", credits.StringFixed(2))
	result, err := l.payments.ChargeInvoiceItem(ctx, customerID, cents, description)
	if err != nil {
		l.logger.Error("credit purchase charge failed",
			zap.String("user_id", userID.String()),
			zap.Int64("amount_cents", cents),
			zap.Error(err),
		)
		return nil, err
	}
	if !result.Paid {
		l.logger.Warn("credit purchase not paid",
			zap.String("user_id", userID.String()),
			zap.String("reference", result.Reference),
		)
		return nil, shared.ErrPaymentDeclined
	}

	credit, err := l.AddCredits(ctx, userID, credits, result.Reference)
	if err != nil {
		// the customer was charged; AddCredits with this reference can be
		// retried safely
		l.logger.Error("charge succeeded but credit was not recorded",
			zap.String("user_id", userID.String()),
			zap.String("payment_reference", result.Reference),
			zap.Int64("amount_cents", cents),
			zap.Error(err),
		)
		return nil, err
	}
	return credit, nil
}
