package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shipflow/backend/internal/domain/billing"
)

// AccountBalanceModel is the persistence model for AccountBalance.
// One row per user.
type AccountBalanceModel struct {
	AggregateModel
	UserID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Balance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (AccountBalanceModel) TableName() string {
	return "account_balances"
}

// ToDomain converts the persistence model to a domain AccountBalance
func (m *AccountBalanceModel) ToDomain() *billing.AccountBalance {
	b := &billing.AccountBalance{Balance: m.Balance}
	b.ID = m.ID
	b.CreatedAt = m.CreatedAt
	b.UpdatedAt = m.UpdatedAt
	b.Version = m.Version
	b.UserID = m.UserID
	return b
}

// FromDomain populates the persistence model from a domain AccountBalance
func (m *AccountBalanceModel) FromDomain(b *billing.AccountBalance) {
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	m.UserID = b.UserID
	m.Balance = b.Balance
}

// AccountCreditModel is the persistence model for AccountCredit
type AccountCreditModel struct {
	BaseModel
	UserID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	BalanceID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PaymentReference string          `gorm:"type:varchar(255);not null;uniqueIndex:uq_account_credits_payment_reference"`
}

// TableName returns the table name for GORM
func (AccountCreditModel) TableName() string {
	return "account_credits"
}

// ToDomain converts the persistence model to a domain AccountCredit
func (m *AccountCreditModel) ToDomain() *billing.AccountCredit {
	return &billing.AccountCredit{
		BaseEntity:       m.BaseModel.ToDomain(),
		UserID:           m.UserID,
		BalanceID:        m.BalanceID,
		Amount:           m.Amount,
		PaymentReference: m.PaymentReference,
	}
}

// FromDomain populates the persistence model from a domain AccountCredit
func (m *AccountCreditModel) FromDomain(c *billing.AccountCredit) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.UserID = c.UserID
	m.BalanceID = c.BalanceID
	m.Amount = c.Amount
	m.PaymentReference = c.PaymentReference
}
