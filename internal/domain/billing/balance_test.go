package billing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipflow/backend/internal/domain/shared"
)

func TestAccountBalance_CanAfford(t *testing.T) {
	b := NewAccountBalance(uuid.New())
	b.Balance = decimal.RequireFromString("3.00")

	assert.False(t, b.CanAfford(decimal.RequireFromString("4.05")))
	assert.True(t, b.CanAfford(decimal.RequireFromString("3")))
}

func TestNewAccountCredit(t *testing.T) {
	b := NewAccountBalance(uuid.New())
	c, err := NewAccountCredit(b, decimal.NewFromInt(25), "in_123")
	require.NoError(t, err)
	assert.Equal(t, b.ID, c.BalanceID)
	assert.Equal(t, b.UserID, c.UserID)

	_, err = NewAccountCredit(b, decimal.Zero, "in_124")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
