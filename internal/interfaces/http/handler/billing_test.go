package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shipflow/backend/internal/domain/billing"
	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/interfaces/http/dto"
	"github.com/shipflow/backend/tests/testutil"
)

func setupBillingHandler() (*mockLedger, *gin.Engine) {
	ledger := new(mockLedger)
	h := NewBillingHandler(ledger)
	r := newTestRouter(func(r *gin.Engine) {
		r.GET("/balance", h.GetBalance)
		r.GET("/balance/credits", h.ListCredits)
		r.POST("/balance/credits", h.PurchaseCredits)
	})
	return ledger, r
}

func TestBillingHandler_GetBalance(t *testing.T) {
	ledger, r := setupBillingHandler()
	userID := uuid.New()
	ledger.On("Balance", mock.Anything, userID).Return(decimal.RequireFromString("42.50"), nil).Once()

	w := testutil.Perform(t, r, http.MethodGet, "/balance", userID, nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp BalanceResponse
	testutil.DecodeEnvelope(t, w, &resp)
	assert.True(t, resp.Balance.Equal(decimal.RequireFromString("42.5")))
}

func TestBillingHandler_ListCredits(t *testing.T) {
	ledger, r := setupBillingHandler()
	userID := uuid.New()
	credit := billing.AccountCredit{
		UserID:           userID,
		BalanceID:        uuid.New(),
		Amount:           decimal.NewFromInt(25),
		PaymentReference: "ch_123",
	}
	credit.ID = uuid.New()
	ledger.On("Credits", mock.Anything, userID).Return([]billing.AccountCredit{credit}, nil).Once()

	w := testutil.Perform(t, r, http.MethodGet, "/balance/credits", userID, nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp []CreditResponse
	testutil.DecodeEnvelope(t, w, &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, credit.ID, resp[0].ID)
	assert.Equal(t, "ch_123", resp[0].PaymentReference)
}

func TestBillingHandler_PurchaseCredits(t *testing.T) {
	ledger, r := setupBillingHandler()
	userID := uuid.New()
	amount := decimal.RequireFromString("25.00")
	credit := &billing.AccountCredit{UserID: userID, Amount: amount, PaymentReference: "ch_789"}
	credit.ID = uuid.New()

	ledger.On("PurchaseCredits", mock.Anything, userID, "cus_42", mock.MatchedBy(amount.Equal)).Return(credit, nil).Once()

	w := testutil.Perform(t, r, http.MethodPost, "/balance/credits", userID, map[string]string{"credits": "25.00"}, map[string]string{CustomerIDHeader: "cus_42"})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp CreditResponse
	testutil.DecodeEnvelope(t, w, &resp)
	assert.Equal(t, "ch_789", resp.PaymentReference)
	ledger.AssertExpectations(t)
}

func TestBillingHandler_PurchaseCredits_Errors(t *testing.T) {
	t.Run("missing customer", func(t *testing.T) {
		ledger, r := setupBillingHandler()

		w := testutil.Perform(t, r, http.MethodPost, "/balance/credits", uuid.New(), map[string]string{"credits": "10"}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, testutil.DecodeEnvelope(t, w, nil).Error.Message, CustomerIDHeader)
		ledger.AssertNotCalled(t, "PurchaseCredits", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("declined", func(t *testing.T) {
		ledger, r := setupBillingHandler()
		ledger.On("PurchaseCredits", mock.Anything, mock.Anything, "cus_42", mock.Anything).
			Return(nil, shared.ErrPaymentDeclined).Once()

		w := testutil.Perform(t, r, http.MethodPost, "/balance/credits", uuid.New(), map[string]string{"credits": "10"}, map[string]string{CustomerIDHeader: "cus_42"})

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		testutil.AssertErrorResponse(t, w, dto.ErrCodePaymentDeclined)
	})

	t.Run("bad amount", func(t *testing.T) {
		ledger, r := setupBillingHandler()
		ledger.On("PurchaseCredits", mock.Anything, mock.Anything, "cus_42", mock.Anything).
			Return(nil, shared.ErrInvalidInput.Withf("credits must be positive")).Once()

		w := testutil.Perform(t, r, http.MethodPost, "/balance/credits", uuid.New(), map[string]string{"credits": "-1"}, map[string]string{CustomerIDHeader: "cus_42"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		testutil.AssertErrorResponse(t, w, dto.ErrCodeInvalidInput)
	})
}
