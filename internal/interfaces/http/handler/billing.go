package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shipflow/backend/internal/domain/billing"
	"github.com/shipflow/backend/internal/interfaces/http/middleware"
)

// CustomerIDHeader names the caller's payment customer
const CustomerIDHeader = "X-Customer-ID"

// BalanceLedger reads and funds the prepaid shipping balance
type BalanceLedger interface {
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	Credits(ctx context.Context, userID uuid.UUID) ([]billing.AccountCredit, error)
	PurchaseCredits(ctx context.Context, userID uuid.UUID, customerID string, credits decimal.Decimal) (*billing.AccountCredit, error)
}

// BillingHandler handles balance endpoints
type BillingHandler struct {
	BaseHandler
	ledger BalanceLedger
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(ledger BalanceLedger) *BillingHandler {
	return &BillingHandler{ledger: ledger}
}

// BalanceResponse is the caller's prepaid balance
type BalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

// PurchaseCreditsRequest buys credits with the stored payment method
type PurchaseCreditsRequest struct {
	Credits decimal.Decimal `json:"credits"`
}

// CreditResponse is one funded credit purchase
type CreditResponse struct {
	ID               uuid.UUID       `json:"id"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentReference string          `json:"payment_reference"`
	CreatedAt        time.Time       `json:"created_at"`
}

func toCreditResponse(c billing.AccountCredit) CreditResponse {
	return CreditResponse{
		ID:               c.ID,
		Amount:           c.Amount,
		PaymentReference: c.PaymentReference,
		CreatedAt:        c.CreatedAt,
	}
}

// GetBalance godoc
// @Summary      Get the prepaid balance
// @Tags         balance
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response{data=BalanceResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     UserID
// @Router       /balance [get]
func (h *BillingHandler) GetBalance(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}

	balance, err := h.ledger.Balance(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, BalanceResponse{Balance: balance})
}

// ListCredits godoc
// @Summary      List credit purchases
// @Tags         balance
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response{data=[]CreditResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     UserID
// @Router       /balance/credits [get]
func (h *BillingHandler) ListCredits(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}

	credits, err := h.ledger.Credits(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]CreditResponse, 0, len(credits))
	for _, credit := range credits {
		resp = append(resp, toCreditResponse(credit))
	}
	h.Success(c, resp)
}

// PurchaseCredits charges the caller's payment customer and funds the
// balance once the charge is paid.
//
// @Summary      Buy shipping credits
// @Tags         balance
// @Accept       json
// @Produce      json
// @Param        X-Customer-ID header string true "Payment customer ID"
// @Param        request body PurchaseCreditsRequest true "Request body"
// @Success      201 {object} dto.Response{data=CreditResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      402 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Security     UserID
// @Router       /balance/credits [post]
func (h *BillingHandler) PurchaseCredits(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}

	customerID := strings.TrimSpace(c.GetHeader(CustomerIDHeader))
	if customerID == "" {
		h.BadRequest(c, CustomerIDHeader+" header is required")
		return
	}

	var req PurchaseCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	credit, err := h.ledger.PurchaseCredits(c.Request.Context(), userID, customerID, req.Credits)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toCreditResponse(*credit))
}
