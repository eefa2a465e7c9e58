package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shipflow/backend/internal/application/fulfillment"
	"github.com/shipflow/backend/internal/domain/shipping"
	"github.com/shipflow/backend/internal/interfaces/http/middleware"
)

// OrderLines attaches storefront lines to parcels and reads parcels back
type OrderLines interface {
	AttachLine(ctx context.Context, req fulfillment.LineRequest) (*shipping.Order, error)
	Order(ctx context.Context, userID, orderID uuid.UUID) (*shipping.Order, []shipping.OrderItem, error)
}

// RateQuoter quotes rates for a parcel
type RateQuoter interface {
	Quote(ctx context.Context, userID, orderID uuid.UUID, pkg shipping.Package, refresh bool) (*shipping.ShipmentQuote, error)
}

// Shipments runs the payment state machine of a parcel
type Shipments interface {
	Pay(ctx context.Context, userID, orderID uuid.UUID, rateID string) (*shipping.Order, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) (*shipping.Order, error)
}

// OrderHandler handles parcel endpoints
type OrderHandler struct {
	BaseHandler
	lines     OrderLines
	quoter    RateQuoter
	shipments Shipments
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(lines OrderLines, quoter RateQuoter, shipments Shipments) *OrderHandler {
	return &OrderHandler{
		lines:     lines,
		quoter:    quoter,
		shipments: shipments,
	}
}

// AttachLine places a storefront line on a parcel.
//
// @Summary      Attach a storefront line to a parcel
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body AttachLineRequest true "Request body"
// @Success      200 {object} dto.Response{data=OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     UserID
// @Router       /orders/lines [post]
func (h *OrderHandler) AttachLine(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}

	var req AttachLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	order, err := h.lines.AttachLine(c.Request.Context(), req.toLineRequest(userID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOrderResponse(order, nil))
}

// GetByID godoc
// @Summary      Get a parcel with its lines
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} dto.Response{data=OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     UserID
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetByID(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}
	orderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	order, items, err := h.lines.Order(c.Request.Context(), userID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOrderResponse(order, items))
}

// Quote returns the cached quote for the package or shops every pool for a
// fresh one. Pool failures come back in the quote's errors with status 200.
//
// @Summary      Quote shipping rates
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID"
// @Param        request body QuoteRequest true "Request body"
// @Success      200 {object} dto.Response{data=QuoteResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     UserID
// @Router       /orders/{id}/quote [post]
func (h *OrderHandler) Quote(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}
	orderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	quote, err := h.quoter.Quote(c.Request.Context(), userID, orderID, req.Package, req.Refresh)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, QuoteResponse{ShipmentQuote: quote, Retryable: fulfillment.IsRetryable(quote)})
}

// Pay buys the label for a quoted rate.
//
// @Summary      Buy the label for a quoted rate
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID"
// @Param        request body PayRequest true "Request body"
// @Success      200 {object} dto.Response{data=OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      402 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Security     UserID
// @Router       /orders/{id}/pay [post]
func (h *OrderHandler) Pay(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}
	orderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	order, err := h.shipments.Pay(c.Request.Context(), userID, orderID, req.RateID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOrderResponse(order, nil))
}

// Cancel flags an unpaid parcel as cancelled.
//
// @Summary      Cancel an unpaid parcel
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} dto.Response{data=OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     UserID
// @Router       /orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}
	orderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.shipments.Cancel(c.Request.Context(), userID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOrderResponse(order, nil))
}
