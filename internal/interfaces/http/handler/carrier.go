package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shipflow/backend/internal/application/fulfillment"
	"github.com/shipflow/backend/internal/domain/shipping"
	"github.com/shipflow/backend/internal/interfaces/http/middleware"
)

// CarrierConnector connects and lists merchant carrier accounts
type CarrierConnector interface {
	ConnectCarrier(ctx context.Context, userID uuid.UUID, req fulfillment.ConnectCarrierRequest) (*shipping.Carrier, error)
	Carriers(ctx context.Context, userID uuid.UUID) ([]shipping.Carrier, error)
}

// CarrierHandler handles merchant carrier account endpoints
type CarrierHandler struct {
	BaseHandler
	connector CarrierConnector
}

// NewCarrierHandler creates a new CarrierHandler
func NewCarrierHandler(connector CarrierConnector) *CarrierHandler {
	return &CarrierHandler{connector: connector}
}

// ConnectCarrierRequest connects one carrier account; credentials must
// match the fields declared by the carrier type
type ConnectCarrierRequest struct {
	Type        string            `json:"type" binding:"required"`
	Description string            `json:"description" binding:"max=200"`
	Reference   string            `json:"reference" binding:"max=100"`
	Credentials map[string]string `json:"credentials"`
}

// CarrierResponse is a connected carrier account. Credentials are never echoed.
type CarrierResponse struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Reference   string    `json:"reference,omitempty"`
	ProviderID  string    `json:"provider_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func toCarrierResponse(c shipping.Carrier) CarrierResponse {
	return CarrierResponse{
		ID:          c.ID,
		Type:        c.CarrierType,
		Description: c.Description,
		Reference:   c.Reference,
		ProviderID:  c.ProviderID,
		CreatedAt:   c.CreatedAt,
	}
}

// Types lists the connectable carrier types and their credential fields.
//
// @Summary      List connectable carrier types
// @Tags         carriers
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     UserID
// @Router       /carriers/types [get]
func (h *CarrierHandler) Types(c *gin.Context) {
	h.Success(c, shipping.CarrierTypes())
}

// List godoc
// @Summary      List connected carrier accounts
// @Tags         carriers
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response{data=[]CarrierResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     UserID
// @Router       /carriers [get]
func (h *CarrierHandler) List(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}

	carriers, err := h.connector.Carriers(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]CarrierResponse, 0, len(carriers))
	for _, carrier := range carriers {
		resp = append(resp, toCarrierResponse(carrier))
	}
	h.Success(c, resp)
}

// Connect godoc
// @Summary      Connect a carrier account
// @Tags         carriers
// @Accept       json
// @Produce      json
// @Param        request body ConnectCarrierRequest true "Request body"
// @Success      201 {object} dto.Response{data=CarrierResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Security     UserID
// @Router       /carriers [post]
func (h *CarrierHandler) Connect(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}

	var req ConnectCarrierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	carrier, err := h.connector.ConnectCarrier(c.Request.Context(), userID, fulfillment.ConnectCarrierRequest{
		Type:        req.Type,
		Description: req.Description,
		Reference:   req.Reference,
		Credentials: req.Credentials,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toCarrierResponse(*carrier))
}
