package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	partnerapp "github.com/shipflow/backend/internal/application/partner"
	"github.com/shipflow/backend/internal/interfaces/http/middleware"
)

// WarehouseService is the warehouse application service used by WarehouseHandler
type WarehouseService interface {
	Create(ctx context.Context, userID uuid.UUID, req partnerapp.CreateWarehouseRequest) (*partnerapp.WarehouseResponse, error)
	GetByID(ctx context.Context, userID, warehouseID uuid.UUID) (*partnerapp.WarehouseResponse, error)
	List(ctx context.Context, userID uuid.UUID) ([]partnerapp.WarehouseResponse, error)
	Delete(ctx context.Context, userID, warehouseID uuid.UUID) error
}

// WarehouseHandler handles warehouse-related API endpoints
type WarehouseHandler struct {
	BaseHandler
	warehouseService WarehouseService
}

// NewWarehouseHandler creates a new WarehouseHandler
func NewWarehouseHandler(warehouseService WarehouseService) *WarehouseHandler {
	return &WarehouseHandler{
		warehouseService: warehouseService,
	}
}

// Create registers a ship-from warehouse. Its address is verified first.
//
// @Summary      Register a warehouse
// @Tags         warehouses
// @Accept       json
// @Produce      json
// @Param        request body partnerapp.CreateWarehouseRequest true "Request body"
// @Success      201 {object} dto.Response{data=partnerapp.WarehouseResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     UserID
// @Router       /warehouses [post]
func (h *WarehouseHandler) Create(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}

	var req partnerapp.CreateWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	warehouse, err := h.warehouseService.Create(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, warehouse)
}

// GetByID godoc
// @Summary      Get a warehouse
// @Tags         warehouses
// @Accept       json
// @Produce      json
// @Param        id path string true "Warehouse ID"
// @Success      200 {object} dto.Response{data=partnerapp.WarehouseResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     UserID
// @Router       /warehouses/{id} [get]
func (h *WarehouseHandler) GetByID(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}
	warehouseID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	warehouse, err := h.warehouseService.GetByID(c.Request.Context(), userID, warehouseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, warehouse)
}

// List godoc
// @Summary      List warehouses
// @Tags         warehouses
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response{data=[]partnerapp.WarehouseResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     UserID
// @Router       /warehouses [get]
func (h *WarehouseHandler) List(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}

	warehouses, err := h.warehouseService.List(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, warehouses)
}

// Delete soft-deletes a warehouse that no open order ships from.
//
// @Summary      Delete a warehouse
// @Tags         warehouses
// @Accept       json
// @Produce      json
// @Param        id path string true "Warehouse ID"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     UserID
// @Router       /warehouses/{id} [delete]
func (h *WarehouseHandler) Delete(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}
	warehouseID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.warehouseService.Delete(c.Request.Context(), userID, warehouseID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
