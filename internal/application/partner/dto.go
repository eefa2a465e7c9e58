package partner

import (
	"time"

	"github.com/google/uuid"

	"github.com/shipflow/backend/internal/domain/partner"
	"github.com/shipflow/backend/internal/domain/shared/valueobject"
)

// CreateWarehouseRequest represents a request to create a new warehouse
type CreateWarehouseRequest struct {
	Name    string                 `json:"name" binding:"required,min=1,max=200"`
	Address valueobject.AddressDTO `json:"address" binding:"required"`
}

// WarehouseResponse represents a warehouse in API responses
type WarehouseResponse struct {
	ID        uuid.UUID              `json:"id"`
	Name      string                 `json:"name"`
	Address   valueobject.AddressDTO `json:"address"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// ToWarehouseResponse converts a domain Warehouse to WarehouseResponse
func ToWarehouseResponse(w *partner.Warehouse) WarehouseResponse {
	return WarehouseResponse{
		ID:        w.ID,
		Name:      w.Name,
		Address:   w.Address.ToDTO(),
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

// ToWarehouseResponses converts a slice of domain Warehouses
func ToWarehouseResponses(warehouses []partner.Warehouse) []WarehouseResponse {
	responses := make([]WarehouseResponse, len(warehouses))
	for i := range warehouses {
		responses[i] = ToWarehouseResponse(&warehouses[i])
	}
	return responses
}
