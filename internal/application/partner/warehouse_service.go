package partner

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shipflow/backend/internal/domain/partner"
	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/domain/shared/valueobject"
	"github.com/shipflow/backend/internal/domain/shipping"
)

// AddressVerifier confirms a ship-from address can be used for labels
type AddressVerifier interface {
	RequireVerified(ctx context.Context, raw valueobject.Address) (shipping.ResolvedAddress, error)
}

// WarehouseService handles warehouse-related business operations
type WarehouseService struct {
	warehouseRepo partner.WarehouseRepository
	orderRepo     shipping.OrderRepository
	verifier      AddressVerifier
	logger        *zap.Logger
}

// NewWarehouseService creates a new WarehouseService. verifier may be nil
// to accept addresses without provider verification.
func NewWarehouseService(
	warehouseRepo partner.WarehouseRepository,
	orderRepo shipping.OrderRepository,
	verifier AddressVerifier,
	logger *zap.Logger,
) *WarehouseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WarehouseService{
		warehouseRepo: warehouseRepo,
		orderRepo:     orderRepo,
		verifier:      verifier,
		logger:        logger,
	}
}

// Create creates a new warehouse
func (s *WarehouseService) Create(ctx context.Context, userID uuid.UUID, req CreateWarehouseRequest) (*WarehouseResponse, error) {
	address := req.Address.ToAddress()
	if err := address.Validate(); err != nil {
		return nil, shared.ErrInvalidInput.Withf("warehouse address: %v", err)
	}

	if s.verifier != nil {
		resolved, err := s.verifier.RequireVerified(ctx, address)
		if err != nil {
			return nil, err
		}
		address = resolved.Address
	}

	warehouse, err := partner.NewWarehouse(userID, req.Name, address)
	if err != nil {
		return nil, err
	}
	if err := s.warehouseRepo.Save(ctx, warehouse); err != nil {
		return nil, err
	}

	s.logger.Info("warehouse created",
		zap.String("user_id", userID.String()),
		zap.String("warehouse_id", warehouse.ID.String()),
	)
	response := ToWarehouseResponse(warehouse)
	return &response, nil
}

// GetByID retrieves a warehouse by ID
func (s *WarehouseService) GetByID(ctx context.Context, userID, warehouseID uuid.UUID) (*WarehouseResponse, error) {
	warehouse, err := s.warehouseRepo.FindByIDForUser(ctx, userID, warehouseID)
	if err != nil {
		return nil, err
	}

	response := ToWarehouseResponse(warehouse)
	return &response, nil
}

// List retrieves the user's live warehouses
func (s *WarehouseService) List(ctx context.Context, userID uuid.UUID) ([]WarehouseResponse, error) {
	warehouses, err := s.warehouseRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ToWarehouseResponses(warehouses), nil
}

// Delete soft-deletes a warehouse. It is refused while unpaid orders still
// ship from it.
func (s *WarehouseService) Delete(ctx context.Context, userID, warehouseID uuid.UUID) error {
	warehouse, err := s.warehouseRepo.FindByIDForUser(ctx, userID, warehouseID)
	if err != nil {
		return err
	}

	inUse, err := s.orderRepo.ExistsOpenForWarehouse(ctx, warehouseID)
	if err != nil {
		return err
	}
	if inUse {
		return shared.ErrInvalidState.Withf("warehouse has orders awaiting shipment")
	}

	if err := warehouse.SoftDelete(); err != nil {
		return err
	}
	return s.warehouseRepo.Save(ctx, warehouse)
}
