package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/shipflow/backend/internal/application/fulfillment"
	partnerapp "github.com/shipflow/backend/internal/application/partner"
	"github.com/shipflow/backend/internal/domain/billing"
	"github.com/shipflow/backend/internal/domain/shipping"
	"github.com/shipflow/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// newTestRouter wires the caller middleware in front of the routes
func newTestRouter(register func(r *gin.Engine)) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.User())
	register(r)
	return r
}

type mockWarehouseService struct{ mock.Mock }

func (m *mockWarehouseService) Create(ctx context.Context, userID uuid.UUID, req partnerapp.CreateWarehouseRequest) (*partnerapp.WarehouseResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partnerapp.WarehouseResponse), args.Error(1)
}

func (m *mockWarehouseService) GetByID(ctx context.Context, userID, warehouseID uuid.UUID) (*partnerapp.WarehouseResponse, error) {
	args := m.Called(ctx, userID, warehouseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partnerapp.WarehouseResponse), args.Error(1)
}

func (m *mockWarehouseService) List(ctx context.Context, userID uuid.UUID) ([]partnerapp.WarehouseResponse, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]partnerapp.WarehouseResponse), args.Error(1)
}

func (m *mockWarehouseService) Delete(ctx context.Context, userID, warehouseID uuid.UUID) error {
	return m.Called(ctx, userID, warehouseID).Error(0)
}

type mockOrderLines struct{ mock.Mock }

func (m *mockOrderLines) AttachLine(ctx context.Context, req fulfillment.LineRequest) (*shipping.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Order), args.Error(1)
}

func (m *mockOrderLines) Order(ctx context.Context, userID, orderID uuid.UUID) (*shipping.Order, []shipping.OrderItem, error) {
	args := m.Called(ctx, userID, orderID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*shipping.Order), args.Get(1).([]shipping.OrderItem), args.Error(2)
}

type mockQuoter struct{ mock.Mock }

func (m *mockQuoter) Quote(ctx context.Context, userID, orderID uuid.UUID, pkg shipping.Package, refresh bool) (*shipping.ShipmentQuote, error) {
	args := m.Called(ctx, userID, orderID, pkg, refresh)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.ShipmentQuote), args.Error(1)
}

type mockShipments struct{ mock.Mock }

func (m *mockShipments) Pay(ctx context.Context, userID, orderID uuid.UUID, rateID string) (*shipping.Order, error) {
	args := m.Called(ctx, userID, orderID, rateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Order), args.Error(1)
}

func (m *mockShipments) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*shipping.Order, error) {
	args := m.Called(ctx, userID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Order), args.Error(1)
}

func (m *mockShipments) UpdateTracking(ctx context.Context, orderID uuid.UUID, trackingNumber string) (*shipping.Order, error) {
	args := m.Called(ctx, orderID, trackingNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Order), args.Error(1)
}

type mockLedger struct{ mock.Mock }

func (m *mockLedger) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockLedger) Credits(ctx context.Context, userID uuid.UUID) ([]billing.AccountCredit, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]billing.AccountCredit), args.Error(1)
}

func (m *mockLedger) PurchaseCredits(ctx context.Context, userID uuid.UUID, customerID string, credits decimal.Decimal) (*billing.AccountCredit, error) {
	args := m.Called(ctx, userID, customerID, credits)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.AccountCredit), args.Error(1)
}

type mockConnector struct{ mock.Mock }

func (m *mockConnector) ConnectCarrier(ctx context.Context, userID uuid.UUID, req fulfillment.ConnectCarrierRequest) (*shipping.Carrier, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Carrier), args.Error(1)
}

func (m *mockConnector) Carriers(ctx context.Context, userID uuid.UUID) ([]shipping.Carrier, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]shipping.Carrier), args.Error(1)
}

// fakeStore is an IdempotencyStore that can be told to fail
type fakeStore struct {
	seen    map[string]bool
	failGet error
}

func newFakeStore() *fakeStore { return &fakeStore{seen: map[string]bool{}} }

func (s *fakeStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *fakeStore) IsProcessed(_ context.Context, key string) (bool, error) {
	if s.failGet != nil {
		return false, s.failGet
	}
	return s.seen[key], nil
}

func (s *fakeStore) Close() error { return nil }
