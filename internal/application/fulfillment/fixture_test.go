package fulfillment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	appbilling "github.com/shipflow/backend/internal/application/billing"
	appcatalog "github.com/shipflow/backend/internal/application/catalog"
	appshared "github.com/shipflow/backend/internal/application/shared"
	"github.com/shipflow/backend/internal/domain/integration"
	"github.com/shipflow/backend/internal/domain/partner"
	"github.com/shipflow/backend/internal/domain/shared/valueobject"
	"github.com/shipflow/backend/internal/domain/shipping"
	"github.com/shipflow/backend/internal/infrastructure/persistence"
	"github.com/shipflow/backend/tests/testutil"
)

type MockRateProvider struct {
	mock.Mock
}

func (m *MockRateProvider) CreateShipment(ctx context.Context, apiKey string, req shipping.ShipmentRequest) (*shipping.ProviderShipment, error) {
	args := m.Called(ctx, apiKey, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.ProviderShipment), args.Error(1)
}

func (m *MockRateProvider) BuyLabel(ctx context.Context, apiKey, shipmentID, rateID string) (*shipping.Label, error) {
	args := m.Called(ctx, apiKey, shipmentID, rateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Label), args.Error(1)
}

type MockAccountProvider struct {
	mock.Mock
}

func (m *MockAccountProvider) CreateAccount(ctx context.Context, name string) (*shipping.ProviderAccount, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.ProviderAccount), args.Error(1)
}

func (m *MockAccountProvider) CreateCarrierAccount(ctx context.Context, apiKey string, req shipping.CarrierAccountRequest) (string, error) {
	args := m.Called(ctx, apiKey, req)
	return args.String(0), args.Error(1)
}

// stubResolver treats every address as verified
type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, raw valueobject.Address) (shipping.ResolvedAddress, error) {
	return shipping.NewResolvedAddress(raw, "adr_"+raw.ContentHash(), nil), nil
}

func (stubResolver) Reuse(_ context.Context, current shipping.ResolvedAddress) (shipping.ResolvedAddress, error) {
	return current, nil
}

type fixture struct {
	db       *gorm.DB
	repos    *appshared.Repositories
	txScope  appshared.TransactionScope
	rates    *MockRateProvider
	accounts *MockAccountProvider
	registry *CarrierAccountRegistry
	ledger   *appbilling.Ledger
	events   *testutil.EventRecorder
	shopify  *testutil.FakeStorefront
	userID   uuid.UUID
}

var testPlatform = PlatformPool{
	APIKey:     "platform_key",
	CarrierIDs: []string{"ca_platform_usps"},
	Reserved:   []string{"DropifiedUSPS"},
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, testutil.NewSQLiteDB(t))
}

func newFixtureOn(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()
	repos := persistence.NewRepositories(db)
	txScope := persistence.NewGormTransactionScope(db)
	accounts := new(MockAccountProvider)
	return &fixture{
		db:       db,
		repos:    repos,
		txScope:  txScope,
		rates:    new(MockRateProvider),
		accounts: accounts,
		registry: NewCarrierAccountRegistry(repos.Accounts, repos.Carriers, accounts, testPlatform, nil),
		ledger:   appbilling.NewLedger(txScope, repos.Balances, repos.Credits, nil, nil),
		events:   testutil.NewEventRecorder(),
		shopify:  testutil.NewFakeStorefront(integration.StoreTypeShopify),
		userID:   uuid.New(),
	}
}

// seedRootAccount stores the merchant's provider account so no provider
// call is needed to find it
func (f *fixture) seedRootAccount(t *testing.T) {
	t.Helper()
	account, err := shipping.NewAccount(f.userID, "acct_1", "merchant_key", "merchant_test_key")
	require.NoError(t, err)
	require.NoError(t, f.repos.Accounts.Create(context.Background(), account))
}

func (f *fixture) seedWarehouse(t *testing.T, name, street string) *partner.Warehouse {
	t.Helper()
	addr, err := valueobject.NewAddress(name+" Dock", street, "Reno", "NV", "89502", "US")
	require.NoError(t, err)
	w, err := partner.NewWarehouse(f.userID, name, addr)
	require.NoError(t, err)
	require.NoError(t, f.repos.Warehouses.Save(context.Background(), w))
	return w
}

func (f *fixture) fund(t *testing.T, amount string) {
	t.Helper()
	_, err := f.ledger.AddCredits(context.Background(), f.userID, decimal.RequireFromString(amount), "seed_"+uuid.NewString())
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T) string {
	t.Helper()
	b, err := f.ledger.Balance(context.Background(), f.userID)
	require.NoError(t, err)
	return b.StringFixed(2)
}

func (f *fixture) aggregator() *OrderAggregator {
	matcher := appcatalog.NewMatcher(f.txScope, testutil.NewFakeStorefrontRegistry(f.shopify), "https://app.test/suppliers", nil)
	return NewOrderAggregator(f.txScope, f.repos, matcher, stubResolver{}, nil)
}

func (f *fixture) shopper() *RateShopper {
	return NewRateShopper(f.txScope, f.repos, stubResolver{}, f.registry, f.rates, RateShopperConfig{
		Markup:      decimal.RequireFromString("1.35"),
		QuoteTTL:    time.Hour,
		LogoBaseURL: "https://cdn.test/carriers/",
	}, nil)
}

func (f *fixture) shipments() *ShipmentService {
	return NewShipmentService(f.txScope, f.repos, f.registry, f.rates, f.ledger, f.events, time.Second, nil)
}

func usBuyer() valueobject.Address {
	return valueobject.NewUnverifiedAddress("Jane Doe", "1 Main St", "Springfield", "IL", "62701", "US")
}

func caBuyer() valueobject.Address {
	return valueobject.NewUnverifiedAddress("Jean Tremblay", "200 Rue Sainte-Catherine", "Montreal", "QC", "H2X1L4", "CA")
}

// seedOrder stores an open order from a US warehouse to buyer
func (f *fixture) seedOrder(t *testing.T, buyer valueobject.Address) *shipping.Order {
	t.Helper()
	ctx := context.Background()
	w := f.seedWarehouse(t, "Reno", "100 Industrial Way")
	to, _ := stubResolver{}.Resolve(ctx, buyer)
	from, _ := stubResolver{}.Resolve(ctx, w.Address)
	order, err := shipping.NewOrder(f.userID, w.ID, integration.StoreTypeShopify, "12", "#1001", to, from)
	require.NoError(t, err)
	require.NoError(t, f.repos.Orders.Save(ctx, order))
	return order
}

func (f *fixture) addItem(t *testing.T, order *shipping.Order, lineID string, customs shipping.Customs) {
	t.Helper()
	item := shipping.NewOrderItem(f.userID, order.ID, nil, shipping.OrderDataID(order.StoreType, order.StoreID, "5001", lineID), lineID, "5001")
	item.ApplyLine("Hoodie", 1, decimal.RequireFromString("12.50"), customs)
	require.NoError(t, f.repos.OrderItems.Save(context.Background(), item))
}

func testPackage() shipping.Package {
	return shipping.Package{
		Length: decimal.NewFromInt(10),
		Width:  decimal.NewFromInt(8),
		Height: decimal.NewFromInt(4),
		Weight: decimal.NewFromInt(16),
	}
}
