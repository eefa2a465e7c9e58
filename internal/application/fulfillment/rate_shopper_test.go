package fulfillment

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/domain/shipping"
)

func merchantShipment() *shipping.ProviderShipment {
	return &shipping.ProviderShipment{
		ID: "shp_merchant",
		Rates: []shipping.ProviderRate{
			{ID: "r1", Carrier: "UPS", Service: "Ground", Price: decimal.RequireFromString("12.30")},
			// reserved carriers only come from the platform pool
			{ID: "r_leak", Carrier: "DropifiedUSPS", Service: "Priority", Price: decimal.RequireFromString("1.00")},
		},
	}
}

func platformShipment() *shipping.ProviderShipment {
	return &shipping.ProviderShipment{
		ID: "shp_platform",
		Rates: []shipping.ProviderRate{
			{ID: "r2", Carrier: "DropifiedUSPS", Service: "Priority", Price: decimal.RequireFromString("3.00")},
			{ID: "r_other", Carrier: "FedEx", Service: "Home", Price: decimal.RequireFromString("2.00")},
		},
	}
}

func TestRateShopper_MergesAndRanksPools(t *testing.T) {
	f := newFixture(t)
	f.seedRootAccount(t)
	order := f.seedOrder(t, usBuyer())
	f.rates.On("CreateShipment", mock.Anything, "merchant_key", mock.Anything).Return(merchantShipment(), nil).Once()
	f.rates.On("CreateShipment", mock.Anything, "platform_key", mock.MatchedBy(func(req shipping.ShipmentRequest) bool {
		return len(req.CarrierAccountIDs) == 1 && req.CarrierAccountIDs[0] == "ca_platform_usps"
	})).Return(platformShipment(), nil).Once()

	quote, err := f.shopper().Quote(context.Background(), f.userID, order.ID, testPackage(), false)
	require.NoError(t, err)

	require.Len(t, quote.Rates, 2)
	assert.Equal(t, "r2", quote.Rates[0].ID)
	assert.Equal(t, "4.05", quote.Rates[0].Price.StringFixed(2))
	assert.True(t, quote.Rates[0].IsRoot)
	assert.Equal(t, "shp_platform", quote.Rates[0].ShipmentID)
	assert.Equal(t, "https://cdn.test/carriers/dropifiedusps.png", quote.Rates[0].LogoURL)

	assert.Equal(t, "r1", quote.Rates[1].ID)
	assert.Equal(t, "12.30", quote.Rates[1].Price.StringFixed(2))
	assert.False(t, quote.Rates[1].IsRoot)
	assert.Equal(t, "shp_merchant", quote.Rates[1].ShipmentID)

	assert.NotNil(t, quote.Errors)
	assert.Empty(t, quote.Errors)

	stored, err := f.repos.Orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	cached, err := stored.Quote()
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Len(t, cached.Rates, 2)
	require.NotNil(t, stored.Package)
	assert.True(t, stored.Package.Equal(testPackage()))
}

func TestRateShopper_ReusesCachedQuote(t *testing.T) {
	f := newFixture(t)
	f.seedRootAccount(t)
	order := f.seedOrder(t, usBuyer())
	f.rates.On("CreateShipment", mock.Anything, "merchant_key", mock.Anything).Return(merchantShipment(), nil)
	f.rates.On("CreateShipment", mock.Anything, "platform_key", mock.Anything).Return(platformShipment(), nil)
	shopper := f.shopper()
	ctx := context.Background()

	_, err := shopper.Quote(ctx, f.userID, order.ID, testPackage(), false)
	require.NoError(t, err)
	_, err = shopper.Quote(ctx, f.userID, order.ID, testPackage(), false)
	require.NoError(t, err)
	f.rates.AssertNumberOfCalls(t, "CreateShipment", 2)

	heavier := testPackage()
	heavier.Weight = decimal.NewFromInt(32)
	_, err = shopper.Quote(ctx, f.userID, order.ID, heavier, false)
	require.NoError(t, err)
	f.rates.AssertNumberOfCalls(t, "CreateShipment", 4)

	_, err = shopper.Quote(ctx, f.userID, order.ID, heavier, true)
	require.NoError(t, err)
	f.rates.AssertNumberOfCalls(t, "CreateShipment", 6)
}

func TestRateShopper_MissingWeightMakesNoProviderCall(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, usBuyer())
	pkg := testPackage()
	pkg.Weight = decimal.Zero

	quote, err := f.shopper().Quote(context.Background(), f.userID, order.ID, pkg, false)
	assert.Nil(t, quote)
	assert.ErrorIs(t, err, shared.ErrMissingWeight)
	f.rates.AssertNotCalled(t, "CreateShipment", mock.Anything, mock.Anything, mock.Anything)
}

func TestRateShopper_CrossBorderNeedsCustoms(t *testing.T) {
	f := newFixture(t)
	f.seedRootAccount(t)
	order := f.seedOrder(t, caBuyer())
	f.addItem(t, order, "1", shipping.Customs{Weight: decimal.NewFromInt(8), HSTariff: "6110.20"})
	f.addItem(t, order, "2", shipping.Customs{Weight: decimal.Zero})

	_, err := f.shopper().Quote(context.Background(), f.userID, order.ID, testPackage(), false)
	assert.ErrorIs(t, err, shared.ErrMissingCustomsInfo)
	f.rates.AssertNotCalled(t, "CreateShipment", mock.Anything, mock.Anything, mock.Anything)
}

func TestRateShopper_CrossBorderDeclaresItems(t *testing.T) {
	f := newFixture(t)
	f.seedRootAccount(t)
	order := f.seedOrder(t, caBuyer())
	f.addItem(t, order, "1", shipping.Customs{Weight: decimal.NewFromInt(8), HSTariff: "6110.20"})

	f.rates.On("CreateShipment", mock.Anything, mock.Anything, mock.MatchedBy(func(req shipping.ShipmentRequest) bool {
		return len(req.Customs) == 1 && req.Customs[0].OriginCountry == "US" && req.Customs[0].HSTariff == "6110.20"
	})).Return(&shipping.ProviderShipment{ID: "shp"}, nil)

	quote, err := f.shopper().Quote(context.Background(), f.userID, order.ID, testPackage(), false)
	require.NoError(t, err)
	assert.Empty(t, quote.Rates)
	assert.True(t, IsRetryable(quote))
}

func TestRateShopper_ProviderErrorsLandInQuote(t *testing.T) {
	f := newFixture(t)
	f.seedRootAccount(t)
	order := f.seedOrder(t, usBuyer())
	f.rates.On("CreateShipment", mock.Anything, "merchant_key", mock.Anything).Return(merchantShipment(), nil)
	f.rates.On("CreateShipment", mock.Anything, "platform_key", mock.Anything).Return(nil, errors.New("upstream timeout"))

	quote, err := f.shopper().Quote(context.Background(), f.userID, order.ID, testPackage(), false)
	require.NoError(t, err)
	require.Len(t, quote.Rates, 1)
	assert.Equal(t, "r1", quote.Rates[0].ID)
	require.Len(t, quote.Errors, 1)
	assert.Contains(t, quote.Errors[0], "upstream timeout")
	assert.False(t, IsRetryable(quote))
}

func TestRateShopper_PaidQuoteIsImmutable(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, usBuyer())
	order.IsPaid = true
	require.NoError(t, f.repos.Orders.Save(context.Background(), order))

	quote, err := f.shopper().Quote(context.Background(), f.userID, order.ID, testPackage(), true)
	require.NoError(t, err)
	assert.NotNil(t, quote.Rates)
	assert.NotNil(t, quote.Errors)
	f.rates.AssertNotCalled(t, "CreateShipment", mock.Anything, mock.Anything, mock.Anything)
}
