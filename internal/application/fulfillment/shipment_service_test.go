package fulfillment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/domain/shipping"
)

// quotedOrder stores an order carrying a merchant rate r1 and a platform
// rate r2 at 4.05
func (f *fixture) quotedOrder(t *testing.T) *shipping.Order {
	t.Helper()
	order := f.seedOrder(t, usBuyer())
	quote := shipping.NewShipmentQuote(testPackage(), time.Now(), time.Hour)
	quote.Rates = []shipping.Rate{
		{ID: "r2", Carrier: "DropifiedUSPS", Price: decimal.RequireFromString("4.05"), ShipmentID: "shp_platform", IsRoot: true},
		{ID: "r1", Carrier: "UPS", Price: decimal.RequireFromString("12.30"), ShipmentID: "shp_merchant"},
	}
	require.NoError(t, order.SetQuote(quote))
	require.NoError(t, f.repos.Orders.Save(context.Background(), order))
	return order
}

func (f *fixture) reload(t *testing.T, order *shipping.Order) *shipping.Order {
	t.Helper()
	got, err := f.repos.Orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	return got
}

func TestShipmentService_PayPlatformRate(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "10.00")
	order := f.quotedOrder(t)
	f.rates.On("BuyLabel", mock.Anything, "platform_key", "shp_platform", "r2").
		Return(&shipping.Label{TrackingNumber: "9400100000000000000001", LabelURL: "https://labels.test/1.pdf"}, nil).Once()
	svc := f.shipments()
	ctx := context.Background()

	paid, err := svc.Pay(ctx, f.userID, order.ID, "r2")
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	assert.True(t, paid.IsPlatformRate)
	assert.Equal(t, "4.05", paid.ShipmentCost.StringFixed(2))
	assert.Equal(t, "5.95", f.balance(t))
	assert.Equal(t, []string{shipping.EventTypeShipmentPaid}, f.events.Types())

	stored := f.reload(t, order)
	assert.True(t, stored.IsPaid)
	assert.Equal(t, "r2", stored.RateID)
	assert.Equal(t, "9400100000000000000001", stored.TrackingNumber)

	// a second call is a no-op
	again, err := svc.Pay(ctx, f.userID, order.ID, "r2")
	require.NoError(t, err)
	assert.Equal(t, "9400100000000000000001", again.TrackingNumber)
	assert.Equal(t, "5.95", f.balance(t))
	f.rates.AssertNumberOfCalls(t, "BuyLabel", 1)
	assert.Len(t, f.events.Types(), 1)
}

func TestShipmentService_PayInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "3.00")
	order := f.quotedOrder(t)

	_, err := f.shipments().Pay(context.Background(), f.userID, order.ID, "r2")
	assert.ErrorIs(t, err, shared.ErrInsufficientFunds)
	assert.False(t, f.reload(t, order).IsPaid)
	assert.Equal(t, "3.00", f.balance(t))
	f.rates.AssertNotCalled(t, "BuyLabel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestShipmentService_PayWithoutBalance(t *testing.T) {
	f := newFixture(t)
	order := f.quotedOrder(t)

	_, err := f.shipments().Pay(context.Background(), f.userID, order.ID, "r2")
	assert.ErrorIs(t, err, shared.ErrInsufficientFunds)
}

func TestShipmentService_PayMerchantRate(t *testing.T) {
	f := newFixture(t)
	f.seedRootAccount(t)
	f.fund(t, "10.00")
	order := f.quotedOrder(t)
	f.rates.On("BuyLabel", mock.Anything, "merchant_key", "shp_merchant", "r1").
		Return(&shipping.Label{TrackingNumber: "1Z999", LabelURL: "https://labels.test/2.pdf"}, nil).Once()

	paid, err := f.shipments().Pay(context.Background(), f.userID, order.ID, "r1")
	require.NoError(t, err)
	assert.False(t, paid.IsPlatformRate)
	assert.Equal(t, "12.30", paid.ShipmentCost.StringFixed(2))
	assert.Equal(t, "10.00", f.balance(t))
}

func TestShipmentService_PayCarrierFundsExhausted(t *testing.T) {
	f := newFixture(t)
	f.seedRootAccount(t)
	order := f.quotedOrder(t)
	f.rates.On("BuyLabel", mock.Anything, "merchant_key", "shp_merchant", "r1").
		Return(nil, shared.ErrCarrierFundsExhausted)

	_, err := f.shipments().Pay(context.Background(), f.userID, order.ID, "r1")
	assert.ErrorIs(t, err, shared.ErrCarrierFundsExhausted)
	assert.NotErrorIs(t, err, shared.ErrInsufficientFunds)
	assert.False(t, f.reload(t, order).IsPaid)
	assert.Empty(t, f.events.Types())
}

func TestShipmentService_PayValidatesQuote(t *testing.T) {
	ctx := context.Background()

	t.Run("no quote", func(t *testing.T) {
		f := newFixture(t)
		order := f.seedOrder(t, usBuyer())
		_, err := f.shipments().Pay(ctx, f.userID, order.ID, "r1")
		assert.ErrorIs(t, err, shared.ErrQuoteExpiredOrMissing)
	})

	t.Run("quote with errors", func(t *testing.T) {
		f := newFixture(t)
		order := f.seedOrder(t, usBuyer())
		quote := shipping.NewShipmentQuote(testPackage(), time.Now(), time.Hour)
		quote.Rates = []shipping.Rate{{ID: "r1", Price: decimal.NewFromInt(5)}}
		quote.Errors = []string{"platform rates: timeout"}
		require.NoError(t, order.SetQuote(quote))
		require.NoError(t, f.repos.Orders.Save(ctx, order))

		_, err := f.shipments().Pay(ctx, f.userID, order.ID, "r1")
		assert.ErrorIs(t, err, shared.ErrQuoteExpiredOrMissing)
	})

	t.Run("empty quote", func(t *testing.T) {
		f := newFixture(t)
		order := f.seedOrder(t, usBuyer())
		require.NoError(t, order.SetQuote(shipping.NewShipmentQuote(testPackage(), time.Now(), time.Hour)))
		require.NoError(t, f.repos.Orders.Save(ctx, order))

		_, err := f.shipments().Pay(ctx, f.userID, order.ID, "r1")
		assert.ErrorIs(t, err, shared.ErrNoRatesAvailable)
	})

	t.Run("unknown rate", func(t *testing.T) {
		f := newFixture(t)
		order := f.quotedOrder(t)
		_, err := f.shipments().Pay(ctx, f.userID, order.ID, "r404")
		assert.ErrorIs(t, err, shared.ErrRateNotFound)
	})

	t.Run("someone else's order", func(t *testing.T) {
		f := newFixture(t)
		order := f.quotedOrder(t)
		other := newFixture(t)
		_, err := f.shipments().Pay(ctx, other.userID, order.ID, "r2")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestShipmentService_ConcurrentPayBuysOnce(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "10.00")
	order := f.quotedOrder(t)
	f.rates.On("BuyLabel", mock.Anything, "platform_key", "shp_platform", "r2").
		Return(&shipping.Label{TrackingNumber: "TRK-1", LabelURL: "https://labels.test/1.pdf"}, nil).Once()
	svc := f.shipments()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Pay(context.Background(), f.userID, order.ID, "r2")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	f.rates.AssertNumberOfCalls(t, "BuyLabel", 1)
	assert.Equal(t, "5.95", f.balance(t))
	assert.Equal(t, []string{shipping.EventTypeShipmentPaid}, f.events.Types())
}

func TestShipmentService_UpdateTracking(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "10.00")
	order := f.quotedOrder(t)
	f.rates.On("BuyLabel", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&shipping.Label{TrackingNumber: "TRK-1"}, nil)
	svc := f.shipments()
	ctx := context.Background()

	_, err := svc.UpdateTracking(ctx, order.ID, "TRK-2")
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = svc.Pay(ctx, f.userID, order.ID, "r2")
	require.NoError(t, err)

	updated, err := svc.UpdateTracking(ctx, order.ID, "TRK-2")
	require.NoError(t, err)
	assert.Equal(t, "TRK-2", updated.TrackingNumber)

	_, err = svc.UpdateTracking(ctx, order.ID, "TRK-2")
	require.NoError(t, err)
	assert.Equal(t, []string{shipping.EventTypeShipmentPaid, shipping.EventTypeTrackingUpdated}, f.events.Types())
	assert.Equal(t, "TRK-2", f.reload(t, order).TrackingNumber)
}

func TestShipmentService_Cancel(t *testing.T) {
	f := newFixture(t)
	order := f.quotedOrder(t)
	svc := f.shipments()
	ctx := context.Background()

	cancelled, err := svc.Cancel(ctx, f.userID, order.ID)
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled)

	_, err = svc.Pay(ctx, f.userID, order.ID, "r1")
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}
