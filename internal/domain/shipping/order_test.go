package shipping

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipflow/backend/internal/domain/integration"
	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/domain/shared/valueobject"
)

func resolved(t *testing.T, street, country string) ResolvedAddress {
	addr, err := valueobject.NewAddress("Jane Doe", street, "Austin", "TX", "78701", country)
	require.NoError(t, err)
	return NewResolvedAddress(addr, "adr_"+street, nil)
}

func newTestOrder(t *testing.T) *Order {
	o, err := NewOrder(uuid.New(), uuid.New(), integration.StoreTypeShopify, "12", "#1001",
		resolved(t, "1 Main St", "US"), resolved(t, "9 Dock Rd", "US"))
	require.NoError(t, err)
	return o
}

func TestNewOrder_Validation(t *testing.T) {
	to := resolved(t, "1 Main St", "US")
	_, err := NewOrder(uuid.New(), uuid.New(), "amazon", "1", "#1", to, to)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = NewOrder(uuid.New(), uuid.Nil, integration.StoreTypeWooCommerce, "1", "#1", to, to)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestOrder_StatusLifecycle(t *testing.T) {
	o := newTestOrder(t)
	assert.Equal(t, StatusPendingPayment, o.Status())
	assert.Equal(t, "D_PENDING_PAYMENT", o.StorefrontStatus())

	rate := Rate{ID: "r1", Price: decimal.RequireFromString("4.05"), IsRoot: true}
	require.NoError(t, o.MarkPaid(rate, &Label{}))
	assert.Equal(t, StatusPaid, o.Status())
	assert.True(t, o.IsPlatformRate)
	assert.Len(t, o.GetDomainEvents(), 1)

	changed, err := o.UpdateTracking("1Z999")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusShipped, o.Status())
	assert.Equal(t, "D_SHIPPED", o.StorefrontStatus())

	changed, err = o.UpdateTracking("1Z999")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestOrder_MarkPaidTwiceFails(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.MarkPaid(Rate{ID: "r1", Price: decimal.NewFromInt(5)}, &Label{TrackingNumber: "T1"}))
	err := o.MarkPaid(Rate{ID: "r2", Price: decimal.NewFromInt(6)}, &Label{TrackingNumber: "T2"})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Equal(t, "T1", o.TrackingNumber)
	assert.Equal(t, "r1", o.RateID)
}

func TestOrder_CanBundle(t *testing.T) {
	o := newTestOrder(t)
	hash := o.ToAddressHash()
	other := uuid.New()

	assert.True(t, o.CanBundle(hash, o.WarehouseID, true))
	assert.True(t, o.CanBundle(hash, other, false))
	assert.False(t, o.CanBundle(hash, other, true))
	assert.False(t, o.CanBundle("different", o.WarehouseID, true))

	require.NoError(t, o.Cancel())
	assert.False(t, o.CanBundle(hash, o.WarehouseID, true))
}

func TestOrder_QuoteRoundTripIsLazy(t *testing.T) {
	o := newTestOrder(t)
	q, err := o.Quote()
	require.NoError(t, err)
	assert.Nil(t, q)

	pkg := Package{Weight: decimal.NewFromInt(16)}
	quote := NewShipmentQuote(pkg, time.Now(), time.Hour)
	quote.Rates = append(quote.Rates, Rate{ID: "r1", Price: decimal.RequireFromString("12.30")})
	require.NoError(t, o.SetQuote(quote))

	restored := &Order{}
	restored.RestoreQuoteData(o.QuoteData())
	q, err = restored.Quote()
	require.NoError(t, err)
	require.NotNil(t, q)
	rate, ok := q.FindRate("r1")
	assert.True(t, ok)
	assert.Equal(t, "12.3", rate.Price.String())
	assert.NotNil(t, q.Errors)
}

func TestOrder_UpdateToAddressDropsQuote(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.SetQuote(NewShipmentQuote(Package{Weight: decimal.NewFromInt(1)}, time.Now(), time.Hour)))

	changed, err := o.UpdateToAddress(resolved(t, "2 Main St", "US"))
	require.NoError(t, err)
	assert.True(t, changed)
	q, _ := o.Quote()
	assert.Nil(t, q)
}

func TestOrder_PaidQuoteIsImmutable(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.MarkPaid(Rate{ID: "r1", Price: decimal.NewFromInt(1)}, &Label{TrackingNumber: "T"}))
	err := o.SetQuote(NewShipmentQuote(Package{Weight: decimal.NewFromInt(1)}, time.Now(), time.Hour))
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.ErrorIs(t, o.Cancel(), shared.ErrInvalidState)
}

func TestOrder_IsCrossBorder(t *testing.T) {
	o, err := NewOrder(uuid.New(), uuid.New(), integration.StoreTypeEbay, "1", "#1",
		resolved(t, "1 Main St", "CA"), resolved(t, "9 Dock Rd", "US"))
	require.NoError(t, err)
	assert.True(t, o.IsCrossBorder())
	assert.False(t, newTestOrder(t).IsCrossBorder())
}

func TestShipmentQuote_Reusable(t *testing.T) {
	pkg := Package{Weight: decimal.NewFromInt(10)}
	now := time.Now()
	q := NewShipmentQuote(pkg, now, time.Minute)
	assert.False(t, q.Reusable(pkg, now), "no rates")

	q.Rates = []Rate{{ID: "r"}}
	assert.True(t, q.Reusable(pkg, now))
	assert.False(t, q.Reusable(Package{Weight: decimal.NewFromInt(11)}, now))
	assert.False(t, q.Reusable(pkg, now.Add(2*time.Minute)))

	q.Errors = []string{"boom"}
	assert.False(t, q.Reusable(pkg, now))
}

func TestPackage_Validate(t *testing.T) {
	assert.ErrorIs(t, Package{}.Validate(), shared.ErrMissingWeight)
	assert.ErrorIs(t, Package{Weight: decimal.NewFromInt(-1)}.Validate(), shared.ErrMissingWeight)
	assert.ErrorIs(t, Package{Weight: decimal.NewFromInt(1), Length: decimal.NewFromInt(-2)}.Validate(), shared.ErrInvalidInput)
	assert.NoError(t, Package{Weight: decimal.NewFromInt(1)}.Validate())
}

func TestOrderItem(t *testing.T) {
	listing := uuid.New()
	item := NewOrderItem(uuid.New(), uuid.New(), &listing, OrderDataID(integration.StoreTypeShopify, "12", "5001", "9"), "9", "5001")
	assert.Equal(t, "shopify_12_5001_9", item.OrderDataID)
	assert.True(t, item.SameListing(&listing))
	assert.False(t, item.SameListing(nil))
	assert.False(t, item.HasCustomsInfo())

	item.ApplyLine("Hoodie", 3, decimal.NewFromInt(20), Customs{HSTariff: "6110", Weight: decimal.NewFromInt(12)})
	assert.Equal(t, 3, item.Quantity)
	assert.True(t, item.HasCustomsInfo())

	item.MarkNotifyFailed(errors.New("timeout"))
	assert.True(t, item.NotifyPending)
	assert.Equal(t, 1, item.NotifyAttempts)
	item.MarkNotified()
	assert.False(t, item.NotifyPending)
	assert.Empty(t, item.NotifyError)
}

func TestCarrierType_ValidateCredentials(t *testing.T) {
	ups, ok := LookupCarrierType("UpsAccount")
	require.True(t, ok)

	err := ups.ValidateCredentials(map[string]string{"account_number": "A1"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Contains(t, err.Error(), "user_id")

	err = ups.ValidateCredentials(map[string]string{
		"account_number": "A1", "user_id": "u", "password": "p", "access_license_number": "x", "pin": "1",
	})
	assert.Contains(t, err.Error(), "pin")

	assert.NoError(t, ups.ValidateCredentials(map[string]string{
		"account_number": "A1", "user_id": "u", "password": "p", "access_license_number": "x",
	}))
	assert.NotEmpty(t, CarrierTypes())
}
