package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/domain/shared/valueobject"
	"github.com/shipflow/backend/internal/domain/shipping"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL + "/", APIKey: "platform_key", Timeout: time.Second}, nil)
	require.NoError(t, err)
	return client
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	return body
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func buyer() valueobject.Address {
	return valueobject.NewUnverifiedAddress("Jane Doe", "1 main st", "springfield", "IL", "62701", "US",
		valueobject.WithEmail("jane@example.com"))
}

func TestConfig_Validate(t *testing.T) {
	assert.ErrorIs(t, (&Config{APIKey: "k"}).Validate(), ErrConfigMissingBaseURL)
	assert.ErrorIs(t, (&Config{BaseURL: "http://x"}).Validate(), ErrConfigMissingAPIKey)
	assert.NoError(t, (&Config{BaseURL: "http://x", APIKey: "k"}).Validate())
	assert.Equal(t, DefaultTimeout, (&Config{}).timeout())
}

func TestClient_VerifyAddress(t *testing.T) {
	t.Run("verified", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/addresses", r.URL.Path)
			user, _, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "platform_key", user)

			body := decodeBody(t, r)
			assert.Equal(t, []any{"delivery"}, body["verify"])
			address := body["address"].(map[string]any)
			assert.Equal(t, "1 main st", address["street1"])

			writeJSON(w, http.StatusOK, `{
				"id": "adr_123", "name": "JANE DOE", "street1": "1 MAIN ST", "city": "SPRINGFIELD",
				"state": "IL", "zip": "62701-1234", "country": "US",
				"verifications": {"delivery": {"success": true, "errors": []}}
			}`)
		})

		result, err := client.VerifyAddress(context.Background(), buyer())
		require.NoError(t, err)
		assert.True(t, result.Verified)
		assert.Equal(t, "adr_123", result.ProviderID)
		assert.Equal(t, "62701-1234", result.Address.Zip())
		// contact details the provider does not echo are kept
		assert.Equal(t, "jane@example.com", result.Address.Email())
	})

	t.Run("undeliverable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{
				"id": "adr_456", "street1": "1 MAIN ST",
				"verifications": {"delivery": {"success": false, "errors": [{"field": "street1", "message": "Address not found"}]}}
			}`)
		})

		result, err := client.VerifyAddress(context.Background(), buyer())
		require.NoError(t, err)
		assert.False(t, result.Verified)
		assert.Equal(t, []string{"Address not found"}, result.Errors)
	})

	t.Run("server error is unavailable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadGateway, `upstream down`)
		})

		_, err := client.VerifyAddress(context.Background(), buyer())
		assert.ErrorIs(t, err, shared.ErrProviderUnavailable)
	})
}

func TestClient_CreateShipment(t *testing.T) {
	days := 3
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/shipments", r.URL.Path)
		user, _, _ := r.BasicAuth()
		assert.Equal(t, "merchant_key", user)

		shipment := decodeBody(t, r)["shipment"].(map[string]any)
		assert.Equal(t, map[string]any{"id": "adr_to"}, shipment["to_address"])
		from := shipment["from_address"].(map[string]any)
		assert.Equal(t, "100 Industrial Way", from["street1"])
		assert.Equal(t, []any{"ca_1", "ca_2"}, shipment["carrier_accounts"])
		parcel := shipment["parcel"].(map[string]any)
		assert.Equal(t, "16", parcel["weight"])

		customs := shipment["customs_info"].(map[string]any)
		items := customs["customs_items"].([]any)
		require.Len(t, items, 1)
		assert.Equal(t, "6109.10", items[0].(map[string]any)["hs_tariff_number"])

		writeJSON(w, http.StatusCreated, `{
			"id": "shp_1",
			"rates": [
				{"id": "rate_1", "carrier": "USPS", "service": "Priority", "rate": "7.58", "shipment_id": "shp_1", "delivery_days": 3},
				{"id": "rate_2", "carrier": "UPS", "service": "Ground", "rate": "9.10", "shipment_id": "shp_1", "delivery_days": null}
			],
			"messages": [{"carrier": "FedEx", "message": "account not active"}]
		}`)
	})

	to := shipping.NewResolvedAddress(buyer(), "adr_to", nil)
	from := shipping.NewResolvedAddress(
		valueobject.NewUnverifiedAddress("Dock", "100 Industrial Way", "Reno", "NV", "89502", "CA"), "", nil)
	shipment, err := client.CreateShipment(context.Background(), "merchant_key", shipping.ShipmentRequest{
		To:     to,
		From:   from,
		Parcel: shipping.Package{Length: decimal.NewFromInt(10), Width: decimal.NewFromInt(8), Height: decimal.NewFromInt(4), Weight: decimal.NewFromInt(16)},
		Customs: []shipping.CustomsItem{{
			Description: "T-shirt", Quantity: 2, Value: decimal.NewFromInt(20), Weight: decimal.NewFromInt(8),
			HSTariff: "6109.10", OriginCountry: "CN",
		}},
		CarrierAccountIDs: []string{"ca_1", "ca_2"},
	})
	require.NoError(t, err)

	assert.Equal(t, "shp_1", shipment.ID)
	require.Len(t, shipment.Rates, 2)
	assert.True(t, decimal.RequireFromString("7.58").Equal(shipment.Rates[0].Price))
	assert.Equal(t, &days, shipment.Rates[0].DeliveryDays)
	assert.Nil(t, shipment.Rates[1].DeliveryDays)
	assert.Equal(t, []string{"FedEx: account not active"}, shipment.Messages)
}

func TestClient_BuyLabel(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/shipments/shp_1/buy", r.URL.Path)
			rate := decodeBody(t, r)["rate"].(map[string]any)
			assert.Equal(t, "rate_1", rate["id"])
			writeJSON(w, http.StatusOK, `{"id": "shp_1", "tracking_code": "9400100000000000000000",
				"postage_label": {"label_url": "https://labels.test/shp_1.png"}}`)
		})

		label, err := client.BuyLabel(context.Background(), "merchant_key", "shp_1", "rate_1")
		require.NoError(t, err)
		assert.Equal(t, "9400100000000000000000", label.TrackingNumber)
		assert.Equal(t, "https://labels.test/shp_1.png", label.LabelURL)
	})

	t.Run("carrier out of funds", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity,
				`{"error": {"code": "SHIPMENT.POSTAGE.INSUFFICIENT_FUNDS", "message": "Insufficient funds to purchase postage"}}`)
		})

		_, err := client.BuyLabel(context.Background(), "merchant_key", "shp_1", "rate_1")
		assert.ErrorIs(t, err, shared.ErrCarrierFundsExhausted)
	})

	t.Run("rejected", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity,
				`{"error": {"code": "SHIPMENT.POSTAGE.FAILURE", "message": "Rate expired", "errors": [{"message": "rate_1 is stale"}]}}`)
		})

		_, err := client.BuyLabel(context.Background(), "merchant_key", "shp_1", "rate_1")
		assert.True(t, errors.Is(err, ErrRequestRejected))
		assert.Contains(t, err.Error(), "rate_1 is stale")
		assert.False(t, errors.Is(err, shared.ErrProviderUnavailable))
	})

	t.Run("unknown shipment", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, `{"error": {"code": "NOT_FOUND", "message": "shipment not found"}}`)
		})

		_, err := client.BuyLabel(context.Background(), "merchant_key", "shp_x", "rate_1")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("missing tracking code", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"id": "shp_1"}`)
		})

		_, err := client.BuyLabel(context.Background(), "merchant_key", "shp_1", "rate_1")
		assert.Error(t, err)
	})
}

func TestClient_Accounts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, _, _ := r.BasicAuth()
		switch r.URL.Path {
		case "/users":
			assert.Equal(t, "platform_key", user)
			assert.Equal(t, "user-1", decodeBody(t, r)["user"].(map[string]any)["name"])
			writeJSON(w, http.StatusCreated, `{"id": "user_1", "api_keys": [
				{"mode": "test", "key": "test_key"}, {"mode": "production", "key": "prod_key"}]}`)
		case "/carrier_accounts":
			assert.Equal(t, "prod_key", user)
			account := decodeBody(t, r)["carrier_account"].(map[string]any)
			assert.Equal(t, "DhlExpressAccount", account["type"])
			assert.Equal(t, map[string]any{"account_number": "123"}, account["credentials"])
			writeJSON(w, http.StatusCreated, `{"id": "ca_dhl"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	ctx := context.Background()

	account, err := client.CreateAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, &shipping.ProviderAccount{ID: "user_1", APIKey: "prod_key", TestAPIKey: "test_key"}, account)

	id, err := client.CreateCarrierAccount(ctx, account.APIKey, shipping.CarrierAccountRequest{
		Type:        "DhlExpressAccount",
		Credentials: map[string]string{"account_number": "123"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ca_dhl", id)
}

func TestClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "platform_key"}, nil)
	require.NoError(t, err)

	_, err = client.CreateAccount(context.Background(), "user-1")
	assert.ErrorIs(t, err, shared.ErrProviderUnavailable)
}
