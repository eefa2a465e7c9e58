package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/domain/shared/valueobject"
	"github.com/shipflow/backend/internal/domain/shipping"
)

const (
	// maxResponseSize limits the response body read from the provider
	maxResponseSize = 5 * 1024 * 1024
	contentsType    = "merchandise"
)

// ErrRequestRejected marks a 4xx answer that is not a funds problem
var ErrRequestRejected = errors.New("provider: request rejected")

// Client talks to the rate-shopping provider. It implements
// shipping.AddressVerifier, shipping.RateProvider and
// shipping.AccountProvider.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a provider client
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.timeout()},
		logger:     logger,
	}, nil
}

// VerifyAddress creates the address at the provider with delivery
// verification. A failed verification is reported in the result, not as
// an error.
func (c *Client) VerifyAddress(ctx context.Context, addr valueobject.Address) (*shipping.VerifiedAddress, error) {
	req := createAddressRequest{Address: toAddressPayload(addr), Verify: []string{"delivery"}}

	var resp addressResponse
	if err := c.do(ctx, http.MethodPost, "/addresses", c.config.APIKey, req, &resp); err != nil {
		return nil, err
	}

	result := &shipping.VerifiedAddress{
		Address:    fromAddressPayload(resp.addressPayload, addr),
		ProviderID: resp.ID,
	}
	delivery := resp.Verifications.Delivery
	if delivery == nil {
		result.Errors = []string{"address was not verified"}
		return result, nil
	}
	result.Verified = delivery.Success
	for _, fe := range delivery.Errors {
		result.Errors = append(result.Errors, fe.Message)
	}
	return result, nil
}

// CreateShipment rates one parcel. Referencing addresses by provider id
// when they have one avoids re-verification at the provider.
func (c *Client) CreateShipment(ctx context.Context, apiKey string, req shipping.ShipmentRequest) (*shipping.ProviderShipment, error) {
	payload := createShipmentRequest{Shipment: shipmentPayload{
		ToAddress:   resolvedPayload(req.To),
		FromAddress: resolvedPayload(req.From),
		Parcel: parcelPayload{
			Length: req.Parcel.Length,
			Width:  req.Parcel.Width,
			Height: req.Parcel.Height,
			Weight: req.Parcel.Weight,
		},
		CarrierAccounts: req.CarrierAccountIDs,
		Reference:       req.Reference,
	}}
	if len(req.Customs) > 0 {
		info := &customsInfoPayload{ContentsType: contentsType}
		for _, item := range req.Customs {
			info.CustomsItems = append(info.CustomsItems, customsItemPayload{
				Description:    item.Description,
				Quantity:       item.Quantity,
				Value:          item.Value,
				Weight:         item.Weight,
				HSTariffNumber: item.HSTariff,
				OriginCountry:  item.OriginCountry,
			})
		}
		payload.Shipment.CustomsInfo = info
	}

	var resp shipmentResponse
	if err := c.do(ctx, http.MethodPost, "/shipments", apiKey, payload, &resp); err != nil {
		return nil, err
	}

	shipment := &shipping.ProviderShipment{ID: resp.ID}
	for _, r := range resp.Rates {
		shipment.Rates = append(shipment.Rates, shipping.ProviderRate{
			ID:           r.ID,
			Carrier:      r.Carrier,
			Service:      r.Service,
			Price:        r.Rate,
			ShipmentID:   r.ShipmentID,
			DeliveryDays: r.DeliveryDays,
		})
	}
	for _, m := range resp.Messages {
		shipment.Messages = append(shipment.Messages, strings.TrimSpace(m.Carrier+": "+m.Message))
	}
	return shipment, nil
}

// BuyLabel purchases rateID on shipmentID
func (c *Client) BuyLabel(ctx context.Context, apiKey, shipmentID, rateID string) (*shipping.Label, error) {
	var req buyRequest
	req.Rate.ID = rateID

	var resp buyResponse
	if err := c.do(ctx, http.MethodPost, "/shipments/"+shipmentID+"/buy", apiKey, req, &resp); err != nil {
		return nil, err
	}
	if resp.TrackingCode == "" {
		return nil, fmt.Errorf("provider: label for shipment %s has no tracking code", shipmentID)
	}

	label := &shipping.Label{TrackingNumber: resp.TrackingCode}
	if resp.PostageLabel != nil {
		label.LabelURL = resp.PostageLabel.LabelURL
	}
	return label, nil
}

// CreateAccount creates a child account under the platform account
func (c *Client) CreateAccount(ctx context.Context, name string) (*shipping.ProviderAccount, error) {
	var req createUserRequest
	req.User.Name = name

	var resp userResponse
	if err := c.do(ctx, http.MethodPost, "/users", c.config.APIKey, req, &resp); err != nil {
		return nil, err
	}
	account := &shipping.ProviderAccount{
		ID:         resp.ID,
		APIKey:     resp.key("production"),
		TestAPIKey: resp.key("test"),
	}
	if account.ID == "" || account.APIKey == "" {
		return nil, fmt.Errorf("provider: account response for %q is missing id or production key", name)
	}
	return account, nil
}

// CreateCarrierAccount registers a merchant carrier account under apiKey
func (c *Client) CreateCarrierAccount(ctx context.Context, apiKey string, req shipping.CarrierAccountRequest) (string, error) {
	payload := createCarrierAccountRequest{CarrierAccount: carrierAccountPayload{
		Type:        req.Type,
		Description: req.Description,
		Reference:   req.Reference,
		Credentials: req.Credentials,
	}}

	var resp carrierAccountResponse
	if err := c.do(ctx, http.MethodPost, "/carrier_accounts", apiKey, payload, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("provider: carrier account response has no id")
	}
	return resp.ID, nil
}

// do sends body as JSON and decodes a 2xx answer into out.
// Transport failures, 429 and 5xx map to ErrProviderUnavailable.
func (c *Client) do(ctx context.Context, method, path, apiKey string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("provider: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("provider: failed to create request: %w", err)
	}
	req.SetBasicAuth(apiKey, "")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", shared.ErrProviderUnavailable, err)
	}

	if resp.StatusCode >= 300 {
		return c.statusError(method, path, resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("provider: failed to parse %s response: %w", path, err)
	}
	return nil
}

func (c *Client) statusError(method, path string, status int, data []byte) error {
	var envelope apiError
	message := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &envelope) == nil && envelope.Error.Message != "" {
		message = envelope.String()
	}

	c.logger.Warn("provider request failed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.String("message", message),
	)

	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: HTTP %d", shared.ErrProviderUnavailable, status)
	case envelope.insufficientFunds():
		return shared.ErrCarrierFundsExhausted.Withf("%s", message)
	case status == http.StatusNotFound:
		return shared.ErrNotFound.Withf("provider: %s", message)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", ErrRequestRejected, status, message)
	}
}

func toAddressPayload(a valueobject.Address) addressPayload {
	return addressPayload{
		Name:    a.Name(),
		Company: a.Company(),
		Street1: a.Street1(),
		Street2: a.Street2(),
		City:    a.City(),
		State:   a.State(),
		Zip:     a.Zip(),
		Country: a.Country(),
		Phone:   a.Phone(),
		Email:   a.Email(),
	}
}

// fromAddressPayload takes the provider's normalized fields and keeps the
// original contact details the provider does not echo
func fromAddressPayload(p addressPayload, original valueobject.Address) valueobject.Address {
	if p.Street1 == "" {
		return original
	}
	pick := func(normalized, fallback string) string {
		if normalized != "" {
			return normalized
		}
		return fallback
	}
	return valueobject.NewUnverifiedAddress(
		pick(p.Name, original.Name()),
		p.Street1,
		pick(p.City, original.City()),
		pick(p.State, original.State()),
		pick(p.Zip, original.Zip()),
		pick(p.Country, original.Country()),
		valueobject.WithCompany(pick(p.Company, original.Company())),
		valueobject.WithStreet2(p.Street2),
		valueobject.WithPhone(pick(p.Phone, original.Phone())),
		valueobject.WithEmail(pick(p.Email, original.Email())),
	)
}

func resolvedPayload(r shipping.ResolvedAddress) addressPayload {
	if r.ProviderID != "" {
		return addressPayload{ID: r.ProviderID}
	}
	return toAddressPayload(r.Address)
}

var (
	_ shipping.AddressVerifier = (*Client)(nil)
	_ shipping.RateProvider    = (*Client)(nil)
	_ shipping.AccountProvider = (*Client)(nil)
)
