// Package storefront holds the adapters that talk to merchant storefronts
// and the registry that dispatches to them by store type.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shipflow/backend/internal/domain/integration"
)

const (
	// maxResponseSize limits the response body read from a storefront
	maxResponseSize = 1 * 1024 * 1024
	defaultTimeout  = 15 * time.Second
)

// Config holds the endpoint of one storefront type
type Config struct {
	StoreType integration.StoreType
	BaseURL   string
	Token     string
	Timeout   time.Duration
}

// Validate validates the storefront configuration
func (c *Config) Validate() error {
	if !c.StoreType.IsValid() {
		return fmt.Errorf("%w: %q", integration.ErrUnknownStoreType, c.StoreType)
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("storefront %s: base URL is required", c.StoreType)
	}
	if c.Token == "" {
		return fmt.Errorf("storefront %s: token is required", c.StoreType)
	}
	return nil
}

// RESTStorefront implements integration.Storefront against a storefront
// app's REST API. Store types differ only in endpoint and auth header.
type RESTStorefront struct {
	config     Config
	httpClient *http.Client
}

// NewRESTStorefront creates a storefront adapter
func NewRESTStorefront(config Config) (*RESTStorefront, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &RESTStorefront{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// StoreType returns the store type this adapter serves
func (s *RESTStorefront) StoreType() integration.StoreType {
	return s.config.StoreType
}

// ConnectSupplier sets the product's fulfillment supplier link
func (s *RESTStorefront) ConnectSupplier(ctx context.Context, storeID, productID, supplierLink string) error {
	body := map[string]string{"supplier_link": supplierLink}
	return s.do(ctx, http.MethodPost, s.productPath(storeID, productID, "supplier"), body, nil)
}

// ConnectProduct marks the product as connected
func (s *RESTStorefront) ConnectProduct(ctx context.Context, storeID, productID string) error {
	return s.do(ctx, http.MethodPost, s.productPath(storeID, productID, "connect"), struct{}{}, nil)
}

type createFulfillmentBody struct {
	OrderID       string `json:"order_id"`
	LineID        string `json:"line_id"`
	SourceOrderID string `json:"source_order_id"`
}

// remoteID accepts ids sent as JSON strings or numbers
type remoteID string

func (id *remoteID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = remoteID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = remoteID(n.String())
	return nil
}

type fulfillmentResponse struct {
	ID remoteID `json:"id"`
}

// CreateFulfillment creates the remote fulfillment and returns its id
func (s *RESTStorefront) CreateFulfillment(ctx context.Context, req integration.FulfillmentRequest) (string, error) {
	body := createFulfillmentBody{
		OrderID:       req.OrderID,
		LineID:        req.LineID,
		SourceOrderID: req.SourceOrderID,
	}
	var resp fulfillmentResponse
	if err := s.do(ctx, http.MethodPost, s.storePath(req.StoreID, "fulfillments"), body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: %s fulfillment has no id", integration.ErrStorefrontBadResponse, s.config.StoreType)
	}
	return string(resp.ID), nil
}

type updateFulfillmentBody struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

// UpdateFulfillment pushes status and tracking to the fulfillment
func (s *RESTStorefront) UpdateFulfillment(ctx context.Context, storeID, fulfillmentID, status, trackingNumber string) error {
	body := updateFulfillmentBody{Status: status, TrackingNumber: trackingNumber}
	path := s.storePath(storeID, "fulfillments", fulfillmentID)
	return s.do(ctx, http.MethodPut, path, body, nil)
}

func (s *RESTStorefront) storePath(storeID string, parts ...string) string {
	segments := append([]string{"stores", storeID}, parts...)
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return "/" + strings.Join(segments, "/")
}

func (s *RESTStorefront) productPath(storeID, productID, action string) string {
	return s.storePath(storeID, "products", productID, action)
}

func (s *RESTStorefront) authorize(req *http.Request) {
	switch s.config.StoreType {
	case integration.StoreTypeShopify:
		req.Header.Set("X-Shopify-Access-Token", s.config.Token)
	default:
		req.Header.Set("Authorization", "Bearer "+s.config.Token)
	}
}

// do sends body as JSON and decodes a 2xx answer into out when non-nil
func (s *RESTStorefront) do(ctx context.Context, method, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("storefront %s: failed to marshal request: %w", s.config.StoreType, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.BaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("storefront %s: failed to create request: %w", s.config.StoreType, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", integration.ErrStorefrontUnavailable, s.config.StoreType, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: %s: failed to read response: %v", integration.ErrStorefrontUnavailable, s.config.StoreType, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s HTTP %d", integration.ErrStorefrontUnavailable, s.config.StoreType, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: %s HTTP %d: %s", integration.ErrStorefrontRequestFailed,
			s.config.StoreType, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", integration.ErrStorefrontBadResponse, s.config.StoreType, err)
	}
	return nil
}

var _ integration.Storefront = (*RESTStorefront)(nil)
