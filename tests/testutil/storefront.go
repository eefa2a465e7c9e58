package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/shipflow/backend/internal/domain/integration"
)

// StorefrontCall records one call made to a FakeStorefront
type StorefrontCall struct {
	Method string
	Args   []string
}

// FakeStorefront records calls and returns configurable errors per method
type FakeStorefront struct {
	Type integration.StoreType

	mu     sync.Mutex
	calls  []StorefrontCall
	errs   map[string]error
	nextID int
}

// NewFakeStorefront creates a recording storefront adapter
func NewFakeStorefront(storeType integration.StoreType) *FakeStorefront {
	return &FakeStorefront{Type: storeType, errs: make(map[string]error)}
}

// FailOn makes every call to method return err (nil clears it)
func (f *FakeStorefront) FailOn(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, method)
		return
	}
	f.errs[method] = err
}

// Calls returns the recorded calls to method, or all calls when empty
func (f *FakeStorefront) Calls(method string) []StorefrontCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]StorefrontCall, 0, len(f.calls))
	for _, c := range f.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeStorefront) record(method string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, StorefrontCall{Method: method, Args: args})
	return f.errs[method]
}

func (f *FakeStorefront) StoreType() integration.StoreType { return f.Type }

func (f *FakeStorefront) ConnectSupplier(_ context.Context, storeID, productID, supplierLink string) error {
	return f.record("ConnectSupplier", storeID, productID, supplierLink)
}

func (f *FakeStorefront) ConnectProduct(_ context.Context, storeID, productID string) error {
	return f.record("ConnectProduct", storeID, productID)
}

func (f *FakeStorefront) CreateFulfillment(_ context.Context, req integration.FulfillmentRequest) (string, error) {
	if err := f.record("CreateFulfillment", req.StoreID, req.OrderID, req.LineID, req.SourceOrderID); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return fmt.Sprintf("ful_%d", f.nextID), nil
}

func (f *FakeStorefront) UpdateFulfillment(_ context.Context, storeID, fulfillmentID, status, trackingNumber string) error {
	return f.record("UpdateFulfillment", storeID, fulfillmentID, status, trackingNumber)
}

// FakeStorefrontRegistry serves a fixed set of fake adapters
type FakeStorefrontRegistry map[integration.StoreType]integration.Storefront

// NewFakeStorefrontRegistry registers the given adapters by their store type
func NewFakeStorefrontRegistry(storefronts ...integration.Storefront) FakeStorefrontRegistry {
	r := make(FakeStorefrontRegistry, len(storefronts))
	for _, sf := range storefronts {
		r[sf.StoreType()] = sf
	}
	return r
}

func (r FakeStorefrontRegistry) Get(storeType integration.StoreType) (integration.Storefront, error) {
	sf, ok := r[storeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", integration.ErrStorefrontNotRegistered, storeType)
	}
	return sf, nil
}

func (r FakeStorefrontRegistry) List() []integration.Storefront {
	out := make([]integration.Storefront, 0, len(r))
	for _, sf := range r {
		out = append(out, sf)
	}
	return out
}
