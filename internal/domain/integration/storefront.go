package integration

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrStorefrontNotRegistered = errors.New("integration: storefront not registered")
	ErrStorefrontUnavailable   = errors.New("integration: storefront temporarily unavailable")
	ErrStorefrontRequestFailed = errors.New("integration: storefront request failed")
	ErrStorefrontBadResponse   = errors.New("integration: invalid storefront response")
	ErrUnknownStoreType        = errors.New("integration: unknown store type")
)

// StoreType identifies the storefront platform an order or product came from
type StoreType string

const (
	StoreTypeShopify     StoreType = "shopify"
	StoreTypeCommerceHQ  StoreType = "chq"
	StoreTypeWooCommerce StoreType = "woo"
	StoreTypeEbay        StoreType = "ebay"
	StoreTypeFacebook    StoreType = "fb"
	StoreTypeGrooveKart  StoreType = "gkart"
	StoreTypeBigCommerce StoreType = "bigcommerce"
)

// AllStoreTypes lists every supported storefront type
func AllStoreTypes() []StoreType {
	return []StoreType{
		StoreTypeShopify, StoreTypeCommerceHQ, StoreTypeWooCommerce, StoreTypeEbay,
		StoreTypeFacebook, StoreTypeGrooveKart, StoreTypeBigCommerce,
	}
}

// IsValid returns true if the store type is one of the supported storefronts
func (t StoreType) IsValid() bool {
	for _, st := range AllStoreTypes() {
		if st == t {
			return true
		}
	}
	return false
}

func (t StoreType) String() string {
	return string(t)
}

// ParseStoreType validates a raw store type
func ParseStoreType(s string) (StoreType, error) {
	t := StoreType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStoreType, s)
	}
	return t, nil
}

// FulfillmentRequest asks a storefront to record that an order line shipped
type FulfillmentRequest struct {
	StoreID       string
	OrderID       string
	LineID        string
	SourceOrderID string
}

// Storefront is the port every storefront adapter implements.
// Adapters live in the infrastructure layer; dispatch is by StoreType.
type Storefront interface {
	StoreType() StoreType

	// ConnectSupplier records on the storefront product that it is fulfilled by
	// the logistics supplier at supplierLink
	ConnectSupplier(ctx context.Context, storeID, productID, supplierLink string) error

	// ConnectProduct marks a storefront product as connected
	ConnectProduct(ctx context.Context, storeID, productID string) error

	// CreateFulfillment creates the remote fulfillment record and returns its id
	CreateFulfillment(ctx context.Context, req FulfillmentRequest) (string, error)

	// UpdateFulfillment pushes status and tracking to an existing fulfillment
	UpdateFulfillment(ctx context.Context, storeID, fulfillmentID, status, trackingNumber string) error
}

// StorefrontRegistry resolves the adapter for a store type
type StorefrontRegistry interface {
	Get(storeType StoreType) (Storefront, error)
	List() []Storefront
}
