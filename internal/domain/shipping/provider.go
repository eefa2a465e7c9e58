package shipping

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shipflow/backend/internal/domain/shared/valueobject"
)

// VerifiedAddress is the provider's answer to an address verification
type VerifiedAddress struct {
	Address    valueobject.Address
	ProviderID string
	Verified   bool
	Errors     []string
}

// AddressVerifier validates and normalizes addresses at the provider
type AddressVerifier interface {
	VerifyAddress(ctx context.Context, addr valueobject.Address) (*VerifiedAddress, error)
}

// AddressCache remembers successful verifications by address content hash.
// Get returns nil without error on a miss.
type AddressCache interface {
	Get(ctx context.Context, hash string) (*ResolvedAddress, error)
	Set(ctx context.Context, addr ResolvedAddress, ttl time.Duration) error
}

// CustomsItem declares one line of a cross-border parcel
type CustomsItem struct {
	Description   string
	Quantity      int
	Value         decimal.Decimal
	Weight        decimal.Decimal
	HSTariff      string
	OriginCountry string
}

// ShipmentRequest asks the provider for rates on one parcel
type ShipmentRequest struct {
	From              ResolvedAddress
	To                ResolvedAddress
	Parcel            Package
	Customs           []CustomsItem
	CarrierAccountIDs []string
	Reference         string
}

// ProviderRate is one raw rate as returned by the provider
type ProviderRate struct {
	ID           string
	Carrier      string
	Service      string
	Price        decimal.Decimal
	ShipmentID   string
	DeliveryDays *int
}

// ProviderShipment is the provider's rated shipment
type ProviderShipment struct {
	ID       string
	Rates    []ProviderRate
	Messages []string
}

// Label is a purchased postage label
type Label struct {
	TrackingNumber string
	LabelURL       string
}

// RateProvider quotes parcels and buys labels. apiKey selects the account
// (merchant root account or platform account) the call runs under.
type RateProvider interface {
	CreateShipment(ctx context.Context, apiKey string, req ShipmentRequest) (*ProviderShipment, error)
	// BuyLabel purchases rateID on shipmentID. A carrier account without
	// funds yields shared.ErrCarrierFundsExhausted.
	BuyLabel(ctx context.Context, apiKey, shipmentID, rateID string) (*Label, error)
}

// ProviderAccount is a root account issued by the provider
type ProviderAccount struct {
	ID         string
	APIKey     string
	TestAPIKey string
}

// CarrierAccountRequest connects a merchant carrier account at the provider
type CarrierAccountRequest struct {
	Type        string
	Description string
	Reference   string
	Credentials map[string]string
}

// AccountProvider manages accounts at the rate-shopping provider
type AccountProvider interface {
	CreateAccount(ctx context.Context, name string) (*ProviderAccount, error)
	CreateCarrierAccount(ctx context.Context, apiKey string, req CarrierAccountRequest) (string, error)
}
