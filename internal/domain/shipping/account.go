package shipping

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/shipflow/backend/internal/domain/shared"
)

// Account is the user's root account at the rate-shopping provider.
// It is created once, lazily, and its issued API keys are persisted.
type Account struct {
	shared.OwnedAggregateRoot
	ProviderID string
	APIKey     string
	TestAPIKey string
}

// NewAccount records a provider account issued for userID
func NewAccount(userID uuid.UUID, providerID, apiKey, testAPIKey string) (*Account, error) {
	if providerID == "" || apiKey == "" {
		return nil, shared.ErrInvalidInput.Withf("provider account id and api key are required")
	}
	return &Account{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(userID),
		ProviderID:         providerID,
		APIKey:             apiKey,
		TestAPIKey:         testAPIKey,
	}, nil
}

// CarrierField declares one credential a carrier type needs
type CarrierField struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Secret   bool   `json:"secret"`
}

// CarrierType describes a carrier a merchant can connect and the
// credential fields it asks for
type CarrierType struct {
	Name        string         `json:"name"`
	DisplayName string         `json:"display_name"`
	Fields      []CarrierField `json:"fields"`
}

// ValidateCredentials checks that every required field is present and no
// undeclared field is passed
func (t CarrierType) ValidateCredentials(credentials map[string]string) error {
	declared := make(map[string]bool, len(t.Fields))
	var missing []string
	for _, f := range t.Fields {
		declared[f.Name] = true
		if f.Required && strings.TrimSpace(credentials[f.Name]) == "" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return shared.ErrInvalidInput.Withf("%s requires: %s", t.DisplayName, strings.Join(missing, ", "))
	}
	var unknown []string
	for k := range credentials {
		if !declared[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return shared.ErrInvalidInput.Withf("%s does not accept: %s", t.DisplayName, strings.Join(unknown, ", "))
	}
	return nil
}

var carrierTypes = map[string]CarrierType{
	"UpsAccount": {
		Name: "UpsAccount", DisplayName: "UPS",
		Fields: []CarrierField{
			{Name: "account_number", Label: "Account number", Required: true},
			{Name: "user_id", Label: "User ID", Required: true},
			{Name: "password", Label: "Password", Required: true, Secret: true},
			{Name: "access_license_number", Label: "Access license number", Required: true, Secret: true},
		},
	},
	"FedexAccount": {
		Name: "FedexAccount", DisplayName: "FedEx",
		Fields: []CarrierField{
			{Name: "account_number", Label: "Account number", Required: true},
			{Name: "meter_number", Label: "Meter number", Required: true},
			{Name: "key", Label: "Key", Required: true, Secret: true},
			{Name: "password", Label: "Password", Required: true, Secret: true},
		},
	},
	"DhlExpressAccount": {
		Name: "DhlExpressAccount", DisplayName: "DHL Express",
		Fields: []CarrierField{
			{Name: "account_number", Label: "Account number", Required: true},
			{Name: "country", Label: "Country", Required: false},
			{Name: "is_reseller", Label: "Reseller account", Required: false},
		},
	},
	"CanadaPostAccount": {
		Name: "CanadaPostAccount", DisplayName: "Canada Post",
		Fields: []CarrierField{
			{Name: "customer_number", Label: "Customer number", Required: true},
			{Name: "api_username", Label: "API username", Required: true},
			{Name: "api_password", Label: "API password", Required: true, Secret: true},
			{Name: "contract_id", Label: "Contract ID", Required: false},
		},
	},
}

// LookupCarrierType returns the declared carrier type by name
func LookupCarrierType(name string) (CarrierType, bool) {
	t, ok := carrierTypes[name]
	return t, ok
}

// CarrierTypes lists the connectable carrier types sorted by name
func CarrierTypes() []CarrierType {
	out := make([]CarrierType, 0, len(carrierTypes))
	for _, t := range carrierTypes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Carrier is a merchant's own carrier account connected at the provider
type Carrier struct {
	shared.OwnedAggregateRoot
	CarrierType string
	Description string
	Reference   string
	ProviderID  string
}

// NewCarrier records a connected carrier account
func NewCarrier(userID uuid.UUID, carrierType, description, reference, providerID string) *Carrier {
	return &Carrier{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(userID),
		CarrierType:        carrierType,
		Description:        description,
		Reference:          reference,
		ProviderID:         providerID,
	}
}
