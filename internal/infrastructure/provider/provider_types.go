package provider

import (
	"strings"

	"github.com/shopspring/decimal"
)

// wire types of the provider REST API

type addressPayload struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Company string `json:"company,omitempty"`
	Street1 string `json:"street1,omitempty"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

type createAddressRequest struct {
	Address addressPayload `json:"address"`
	Verify  []string       `json:"verify"`
}

type fieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type verification struct {
	Success bool         `json:"success"`
	Errors  []fieldError `json:"errors"`
}

type addressResponse struct {
	addressPayload
	Verifications struct {
		Delivery *verification `json:"delivery"`
	} `json:"verifications"`
}

type parcelPayload struct {
	Length decimal.Decimal `json:"length"`
	Width  decimal.Decimal `json:"width"`
	Height decimal.Decimal `json:"height"`
	Weight decimal.Decimal `json:"weight"`
}

type customsItemPayload struct {
	Description    string          `json:"description"`
	Quantity       int             `json:"quantity"`
	Value          decimal.Decimal `json:"value"`
	Weight         decimal.Decimal `json:"weight"`
	HSTariffNumber string          `json:"hs_tariff_number,omitempty"`
	OriginCountry  string          `json:"origin_country"`
}

type customsInfoPayload struct {
	ContentsType string               `json:"contents_type"`
	CustomsItems []customsItemPayload `json:"customs_items"`
}

type shipmentPayload struct {
	ToAddress       addressPayload      `json:"to_address"`
	FromAddress     addressPayload      `json:"from_address"`
	Parcel          parcelPayload       `json:"parcel"`
	CustomsInfo     *customsInfoPayload `json:"customs_info,omitempty"`
	CarrierAccounts []string            `json:"carrier_accounts,omitempty"`
	Reference       string              `json:"reference,omitempty"`
}

type createShipmentRequest struct {
	Shipment shipmentPayload `json:"shipment"`
}

type ratePayload struct {
	ID           string          `json:"id"`
	Carrier      string          `json:"carrier"`
	Service      string          `json:"service"`
	Rate         decimal.Decimal `json:"rate"`
	ShipmentID   string          `json:"shipment_id"`
	DeliveryDays *int            `json:"delivery_days"`
}

type shipmentMessage struct {
	Carrier string `json:"carrier"`
	Message string `json:"message"`
}

type shipmentResponse struct {
	ID       string            `json:"id"`
	Rates    []ratePayload     `json:"rates"`
	Messages []shipmentMessage `json:"messages"`
}

type buyRequest struct {
	Rate struct {
		ID string `json:"id"`
	} `json:"rate"`
}

type buyResponse struct {
	ID           string `json:"id"`
	TrackingCode string `json:"tracking_code"`
	PostageLabel *struct {
		LabelURL string `json:"label_url"`
	} `json:"postage_label"`
}

type createUserRequest struct {
	User struct {
		Name string `json:"name"`
	} `json:"user"`
}

type apiKeyPayload struct {
	Mode string `json:"mode"`
	Key  string `json:"key"`
}

type userResponse struct {
	ID      string          `json:"id"`
	APIKeys []apiKeyPayload `json:"api_keys"`
}

// key returns the first key issued for mode
func (u *userResponse) key(mode string) string {
	for _, k := range u.APIKeys {
		if k.Mode == mode {
			return k.Key
		}
	}
	return ""
}

type carrierAccountPayload struct {
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Reference   string            `json:"reference,omitempty"`
	Credentials map[string]string `json:"credentials"`
}

type createCarrierAccountRequest struct {
	CarrierAccount carrierAccountPayload `json:"carrier_account"`
}

type carrierAccountResponse struct {
	ID string `json:"id"`
}

// apiError is the provider's error envelope
type apiError struct {
	Error struct {
		Code    string       `json:"code"`
		Message string       `json:"message"`
		Errors  []fieldError `json:"errors"`
	} `json:"error"`
}

func (e *apiError) String() string {
	msg := e.Error.Message
	if e.Error.Code != "" {
		msg = e.Error.Code + ": " + msg
	}
	if len(e.Error.Errors) > 0 {
		parts := make([]string, 0, len(e.Error.Errors))
		for _, fe := range e.Error.Errors {
			parts = append(parts, fe.Message)
		}
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	return msg
}

// insufficientFunds reports a carrier account that cannot pay for postage
func (e *apiError) insufficientFunds() bool {
	code := strings.ToUpper(e.Error.Code)
	return strings.Contains(code, "INSUFFICIENT_FUNDS") ||
		strings.Contains(strings.ToLower(e.Error.Message), "insufficient funds")
}
