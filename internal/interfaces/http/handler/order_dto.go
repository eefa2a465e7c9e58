package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shipflow/backend/internal/application/fulfillment"
	"github.com/shipflow/backend/internal/domain/catalog"
	"github.com/shipflow/backend/internal/domain/integration"
	"github.com/shipflow/backend/internal/domain/shared/valueobject"
	"github.com/shipflow/backend/internal/domain/shipping"
)

// CustomsRequest carries the per-line customs fields
type CustomsRequest struct {
	HSTariff    string          `json:"hs_tariff" binding:"max=20"`
	CountryCode string          `json:"country_code" binding:"omitempty,len=2,alpha"`
	Weight      decimal.Decimal `json:"weight"`
}

// AttachLineRequest is one storefront order line delivered for fulfillment
type AttachLineRequest struct {
	StoreType        string `json:"store_type" binding:"required"`
	StoreID          string `json:"store_id" binding:"required,max=100"`
	StoreOrderNumber string `json:"store_order_number" binding:"required,max=100"`
	SourceOrderID    string `json:"source_order_id" binding:"required,max=100"`
	LineID           string `json:"line_id" binding:"required,max=100"`

	ProductID    string                 `json:"product_id" binding:"max=100"`
	ProductTitle string                 `json:"product_title" binding:"max=500"`
	Images       []string               `json:"images"`
	Variant      []catalog.VariantToken `json:"variant"`
	ListingID    *uuid.UUID             `json:"listing_id"`
	Price        decimal.Decimal        `json:"price"`
	AllowCreate  bool                   `json:"allow_create"`

	Title    string                 `json:"title" binding:"max=500"`
	Quantity int                    `json:"quantity" binding:"gte=0"`
	UnitCost decimal.Decimal        `json:"unit_cost"`
	Customs  CustomsRequest         `json:"customs"`
	ShipTo   valueobject.AddressDTO `json:"ship_to"`

	WarehouseID *uuid.UUID `json:"warehouse_id"`
}

func (r AttachLineRequest) toLineRequest(userID uuid.UUID) fulfillment.LineRequest {
	return fulfillment.LineRequest{
		UserID:           userID,
		StoreType:        integration.StoreType(r.StoreType),
		StoreID:          r.StoreID,
		StoreOrderNumber: r.StoreOrderNumber,
		SourceOrderID:    r.SourceOrderID,
		LineID:           r.LineID,
		ProductID:        r.ProductID,
		ProductTitle:     r.ProductTitle,
		Images:           r.Images,
		Variant:          r.Variant,
		ListingID:        r.ListingID,
		Price:            r.Price,
		AllowCreate:      r.AllowCreate,
		Title:            r.Title,
		Quantity:         r.Quantity,
		UnitCost:         r.UnitCost,
		Customs: shipping.Customs{
			HSTariff:    r.Customs.HSTariff,
			CountryCode: r.Customs.CountryCode,
			Weight:      r.Customs.Weight,
		},
		ShipTo:      r.ShipTo.ToAddress(),
		WarehouseID: r.WarehouseID,
	}
}

// QuoteRequest asks for rates on the packed parcel
type QuoteRequest struct {
	Package shipping.Package `json:"package"`
	Refresh bool             `json:"refresh"`
}

// PayRequest buys the label for one quoted rate
type PayRequest struct {
	RateID string `json:"rate_id" binding:"required"`
}

// OrderItemResponse is one line on an order
type OrderItemResponse struct {
	ID                  uuid.UUID       `json:"id"`
	ListingID           *uuid.UUID      `json:"listing_id,omitempty"`
	OrderDataID         string          `json:"order_data_id"`
	StoreLineID         string          `json:"store_line_id"`
	SourceOrderID       string          `json:"source_order_id"`
	Title               string          `json:"title"`
	Quantity            int             `json:"quantity"`
	UnitCost            decimal.Decimal `json:"unit_cost"`
	HSTariff            string          `json:"hs_tariff,omitempty"`
	CountryCode         string          `json:"country_code,omitempty"`
	Weight              decimal.Decimal `json:"weight"`
	RemoteFulfillmentID string          `json:"remote_fulfillment_id,omitempty"`
	NotifyPending       bool            `json:"notify_pending"`
	NotifyError         string          `json:"notify_error,omitempty"`
}

// OrderResponse is a parcel with its items and cached quote
type OrderResponse struct {
	ID               uuid.UUID                `json:"id"`
	Status           shipping.Status          `json:"status"`
	StorefrontStatus string                   `json:"storefront_status"`
	WarehouseID      uuid.UUID                `json:"warehouse_id"`
	StoreType        integration.StoreType    `json:"store_type"`
	StoreID          string                   `json:"store_id"`
	StoreOrderNumber string                   `json:"store_order_number"`
	ToAddress        shipping.ResolvedAddress `json:"to_address"`
	FromAddress      shipping.ResolvedAddress `json:"from_address"`
	Package          *shipping.Package        `json:"package,omitempty"`
	Quote            *shipping.ShipmentQuote  `json:"quote,omitempty"`
	RateID           string                   `json:"rate_id,omitempty"`
	TrackingNumber   string                   `json:"tracking_number,omitempty"`
	LabelURL         string                   `json:"label_url,omitempty"`
	IsPlatformRate   bool                     `json:"is_platform_rate"`
	IsPaid           bool                     `json:"is_paid"`
	IsCancelled      bool                     `json:"is_cancelled"`
	ShipmentCost     decimal.Decimal          `json:"shipment_cost"`
	PaidAt           *time.Time               `json:"paid_at,omitempty"`
	Items            []OrderItemResponse      `json:"items,omitempty"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

// toOrderResponse renders an order. A quote that cannot be decoded is
// omitted; the caller re-quotes.
func toOrderResponse(o *shipping.Order, items []shipping.OrderItem) OrderResponse {
	quote, _ := o.Quote()
	resp := OrderResponse{
		ID:               o.ID,
		Status:           o.Status(),
		StorefrontStatus: o.StorefrontStatus(),
		WarehouseID:      o.WarehouseID,
		StoreType:        o.StoreType,
		StoreID:          o.StoreID,
		StoreOrderNumber: o.StoreOrderNumber,
		ToAddress:        o.ToAddress,
		FromAddress:      o.FromAddress,
		Package:          o.Package,
		Quote:            quote,
		RateID:           o.RateID,
		TrackingNumber:   o.TrackingNumber,
		LabelURL:         o.LabelURL,
		IsPlatformRate:   o.IsPlatformRate,
		IsPaid:           o.IsPaid,
		IsCancelled:      o.IsCancelled,
		ShipmentCost:     o.ShipmentCost,
		PaidAt:           o.PaidAt,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
	if len(items) > 0 {
		resp.Items = make([]OrderItemResponse, 0, len(items))
		for _, item := range items {
			resp.Items = append(resp.Items, OrderItemResponse{
				ID:                  item.ID,
				ListingID:           item.ListingID,
				OrderDataID:         item.OrderDataID,
				StoreLineID:         item.StoreLineID,
				SourceOrderID:       item.SourceOrderID,
				Title:               item.Title,
				Quantity:            item.Quantity,
				UnitCost:            item.UnitCost,
				HSTariff:            item.Customs.HSTariff,
				CountryCode:         item.Customs.CountryCode,
				Weight:              item.Customs.Weight,
				RemoteFulfillmentID: item.RemoteFulfillmentID,
				NotifyPending:       item.NotifyPending,
				NotifyError:         item.NotifyError,
			})
		}
	}
	return resp
}

// QuoteResponse is a quote plus whether asking again may help
type QuoteResponse struct {
	*shipping.ShipmentQuote
	Retryable bool `json:"retryable"`
}
