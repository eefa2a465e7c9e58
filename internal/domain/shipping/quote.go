package shipping

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rate is one purchasable offer in a quote. ShipmentID is the provider
// shipment the rate belongs to and is needed to buy it.
type Rate struct {
	ID           string          `json:"id"`
	Carrier      string          `json:"carrier"`
	Service      string          `json:"service"`
	Price        decimal.Decimal `json:"price"`
	ShipmentID   string          `json:"shipment_id"`
	IsRoot       bool            `json:"is_root"`
	LogoURL      string          `json:"logo_url"`
	DeliveryDays *int            `json:"delivery_days,omitempty"`
}

// ShipmentQuote is the merged, ranked rate list for one Order.
// Rates and Errors are never nil.
type ShipmentQuote struct {
	Rates     []Rate    `json:"rates"`
	Errors    []string  `json:"errors"`
	Package   Package   `json:"package"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewShipmentQuote creates an empty quote valid for ttl
func NewShipmentQuote(pkg Package, now time.Time, ttl time.Duration) *ShipmentQuote {
	return &ShipmentQuote{
		Rates:     []Rate{},
		Errors:    []string{},
		Package:   pkg,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Normalize replaces nil slices with empty ones
func (q *ShipmentQuote) Normalize() {
	if q.Rates == nil {
		q.Rates = []Rate{}
	}
	if q.Errors == nil {
		q.Errors = []string{}
	}
}

// IsExpired reports whether the quote is past its expiry
func (q *ShipmentQuote) IsExpired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}

// HasErrors reports whether the quote carries unresolved errors
func (q *ShipmentQuote) HasErrors() bool {
	return len(q.Errors) > 0
}

// Reusable reports whether the quote can be served again for pkg
func (q *ShipmentQuote) Reusable(pkg Package, now time.Time) bool {
	return !q.IsExpired(now) && !q.HasErrors() && len(q.Rates) > 0 && q.Package.Equal(pkg)
}

// FindRate locates a rate by id
func (q *ShipmentQuote) FindRate(id string) (Rate, bool) {
	for _, r := range q.Rates {
		if r.ID == id {
			return r, true
		}
	}
	return Rate{}, false
}
