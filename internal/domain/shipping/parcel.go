package shipping

import (
	"github.com/shopspring/decimal"

	"github.com/shipflow/backend/internal/domain/shared"
)

// Package is the packed parcel: dimensions in inches, weight in ounces
type Package struct {
	Length decimal.Decimal `json:"length"`
	Width  decimal.Decimal `json:"width"`
	Height decimal.Decimal `json:"height"`
	Weight decimal.Decimal `json:"weight"`
}

// Validate enforces a positive weight and non-negative dimensions
func (p Package) Validate() error {
	if !p.Weight.IsPositive() {
		return shared.ErrMissingWeight
	}
	if p.Length.IsNegative() || p.Width.IsNegative() || p.Height.IsNegative() {
		return shared.ErrInvalidInput.Withf("package dimensions cannot be negative")
	}
	return nil
}

// Equal compares all four measurements numerically
func (p Package) Equal(other Package) bool {
	return p.Length.Equal(other.Length) && p.Width.Equal(other.Width) &&
		p.Height.Equal(other.Height) && p.Weight.Equal(other.Weight)
}
