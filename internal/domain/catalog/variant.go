package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shipflow/backend/internal/domain/shared"
)

const (
	variantTitleSeparator = " / "
	variantSKUSeparator   = ";"

	// DefaultVariantTitle names the variant of a product without options
	DefaultVariantTitle = "Default"
)

// Variant is one concrete SKU of a Product with its shipping dimensions
type Variant struct {
	shared.BaseEntity
	ProductID uuid.UUID
	Title     string
	SKU       string
	Weight    decimal.Decimal
	Length    decimal.Decimal
	Width     decimal.Decimal
	Height    decimal.Decimal
}

// NewVariantFromTokens builds a variant from a storefront variant description
// by concatenating its titles and SKUs. An empty description yields the
// "Default" variant.
func NewVariantFromTokens(productID uuid.UUID, tokens []VariantToken) *Variant {
	titles := make([]string, 0, len(tokens))
	skus := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t.Title != "" {
			titles = append(titles, t.Title)
		}
		if t.SKU != "" {
			skus = append(skus, t.SKU)
		}
	}
	title := strings.Join(titles, variantTitleSeparator)
	if title == "" {
		title = DefaultVariantTitle
	}
	return &Variant{
		BaseEntity: shared.NewBaseEntity(),
		ProductID:  productID,
		Title:      title,
		SKU:        strings.Join(skus, variantSKUSeparator),
		Weight:     decimal.Zero,
		Length:     decimal.Zero,
		Width:      decimal.Zero,
		Height:     decimal.Zero,
	}
}

// IsDefault reports whether the variant stands for a product without options
func (v *Variant) IsDefault() bool {
	return v.Title == DefaultVariantTitle && v.SKU == ""
}

// MatchesSKUs reports whether every SKU token of the description appears in
// the variant SKU. Descriptions without SKUs never match.
func (v *Variant) MatchesSKUs(tokens []VariantToken) bool {
	return matchAll(v.SKU, variantSKUSeparator, tokens, func(t VariantToken) string { return t.SKU })
}

// MatchesTitles reports whether every title token of the description appears
// in the variant title. Descriptions without titles never match.
func (v *Variant) MatchesTitles(tokens []VariantToken) bool {
	return matchAll(v.Title, variantTitleSeparator, tokens, func(t VariantToken) string { return t.Title })
}

func matchAll(value, sep string, tokens []VariantToken, pick func(VariantToken) string) bool {
	parts := make(map[string]struct{})
	for _, p := range strings.Split(value, sep) {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			parts[p] = struct{}{}
		}
	}
	seen := 0
	for _, t := range tokens {
		want := strings.ToLower(strings.TrimSpace(pick(t)))
		if want == "" {
			continue
		}
		if _, ok := parts[want]; !ok {
			return false
		}
		seen++
	}
	return seen > 0 && seen == len(parts)
}
