package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shipflow/backend/internal/domain/shared"
)

// VariantToken is one option of a storefront variant description,
// e.g. {Title: "Red", SKU: "RD"} for the color dimension.
type VariantToken struct {
	Title string `json:"title"`
	SKU   string `json:"sku"`
}

// Empty reports whether the token carries neither title nor SKU
func (t VariantToken) Empty() bool {
	return t.Title == "" && t.SKU == ""
}

// VariantDimension lists the options observed for one position of a variant
// description (position 0 = first dimension, and so on).
type VariantDimension struct {
	Position int            `json:"position"`
	Options  []VariantToken `json:"options"`
}

// Product is a logistics-tracked physical item. It is only created by the
// catalog matcher the first time a storefront item is connected.
type Product struct {
	shared.OwnedAggregateRoot
	Title      string
	Images     []string
	Dimensions []VariantDimension
}

// NewProduct creates a new product titled from a storefront item
func NewProduct(userID uuid.UUID, title string, images []string) (*Product, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.ErrInvalidInput.Withf("product title is required")
	}
	if images == nil {
		images = []string{}
	}
	return &Product{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(userID),
		Title:              title,
		Images:             images,
		Dimensions:         []VariantDimension{},
	}, nil
}

// MergeVariant folds an observed variant description into the dimension
// catalogue, one token per position. Returns true if anything was added.
func (p *Product) MergeVariant(tokens []VariantToken) bool {
	changed := false
	for pos, tok := range tokens {
		if tok.Empty() {
			continue
		}
		for len(p.Dimensions) <= pos {
			p.Dimensions = append(p.Dimensions, VariantDimension{Position: len(p.Dimensions), Options: []VariantToken{}})
		}
		dim := &p.Dimensions[pos]
		if !containsToken(dim.Options, tok) {
			dim.Options = append(dim.Options, tok)
			changed = true
		}
	}
	if changed {
		p.Touch()
	}
	return changed
}

func containsToken(options []VariantToken, tok VariantToken) bool {
	for _, o := range options {
		if strings.EqualFold(o.Title, tok.Title) && strings.EqualFold(o.SKU, tok.SKU) {
			return true
		}
	}
	return false
}
