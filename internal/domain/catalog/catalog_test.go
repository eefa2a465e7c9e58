package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipflow/backend/internal/domain/integration"
	"github.com/shipflow/backend/internal/domain/shared"
)

func TestProduct_MergeVariant(t *testing.T) {
	p, err := NewProduct(uuid.New(), "Hoodie", nil)
	require.NoError(t, err)
	assert.NotNil(t, p.Images)

	changed := p.MergeVariant([]VariantToken{{Title: "Red", SKU: "RD"}, {Title: "L", SKU: "L"}})
	assert.True(t, changed)
	require.Len(t, p.Dimensions, 2)

	// same combination again is a no-op
	assert.False(t, p.MergeVariant([]VariantToken{{Title: "red", SKU: "rd"}, {Title: "L", SKU: "L"}}))

	// new color only extends the first dimension
	assert.True(t, p.MergeVariant([]VariantToken{{Title: "Blue", SKU: "BL"}, {Title: "L", SKU: "L"}}))
	assert.Len(t, p.Dimensions[0].Options, 2)
	assert.Len(t, p.Dimensions[1].Options, 1)
}

func TestNewProduct_RequiresTitle(t *testing.T) {
	_, err := NewProduct(uuid.New(), "  ", nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestVariant_Matching(t *testing.T) {
	tokens := []VariantToken{{Title: "Red", SKU: "RD"}, {Title: "Large", SKU: "L"}}
	v := NewVariantFromTokens(uuid.New(), tokens)

	assert.Equal(t, "Red / Large", v.Title)
	assert.Equal(t, "RD;L", v.SKU)
	assert.True(t, v.MatchesSKUs([]VariantToken{{SKU: "l"}, {SKU: "rd"}}))
	assert.True(t, v.MatchesTitles(tokens))
	assert.False(t, v.MatchesSKUs([]VariantToken{{SKU: "RD"}}))
	assert.False(t, v.MatchesTitles([]VariantToken{{Title: "Red"}, {Title: "Small"}}))
	assert.False(t, v.MatchesSKUs([]VariantToken{{Title: "Red"}}))
}

func TestNewVariantFromTokens_Default(t *testing.T) {
	v := NewVariantFromTokens(uuid.New(), nil)
	assert.Equal(t, "Default", v.Title)
	assert.Empty(t, v.SKU)
	assert.True(t, v.Weight.IsZero())
}

func TestSupplier_Sources(t *testing.T) {
	s := NewSupplier(uuid.New(), uuid.New(), uuid.New())
	ref := SourceRef{StoreType: integration.StoreTypeShopify, StoreID: "12", ProductID: "998"}
	require.NoError(t, ref.Validate())
	assert.Equal(t, "shopify_12_998", ref.String())

	assert.True(t, s.AddSource(ref.String()))
	assert.False(t, s.AddSource(ref.String()))
	assert.True(t, s.HasSource("shopify_12_998"))
	assert.False(t, s.HasSource("shopify_12_99"))

	s.AddSource("woo_3_5")
	joined := JoinSourceIDs(s.SourceIDs)
	assert.Equal(t, "shopify_12_998,woo_3_5", joined)
	assert.Equal(t, s.SourceIDs, SplitSourceIDs(joined))
	assert.Empty(t, SplitSourceIDs(""))
}

func TestSourceRef_Validate(t *testing.T) {
	assert.Error(t, SourceRef{StoreType: "amazon", StoreID: "1", ProductID: "2"}.Validate())
	assert.Error(t, SourceRef{StoreType: integration.StoreTypeEbay, StoreID: "", ProductID: "2"}.Validate())
}
