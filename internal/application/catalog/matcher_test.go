package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shipflow/backend/internal/domain/catalog"
	"github.com/shipflow/backend/internal/domain/integration"
	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/infrastructure/persistence"
	"github.com/shipflow/backend/tests/testutil"
)

type matcherFixture struct {
	db      *gorm.DB
	matcher *Matcher
	shopify *testutil.FakeStorefront
	userID  uuid.UUID
}

func newMatcherFixture(t *testing.T) *matcherFixture {
	db := testutil.NewSQLiteDB(t)
	shopify := testutil.NewFakeStorefront(integration.StoreTypeShopify)
	return &matcherFixture{
		db:      db,
		matcher: NewMatcher(persistence.NewGormTransactionScope(db), testutil.NewFakeStorefrontRegistry(shopify), "https://app.test/suppliers/", nil),
		shopify: shopify,
		userID:  uuid.New(),
	}
}

func (f *matcherFixture) request(warehouseID uuid.UUID, tokens ...catalog.VariantToken) MatchRequest {
	return MatchRequest{
		UserID:       f.userID,
		Source:       catalog.SourceRef{StoreType: integration.StoreTypeShopify, StoreID: "12", ProductID: "998"},
		ProductTitle: "Hoodie",
		Images:       []string{"https://img/1.png"},
		Variant:      tokens,
		Price:        decimal.NewFromInt(20),
		WarehouseID:  warehouseID,
		AllowCreate:  true,
	}
}

func TestMatcher_RepeatedMatchIsStable(t *testing.T) {
	f := newMatcherFixture(t)
	ctx := context.Background()
	warehouseID := uuid.New()
	red := []catalog.VariantToken{{Title: "Red", SKU: "RD"}, {Title: "L", SKU: "L"}}

	first, err := f.matcher.Match(ctx, f.request(warehouseID, red...))
	require.NoError(t, err)
	assert.True(t, first.NewSupplier)
	assert.Equal(t, "Red / L", first.Variant.Title)

	second, err := f.matcher.Match(ctx, f.request(warehouseID, red...))
	require.NoError(t, err)
	assert.False(t, second.NewSupplier)
	assert.Equal(t, first.Supplier.ID, second.Supplier.ID)
	assert.Equal(t, first.Listing.ID, second.Listing.ID)

	var suppliers, listings int64
	require.NoError(t, f.db.Table("suppliers").Count(&suppliers).Error)
	require.NoError(t, f.db.Table("listings").Count(&listings).Error)
	assert.Equal(t, int64(1), suppliers)
	assert.Equal(t, int64(1), listings)

	connects := f.shopify.Calls("ConnectSupplier")
	require.Len(t, connects, 1)
	assert.Equal(t, []string{"12", "998", "https://app.test/suppliers/" + first.Supplier.ID.String()}, connects[0].Args)
	assert.Len(t, f.shopify.Calls("ConnectProduct"), 1)
}

func TestMatcher_ListingResolutionOrder(t *testing.T) {
	f := newMatcherFixture(t)
	ctx := context.Background()
	warehouseID := uuid.New()

	red, err := f.matcher.Match(ctx, f.request(warehouseID, catalog.VariantToken{Title: "Red", SKU: "RD"}))
	require.NoError(t, err)

	t.Run("sku match ignores title changes", func(t *testing.T) {
		got, err := f.matcher.Match(ctx, f.request(warehouseID, catalog.VariantToken{Title: "Crimson", SKU: "rd"}))
		require.NoError(t, err)
		assert.Equal(t, red.Listing.ID, got.Listing.ID)
	})

	t.Run("title match when sku is missing", func(t *testing.T) {
		got, err := f.matcher.Match(ctx, f.request(warehouseID, catalog.VariantToken{Title: "red"}))
		require.NoError(t, err)
		assert.Equal(t, red.Listing.ID, got.Listing.ID)
	})

	t.Run("carried listing id", func(t *testing.T) {
		req := f.request(warehouseID, catalog.VariantToken{Title: "Unknown", SKU: "UNK"})
		req.ListingID = &red.Listing.ID
		got, err := f.matcher.Match(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, red.Listing.ID, got.Listing.ID)
	})

	t.Run("new combination creates a listing and extends the catalogue", func(t *testing.T) {
		got, err := f.matcher.Match(ctx, f.request(warehouseID, catalog.VariantToken{Title: "Blue", SKU: "BL"}))
		require.NoError(t, err)
		assert.NotEqual(t, red.Listing.ID, got.Listing.ID)
		assert.Equal(t, red.Supplier.ID, got.Supplier.ID)

		product, err := persistence.NewGormProductRepository(f.db).FindByID(ctx, red.Supplier.ProductID)
		require.NoError(t, err)
		require.Len(t, product.Dimensions, 1)
		titles := make([]string, 0, len(product.Dimensions[0].Options))
		for _, o := range product.Dimensions[0].Options {
			titles = append(titles, o.Title)
		}
		assert.Contains(t, titles, "Blue")
	})

	t.Run("empty description maps to the default variant once", func(t *testing.T) {
		a, err := f.matcher.Match(ctx, f.request(warehouseID))
		require.NoError(t, err)
		b, err := f.matcher.Match(ctx, f.request(warehouseID))
		require.NoError(t, err)
		assert.Equal(t, catalog.DefaultVariantTitle, a.Variant.Title)
		assert.Equal(t, a.Listing.ID, b.Listing.ID)
	})
}

func TestMatcher_SiblingSupplierForOtherWarehouse(t *testing.T) {
	f := newMatcherFixture(t)
	ctx := context.Background()
	warehouseA, warehouseB := uuid.New(), uuid.New()
	tok := catalog.VariantToken{Title: "Red", SKU: "RD"}

	atA, err := f.matcher.Match(ctx, f.request(warehouseA, tok))
	require.NoError(t, err)

	atB, err := f.matcher.Match(ctx, f.request(warehouseB, tok))
	require.NoError(t, err)
	assert.NotEqual(t, atA.Supplier.ID, atB.Supplier.ID)
	assert.Equal(t, atA.Supplier.ProductID, atB.Supplier.ProductID)
	assert.Equal(t, warehouseB, atB.Supplier.WarehouseID)
	// the variant is shared, the listing is per supplier
	assert.Equal(t, atA.Variant.ID, atB.Variant.ID)
	assert.NotEqual(t, atA.Listing.ID, atB.Listing.ID)

	again, err := f.matcher.Match(ctx, f.request(warehouseB, tok))
	require.NoError(t, err)
	assert.Equal(t, atB.Supplier.ID, again.Supplier.ID)
	assert.Len(t, f.shopify.Calls("ConnectSupplier"), 1)
}

func TestMatcher_ConcurrentFirstSight(t *testing.T) {
	f := newMatcherFixture(t)
	ctx := context.Background()
	warehouses := []uuid.UUID{uuid.New(), uuid.New()}
	tok := catalog.VariantToken{Title: "Red", SKU: "RD"}

	const workers = 6
	results := make([]*MatchResult, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.matcher.Match(ctx, f.request(warehouses[i%2], tok))
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		if results[i].NewSupplier {
			created++
		}
		assert.Equal(t, results[0].Supplier.ProductID, results[i].Supplier.ProductID)
	}
	assert.Equal(t, 1, created)

	var products, suppliers int64
	require.NoError(t, f.db.Table("products").Count(&products).Error)
	require.NoError(t, f.db.Table("suppliers").Count(&suppliers).Error)
	assert.Equal(t, int64(1), products)
	assert.Equal(t, int64(2), suppliers)
	assert.Len(t, f.shopify.Calls("ConnectSupplier"), 1)
}

func TestMatcher_NotConnectable(t *testing.T) {
	f := newMatcherFixture(t)
	req := f.request(uuid.New(), catalog.VariantToken{Title: "Red"})
	req.AllowCreate = false

	result, err := f.matcher.Match(context.Background(), req)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, shared.ErrNotConnectable)
	assert.Empty(t, f.shopify.Calls(""))

	var products int64
	require.NoError(t, f.db.Table("products").Count(&products).Error)
	assert.Zero(t, products)
}

func TestMatcher_StorefrontFailureDoesNotFailMatch(t *testing.T) {
	f := newMatcherFixture(t)
	f.shopify.FailOn("ConnectSupplier", integration.ErrStorefrontUnavailable)

	result, err := f.matcher.Match(context.Background(), f.request(uuid.New()))
	require.NoError(t, err)
	assert.NotNil(t, result.Listing)
	assert.Empty(t, f.shopify.Calls("ConnectProduct"))
}
