// Package catalog maps storefront products and variants onto the
// logistics catalogue.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appshared "github.com/shipflow/backend/internal/application/shared"
	"github.com/shipflow/backend/internal/domain/catalog"
	"github.com/shipflow/backend/internal/domain/integration"
	"github.com/shipflow/backend/internal/domain/shared"
)

// MatchRequest describes one storefront line to resolve
type MatchRequest struct {
	UserID       uuid.UUID
	Source       catalog.SourceRef
	ProductTitle string
	Images       []string
	Variant      []catalog.VariantToken
	// ListingID is set when the storefront already carries our listing id
	ListingID   *uuid.UUID
	Price       decimal.Decimal
	WarehouseID uuid.UUID
	AllowCreate bool
}

// MatchResult is the resolved supplier and listing. NewSupplier is set when
// the supplier was created by this call and the storefront should be told.
type MatchResult struct {
	Supplier    *catalog.Supplier
	Listing     *catalog.Listing
	Variant     *catalog.Variant
	NewSupplier bool
}

// Matcher is the only place products, suppliers, variants and listings
// are created
type Matcher struct {
	txScope     appshared.TransactionScope
	storefronts integration.StorefrontRegistry
	linkBase    string
	logger      *zap.Logger
}

// NewMatcher creates a Matcher. storefronts may be nil to skip
// announcing new suppliers.
func NewMatcher(txScope appshared.TransactionScope, storefronts integration.StorefrontRegistry, linkBase string, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{
		txScope:     txScope,
		storefronts: storefronts,
		linkBase:    strings.TrimRight(linkBase, "/"),
		logger:      logger,
	}
}

// Match resolves req in its own transaction and announces newly created
// suppliers to the storefront after commit
func (m *Matcher) Match(ctx context.Context, req MatchRequest) (*MatchResult, error) {
	var result *MatchResult
	err := m.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		result, err = m.MatchIn(ctx, repos, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	m.Announce(ctx, req.Source, result)
	return result, nil
}

// MatchIn resolves req using repos, so the caller controls the transaction.
// Returns ErrNotConnectable when nothing matches and creation is not allowed.
func (m *Matcher) MatchIn(ctx context.Context, repos appshared.TransactionalRepositories, req MatchRequest) (*MatchResult, error) {
	if err := req.Source.Validate(); err != nil {
		return nil, err
	}
	ref := req.Source.String()
	if err := repos.SupplierRepo().LockSource(ctx, req.UserID, ref); err != nil {
		return nil, fmt.Errorf("lock source %s: %w", ref, err)
	}

	supplier, created, err := m.resolveSupplier(ctx, repos, req, ref)
	if err != nil {
		return nil, err
	}

	product, err := repos.ProductRepo().FindByID(ctx, supplier.ProductID)
	if err != nil {
		return nil, fmt.Errorf("load product %s: %w", supplier.ProductID, err)
	}
	if product.MergeVariant(req.Variant) {
		if err := repos.ProductRepo().Save(ctx, product); err != nil {
			return nil, err
		}
	}

	listing, variant, err := m.resolveListing(ctx, repos, supplier, req)
	if err != nil {
		return nil, err
	}

	return &MatchResult{
		Supplier:    supplier,
		Listing:     listing,
		Variant:     variant,
		NewSupplier: created,
	}, nil
}

// Announce tells the storefront that its product is now fulfilled by the
// created supplier. Failures are logged only.
func (m *Matcher) Announce(ctx context.Context, source catalog.SourceRef, result *MatchResult) {
	if m.storefronts == nil || result == nil || !result.NewSupplier {
		return
	}
	sf, err := m.storefronts.Get(source.StoreType)
	if err != nil {
		m.logger.Warn("no storefront adapter for new supplier",
			zap.String("store_type", source.StoreType.String()),
			zap.Error(err),
		)
		return
	}
	link := fmt.Sprintf("%s/%s", m.linkBase, result.Supplier.ID)
	if err := sf.ConnectSupplier(ctx, source.StoreID, source.ProductID, link); err != nil {
		m.logger.Warn("failed to connect storefront supplier",
			zap.String("source", source.String()),
			zap.Error(err),
		)
		return
	}
	if err := sf.ConnectProduct(ctx, source.StoreID, source.ProductID); err != nil {
		m.logger.Warn("failed to mark storefront product connected",
			zap.String("source", source.String()),
			zap.Error(err),
		)
	}
}

func (m *Matcher) resolveSupplier(ctx context.Context, repos appshared.TransactionalRepositories, req MatchRequest, ref string) (*catalog.Supplier, bool, error) {
	suppliers := repos.SupplierRepo()

	existing, err := suppliers.FindBySource(ctx, req.UserID, ref)
	switch {
	case err == nil:
		if existing.WarehouseID == req.WarehouseID {
			return existing, false, nil
		}
		return m.siblingSupplier(ctx, repos, req, existing.ProductID, ref)
	case !errors.Is(err, shared.ErrNotFound):
		return nil, false, err
	}

	if !req.AllowCreate {
		return nil, false, shared.ErrNotConnectable.Withf("storefront product %s is not connected", ref)
	}

	title := req.ProductTitle
	if strings.TrimSpace(title) == "" {
		title = ref
	}
	product, err := catalog.NewProduct(req.UserID, title, req.Images)
	if err != nil {
		return nil, false, err
	}
	if err := repos.ProductRepo().Save(ctx, product); err != nil {
		return nil, false, err
	}

	supplier := catalog.NewSupplier(req.UserID, product.ID, req.WarehouseID)
	supplier.AddSource(ref)
	if err := suppliers.Save(ctx, supplier); err != nil {
		return nil, false, err
	}
	m.logger.Info("created product for storefront item",
		zap.String("source", ref),
		zap.String("product_id", product.ID.String()),
		zap.String("supplier_id", supplier.ID.String()),
	)
	return supplier, true, nil
}

// siblingSupplier returns the supplier of productID at the requested
// warehouse, creating it when missing
func (m *Matcher) siblingSupplier(ctx context.Context, repos appshared.TransactionalRepositories, req MatchRequest, productID uuid.UUID, ref string) (*catalog.Supplier, bool, error) {
	suppliers := repos.SupplierRepo()

	sibling, err := suppliers.FindByProductAndWarehouse(ctx, productID, req.WarehouseID)
	if err == nil {
		if !sibling.HasSource(ref) {
			if err := suppliers.AppendSource(ctx, sibling.ID, ref); err != nil {
				return nil, false, err
			}
			sibling.AddSource(ref)
		}
		return sibling, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}

	// the storefront product is already connected through the first supplier
	sibling = catalog.NewSupplier(req.UserID, productID, req.WarehouseID)
	sibling.AddSource(ref)
	if err := suppliers.Save(ctx, sibling); err != nil {
		return nil, false, err
	}
	return sibling, false, nil
}

// resolveListing picks the listing by SKU tokens, then by carried listing
// id, then by title tokens, and creates one when nothing matches
func (m *Matcher) resolveListing(ctx context.Context, repos appshared.TransactionalRepositories, supplier *catalog.Supplier, req MatchRequest) (*catalog.Listing, *catalog.Variant, error) {
	listings, err := repos.ListingRepo().FindBySupplier(ctx, supplier.ID)
	if err != nil {
		return nil, nil, err
	}
	variants, err := repos.VariantRepo().FindByProduct(ctx, supplier.ProductID)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Variant, len(variants))
	for i := range variants {
		byID[variants[i].ID] = &variants[i]
	}

	find := func(match func(*catalog.Variant) bool) (*catalog.Listing, *catalog.Variant) {
		for i := range listings {
			if v, ok := byID[listings[i].VariantID]; ok && match(v) {
				return &listings[i], v
			}
		}
		return nil, nil
	}

	if l, v := find(func(v *catalog.Variant) bool { return v.MatchesSKUs(req.Variant) }); l != nil {
		return l, v, nil
	}
	if req.ListingID != nil {
		for i := range listings {
			if listings[i].ID == *req.ListingID {
				return &listings[i], byID[listings[i].VariantID], nil
			}
		}
	}
	titleMatch := func(v *catalog.Variant) bool { return v.MatchesTitles(req.Variant) }
	if !hasTokens(req.Variant) {
		titleMatch = (*catalog.Variant).IsDefault
	}
	if l, v := find(titleMatch); l != nil {
		return l, v, nil
	}

	// a sibling supplier may already own the variant
	variant := pickVariant(variants, req.Variant)
	if variant == nil {
		variant = catalog.NewVariantFromTokens(supplier.ProductID, req.Variant)
		if err := repos.VariantRepo().Save(ctx, variant); err != nil {
			return nil, nil, err
		}
	}
	listing := catalog.NewListing(req.UserID, supplier.ID, variant.ID, req.Price)
	if err := repos.ListingRepo().Save(ctx, listing); err != nil {
		return nil, nil, err
	}
	return listing, variant, nil
}

func pickVariant(variants []catalog.Variant, tokens []catalog.VariantToken) *catalog.Variant {
	for i := range variants {
		if variants[i].MatchesSKUs(tokens) {
			return &variants[i]
		}
	}
	for i := range variants {
		v := &variants[i]
		if (hasTokens(tokens) && v.MatchesTitles(tokens)) || (!hasTokens(tokens) && v.IsDefault()) {
			return v
		}
	}
	return nil
}

func hasTokens(tokens []catalog.VariantToken) bool {
	for _, t := range tokens {
		if !t.Empty() {
			return true
		}
	}
	return false
}
