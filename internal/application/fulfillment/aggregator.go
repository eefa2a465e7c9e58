package fulfillment

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appcatalog "github.com/shipflow/backend/internal/application/catalog"
	appshared "github.com/shipflow/backend/internal/application/shared"
	"github.com/shipflow/backend/internal/domain/catalog"
	"github.com/shipflow/backend/internal/domain/integration"
	"github.com/shipflow/backend/internal/domain/partner"
	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/domain/shared/valueobject"
	"github.com/shipflow/backend/internal/domain/shipping"
)

// LineRequest is one storefront order line to place on a parcel
type LineRequest struct {
	UserID           uuid.UUID
	StoreType        integration.StoreType
	StoreID          string
	StoreOrderNumber string
	SourceOrderID    string
	LineID           string

	// ProductID is the storefront product id; empty for custom lines that
	// ship without a catalog match
	ProductID    string
	ProductTitle string
	Images       []string
	Variant      []catalog.VariantToken
	ListingID    *uuid.UUID
	Price        decimal.Decimal
	AllowCreate  bool

	Title    string
	Quantity int
	UnitCost decimal.Decimal
	Customs  shipping.Customs
	ShipTo   valueobject.Address

	// WarehouseID overrides the warehouse the line ships from
	WarehouseID *uuid.UUID
}

func (r LineRequest) validate() error {
	if !r.StoreType.IsValid() {
		return shared.ErrInvalidInput.Withf("unknown store type %q", r.StoreType)
	}
	var missing []string
	for name, v := range map[string]string{
		"store_id":           r.StoreID,
		"store_order_number": r.StoreOrderNumber,
		"source_order_id":    r.SourceOrderID,
		"line_id":            r.LineID,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return shared.ErrInvalidInput.Withf("missing %s", strings.Join(missing, ", "))
	}
	if r.Quantity < 0 {
		return shared.ErrInvalidInput.Withf("quantity cannot be negative")
	}
	return nil
}

func (r LineRequest) source() catalog.SourceRef {
	return catalog.SourceRef{StoreType: r.StoreType, StoreID: r.StoreID, ProductID: r.ProductID}
}

func (r LineRequest) storeOrderKey() string {
	return strings.Join([]string{r.UserID.String(), r.StoreType.String(), r.StoreID, r.StoreOrderNumber}, "|")
}

// OrderAggregator groups storefront order lines into parcels: one Order per
// destination address and warehouse
type OrderAggregator struct {
	txScope  appshared.TransactionScope
	repos    appshared.TransactionalRepositories
	matcher  *appcatalog.Matcher
	resolver AddressResolver
	locks    appshared.KeyedMutex
	logger   *zap.Logger
}

// NewOrderAggregator creates an OrderAggregator
func NewOrderAggregator(
	txScope appshared.TransactionScope,
	repos appshared.TransactionalRepositories,
	matcher *appcatalog.Matcher,
	resolver AddressResolver,
	logger *zap.Logger,
) *OrderAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderAggregator{
		txScope:  txScope,
		repos:    repos,
		matcher:  matcher,
		resolver: resolver,
		logger:   logger,
	}
}

// AttachLine places the line on an open Order, bundling it with lines of the
// same storefront order that share the destination and a compatible
// warehouse. Re-delivering a line updates its item in place. A line already
// on a paid or cancelled Order returns that Order unchanged.
func (a *OrderAggregator) AttachLine(ctx context.Context, req LineRequest) (*shipping.Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	unlock := a.locks.Lock(req.storeOrderKey())
	defer unlock()

	to, err := a.resolver.Resolve(ctx, req.ShipTo)
	if err != nil {
		return nil, err
	}
	dataID := shipping.OrderDataID(req.StoreType, req.StoreID, req.SourceOrderID, req.LineID)

	warehouse, err := a.targetWarehouse(ctx, req, dataID)
	if err != nil {
		return nil, err
	}
	from, err := a.resolver.Resolve(ctx, warehouse.Address)
	if err != nil {
		return nil, err
	}

	var (
		order *shipping.Order
		match *appcatalog.MatchResult
	)
	err = a.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		settled, err := a.settledOrder(ctx, repos, req.UserID, dataID)
		if err != nil || settled != nil {
			order = settled
			return err
		}

		match, err = a.match(ctx, repos, req, warehouse.ID)
		if err != nil {
			return err
		}
		var listingID *uuid.UUID
		if match != nil {
			listingID = &match.Listing.ID
		}
		order, err = a.attach(ctx, repos, req, dataID, listingID, warehouse.ID, to, from)
		return err
	})
	if err != nil {
		return nil, err
	}

	if match != nil {
		a.matcher.Announce(ctx, req.source(), match)
	}
	a.logger.Info("order line attached",
		zap.String("order_id", order.ID.String()),
		zap.String("order_data_id", dataID),
		zap.String("warehouse_id", order.WarehouseID.String()),
	)
	return order, nil
}

// targetWarehouse picks the origin: the override, then the warehouse of an
// open order already holding the line, then the supplier's warehouse, then
// the user's first warehouse
func (a *OrderAggregator) targetWarehouse(ctx context.Context, req LineRequest, dataID string) (*partner.Warehouse, error) {
	warehouses := a.repos.WarehouseRepo()
	if req.WarehouseID != nil {
		return warehouses.FindByIDForUser(ctx, req.UserID, *req.WarehouseID)
	}

	items, err := a.repos.OrderItemRepo().FindByOrderDataID(ctx, req.UserID, dataID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		order, err := a.repos.OrderRepo().FindByID(ctx, item.OrderID)
		if err != nil {
			return nil, err
		}
		if w, ok := a.liveWarehouse(ctx, req.UserID, order.WarehouseID); ok {
			return w, nil
		}
	}

	if req.ProductID != "" {
		supplier, err := a.repos.SupplierRepo().FindBySource(ctx, req.UserID, req.source().String())
		switch {
		case err == nil:
			if w, ok := a.liveWarehouse(ctx, req.UserID, supplier.WarehouseID); ok {
				return w, nil
			}
		case !errors.Is(err, shared.ErrNotFound):
			return nil, err
		}
	}

	all, err := warehouses.FindByUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, shared.ErrInvalidState.Withf("user has no warehouse to ship from")
	}
	return &all[0], nil
}

func (a *OrderAggregator) liveWarehouse(ctx context.Context, userID, id uuid.UUID) (*partner.Warehouse, bool) {
	w, err := a.repos.WarehouseRepo().FindByIDForUser(ctx, userID, id)
	if err != nil {
		return nil, false
	}
	return w, true
}

// settledOrder returns the paid or cancelled order already holding the line.
// Every order holding the line stays row locked until the transaction ends.
func (a *OrderAggregator) settledOrder(ctx context.Context, repos appshared.TransactionalRepositories, userID uuid.UUID, dataID string) (*shipping.Order, error) {
	items, err := repos.OrderItemRepo().FindByOrderDataID(ctx, userID, dataID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		order, err := repos.OrderRepo().FindByIDForUpdate(ctx, item.OrderID)
		if err != nil {
			return nil, err
		}
		if !order.IsOpen() {
			return order, nil
		}
	}
	return nil, nil
}

// match resolves the line's listing. Lines without a product, or whose
// product cannot be connected, ship unlisted.
func (a *OrderAggregator) match(ctx context.Context, repos appshared.TransactionalRepositories, req LineRequest, warehouseID uuid.UUID) (*appcatalog.MatchResult, error) {
	if req.ProductID == "" {
		return nil, nil
	}
	title := req.ProductTitle
	if title == "" {
		title = req.Title
	}
	result, err := a.matcher.MatchIn(ctx, repos, appcatalog.MatchRequest{
		UserID:       req.UserID,
		Source:       req.source(),
		ProductTitle: title,
		Images:       req.Images,
		Variant:      req.Variant,
		ListingID:    req.ListingID,
		Price:        req.Price,
		WarehouseID:  warehouseID,
		AllowCreate:  req.AllowCreate,
	})
	if errors.Is(err, shared.ErrNotConnectable) {
		return nil, nil
	}
	return result, err
}

// attach writes the item. Items of the line left on orders for another
// warehouse are removed and orders emptied by that are deleted.
func (a *OrderAggregator) attach(
	ctx context.Context,
	repos appshared.TransactionalRepositories,
	req LineRequest,
	dataID string,
	listingID *uuid.UUID,
	warehouseID uuid.UUID,
	to, from shipping.ResolvedAddress,
) (*shipping.Order, error) {
	existing, err := repos.OrderItemRepo().FindByOrderDataID(ctx, req.UserID, dataID)
	if err != nil {
		return nil, err
	}

	var (
		keep      *shipping.Order
		keptItems []shipping.OrderItem
		stale     []uuid.UUID
		touched   = map[uuid.UUID]struct{}{}
	)
	for _, item := range existing {
		order, err := repos.OrderRepo().FindByIDForUpdate(ctx, item.OrderID)
		if err != nil {
			return nil, err
		}
		if !order.IsOpen() {
			// paid or cancelled since settledOrder looked
			return order, nil
		}
		if order.WarehouseID == warehouseID && (keep == nil || keep.ID == order.ID) {
			keep = order
			keptItems = append(keptItems, item)
			continue
		}
		stale = append(stale, item.ID)
		touched[order.ID] = struct{}{}
	}
	if err := repos.OrderItemRepo().Delete(ctx, stale...); err != nil {
		return nil, err
	}
	for id := range touched {
		if err := a.deleteIfEmpty(ctx, repos, id); err != nil {
			return nil, err
		}
	}

	order := keep
	if order != nil {
		if _, err := order.UpdateToAddress(to); err != nil {
			return nil, err
		}
		if err := repos.OrderRepo().Save(ctx, order); err != nil {
			return nil, err
		}
	} else {
		order, err = a.bundle(ctx, repos, req, listingID, warehouseID, to, from, touched)
		if err != nil {
			return nil, err
		}
	}

	var item *shipping.OrderItem
	if len(keptItems) == 1 && keptItems[0].SameListing(listingID) {
		item = &keptItems[0]
	} else {
		ids := make([]uuid.UUID, 0, len(keptItems))
		for _, it := range keptItems {
			ids = append(ids, it.ID)
		}
		if err := repos.OrderItemRepo().Delete(ctx, ids...); err != nil {
			return nil, err
		}
		item = shipping.NewOrderItem(req.UserID, order.ID, listingID, dataID, req.LineID, req.SourceOrderID)
	}
	item.ApplyLine(req.Title, req.Quantity, req.UnitCost, req.Customs)
	if err := repos.OrderItemRepo().Save(ctx, item); err != nil {
		return nil, err
	}

	return order, nil
}

// bundle finds an open order of the same storefront order the line may
// join, or creates one. Orders the line was just moved off are excluded.
// Candidates are locked before they are inspected. A line tied to a
// warehouse moves an unconstrained order to that warehouse.
func (a *OrderAggregator) bundle(
	ctx context.Context,
	repos appshared.TransactionalRepositories,
	req LineRequest,
	listingID *uuid.UUID,
	warehouseID uuid.UUID,
	to, from shipping.ResolvedAddress,
	excluded map[uuid.UUID]struct{},
) (*shipping.Order, error) {
	candidates, err := repos.OrderRepo().FindOpenByStoreOrder(ctx, req.UserID, req.StoreType, req.StoreID, req.StoreOrderNumber)
	if err != nil {
		return nil, err
	}
	lineConstrains := listingID != nil || req.WarehouseID != nil

	for i := range candidates {
		if _, skip := excluded[candidates[i].ID]; skip {
			continue
		}
		candidate, err := repos.OrderRepo().FindByIDForUpdate(ctx, candidates[i].ID)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !candidate.IsOpen() {
			continue
		}
		listed, err := repos.OrderItemRepo().CountListedByOrder(ctx, candidate.ID)
		if err != nil {
			return nil, err
		}
		target := warehouseID
		if !lineConstrains {
			target = candidate.WarehouseID
		}
		if !candidate.CanBundle(to.Hash, target, listed > 0) {
			continue
		}
		if candidate.WarehouseID != target {
			if err := candidate.AssignWarehouse(target, from); err != nil {
				return nil, err
			}
			if err := repos.OrderRepo().Save(ctx, candidate); err != nil {
				return nil, err
			}
		}
		return candidate, nil
	}

	order, err := shipping.NewOrder(req.UserID, warehouseID, req.StoreType, req.StoreID, req.StoreOrderNumber, to, from)
	if err != nil {
		return nil, err
	}
	if err := repos.OrderRepo().Save(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (a *OrderAggregator) deleteIfEmpty(ctx context.Context, repos appshared.TransactionalRepositories, orderID uuid.UUID) error {
	count, err := repos.OrderItemRepo().CountByOrder(ctx, orderID)
	if err != nil || count > 0 {
		return err
	}
	order, err := repos.OrderRepo().FindByIDForUpdate(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.IsOpen() {
		return nil
	}
	a.logger.Info("deleting emptied order", zap.String("order_id", orderID.String()))
	return repos.OrderRepo().Delete(ctx, orderID)
}

// Items lists the items on an order owned by userID
func (a *OrderAggregator) Items(ctx context.Context, userID, orderID uuid.UUID) ([]shipping.OrderItem, error) {
	_, items, err := a.Order(ctx, userID, orderID)
	return items, err
}

// Order loads an order owned by userID together with its items
func (a *OrderAggregator) Order(ctx context.Context, userID, orderID uuid.UUID) (*shipping.Order, []shipping.OrderItem, error) {
	order, err := a.repos.OrderRepo().FindByIDForUser(ctx, userID, orderID)
	if err != nil {
		return nil, nil, err
	}
	items, err := a.repos.OrderItemRepo().FindByOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return order, items, nil
}
