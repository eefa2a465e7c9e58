package fulfillment

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appshared "github.com/shipflow/backend/internal/application/shared"
	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/domain/shared/valueobject"
	"github.com/shipflow/backend/internal/domain/shipping"
)

// AddressResolver verifies addresses, reusing verified snapshots
type AddressResolver interface {
	Resolve(ctx context.Context, raw valueobject.Address) (shipping.ResolvedAddress, error)
	Reuse(ctx context.Context, current shipping.ResolvedAddress) (shipping.ResolvedAddress, error)
}

// RateShopperConfig holds the pricing settings of the platform pool
type RateShopperConfig struct {
	Markup      decimal.Decimal
	QuoteTTL    time.Duration
	LogoBaseURL string
}

// RateShopper quotes a parcel against the merchant pool and the platform
// pool and caches the merged quote on the order
type RateShopper struct {
	txScope  appshared.TransactionScope
	repos    appshared.TransactionalRepositories
	resolver AddressResolver
	registry *CarrierAccountRegistry
	provider shipping.RateProvider
	cfg      RateShopperConfig
	now      func() time.Time
	logger   *zap.Logger
}

// NewRateShopper creates a RateShopper
func NewRateShopper(
	txScope appshared.TransactionScope,
	repos appshared.TransactionalRepositories,
	resolver AddressResolver,
	registry *CarrierAccountRegistry,
	provider shipping.RateProvider,
	cfg RateShopperConfig,
	logger *zap.Logger,
) *RateShopper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateShopper{
		txScope:  txScope,
		repos:    repos,
		resolver: resolver,
		registry: registry,
		provider: provider,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// poolResult is what one pool contributed to a quote
type poolResult struct {
	rates []shipping.Rate
	err   error
}

// Quote returns the order's quote for pkg. A reusable cached quote is served
// unless refresh is set; a paid order's quote is returned as is. Provider
// failures end up in the quote's Errors rather than in the returned error.
func (s *RateShopper) Quote(ctx context.Context, userID, orderID uuid.UUID, pkg shipping.Package, refresh bool) (*shipping.ShipmentQuote, error) {
	if err := pkg.Validate(); err != nil {
		return nil, err
	}

	order, err := s.repos.OrderRepo().FindByIDForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	cached, err := order.Quote()
	if err != nil {
		s.logger.Warn("discarding unreadable cached quote", zap.String("order_id", orderID.String()), zap.Error(err))
		cached = nil
	}
	if order.IsPaid {
		return paidQuote(cached, pkg, s.now()), nil
	}
	if !refresh && cached != nil && cached.Reusable(pkg, s.now()) {
		return cached, nil
	}

	items, err := s.repos.OrderItemRepo().FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	var customs []shipping.CustomsItem
	if order.IsCrossBorder() {
		customs, err = customsItems(items, order.FromAddress.Address.Country())
		if err != nil {
			return nil, err
		}
	}

	to, err := s.resolver.Reuse(ctx, order.ToAddress)
	if err != nil {
		return nil, err
	}
	from, err := s.resolver.Reuse(ctx, order.FromAddress)
	if err != nil {
		return nil, err
	}
	for _, addr := range []shipping.ResolvedAddress{to, from} {
		if !addr.Verified() {
			return nil, shared.ErrAddressInvalid.Withf("address %q is invalid: %s", addr.Address.String(), strings.Join(addr.Errors, "; "))
		}
	}

	req := shipping.ShipmentRequest{
		From:      from,
		To:        to,
		Parcel:    pkg,
		Customs:   customs,
		Reference: order.ID.String(),
	}
	quote := s.shop(ctx, userID, req)

	var stored *shipping.ShipmentQuote
	err = s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		locked, err := repos.OrderRepo().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if locked.IsPaid {
			// paid while we were quoting
			q, _ := locked.Quote()
			stored = paidQuote(q, pkg, s.now())
			return nil
		}
		if _, err := locked.UpdateToAddress(to); err != nil {
			return err
		}
		if from.ProviderID != locked.FromAddress.ProviderID && from.Hash == locked.FromAddress.Hash {
			locked.FromAddress = from
		}
		if err := locked.SetQuote(quote); err != nil {
			return err
		}
		stored = quote
		return repos.OrderRepo().Save(ctx, locked)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order quoted",
		zap.String("order_id", orderID.String()),
		zap.Int("rates", len(stored.Rates)),
		zap.Int("errors", len(stored.Errors)),
	)
	return stored, nil
}

// shop queries both pools concurrently and merges their rates
func (s *RateShopper) shop(ctx context.Context, userID uuid.UUID, req shipping.ShipmentRequest) *shipping.ShipmentQuote {
	var merchant, platform poolResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		merchant = s.merchantRates(gctx, userID, req)
		return nil
	})
	if s.registry.Platform().Enabled() {
		g.Go(func() error {
			platform = s.platformRates(gctx, req)
			return nil
		})
	}
	_ = g.Wait()

	now := s.now()
	quote := shipping.NewShipmentQuote(req.Parcel, now, s.cfg.QuoteTTL)
	for _, pool := range []struct {
		name string
		res  poolResult
	}{{"merchant", merchant}, {"platform", platform}} {
		if pool.res.err != nil {
			s.logger.Warn("rate pool failed",
				zap.String("pool", pool.name),
				zap.String("reference", req.Reference),
				zap.Error(pool.res.err),
			)
			quote.Errors = append(quote.Errors, fmt.Sprintf("%s rates: %v", pool.name, pool.res.err))
		}
		quote.Rates = append(quote.Rates, pool.res.rates...)
	}

	sort.SliceStable(quote.Rates, func(i, j int) bool {
		return quote.Rates[i].Price.LessThan(quote.Rates[j].Price)
	})
	return quote
}

func (s *RateShopper) merchantRates(ctx context.Context, userID uuid.UUID, req shipping.ShipmentRequest) poolResult {
	root, err := s.registry.RootAccount(ctx, userID)
	if err != nil {
		return poolResult{err: err}
	}
	ids, err := s.registry.MerchantCarrierIDs(ctx, userID)
	if err != nil {
		return poolResult{err: err}
	}
	req.CarrierAccountIDs = ids

	shipment, err := s.provider.CreateShipment(ctx, root.APIKey, req)
	if err != nil {
		return poolResult{err: err}
	}
	platform := s.registry.Platform()
	rates := make([]shipping.Rate, 0, len(shipment.Rates))
	for _, pr := range shipment.Rates {
		if platform.IsReserved(pr.Carrier) {
			continue
		}
		rates = append(rates, s.toRate(pr, shipment.ID, pr.Price, false))
	}
	return poolResult{rates: rates}
}

func (s *RateShopper) platformRates(ctx context.Context, req shipping.ShipmentRequest) poolResult {
	platform := s.registry.Platform()
	req.CarrierAccountIDs = platform.CarrierIDs

	shipment, err := s.provider.CreateShipment(ctx, platform.APIKey, req)
	if err != nil {
		return poolResult{err: err}
	}
	rates := make([]shipping.Rate, 0, len(shipment.Rates))
	for _, pr := range shipment.Rates {
		if !platform.IsReserved(pr.Carrier) {
			continue
		}
		price := pr.Price.Mul(s.cfg.Markup).Round(2)
		rates = append(rates, s.toRate(pr, shipment.ID, price, true))
	}
	return poolResult{rates: rates}
}

func (s *RateShopper) toRate(pr shipping.ProviderRate, shipmentID string, price decimal.Decimal, root bool) shipping.Rate {
	if pr.ShipmentID != "" {
		shipmentID = pr.ShipmentID
	}
	return shipping.Rate{
		ID:           pr.ID,
		Carrier:      pr.Carrier,
		Service:      pr.Service,
		Price:        price,
		ShipmentID:   shipmentID,
		IsRoot:       root,
		LogoURL:      s.logoURL(pr.Carrier),
		DeliveryDays: pr.DeliveryDays,
	}
}

func (s *RateShopper) logoURL(carrier string) string {
	if s.cfg.LogoBaseURL == "" || carrier == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s.png", strings.TrimRight(s.cfg.LogoBaseURL, "/"), strings.ToLower(carrier))
}

// customsItems declares every item of a cross-border parcel
func customsItems(items []shipping.OrderItem, originCountry string) ([]shipping.CustomsItem, error) {
	var missing []string
	out := make([]shipping.CustomsItem, 0, len(items))
	for _, item := range items {
		if !item.HasCustomsInfo() {
			missing = append(missing, item.StoreLineID)
			continue
		}
		country := item.Customs.CountryCode
		if country == "" {
			country = originCountry
		}
		out = append(out, shipping.CustomsItem{
			Description:   item.Title,
			Quantity:      item.Quantity,
			Value:         item.UnitCost.Mul(decimal.NewFromInt(int64(item.Quantity))),
			Weight:        item.Customs.Weight,
			HSTariff:      item.Customs.HSTariff,
			OriginCountry: country,
		})
	}
	if len(missing) > 0 {
		return nil, shared.ErrMissingCustomsInfo.Withf("items without weight or HS tariff: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// paidQuote returns the immutable quote of a paid order, never nil
func paidQuote(q *shipping.ShipmentQuote, pkg shipping.Package, now time.Time) *shipping.ShipmentQuote {
	if q != nil {
		return q
	}
	return shipping.NewShipmentQuote(pkg, now, 0)
}

// IsRetryable reports whether an empty quote should be requested again
func IsRetryable(q *shipping.ShipmentQuote) bool {
	return q != nil && len(q.Rates) == 0 && len(q.Errors) == 0
}
