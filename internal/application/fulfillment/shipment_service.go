package fulfillment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appshared "github.com/shipflow/backend/internal/application/shared"
	"github.com/shipflow/backend/internal/domain/billing"
	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/domain/shipping"
)

// DefaultLabelTimeout bounds a label purchase once it has started
const DefaultLabelTimeout = 30 * time.Second

// BalanceDebiter lowers a balance inside the caller's transaction
type BalanceDebiter interface {
	Debit(ctx context.Context, repos appshared.TransactionalRepositories, balance *billing.AccountBalance, amount decimal.Decimal) error
}

// ShipmentService drives an order from quoted to paid to shipped
type ShipmentService struct {
	txScope      appshared.TransactionScope
	repos        appshared.TransactionalRepositories
	registry     *CarrierAccountRegistry
	provider     shipping.RateProvider
	ledger       BalanceDebiter
	events       shared.EventPublisher
	locks        appshared.KeyedMutex
	labelTimeout time.Duration
	now          func() time.Time
	logger       *zap.Logger
}

// NewShipmentService creates a ShipmentService. events may be nil.
func NewShipmentService(
	txScope appshared.TransactionScope,
	repos appshared.TransactionalRepositories,
	registry *CarrierAccountRegistry,
	provider shipping.RateProvider,
	ledger BalanceDebiter,
	events shared.EventPublisher,
	labelTimeout time.Duration,
	logger *zap.Logger,
) *ShipmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if labelTimeout <= 0 {
		labelTimeout = DefaultLabelTimeout
	}
	return &ShipmentService{
		txScope:      txScope,
		repos:        repos,
		registry:     registry,
		provider:     provider,
		ledger:       ledger,
		events:       events,
		labelTimeout: labelTimeout,
		now:          time.Now,
		logger:       logger,
	}
}

// selectRate validates the cached quote and locates rateID in it
func (s *ShipmentService) selectRate(order *shipping.Order, rateID string) (shipping.Rate, error) {
	quote, err := order.Quote()
	if err != nil {
		return shipping.Rate{}, err
	}
	if quote == nil || quote.HasErrors() || quote.IsExpired(s.now()) {
		return shipping.Rate{}, shared.ErrQuoteExpiredOrMissing
	}
	if len(quote.Rates) == 0 {
		return shipping.Rate{}, shared.ErrNoRatesAvailable
	}
	rate, ok := quote.FindRate(rateID)
	if !ok {
		return shipping.Rate{}, shared.ErrRateNotFound.Withf("rate %q is not in the current quote", rateID)
	}
	return rate, nil
}

// apiKey picks the account a rate must be bought under
func (s *ShipmentService) apiKey(ctx context.Context, userID uuid.UUID, rate shipping.Rate) (string, error) {
	if rate.IsRoot {
		return s.registry.Platform().APIKey, nil
	}
	root, err := s.registry.RootAccount(ctx, userID)
	if err != nil {
		return "", err
	}
	return root.APIKey, nil
}

// Pay buys the label for rateID. Paying an already paid order is a no-op
// that returns the order. Platform rates are debited from the balance in
// the same transaction that records the purchase.
func (s *ShipmentService) Pay(ctx context.Context, userID, orderID uuid.UUID, rateID string) (*shipping.Order, error) {
	order, err := s.repos.OrderRepo().FindByIDForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsPaid {
		return order, nil
	}
	if order.IsCancelled {
		return nil, shared.ErrInvalidState.Withf("order %s is cancelled", orderID)
	}
	rate, err := s.selectRate(order, rateID)
	if err != nil {
		return nil, err
	}
	key, err := s.apiKey(ctx, userID, rate)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(orderID.String())
	defer unlock()

	var paid *shipping.Order
	err = s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		locked, err := repos.OrderRepo().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !locked.OwnedBy(userID) {
			return shared.ErrNotFound
		}
		paid = locked
		if locked.IsPaid {
			return nil
		}
		current, err := s.selectRate(locked, rateID)
		if err != nil {
			return err
		}
		if current.IsRoot != rate.IsRoot {
			return shared.ErrConcurrencyConflict.Withf("quote of order %s changed", orderID)
		}

		var balance *billing.AccountBalance
		if current.IsRoot {
			balance, err = repos.BalanceRepo().FindByUserForUpdate(ctx, userID)
			if errors.Is(err, shared.ErrNotFound) {
				return shared.ErrInsufficientFunds
			}
			if err != nil {
				return err
			}
			if !balance.CanAfford(current.Price) {
				return shared.ErrInsufficientFunds.Withf("balance %s is below %s", balance.Balance.StringFixed(2), current.Price.StringFixed(2))
			}
		}

		// the purchase must finish once started, even if the caller goes away
		buyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.labelTimeout)
		defer cancel()
		label, err := s.provider.BuyLabel(buyCtx, key, current.ShipmentID, current.ID)
		if err != nil {
			return err
		}

		if err := locked.MarkPaid(current, label); err != nil {
			return err
		}
		if err := repos.OrderRepo().Save(ctx, locked); err != nil {
			s.logger.Error("label bought but order not recorded",
				zap.String("order_id", orderID.String()),
				zap.String("tracking_number", label.TrackingNumber),
				zap.Error(err),
			)
			return err
		}
		if current.IsRoot {
			return s.ledger.Debit(ctx, repos, balance, current.Price)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("shipment payment failed",
			zap.String("order_id", orderID.String()),
			zap.String("rate_id", rateID),
			zap.Error(err),
		)
		return nil, err
	}

	s.publish(ctx, paid)
	return paid, nil
}

// UpdateTracking records a tracking number reported after purchase
func (s *ShipmentService) UpdateTracking(ctx context.Context, orderID uuid.UUID, trackingNumber string) (*shipping.Order, error) {
	unlock := s.locks.Lock(orderID.String())
	defer unlock()

	var order *shipping.Order
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		locked, err := repos.OrderRepo().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		order = locked
		changed, err := locked.UpdateTracking(trackingNumber)
		if err != nil || !changed {
			return err
		}
		return repos.OrderRepo().Save(ctx, locked)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, order)
	return order, nil
}

// Cancel flags an unpaid order as cancelled
func (s *ShipmentService) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*shipping.Order, error) {
	unlock := s.locks.Lock(orderID.String())
	defer unlock()

	var order *shipping.Order
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		locked, err := repos.OrderRepo().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !locked.OwnedBy(userID) {
			return shared.ErrNotFound
		}
		if err := locked.Cancel(); err != nil {
			return err
		}
		order = locked
		return repos.OrderRepo().Save(ctx, locked)
	})
	return order, err
}

// publish hands the order's events to the bus once committed. Failures are
// logged; storefront notification has its own retry.
func (s *ShipmentService) publish(ctx context.Context, order *shipping.Order) {
	events := order.GetDomainEvents()
	order.ClearDomainEvents()
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish order events",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}
