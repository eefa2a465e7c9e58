// Package integration reports shipped order lines back to the storefronts
// they came from.
package integration

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appshared "github.com/shipflow/backend/internal/application/shared"
	"github.com/shipflow/backend/internal/domain/integration"
	"github.com/shipflow/backend/internal/domain/shipping"
)

// DefaultMaxAttempts is how often a failed line is retried before giving up
const DefaultMaxAttempts = 10

// FulfillmentNotifier pushes fulfillment status and tracking to storefronts.
// Each line is handled on its own: a failing line is recorded for retry and
// never stops its siblings.
type FulfillmentNotifier struct {
	txScope     appshared.TransactionScope
	repos       appshared.TransactionalRepositories
	storefronts integration.StorefrontRegistry
	maxAttempts int
	locks       appshared.KeyedMutex
	logger      *zap.Logger
}

// NewFulfillmentNotifier creates a FulfillmentNotifier
func NewFulfillmentNotifier(
	txScope appshared.TransactionScope,
	repos appshared.TransactionalRepositories,
	storefronts integration.StorefrontRegistry,
	maxAttempts int,
	logger *zap.Logger,
) *FulfillmentNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &FulfillmentNotifier{
		txScope:     txScope,
		repos:       repos,
		storefronts: storefronts,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// NotifyResult counts the outcome of notifying a set of lines
type NotifyResult struct {
	Notified int
	Failed   int
}

// NotifyOrder notifies every item of the order. Line failures are recorded
// on the items, not returned.
func (n *FulfillmentNotifier) NotifyOrder(ctx context.Context, orderID uuid.UUID) (NotifyResult, error) {
	unlock := n.locks.Lock(orderID.String())
	defer unlock()

	order, err := n.repos.OrderRepo().FindByID(ctx, orderID)
	if err != nil {
		return NotifyResult{}, err
	}
	items, err := n.repos.OrderItemRepo().FindByOrder(ctx, orderID)
	if err != nil {
		return NotifyResult{}, err
	}

	var result NotifyResult
	for i := range items {
		if err := n.notify(ctx, order, &items[i]); err != nil {
			result.Failed++
			continue
		}
		result.Notified++
	}
	n.logger.Info("order notified",
		zap.String("order_id", orderID.String()),
		zap.Int("notified", result.Notified),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// Notify reports one item of a paid order to its storefront. On the first
// notification the listing inventory is lowered once and the remote
// fulfillment is created; every notification pushes status and tracking.
func (n *FulfillmentNotifier) Notify(ctx context.Context, item *shipping.OrderItem) error {
	unlock := n.locks.Lock(item.OrderID.String())
	defer unlock()

	order, err := n.repos.OrderRepo().FindByID(ctx, item.OrderID)
	if err != nil {
		return err
	}
	return n.notify(ctx, order, item)
}

// RetryPending re-notifies up to limit items whose last notification failed
func (n *FulfillmentNotifier) RetryPending(ctx context.Context, limit int) (NotifyResult, error) {
	items, err := n.repos.OrderItemRepo().FindPendingNotification(ctx, limit, n.maxAttempts)
	if err != nil {
		return NotifyResult{}, err
	}

	var result NotifyResult
	for i := range items {
		if ctx.Err() != nil {
			break
		}
		if err := n.Notify(ctx, &items[i]); err != nil {
			result.Failed++
			continue
		}
		result.Notified++
	}
	if len(items) > 0 {
		n.logger.Info("retried pending notifications",
			zap.Int("notified", result.Notified),
			zap.Int("failed", result.Failed),
		)
	}
	return result, nil
}

func (n *FulfillmentNotifier) notify(ctx context.Context, order *shipping.Order, item *shipping.OrderItem) error {
	if err := n.deductInventory(ctx, item); err != nil {
		return n.fail(ctx, item, fmt.Errorf("deduct inventory: %w", err))
	}

	storefront, err := n.storefronts.Get(order.StoreType)
	if err != nil {
		return n.fail(ctx, item, err)
	}

	if !item.IsFulfillmentCreated() {
		id, err := storefront.CreateFulfillment(ctx, integration.FulfillmentRequest{
			StoreID:       order.StoreID,
			OrderID:       order.ID.String(),
			LineID:        item.StoreLineID,
			SourceOrderID: item.SourceOrderID,
		})
		if err != nil {
			return n.fail(ctx, item, fmt.Errorf("create fulfillment: %w", err))
		}
		item.RemoteFulfillmentID = id
	}

	if err := storefront.UpdateFulfillment(ctx, order.StoreID, item.RemoteFulfillmentID, order.StorefrontStatus(), order.TrackingNumber); err != nil {
		return n.fail(ctx, item, fmt.Errorf("update fulfillment: %w", err))
	}

	item.MarkNotified()
	return n.repos.OrderItemRepo().Save(ctx, item)
}

// deductInventory lowers the listing counter at most once per item
func (n *FulfillmentNotifier) deductInventory(ctx context.Context, item *shipping.OrderItem) error {
	if item.InventoryDeducted || item.ListingID == nil {
		return nil
	}
	deducted := *item
	deducted.InventoryDeducted = true
	err := n.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		if err := repos.ListingRepo().DecrementInventory(ctx, *item.ListingID, item.Quantity); err != nil {
			return err
		}
		return repos.OrderItemRepo().Save(ctx, &deducted)
	})
	if err != nil {
		return err
	}
	item.InventoryDeducted = true
	return nil
}

// fail records the error on the item for retry and returns it
func (n *FulfillmentNotifier) fail(ctx context.Context, item *shipping.OrderItem, cause error) error {
	item.MarkNotifyFailed(cause)
	n.logger.Warn("storefront notification failed",
		zap.String("order_id", item.OrderID.String()),
		zap.String("order_data_id", item.OrderDataID),
		zap.Int("attempts", item.NotifyAttempts),
		zap.Error(cause),
	)
	if err := n.repos.OrderItemRepo().Save(ctx, item); err != nil {
		n.logger.Error("failed to record notification failure",
			zap.String("item_id", item.ID.String()),
			zap.Error(err),
		)
	}
	return cause
}
