// Package payment charges merchants for shipping credit purchases through
// Stripe.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/invoice"
	"github.com/stripe/stripe-go/v81/invoiceitem"
	"go.uber.org/zap"

	"github.com/shipflow/backend/internal/domain/billing"
	"github.com/shipflow/backend/internal/domain/shared"
)

// StripeConfig holds the Stripe settings for credit purchases
type StripeConfig struct {
	// SecretKey is the Stripe secret API key (sk_test_xxx or sk_live_xxx)
	SecretKey string
	// Currency of the invoice items, e.g. "usd"
	Currency string
	// Timeout bounds each Stripe API request
	Timeout time.Duration
}

// Validate validates the Stripe configuration
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe: secret key is required")
	}
	if !strings.HasPrefix(c.SecretKey, "sk_") && !strings.HasPrefix(c.SecretKey, "rk_") {
		return fmt.Errorf("stripe: secret key must be a secret or restricted key")
	}
	if c.Currency == "" {
		return fmt.Errorf("stripe: currency is required")
	}
	return nil
}

// StripeProcessor implements billing.PaymentProcessor. A charge is an
// invoice item billed on its own invoice, paid immediately with the
// customer's default payment method.
type StripeProcessor struct {
	config StripeConfig
	logger *zap.Logger
}

// NewStripeProcessor configures the Stripe client and creates the processor
func NewStripeProcessor(config StripeConfig, logger *zap.Logger) (*StripeProcessor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	stripe.Key = config.SecretKey
	if config.Timeout > 0 {
		stripe.SetHTTPClient(&http.Client{Timeout: config.Timeout})
	}

	return &StripeProcessor{config: config, logger: logger}, nil
}

// ChargeInvoiceItem bills amountCents to customerID. A card decline is a
// result with Paid false, not an error.
func (p *StripeProcessor) ChargeInvoiceItem(ctx context.Context, customerID string, amountCents int64, description string) (*billing.ChargeResult, error) {
	if amountCents <= 0 {
		return nil, shared.ErrInvalidInput.Withf("charge amount must be positive")
	}

	itemParams := &stripe.InvoiceItemParams{
		Customer:    stripe.String(customerID),
		Amount:      stripe.Int64(amountCents),
		Currency:    stripe.String(p.config.Currency),
		Description: stripe.String(description),
	}
	itemParams.Context = ctx
	item, err := invoiceitem.New(itemParams)
	if err != nil {
		return nil, p.mapError("create invoice item", customerID, err)
	}

	invoiceParams := &stripe.InvoiceParams{
		Customer:                    stripe.String(customerID),
		AutoAdvance:                 stripe.Bool(false),
		PendingInvoiceItemsBehavior: stripe.String("include"),
		Description:                 stripe.String(description),
	}
	invoiceParams.Context = ctx
	inv, err := invoice.New(invoiceParams)
	if err != nil {
		return nil, p.mapError("create invoice", customerID, err)
	}

	payParams := &stripe.InvoicePayParams{}
	payParams.Context = ctx
	paid, err := invoice.Pay(inv.ID, payParams)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			p.logger.Warn("stripe charge declined",
				zap.String("customer_id", customerID),
				zap.String("invoice_id", inv.ID),
				zap.String("decline_code", string(stripeErr.DeclineCode)),
			)
			return &billing.ChargeResult{Paid: false, Reference: inv.ID}, nil
		}
		return nil, p.mapError("pay invoice", customerID, err)
	}

	p.logger.Info("stripe charge completed",
		zap.String("customer_id", customerID),
		zap.String("invoice_item_id", item.ID),
		zap.String("invoice_id", paid.ID),
		zap.Int64("amount_cents", amountCents),
		zap.String("status", string(paid.Status)),
	)
	return &billing.ChargeResult{
		Paid:      paid.Status == stripe.InvoiceStatusPaid,
		Reference: paid.ID,
	}, nil
}

// mapError turns a Stripe failure into a domain error
func (p *StripeProcessor) mapError(op, customerID string, err error) error {
	p.logger.Error("stripe request failed",
		zap.String("operation", op),
		zap.String("customer_id", customerID),
		zap.Error(err),
	)

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.Type {
		case stripe.ErrorTypeCard:
			return shared.ErrPaymentDeclined.Withf("stripe: %s", stripeErr.Msg)
		case stripe.ErrorTypeInvalidRequest:
			return shared.ErrInvalidInput.Withf("stripe: %s: %s", op, stripeErr.Msg)
		}
	}
	return fmt.Errorf("%w: stripe: failed to %s: %v", shared.ErrProviderUnavailable, op, err)
}

var _ billing.PaymentProcessor = (*StripeProcessor)(nil)
