package billing

import "context"

// ChargeResult is the outcome of an invoice-item charge
type ChargeResult struct {
	Paid      bool
	Reference string
}

// PaymentProcessor charges a customer's default payment method
type PaymentProcessor interface {
	ChargeInvoiceItem(ctx context.Context, customerID string, amountCents int64, description string) (*ChargeResult, error)
}
