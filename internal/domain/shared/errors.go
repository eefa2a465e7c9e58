package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError carrying the same code, so a sentinel still
// matches after its message was specialised with Withf.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Withf returns a copy of the error with a formatted message and the same code
func (e *DomainError) Withf(format string, args ...any) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// Fulfillment errors. Validation errors are recoverable by the caller
// supplying corrected input; funds errors require user action; provider
// unavailability is retryable.
var (
	ErrAddressInvalid         = NewDomainError("ADDRESS_INVALID", "Address could not be verified")
	ErrMissingWeight          = NewDomainError("MISSING_WEIGHT", "Package weight is required")
	ErrMissingCustomsInfo     = NewDomainError("MISSING_CUSTOMS_INFO", "Cross-border items require weight and HS tariff")
	ErrQuoteExpiredOrMissing  = NewDomainError("QUOTE_EXPIRED_OR_MISSING", "Shipment quote is missing or expired, quote again")
	ErrNoRatesAvailable       = NewDomainError("NO_RATES_AVAILABLE", "No rates available for this shipment")
	ErrRateNotFound           = NewDomainError("RATE_NOT_FOUND", "Selected rate is not part of the current quote")
	ErrInsufficientFunds      = NewDomainError("INSUFFICIENT_FUNDS", "Insufficient balance, add credits to use this rate")
	ErrCarrierFundsExhausted  = NewDomainError("CARRIER_FUNDS_EXHAUSTED", "Carrier account has insufficient funds, top up at the carrier")
	ErrProviderUnavailable    = NewDomainError("PROVIDER_UNAVAILABLE", "External provider is unavailable, try again later")
	ErrNotConnectable         = NewDomainError("NOT_CONNECTABLE", "Order line cannot be matched to a product")
	ErrPaymentDeclined        = NewDomainError("PAYMENT_DECLINED", "Payment was not completed")
)
