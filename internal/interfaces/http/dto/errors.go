package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for request validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Caller error codes
const (
	// ErrCodeUnauthorized is used when the caller cannot be identified
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
)

// Fulfillment error codes
const (
	// ErrCodeAddressInvalid is used when an address fails verification
	ErrCodeAddressInvalid = "ERR_ADDRESS_INVALID"
	// ErrCodeMissingWeight is used when a package has no weight
	ErrCodeMissingWeight = "ERR_MISSING_WEIGHT"
	// ErrCodeMissingCustomsInfo is used when a cross-border item lacks customs data
	ErrCodeMissingCustomsInfo = "ERR_MISSING_CUSTOMS_INFO"
	// ErrCodeQuoteExpired is used when the stored quote is missing or stale
	ErrCodeQuoteExpired = "ERR_QUOTE_EXPIRED"
	// ErrCodeNoRatesAvailable is used when no pool returned a rate
	ErrCodeNoRatesAvailable = "ERR_NO_RATES_AVAILABLE"
	// ErrCodeRateNotFound is used when the chosen rate is not in the quote
	ErrCodeRateNotFound = "ERR_RATE_NOT_FOUND"
	// ErrCodeNotConnectable is used when a line cannot be matched to a product
	ErrCodeNotConnectable = "ERR_NOT_CONNECTABLE"
)

// Funds error codes
const (
	ErrCodeInsufficientFunds     = "ERR_INSUFFICIENT_FUNDS"
	ErrCodeCarrierFundsExhausted = "ERR_CARRIER_FUNDS_EXHAUSTED"
	ErrCodePaymentDeclined       = "ERR_PAYMENT_DECLINED"
)

// Upstream error codes
const (
	// ErrCodeProviderUnavailable is used when the shipping provider cannot be reached
	ErrCodeProviderUnavailable = "ERR_PROVIDER_UNAVAILABLE"
	// ErrCodeStorefrontUnavailable is used when a storefront API cannot be reached
	ErrCodeStorefrontUnavailable = "ERR_STOREFRONT_UNAVAILABLE"
	// ErrCodeStorefrontFailed is used when a storefront rejects a request
	ErrCodeStorefrontFailed = "ERR_STOREFRONT_FAILED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeRateLimited:  http.StatusTooManyRequests,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,

	// Fulfillment rule errors -> 422, stale quotes -> 409 so the caller re-quotes
	ErrCodeAddressInvalid:     http.StatusUnprocessableEntity,
	ErrCodeMissingWeight:      http.StatusUnprocessableEntity,
	ErrCodeMissingCustomsInfo: http.StatusUnprocessableEntity,
	ErrCodeNoRatesAvailable:   http.StatusUnprocessableEntity,
	ErrCodeNotConnectable:     http.StatusUnprocessableEntity,
	ErrCodeQuoteExpired:       http.StatusConflict,
	ErrCodeRateNotFound:       http.StatusConflict,

	// Funds errors -> 402 Payment Required
	ErrCodeInsufficientFunds:     http.StatusPaymentRequired,
	ErrCodeCarrierFundsExhausted: http.StatusPaymentRequired,
	ErrCodePaymentDeclined:       http.StatusPaymentRequired,

	ErrCodeProviderUnavailable:   http.StatusServiceUnavailable,
	ErrCodeStorefrontUnavailable: http.StatusServiceUnavailable,
	ErrCodeStorefrontFailed:      http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                ErrCodeNotFound,
	"ALREADY_EXISTS":           ErrCodeAlreadyExists,
	"INVALID_INPUT":            ErrCodeInvalidInput,
	"INVALID_STATE":            ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT":     ErrCodeConcurrencyConflict,
	"ADDRESS_INVALID":          ErrCodeAddressInvalid,
	"MISSING_WEIGHT":           ErrCodeMissingWeight,
	"MISSING_CUSTOMS_INFO":     ErrCodeMissingCustomsInfo,
	"QUOTE_EXPIRED_OR_MISSING": ErrCodeQuoteExpired,
	"NO_RATES_AVAILABLE":       ErrCodeNoRatesAvailable,
	"RATE_NOT_FOUND":           ErrCodeRateNotFound,
	"INSUFFICIENT_FUNDS":       ErrCodeInsufficientFunds,
	"CARRIER_FUNDS_EXHAUSTED":  ErrCodeCarrierFundsExhausted,
	"PROVIDER_UNAVAILABLE":     ErrCodeProviderUnavailable,
	"NOT_CONNECTABLE":          ErrCodeNotConnectable,
	"PAYMENT_DECLINED":         ErrCodePaymentDeclined,
}

// NormalizeErrorCode converts a domain error code to the API format.
// If the code is already in the API format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
