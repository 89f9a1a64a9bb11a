// Package errors provides the application error type shared by the valuation
// pipeline, its stores and the HTTP layer. Every error that can reach a caller
// carries a stable code so per-item failures and whole-run failures are reported
// the same way in logs, run history and API responses.
package errors

import (
	"errors"
	"net/http"
)

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError with the same code, so a wrapped
// copy still matches its sentinel.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// CodeOf returns the AppError code carried by err, or INTERNAL_ERROR for
// anything else.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternalServer.Code
}

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Pipeline access errors.
var (
	ErrInvalidAPIKey         = &AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
	ErrPipelineNotConfigured = &AppError{Code: "PIPELINE_NOT_CONFIGURED", Message: "Pipeline endpoints are not configured", StatusCode: http.StatusServiceUnavailable}
)

// Currency and quote errors.
var (
	ErrInvalidCurrency  = &AppError{Code: "INVALID_CURRENCY", Message: "Unknown currency code", StatusCode: http.StatusBadRequest}
	ErrInvalidQuoteUnit = &AppError{Code: "INVALID_QUOTE_UNIT", Message: "Unknown quote unit", StatusCode: http.StatusBadRequest}
	ErrInvalidQuote     = &AppError{Code: "INVALID_QUOTE", Message: "Quote is not usable", StatusCode: http.StatusBadGateway}
)

// Lookup errors.
var (
	ErrInstrumentNotFound = &AppError{Code: "INSTRUMENT_NOT_FOUND", Message: "Instrument not found", StatusCode: http.StatusNotFound}
	ErrPriceNotFound      = &AppError{Code: "PRICE_NOT_FOUND", Message: "No price for instrument on valuation date", StatusCode: http.StatusNotFound}
	ErrRateNotFound       = &AppError{Code: "RATE_NOT_FOUND", Message: "Exchange rate not found", StatusCode: http.StatusNotFound}
)

// Pipeline errors.
var (
	ErrPriceFetchFailed   = &AppError{Code: "PRICE_FETCH_FAILED", Message: "Failed to fetch price", StatusCode: http.StatusBadGateway}
	ErrRateFetchFailed    = &AppError{Code: "RATE_FETCH_FAILED", Message: "Failed to fetch exchange rate", StatusCode: http.StatusBadGateway}
	ErrNoRateAvailable    = &AppError{Code: "NO_RATE_AVAILABLE", Message: "No exchange rate available on or before valuation date", StatusCode: http.StatusUnprocessableEntity}
	ErrNoSourceSnapshot   = &AppError{Code: "NO_SOURCE_SNAPSHOT", Message: "No earlier holdings snapshot to revalue from", StatusCode: http.StatusConflict}
	ErrPersistenceFailure = &AppError{Code: "PERSISTENCE_FAILURE", Message: "Failed to persist valuation data", StatusCode: http.StatusInternalServerError}
	ErrCancelled          = &AppError{Code: "CANCELLED", Message: "Run was cancelled", StatusCode: http.StatusServiceUnavailable}
)
