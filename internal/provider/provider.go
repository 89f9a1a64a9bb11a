// Package provider defines the market-data clients the valuation pipeline
// fetches prices and exchange rates from.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"valora/internal/money"
)

// Quote is a raw market price as the vendor reports it. Currency is the
// vendor's code, which may name a minor unit (e.g. "GBp" for pence).
type Quote struct {
	Price     decimal.Decimal
	Currency  string
	Timestamp time.Time
	Exchange  string
}

// PriceProviderClient fetches the price of one ticker as of a date.
type PriceProviderClient interface {
	// Name returns the provider's display name (e.g. "Yahoo Finance").
	Name() string

	// GetPrice returns the latest quote dated on or before date.
	GetPrice(ctx context.Context, ticker string, date time.Time) (Quote, error)
}

// Rate is an exchange rate as reported by a vendor.
type Rate struct {
	Value     decimal.Decimal
	Timestamp time.Time
}

// RateProviderClient fetches base->target exchange rates.
type RateProviderClient interface {
	Name() string
	GetRate(ctx context.Context, base, target money.Currency, date time.Time) (Rate, error)
}

// FetchError represents a failed fetch for a specific ticker or pair.
type FetchError struct {
	Ticker string
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.Ticker, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error { return e.Err }
