// Package pricing converts raw market quotes into valuation-currency unit
// prices and holding values.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "valora/internal/errors"
	"valora/internal/models"
	"valora/internal/money"
)

// RateLookup returns the latest rate for base->target dated on or before date.
// Implementations return an error matching apperrors.ErrRateNotFound when no
// such rate exists.
type RateLookup interface {
	GetLatestOnOrBefore(ctx context.Context, base, target money.Currency, date time.Time) (*models.ExchangeRate, error)
}

// Input is one quote to convert.
type Input struct {
	RawPrice          decimal.Decimal
	PriceCurrency     money.Currency
	QuoteUnit         money.QuoteUnit
	ValuationCurrency money.Currency
	Units             decimal.Decimal
	AsOf              time.Time
}

// Result carries the unit price (at least UnitPriceScale digits) and the
// unrounded current value. Callers round with money.RoundValue when persisting.
type Result struct {
	UnitPrice    decimal.Decimal
	CurrentValue decimal.Decimal
	Rate         decimal.Decimal
	RateDate     time.Time
}

// Calculator prices holdings against an exchange-rate source.
type Calculator struct {
	rates RateLookup
}

// NewCalculator creates a Calculator.
func NewCalculator(rates RateLookup) *Calculator {
	return &Calculator{rates: rates}
}

// Price applies the quote-unit divisor, converts into the valuation currency
// with the latest rate on or before AsOf, and multiplies by the unit amount.
func (c *Calculator) Price(ctx context.Context, in Input) (Result, error) {
	if in.PriceCurrency.IsZero() || in.ValuationCurrency.IsZero() {
		return Result{}, apperrors.WithMessage(apperrors.ErrInvalidCurrency, "Price and valuation currency are required")
	}

	major := in.RawPrice.DivRound(in.QuoteUnit.Divisor(), money.UnitPriceScale+4)

	rate := decimal.NewFromInt(1)
	var rateDate time.Time
	if in.PriceCurrency != in.ValuationCurrency {
		r, err := c.rates.GetLatestOnOrBefore(ctx, in.PriceCurrency, in.ValuationCurrency, models.Day(in.AsOf))
		if err != nil {
			if errors.Is(err, apperrors.ErrRateNotFound) {
				return Result{}, apperrors.WithMessage(apperrors.ErrNoRateAvailable,
					fmt.Sprintf("No %s/%s rate on or before %s", in.PriceCurrency, in.ValuationCurrency, in.AsOf.Format(models.DateLayout)))
			}
			return Result{}, err
		}
		rate = r.Rate
		rateDate = r.RateDate
	}

	unitPrice := major.Mul(rate)
	if unitPrice.Exponent() < -money.UnitPriceScale-4 {
		unitPrice = unitPrice.Round(money.UnitPriceScale + 4)
	}

	return Result{
		UnitPrice:    unitPrice,
		CurrentValue: in.Units.Mul(unitPrice),
		Rate:         rate,
		RateDate:     rateDate,
	}, nil
}
