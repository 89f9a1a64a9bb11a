package money

import (
	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const (
	// UnitPriceScale is the minimum number of fractional digits kept on
	// intermediate unit prices.
	UnitPriceScale int32 = 8

	// ValueScale is the number of fractional digits of persisted values.
	ValueScale int32 = 2
)

// RoundValue rounds a monetary value for persistence or reporting.
func RoundValue(v decimal.Decimal) decimal.Decimal {
	return v.Round(ValueScale)
}

// Format renders an amount in the currency's conventional format, e.g.
// "£1,050.00". Amounts are rounded to the currency's minor unit first.
func Format(amount decimal.Decimal, c Currency) string {
	if c.IsZero() {
		return amount.StringFixed(ValueScale)
	}
	fraction := int32(c.Fraction())
	minor := amount.Shift(fraction).Round(0).IntPart()
	return gomoney.New(minor, c.Code()).Display()
}
