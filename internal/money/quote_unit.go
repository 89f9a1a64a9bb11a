package money

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "valora/internal/errors"
)

// QuoteUnit is the denomination a raw market price is quoted in. A minor unit
// (pence, cents, agorot) carries a divisor that brings the price back to its
// major currency. The zero value is "major units", divisor 1.
type QuoteUnit struct {
	code    string
	major   string
	divisor int64
}

type minorUnit struct {
	major   string
	divisor int64
}

// minorUnits maps the codes market-data vendors use for minor-unit quotes.
// Keys are matched case-sensitively first so "GBp" (pence) never collides with
// "GBP" (pounds).
var minorUnits = map[string]minorUnit{
	"GBX": {major: "GBP", divisor: 100},
	"GBp": {major: "GBP", divisor: 100},
	"ZAC": {major: "ZAR", divisor: 100},
	"ZAc": {major: "ZAR", divisor: 100},
	"ILA": {major: "ILS", divisor: 100},
	"ILa": {major: "ILS", divisor: 100},
	"USX": {major: "USD", divisor: 100},
	"USc": {major: "USD", divisor: 100},
}

// canonicalMinor normalises vendor spellings to one stored code.
var canonicalMinor = map[string]string{
	"GBp": "GBX",
	"ZAc": "ZAC",
	"ILa": "ILA",
	"USc": "USX",
}

// ParseQuoteUnit accepts "", "MAJOR", any ISO currency code (major units) or a
// known minor-unit code.
func ParseQuoteUnit(code string) (QuoteUnit, error) {
	c := strings.TrimSpace(code)
	if c == "" || strings.EqualFold(c, "MAJOR") {
		return QuoteUnit{}, nil
	}
	if m, ok := minorUnits[c]; ok {
		return newMinor(c, m), nil
	}
	if m, ok := minorUnits[strings.ToUpper(c)]; ok && !isCurrencyCode(strings.ToUpper(c)) {
		return newMinor(strings.ToUpper(c), m), nil
	}
	if cur, err := ParseCurrency(c); err == nil {
		return QuoteUnit{code: cur.Code(), major: cur.Code(), divisor: 1}, nil
	}
	return QuoteUnit{}, apperrors.WithMessage(apperrors.ErrInvalidQuoteUnit, fmt.Sprintf("Unknown quote unit %q", code))
}

func newMinor(code string, m minorUnit) QuoteUnit {
	if canon, ok := canonicalMinor[code]; ok {
		code = canon
	}
	return QuoteUnit{code: code, major: m.major, divisor: m.divisor}
}

func isCurrencyCode(code string) bool {
	_, err := ParseCurrency(code)
	return err == nil
}

// MustQuoteUnit is ParseQuoteUnit for constants and tests.
func MustQuoteUnit(code string) QuoteUnit {
	q, err := ParseQuoteUnit(code)
	if err != nil {
		panic(err)
	}
	return q
}

// ParseQuotedCurrency splits a vendor currency field into the major currency and
// the quote unit it implies, e.g. "GBp" -> (GBP, GBX) and "USD" -> (USD, major).
func ParseQuotedCurrency(code string) (Currency, QuoteUnit, error) {
	c := strings.TrimSpace(code)
	if m, ok := minorUnits[c]; ok {
		return Currency{code: m.major}, newMinor(c, m), nil
	}
	cur, err := ParseCurrency(c)
	if err != nil {
		return Currency{}, QuoteUnit{}, err
	}
	return cur, QuoteUnit{}, nil
}

// Code returns the stored code; "" for major units.
func (q QuoteUnit) Code() string { return q.code }

func (q QuoteUnit) String() string {
	if q.code == "" {
		return "MAJOR"
	}
	return q.code
}

// IsMinor reports whether prices in this unit must be divided.
func (q QuoteUnit) IsMinor() bool { return q.divisor > 1 }

// Major returns the currency this unit denominates, zero for an unset unit.
func (q QuoteUnit) Major() Currency { return Currency{code: q.major} }

// Divisor returns the factor converting a quote in this unit to major units.
func (q QuoteUnit) Divisor() decimal.Decimal {
	if q.divisor <= 1 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(q.divisor)
}

// Value implements driver.Valuer.
func (q QuoteUnit) Value() (driver.Value, error) {
	if q.code == "" {
		return nil, nil
	}
	return q.code, nil
}

// Scan implements sql.Scanner.
func (q *QuoteUnit) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*q = QuoteUnit{}
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("money: cannot scan %T into QuoteUnit", src)
	}
	parsed, err := ParseQuoteUnit(s)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (q QuoteUnit) MarshalJSON() ([]byte, error) { return json.Marshal(q.code) }

// UnmarshalJSON implements json.Unmarshaler.
func (q *QuoteUnit) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return q.Scan(s)
}

// UnmarshalYAML decodes a scalar quote unit.
func (q *QuoteUnit) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return q.Scan(s)
}
