// Package money holds the validated currency and quote-unit value types used
// across pricing, storage and the HTTP surface. Codes are parsed once at the
// boundary; the rest of the code base only ever sees known currencies.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"

	apperrors "valora/internal/errors"
)

// Currency is an ISO 4217 currency code known to go-money.
// The zero value means "no currency".
type Currency struct {
	code string
}

// ParseCurrency validates an ISO 4217 code (case-insensitive).
func ParseCurrency(code string) (Currency, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) != 3 || gomoney.GetCurrency(c) == nil {
		return Currency{}, apperrors.WithMessage(apperrors.ErrInvalidCurrency, fmt.Sprintf("Unknown currency code %q", code))
	}
	return Currency{code: c}, nil
}

// MustCurrency is ParseCurrency for constants and tests.
func MustCurrency(code string) Currency {
	c, err := ParseCurrency(code)
	if err != nil {
		panic(err)
	}
	return c
}

// Code returns the upper-case ISO code, or "" for the zero value.
func (c Currency) Code() string { return c.code }

func (c Currency) String() string { return c.code }

// IsZero reports whether the currency is unset.
func (c Currency) IsZero() bool { return c.code == "" }

// Fraction returns the number of minor-unit digits (2 for GBP, 0 for JPY).
func (c Currency) Fraction() int {
	if cur := gomoney.GetCurrency(c.code); cur != nil {
		return cur.Fraction
	}
	return 2
}

// Value implements driver.Valuer.
func (c Currency) Value() (driver.Value, error) {
	if c.code == "" {
		return nil, nil
	}
	return c.code, nil
}

// Scan implements sql.Scanner.
func (c *Currency) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*c = Currency{}
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("money: cannot scan %T into Currency", src)
	}
	if s == "" {
		*c = Currency{}
		return nil
	}
	parsed, err := ParseCurrency(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c Currency) MarshalJSON() ([]byte, error) { return json.Marshal(c.code) }

// UnmarshalJSON implements json.Unmarshaler.
func (c *Currency) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return c.Scan(s)
}

// MarshalYAML implements yaml.Marshaler.
func (c Currency) MarshalYAML() (any, error) { return c.code, nil }

// UnmarshalYAML decodes a scalar currency code.
func (c *Currency) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return c.Scan(s)
}
