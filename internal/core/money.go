package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a possibly signed amount already normalized to a dot
// decimal separator. Zero is accepted; the value is rounded half-up to cents.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d), nil
}

// MoneyFromDecimal converts a unit amount into cents.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Shift(2).Round(0).IntPart()}
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Abs returns the magnitude of m.
func (m Money) Abs() Money {
	return Money{Cents: abs(m.Cents)}
}

// Input renders the amount for an edit form ("1234.56").
func (m Money) Input() string {
	return m.Decimal().StringFixed(2)
}
