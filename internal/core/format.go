package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ZeroCurrency is the single rendering of a zero amount.
const ZeroCurrency = "R$ 0,00"

// FormatCurrency renders d as "R$ 1.234,56". Values that round to zero,
// including negative zero, always render as ZeroCurrency.
func FormatCurrency(d decimal.Decimal) string {
	r := d.Round(2)
	if r.IsZero() {
		return ZeroCurrency
	}
	neg := r.IsNegative()
	fixed := r.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("R$ ")
	b.WriteString(groupThousands(intPart))
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

// FormatOptional treats a nil value as zero.
func FormatOptional(d *decimal.Decimal) string {
	if d == nil {
		return ZeroCurrency
	}
	return FormatCurrency(*d)
}

// FormatCents formats an amount held in cents.
func FormatCents(cents int64) string {
	return FormatCurrency(decimal.New(cents, -2))
}

// String satisfies fmt.Stringer for templates.
func (m Money) String() string {
	return FormatCents(m.Cents)
}

// FormatPercent renders a percentage with one decimal and a comma separator.
func FormatPercent(d decimal.Decimal) string {
	r := d.Round(1)
	if r.IsZero() {
		return "0,0%"
	}
	return strings.Replace(r.StringFixed(1), ".", ",", 1) + "%"
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
