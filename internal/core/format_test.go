package core

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", ZeroCurrency},
		{"-0", ZeroCurrency},
		{"-0.00", ZeroCurrency},
		{"-0.001", ZeroCurrency},
		{"0.004", ZeroCurrency},
		{"1", "R$ 1,00"},
		{"12.5", "R$ 12,50"},
		{"999.99", "R$ 999,99"},
		{"1234.56", "R$ 1.234,56"},
		{"-1234.56", "-R$ 1.234,56"},
		{"1234567.891", "R$ 1.234.567,89"},
		{"100000", "R$ 100.000,00"},
		{"-0.005", "-R$ 0,01"},
	}
	for _, tc := range cases {
		got := FormatCurrency(decimal.RequireFromString(tc.in))
		if got != tc.want {
			t.Errorf("FormatCurrency(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatCurrencyNeverNegativeZero(t *testing.T) {
	negZero := decimal.NewFromFloat(-0.0)
	if got := FormatCurrency(negZero); got != ZeroCurrency {
		t.Fatalf("negative zero rendered as %q", got)
	}
	if got := FormatOptional(nil); got != ZeroCurrency {
		t.Fatalf("nil rendered as %q", got)
	}
	for c := int64(-10); c <= 10; c++ {
		s := FormatCents(c)
		if strings.HasPrefix(s, "-") && c == 0 {
			t.Fatalf("negative zero for %d", c)
		}
		// formatting its own output value again yields the same string
		if FormatCurrency(decimal.New(c, -2)) != s {
			t.Fatalf("formatting not stable for %d", c)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(decimal.RequireFromString("12.34")); got != "12,3%" {
		t.Fatalf("got %q", got)
	}
	if got := FormatPercent(decimal.RequireFromString("-0.01")); got != "0,0%" {
		t.Fatalf("got %q", got)
	}
}

func TestPeriodHelpers(t *testing.T) {
	d := time.Date(2025, 3, 17, 10, 0, 0, 0, time.UTC)
	if PeriodKey(d) != "2025-03" {
		t.Fatalf("got %s", PeriodKey(d))
	}
	start := MonthStart(d)
	if start.Day() != 1 || start.Hour() != 0 {
		t.Fatalf("bad month start %v", start)
	}
	if PeriodKey(AddMonths(start, -3)) != "2024-12" {
		t.Fatalf("got %s", PeriodKey(AddMonths(start, -3)))
	}
	if PeriodLabel("2025-03") != "Março/2025" {
		t.Fatalf("got %s", PeriodLabel("2025-03"))
	}
	if PeriodLabel("bogus") != "bogus" {
		t.Fatalf("unknown key should pass through")
	}
	if _, err := ParsePeriod("2025-13"); err == nil {
		t.Fatalf("expected error")
	}
}
