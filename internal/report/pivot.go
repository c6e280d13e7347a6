// Package report computes the calendar-month pivots, balance snapshots,
// trend statistics and investment positions shown on the report pages.
// Everything here is pure computation over rows already loaded from storage.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// LineKind tells detail rows apart from subtotal and result rows.
type LineKind string

const (
	Detail   LineKind = "detail"
	Subtotal LineKind = "subtotal"
	Result   LineKind = "result"
)

// Line is one pivot row: a label, one value per shared column and the
// average over those columns.
type Line struct {
	Group   string
	Label   string
	Kind    LineKind
	Values  []decimal.Decimal
	Average decimal.Decimal
}

// Pivot is an ordered set of lines over the report's shared columns.
type Pivot struct {
	Title string
	Lines []Line
}

// cells groups values by (row dimension, period).
type cells map[string]map[string]decimal.Decimal

func (c cells) add(row, period string, v decimal.Decimal) {
	byPeriod, ok := c[row]
	if !ok {
		byPeriod = make(map[string]decimal.Decimal)
		c[row] = byPeriod
	}
	byPeriod[period] = byPeriod[period].Add(v)
}

// sortedRows returns the row keys in name order.
func (c cells) sortedRows() []string {
	rows := make([]string, 0, len(c))
	for r := range c {
		rows = append(rows, r)
	}
	sort.Strings(rows)
	return rows
}

// line materializes one row over columns, zero-filling absent periods and
// ignoring periods outside columns.
func (c cells) line(group, row string, kind LineKind, columns []string) Line {
	values := make([]decimal.Decimal, len(columns))
	for i, col := range columns {
		values[i] = c[row][col]
	}
	return newLine(group, row, kind, values)
}

func newLine(group, label string, kind LineKind, values []decimal.Decimal) Line {
	return Line{Group: group, Label: label, Kind: kind, Values: values, Average: mean(values)}
}

// sumLines adds lines column-wise.
func sumLines(group, label string, kind LineKind, width int, lines ...Line) Line {
	values := make([]decimal.Decimal, width)
	for _, l := range lines {
		for i := range values {
			values[i] = values[i].Add(l.Values[i])
		}
	}
	return newLine(group, label, kind, values)
}

func mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(decimal.Zero, values...).Div(decimal.NewFromInt(int64(len(values))))
}

// FormattedLine is a Line with every amount rendered as currency text.
type FormattedLine struct {
	Group   string
	Label   string
	Kind    LineKind
	Average string
	Values  []string
}

type FormattedPivot struct {
	Title string
	Lines []FormattedLine
}

// Format renders every value through core.FormatCurrency.
func (p Pivot) Format() FormattedPivot {
	out := FormattedPivot{Title: p.Title, Lines: make([]FormattedLine, len(p.Lines))}
	for i, l := range p.Lines {
		fl := FormattedLine{
			Group:   l.Group,
			Label:   l.Label,
			Kind:    l.Kind,
			Average: core.FormatCurrency(l.Average),
			Values:  make([]string, len(l.Values)),
		}
		for j, v := range l.Values {
			fl.Values[j] = core.FormatCurrency(v)
		}
		out.Lines[i] = fl
	}
	return out
}
