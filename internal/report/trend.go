package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// Direction is the movement of a category against its own mean.
type Direction string

const (
	Rising  Direction = "Subindo"
	Falling Direction = "Caindo"
	Steady  Direction = "Estável"
)

// Volatility grades how far monthly totals swing around the mean.
type Volatility string

const (
	Volatile Volatility = "Volátil"
	Moderate Volatility = "Moderada"
	Stable   Volatility = "Estável"
)

const (
	DefaultTrendMonths = 6
	topCategories      = 5
	historyMonths      = 6
	growthListSize     = 3
)

var (
	recentWeight    = decimal.RequireFromString("0.7")
	wholeWeight     = decimal.RequireFromString("0.3")
	seasonalShare   = decimal.RequireFromString("0.3")
	risingFactor    = decimal.RequireFromString("1.1")
	fallingFactor   = decimal.RequireFromString("0.9")
	volatileLimit   = decimal.NewFromInt(50)
	moderateLimit   = decimal.NewFromInt(30)
	growthThreshold = decimal.NewFromInt(5)
	hundred         = decimal.NewFromInt(100)
)

// MonthTotal is the expense total of one "MM/YYYY" period.
type MonthTotal struct {
	Period string
	Total  decimal.Decimal
}

// Seasonality compares the most and least expensive months of the window.
type Seasonality struct {
	High           MonthTotal
	Low            MonthTotal
	Spread         decimal.Decimal
	ReserveAdvised bool
	Recommendation string
}

// CategoryTrend is the weighted trend of one of the top expense categories.
type CategoryTrend struct {
	Category   string
	Total      decimal.Decimal
	Mean       decimal.Decimal
	Direction  Direction
	Variation  decimal.Decimal
	Volatility Volatility
}

// Growth compares a category's current month with its recent average.
type Growth struct {
	Category   string
	Current    decimal.Decimal
	Historical decimal.Decimal
	Percent    decimal.Decimal
}

// TrendReport summarizes settled expenses over a window of calendar months
// ending at the month of Now.
type TrendReport struct {
	Now        time.Time
	Months     int
	Monthly    []MonthTotal
	WholeMean  decimal.Decimal
	RecentMean decimal.Decimal
	Forecast   decimal.Decimal
	Season     Seasonality
	Categories []CategoryTrend
	Risers     []Growth
	Decliners  []Growth
}

// Empty reports that no expense fell inside the window.
func (t TrendReport) Empty() bool {
	return len(t.Monthly) == 0
}

// Top returns the largest categories by total, at most five.
func (t TrendReport) Top() []CategoryTrend {
	if len(t.Categories) > topCategories {
		return t.Categories[:topCategories]
	}
	return t.Categories
}

// HistoryStart is the first day of the oldest month Trend reads for the
// given window, so callers can load enough rows.
func HistoryStart(now time.Time, months int) time.Time {
	cur := core.MonthStart(now)
	back := months - 1
	if historyMonths > back {
		back = historyMonths
	}
	return core.AddMonths(cur, -back)
}

// Trend analyzes settled expense movements. It is deterministic for a given
// row set and now. Rows are expected in chronological order.
func Trend(rows []core.MovementView, now time.Time, months int) TrendReport {
	if months < 1 {
		months = DefaultTrendMonths
	}
	cur := core.MonthStart(now)
	windowStart := core.AddMonths(cur, -(months - 1))
	windowEnd := core.AddMonths(cur, 1)

	expenses := settledExpenses(rows)

	monthly := make(map[string]decimal.Decimal)
	perCategory := make(map[string][]decimal.Decimal)
	var order []string
	for _, m := range expenses {
		if m.Date.Before(windowStart) || !m.Date.Before(windowEnd) {
			continue
		}
		v := m.Amount.Decimal().Abs()
		monthly[core.PeriodKey(m.Date.Time)] = monthly[core.PeriodKey(m.Date.Time)].Add(v)
		if _, seen := perCategory[m.CategoryName]; !seen {
			order = append(order, m.CategoryName)
		}
		perCategory[m.CategoryName] = append(perCategory[m.CategoryName], v)
	}

	t := TrendReport{Now: now, Months: months}
	for p, v := range monthly {
		t.Monthly = append(t.Monthly, MonthTotal{Period: p, Total: v})
	}
	sort.Slice(t.Monthly, func(i, j int) bool { return t.Monthly[i].Period < t.Monthly[j].Period })
	if t.Empty() {
		return t
	}

	t.WholeMean, t.RecentMean, t.Forecast = forecast(t.Monthly, cur)
	t.Season = seasonality(t.Monthly, t.WholeMean)

	for _, name := range order {
		values := perCategory[name]
		variation, vol := ClassifyVolatility(values)
		t.Categories = append(t.Categories, CategoryTrend{
			Category:   name,
			Total:      decimal.Sum(decimal.Zero, values...),
			Mean:       mean(values),
			Direction:  ClassifyDirection(values),
			Variation:  variation,
			Volatility: vol,
		})
	}
	sort.SliceStable(t.Categories, func(i, j int) bool {
		return t.Categories[i].Total.GreaterThan(t.Categories[j].Total)
	})

	t.Risers, t.Decliners = growth(expenses, cur)
	return t
}

func settledExpenses(rows []core.MovementView) []core.MovementView {
	out := make([]core.MovementView, 0, len(rows))
	for _, m := range rows {
		if m.Status == core.Settled && m.CategoryType == core.Expense {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// forecast blends 70% of the trailing three calendar months' mean with 30%
// of the whole-period mean. Only months present in monthly count.
func forecast(monthly []MonthTotal, cur time.Time) (whole, recent, next decimal.Decimal) {
	all := make([]decimal.Decimal, len(monthly))
	var trailing []decimal.Decimal
	first := core.PeriodKey(core.AddMonths(cur, -2))
	last := core.PeriodKey(cur)
	for i, m := range monthly {
		all[i] = m.Total
		if m.Period >= first && m.Period <= last {
			trailing = append(trailing, m.Total)
		}
	}
	whole = mean(all)
	recent = whole
	if len(trailing) > 0 {
		recent = mean(trailing)
	}
	next = recentWeight.Mul(recent).Add(wholeWeight.Mul(whole))
	return whole, recent, next
}

func seasonality(monthly []MonthTotal, whole decimal.Decimal) Seasonality {
	s := Seasonality{High: monthly[0], Low: monthly[0]}
	for _, m := range monthly[1:] {
		if m.Total.GreaterThan(s.High.Total) {
			s.High = m
		}
		if m.Total.LessThan(s.Low.Total) {
			s.Low = m
		}
	}
	s.Spread = s.High.Total.Sub(s.Low.Total)
	if whole.IsPositive() && s.Spread.GreaterThan(whole.Mul(seasonalShare)) {
		s.ReserveAdvised = true
		s.Recommendation = fmt.Sprintf(
			"Monte uma reserva: %s é o mês de maior gasto, %s acima de %s.",
			core.PeriodLabel(s.High.Period),
			core.FormatCurrency(s.Spread),
			core.PeriodLabel(s.Low.Period),
		)
	}
	return s
}

// ClassifyDirection compares the mean of the second half of values with the
// first half, split by count.
func ClassifyDirection(values []decimal.Decimal) Direction {
	if len(values) < 2 {
		return Steady
	}
	half := len(values) / 2
	first, second := mean(values[:half]), mean(values[half:])
	switch {
	case second.GreaterThan(first.Mul(risingFactor)):
		return Rising
	case second.LessThan(first.Mul(fallingFactor)):
		return Falling
	default:
		return Steady
	}
}

// ClassifyVolatility returns (max-min)/mean*100 and its class.
func ClassifyVolatility(values []decimal.Decimal) (decimal.Decimal, Volatility) {
	m := mean(values)
	if len(values) == 0 || !m.IsPositive() {
		return decimal.Zero, Stable
	}
	lo, hi := decimal.Min(values[0], values[1:]...), decimal.Max(values[0], values[1:]...)
	variation := hi.Sub(lo).Div(m).Mul(hundred)
	switch {
	case variation.GreaterThan(volatileLimit):
		return variation, Volatile
	case variation.GreaterThan(moderateLimit):
		return variation, Moderate
	default:
		return variation, Stable
	}
}

// growth compares each category's current-month total with its mean over
// the previous six months that had any expense.
func growth(expenses []core.MovementView, cur time.Time) (risers, decliners []Growth) {
	histStart := core.AddMonths(cur, -historyMonths)
	curKey := core.PeriodKey(cur)

	current := make(map[string]decimal.Decimal)
	history := make(map[string]decimal.Decimal)
	activeMonths := make(map[string]struct{})
	var names []string
	seen := make(map[string]bool)

	for _, m := range expenses {
		if m.Date.Before(histStart) {
			continue
		}
		key := core.PeriodKey(m.Date.Time)
		if key > curKey {
			continue
		}
		v := m.Amount.Decimal().Abs()
		if key == curKey {
			current[m.CategoryName] = current[m.CategoryName].Add(v)
		} else {
			history[m.CategoryName] = history[m.CategoryName].Add(v)
			activeMonths[key] = struct{}{}
		}
		if !seen[m.CategoryName] {
			seen[m.CategoryName] = true
			names = append(names, m.CategoryName)
		}
	}

	n := decimal.NewFromInt(int64(len(activeMonths)))
	for _, name := range names {
		g := Growth{Category: name, Current: current[name]}
		if len(activeMonths) > 0 {
			g.Historical = history[name].Div(n)
		}
		switch {
		case g.Historical.IsPositive():
			g.Percent = g.Current.Sub(g.Historical).Div(g.Historical).Mul(hundred)
		case g.Current.IsPositive():
			g.Percent = hundred
		default:
			continue
		}
		if g.Percent.GreaterThan(growthThreshold) {
			risers = append(risers, g)
		} else if g.Percent.LessThan(growthThreshold.Neg()) {
			decliners = append(decliners, g)
		}
	}

	sort.SliceStable(risers, func(i, j int) bool { return risers[i].Percent.GreaterThan(risers[j].Percent) })
	sort.SliceStable(decliners, func(i, j int) bool { return decliners[i].Percent.LessThan(decliners[j].Percent) })
	if len(risers) > growthListSize {
		risers = risers[:growthListSize]
	}
	if len(decliners) > growthListSize {
		decliners = decliners[:growthListSize]
	}
	return risers, decliners
}
