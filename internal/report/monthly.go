package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

const (
	ResultLabel = "Resultado"
	TotalLabel  = "Total"
)

// Filter selects the movements a report covers. End is inclusive. A zero
// Start or End leaves that side open; Sharing "All" or empty keeps every split.
type Filter struct {
	Start   time.Time
	End     time.Time
	Sharing core.Sharing
}

func (f Filter) inRange(d core.Date) bool {
	if d.IsZero() {
		return false
	}
	if !f.Start.IsZero() && d.Before(dayStart(f.Start)) {
		return false
	}
	if !f.End.IsZero() && d.After(dayStart(f.End)) {
		return false
	}
	return true
}

func (f Filter) sharingMatches(s core.Sharing) bool {
	return f.Sharing == "" || f.Sharing == core.SharingAll || f.Sharing == s
}

func dayStart(t time.Time) time.Time {
	return core.DateOf(t).Time
}

// MonthlyReport holds the cash-flow, account balance and card pivots. All
// three share Columns, the sorted periods with cash-flow activity.
type MonthlyReport struct {
	Filter   Filter
	Columns  []string
	CashFlow Pivot
	Balances Pivot
	Cards    Pivot
}

// Empty reports the "no data" state: nothing matched the filter.
func (r MonthlyReport) Empty() bool {
	return len(r.Columns) == 0
}

// ColumnLabels renders the shared columns for headers.
func (r MonthlyReport) ColumnLabels() []string {
	out := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		out[i] = core.PeriodLabel(c)
	}
	return out
}

// Monthly builds the three pivots for rows matching f. Cash-flow uses the
// movement date; balances and cards use the settlement date and skip rows
// without one.
func Monthly(rows []core.MovementView, f Filter) MonthlyReport {
	flow := make(map[core.CategoryType]cells)
	balances := make(cells)
	cards := make(cells)
	periods := make(map[string]struct{})

	for _, m := range rows {
		if !f.sharingMatches(m.Sharing) {
			continue
		}
		amount := m.Amount.Decimal()

		if f.inRange(m.Date) {
			p := core.PeriodKey(m.Date.Time)
			periods[p] = struct{}{}
			typ := m.CategoryType
			if flow[typ] == nil {
				flow[typ] = make(cells)
			}
			flow[typ].add(m.CategoryName, p, amount)
		}

		if !f.inRange(m.SettlementDate) {
			continue
		}
		p := core.PeriodKey(m.SettlementDate.Time)
		if m.CardID == 0 && m.Status == core.Settled {
			balances.add(m.AccountName, p, amount)
		}
		if m.CardID != 0 {
			cards.add(m.CardName, p, amount.Abs())
		}
	}

	columns := make([]string, 0, len(periods))
	for p := range periods {
		columns = append(columns, p)
	}
	sort.Strings(columns)

	report := MonthlyReport{Filter: f, Columns: columns}
	if report.Empty() {
		return report
	}
	report.CashFlow = cashFlowPivot(flow, columns)
	report.Balances = dimensionPivot("Saldo por conta", balances, columns)
	report.Cards = dimensionPivot("Gastos por cartão", cards, columns)
	return report
}

func cashFlowPivot(flow map[core.CategoryType]cells, columns []string) Pivot {
	p := Pivot{Title: "Fluxo de caixa"}
	var subtotals []Line
	for _, typ := range core.CategoryTypes {
		c := flow[typ]
		if len(c) == 0 {
			continue
		}
		group := string(typ)
		var details []Line
		for _, cat := range c.sortedRows() {
			details = append(details, c.line(group, cat, Detail, columns))
		}
		sub := sumLines(group, TotalLabel+" "+group, Subtotal, len(columns), details...)
		p.Lines = append(p.Lines, details...)
		p.Lines = append(p.Lines, sub)
		subtotals = append(subtotals, sub)
	}
	p.Lines = append(p.Lines, sumLines("", ResultLabel, Result, len(columns), subtotals...))
	return p
}

func dimensionPivot(title string, c cells, columns []string) Pivot {
	p := Pivot{Title: title}
	for _, row := range c.sortedRows() {
		p.Lines = append(p.Lines, c.line("", row, Detail, columns))
	}
	if len(p.Lines) > 0 {
		p.Lines = append(p.Lines, sumLines("", TotalLabel, Result, len(columns), p.Lines...))
	}
	return p
}

// Find returns the first line with the given label.
func (p Pivot) Find(label string) (Line, bool) {
	for _, l := range p.Lines {
		if l.Label == label {
			return l, true
		}
	}
	return Line{}, false
}

// Balance is one account's settled balance at a snapshot date.
type Balance struct {
	AccountID int64
	Account   string
	Amount    decimal.Decimal
}

// Snapshot is the point-in-time balance of every account.
type Snapshot struct {
	Date     time.Time
	Balances []Balance
	Total    decimal.Decimal
}

// SnapshotAt sums settled, non-card movements settled on or before date,
// per account. Every account is listed, sorted by name, zero when unused.
func SnapshotAt(rows []core.MovementView, accounts []core.Account, date time.Time) Snapshot {
	limit := dayStart(date)
	sums := make(map[int64]decimal.Decimal, len(accounts))
	for _, m := range rows {
		if m.Status != core.Settled || m.CardID != 0 || m.SettlementDate.IsZero() {
			continue
		}
		if m.SettlementDate.After(limit) {
			continue
		}
		sums[m.AccountID] = sums[m.AccountID].Add(m.Amount.Decimal())
	}

	s := Snapshot{Date: limit, Balances: make([]Balance, 0, len(accounts))}
	for _, a := range accounts {
		b := Balance{AccountID: a.ID, Account: a.Description, Amount: sums[a.ID]}
		s.Balances = append(s.Balances, b)
		s.Total = s.Total.Add(b.Amount)
	}
	sort.SliceStable(s.Balances, func(i, j int) bool {
		return s.Balances[i].Account < s.Balances[j].Account
	})
	return s
}
