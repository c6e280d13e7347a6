package report

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financas/internal/core"
)

type mv struct {
	id       int64
	date     string
	settled  string
	category string
	typ      core.CategoryType
	account  int64
	card     int64
	cents    int64
	status   core.Status
	sharing  core.Sharing
}

func (m mv) view() core.MovementView {
	v := core.MovementView{
		Movement: core.Movement{
			ID:          m.id,
			Description: m.category,
			AccountID:   m.account,
			CardID:      m.card,
			Amount:      core.Money{Cents: m.cents},
			Status:      m.status,
			Sharing:     m.sharing,
		},
		CategoryName: m.category,
		CategoryType: m.typ,
		AccountName:  accountNames[m.account],
	}
	v.Date, _ = core.ParseDate(m.date)
	if m.settled != "" {
		v.SettlementDate, _ = core.ParseDate(m.settled)
	}
	if m.card != 0 {
		v.CardName = "Visa"
	}
	if v.Status == "" {
		v.Status = core.Settled
	}
	if v.Sharing == "" {
		v.Sharing = core.SharingHalf
	}
	return v
}

var accountNames = map[int64]string{1: "Banco A", 2: "Banco B", 3: "Corretora"}

func views(ms ...mv) []core.MovementView {
	out := make([]core.MovementView, len(ms))
	for i, m := range ms {
		if m.id == 0 {
			m.id = int64(i + 1)
		}
		out[i] = m.view()
	}
	return out
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func sampleRows() []core.MovementView {
	return views(
		mv{date: "2025-01-05", settled: "2025-01-05", category: "Salário", typ: core.Income, account: 1, cents: 500000},
		mv{date: "2025-01-10", settled: "2025-01-10", category: "Mercado", typ: core.Expense, account: 1, cents: -30000},
		mv{date: "2025-01-20", settled: "2025-02-10", category: "Restaurante", typ: core.Expense, account: 1, card: 7, cents: -12000},
		mv{date: "2025-03-02", settled: "2025-03-02", category: "Mercado", typ: core.Expense, account: 2, cents: -10000},
		mv{date: "2025-03-15", category: "Mercado", typ: core.Expense, account: 2, cents: -5000, status: core.Pending, sharing: core.SharingA},
	)
}

func TestMonthly_SharedColumnsAndZeroFill(t *testing.T) {
	r := Monthly(sampleRows(), Filter{Sharing: core.SharingAll})
	require.False(t, r.Empty())

	// February only has a card settlement, so it is not a column
	assert.Equal(t, []string{"2025-01", "2025-03"}, r.Columns)

	mercado, ok := r.CashFlow.Find("Mercado")
	require.True(t, ok)
	assertDec(t, "-300", mercado.Values[0])
	assertDec(t, "-150", mercado.Values[1])
	assertDec(t, "-225", mercado.Average)

	salario, ok := r.CashFlow.Find("Salário")
	require.True(t, ok)
	assertDec(t, "0", salario.Values[1], "zero filled")
	assertDec(t, "2500", salario.Average, "average counts zero-filled months")

	// card settled in February, outside the shared columns, is dropped
	visa, ok := r.Cards.Find("Visa")
	require.True(t, ok)
	assertDec(t, "0", visa.Values[0])
	assertDec(t, "0", visa.Values[1])
}

func TestMonthly_CashFlowGroupsAndResult(t *testing.T) {
	r := Monthly(sampleRows(), Filter{})

	var labels []string
	for _, l := range r.CashFlow.Lines {
		labels = append(labels, l.Label)
	}
	assert.Equal(t, []string{
		"Salário", "Total Receita",
		"Mercado", "Restaurante", "Total Despesa",
		"Resultado",
	}, labels)

	income, _ := r.CashFlow.Find("Total Receita")
	assert.Equal(t, string(core.Income), income.Group)
	expense, _ := r.CashFlow.Find("Total Despesa")
	assert.Equal(t, string(core.Expense), expense.Group)
	assertDec(t, "-420", expense.Values[0])

	result, _ := r.CashFlow.Find(ResultLabel)
	assert.Equal(t, Result, result.Kind)
	assertDec(t, "4580", result.Values[0])
	assertDec(t, "-150", result.Values[1])
}

func TestMonthly_BalancesFilter(t *testing.T) {
	r := Monthly(sampleRows(), Filter{})

	a, ok := r.Balances.Find("Banco A")
	require.True(t, ok)
	// card movement and missing settlement are excluded
	assertDec(t, "4700", a.Values[0])

	b, ok := r.Balances.Find("Banco B")
	require.True(t, ok)
	assertDec(t, "-100", b.Values[1], "pending movement excluded")

	total, ok := r.Balances.Find(TotalLabel)
	require.True(t, ok)
	assertDec(t, "4700", total.Values[0])
}

func TestMonthly_CardSpendIsAbsolute(t *testing.T) {
	rows := views(
		mv{date: "2025-02-01", settled: "2025-02-10", category: "Restaurante", typ: core.Expense, account: 1, card: 7, cents: -12000, status: core.Pending},
	)
	r := Monthly(rows, Filter{})
	visa, ok := r.Cards.Find("Visa")
	require.True(t, ok)
	assertDec(t, "120", visa.Values[0])
}

func TestMonthly_SharingAndDateFilter(t *testing.T) {
	r := Monthly(sampleRows(), Filter{Sharing: core.SharingA})
	assert.Equal(t, []string{"2025-03"}, r.Columns)
	assert.Len(t, r.Balances.Lines, 0)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 2, 23, 0, 0, 0, time.UTC)
	r = Monthly(sampleRows(), Filter{Start: start, End: end})
	assert.Equal(t, []string{"2025-03"}, r.Columns)
	m, _ := r.CashFlow.Find("Mercado")
	assertDec(t, "-100", m.Values[0], "end date is inclusive, 15th excluded")
}

func TestMonthly_NoData(t *testing.T) {
	r := Monthly(sampleRows(), Filter{Start: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)})
	assert.True(t, r.Empty())
	assert.Empty(t, r.CashFlow.Lines)
	assert.Empty(t, r.Sheets())
}

func TestPivotFormat_NeverNegativeZero(t *testing.T) {
	rows := views(
		mv{date: "2025-01-05", settled: "2025-01-05", category: "Ajuste", typ: core.Expense, account: 1, cents: -100},
		mv{date: "2025-01-06", settled: "2025-01-06", category: "Ajuste", typ: core.Expense, account: 1, cents: 100},
	)
	r := Monthly(rows, Filter{})
	for _, g := range r.Sheets() {
		for _, row := range g.Rows[1:] {
			for _, cell := range row[2:] {
				assert.False(t, strings.HasPrefix(cell, "-R$ 0,00"), cell)
			}
		}
	}
	grid := r.Grid(r.CashFlow)
	assert.Equal(t, []string{"Grupo", "Linha", "Média", "2025-01"}, grid[0])
	assert.Equal(t, []string{"Despesa", "Ajuste", core.ZeroCurrency, core.ZeroCurrency}, grid[1])
}

func TestSnapshotAt(t *testing.T) {
	rows := views(
		mv{date: "2025-01-01", settled: "2025-01-01", category: "Salário", typ: core.Income, account: 1, cents: 10000},
		mv{date: "2025-01-02", settled: "2025-01-03", category: "Mercado", typ: core.Expense, account: 1, cents: -3000},
		mv{date: "2025-01-02", category: "Bônus", typ: core.Income, account: 1, cents: 100000, status: core.Pending},
		mv{date: "2025-01-04", settled: "2025-02-01", category: "Mercado", typ: core.Expense, account: 1, cents: -999},
		mv{date: "2025-01-04", settled: "2025-01-04", category: "Restaurante", typ: core.Expense, account: 1, card: 7, cents: -5000},
	)
	accounts := []core.Account{
		{ID: 3, Description: "Corretora"},
		{ID: 1, Description: "Banco A"},
		{ID: 2, Description: "Banco B"},
	}

	s := SnapshotAt(rows, accounts, time.Date(2025, 1, 31, 18, 0, 0, 0, time.UTC))
	require.Len(t, s.Balances, 3)
	assert.Equal(t, "Banco A", s.Balances[0].Account)
	assert.Equal(t, "Banco B", s.Balances[1].Account)
	assert.Equal(t, "Corretora", s.Balances[2].Account)

	assertDec(t, "70", s.Balances[0].Amount, "pending +1000 is not counted")
	assertDec(t, "0", s.Balances[1].Amount)
	assertDec(t, "70", s.Total)
}
