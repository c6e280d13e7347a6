package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// Position aggregates the operations of one ticker. Outflow operations are
// purchases and add quantity; inflow operations are sales or income and
// subtract it.
type Position struct {
	TickerID    int64
	Ticker      string
	Class       string
	Quantity    decimal.Decimal
	Bought      decimal.Decimal
	Invested    decimal.Decimal
	Received    decimal.Decimal
	Net         decimal.Decimal
	AverageCost decimal.Decimal
	Operations  int
}

// PositionSummary totals all positions, grouped by asset class.
type PositionSummary struct {
	Positions []Position
	ByClass   []ClassTotal
	Invested  decimal.Decimal
	Received  decimal.Decimal
	Net       decimal.Decimal
}

type ClassTotal struct {
	Class    string
	Invested decimal.Decimal
	Share    decimal.Decimal
}

// Positions builds one position per ticker, sorted by ticker name.
func Positions(ops []core.InvestmentView) PositionSummary {
	byTicker := make(map[int64]*Position)
	for _, op := range ops {
		p, ok := byTicker[op.TickerID]
		if !ok {
			p = &Position{TickerID: op.TickerID, Ticker: op.TickerName, Class: op.TickerClass}
			byTicker[op.TickerID] = p
		}
		p.Operations++
		net := op.NetAmount(op.Nature).Decimal()
		if op.Nature == core.Outflow {
			p.Quantity = p.Quantity.Add(op.Quantity)
			p.Bought = p.Bought.Add(op.Quantity)
			p.Invested = p.Invested.Add(net.Abs())
		} else {
			p.Quantity = p.Quantity.Sub(op.Quantity)
			p.Received = p.Received.Add(net)
		}
	}

	var s PositionSummary
	classes := make(map[string]decimal.Decimal)
	for _, p := range byTicker {
		p.Net = p.Received.Sub(p.Invested)
		if p.Bought.IsPositive() {
			p.AverageCost = p.Invested.Div(p.Bought).Round(2)
		}
		s.Positions = append(s.Positions, *p)
		s.Invested = s.Invested.Add(p.Invested)
		s.Received = s.Received.Add(p.Received)
		classes[p.Class] = classes[p.Class].Add(p.Invested)
	}
	s.Net = s.Received.Sub(s.Invested)
	sort.Slice(s.Positions, func(i, j int) bool { return s.Positions[i].Ticker < s.Positions[j].Ticker })

	for class, inv := range classes {
		ct := ClassTotal{Class: class, Invested: inv}
		if s.Invested.IsPositive() {
			ct.Share = inv.Div(s.Invested).Mul(hundred).Round(1)
		}
		s.ByClass = append(s.ByClass, ct)
	}
	sort.Slice(s.ByClass, func(i, j int) bool { return s.ByClass[i].Class < s.ByClass[j].Class })
	return s
}
