package report

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financas/internal/core"
)

func investment(ticker int64, name, class string, nature core.Nature, qty string, gross, costs, tax int64) core.InvestmentView {
	return core.InvestmentView{
		InvestmentOperation: core.InvestmentOperation{
			TickerID:       ticker,
			Quantity:       decimal.RequireFromString(qty),
			Gross:          core.Money{Cents: gross},
			Costs:          core.Money{Cents: costs},
			WithholdingTax: core.Money{Cents: tax},
		},
		TickerName:  name,
		TickerClass: class,
		Nature:      nature,
	}
}

func TestPositions(t *testing.T) {
	ops := []core.InvestmentView{
		investment(1, "PETR4", "Ações", core.Outflow, "100", 300000, 500, 0),
		investment(1, "PETR4", "Ações", core.Outflow, "50", 160000, 500, 0),
		investment(1, "PETR4", "Ações", core.Inflow, "30", 120000, 300, 1500),
		investment(2, "CDB X", "Renda Fixa", core.Outflow, "1", 100000, 0, 0),
	}

	s := Positions(ops)
	require.Len(t, s.Positions, 2)

	cdb := s.Positions[0]
	assert.Equal(t, "CDB X", cdb.Ticker)
	assertDec(t, "1", cdb.Quantity)

	petr := s.Positions[1]
	assert.Equal(t, "PETR4", petr.Ticker)
	assert.Equal(t, 3, petr.Operations)
	assertDec(t, "120", petr.Quantity)
	assertDec(t, "4610", petr.Invested)
	assertDec(t, "1182", petr.Received)
	assertDec(t, "-3428", petr.Net)
	assertDec(t, "30.73", petr.AverageCost)

	assertDec(t, "5610", s.Invested)
	assertDec(t, "1182", s.Received)
	require.Len(t, s.ByClass, 2)
	assert.Equal(t, "Ações", s.ByClass[0].Class)
	assertDec(t, "82.2", s.ByClass[0].Share)
}

func TestRenderTrendChart(t *testing.T) {
	tr := Trend(views(
		expense("2025-05-10", "Casa", 100),
		expense("2025-06-10", "Casa", 200),
	), trendNow, 6)

	png, err := RenderTrendChart(tr)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = RenderTrendChart(Trend(nil, trendNow, 6))
	assert.Error(t, err)
}
