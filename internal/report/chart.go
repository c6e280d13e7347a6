package report

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"financas/internal/core"
)

// RenderTrendChart renders monthly expense totals as a PNG line chart with
// the forecast drawn as a dashed level line.
func RenderTrendChart(t TrendReport) ([]byte, error) {
	if len(t.Monthly) < 2 {
		return nil, fmt.Errorf("need at least 2 months, got %d", len(t.Monthly))
	}

	xValues := make([]float64, len(t.Monthly))
	totals := make([]float64, len(t.Monthly))
	forecast := make([]float64, len(t.Monthly))
	ticks := make([]chart.Tick, len(t.Monthly))
	f := t.Forecast.InexactFloat64()
	for i, m := range t.Monthly {
		xValues[i] = float64(i)
		totals[i] = m.Total.InexactFloat64()
		forecast[i] = f
		ticks[i] = chart.Tick{Value: float64(i), Label: m.Period}
	}

	graph := chart.Chart{
		Title:  "Despesas mensais",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{Ticks: ticks},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return core.FormatCents(int64(f * 100))
				}
				return ""
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: "Total",
				Style: chart.Style{
					StrokeColor: drawing.ColorFromHex("dc2626"),
					StrokeWidth: 2.5,
				},
				XValues: xValues,
				YValues: totals,
			},
			chart.ContinuousSeries{
				Name: "Previsão",
				Style: chart.Style{
					StrokeColor:     drawing.ColorFromHex("9ca3af"),
					StrokeWidth:     1.5,
					StrokeDashArray: []float64{5.0, 3.0},
				},
				XValues: xValues,
				YValues: forecast,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
