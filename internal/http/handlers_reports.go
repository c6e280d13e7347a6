package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/report"
)

type monthlyPage struct {
	Filter   report.Filter
	Start    string
	End      string
	Sharings []option
	Empty    bool
	Columns  []string
	Pivots   []report.FormattedPivot
	Export   string
}

// handleMonthlyReport renders the cash-flow, balance and card pivots.
func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	f, err := ParseReportFilter(r.URL.Query(), s.svc.Reports.DefaultFilter())
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	rep, err := s.svc.Reports.Monthly(r.Context(), f)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}

	data := monthlyPage{
		Filter:   f,
		Start:    f.Start.Format(core.DateLayout),
		End:      f.End.Format(core.DateLayout),
		Sharings: s.sharingOptions(true),
		Empty:    rep.Empty(),
		Columns:  rep.ColumnLabels(),
		Export:   "/reports/monthly.xlsx?" + r.URL.RawQuery,
	}
	for _, p := range []report.Pivot{rep.CashFlow, rep.Balances, rep.Cards} {
		if len(p.Lines) > 0 {
			data.Pivots = append(data.Pivots, p.Format())
		}
	}
	s.render(w, r, http.StatusOK, "monthly.html", page{Title: "Relatório mensal", Active: "reports", Data: data})
}

// handleMonthlyReportXLSX downloads the monthly pivots as a workbook.
func (s *Server) handleMonthlyReportXLSX(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	f, err := ParseReportFilter(r.URL.Query(), s.svc.Reports.DefaultFilter())
	if err != nil {
		s.fail(w, r, applog.OpExport, err)
		return
	}
	rep, err := s.svc.Reports.Monthly(r.Context(), f)
	if err != nil {
		s.fail(w, r, applog.OpExport, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, rep.Sheets()); err != nil {
		s.fail(w, r, applog.OpExport, err)
		return
	}
	name := fmt.Sprintf("relatorio_%s_%s.xlsx", f.Start.Format("20060102"), f.End.Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type balancesPage struct {
	Date     string
	Snapshot report.Snapshot
}

// handleBalances shows account balances as of ?date=, today by default.
func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	date := s.now()
	if v := strings.TrimSpace(r.URL.Query().Get("date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			s.fail(w, r, applog.OpRead, &FieldError{Field: "date", Err: fmt.Errorf("invalid date %q", v)})
			return
		}
		date = d.Time
	}
	snap, err := s.svc.Reports.Snapshot(r.Context(), date)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	s.render(w, r, http.StatusOK, "balances.html", page{
		Title:  "Saldos",
		Active: "reports",
		Data:   balancesPage{Date: date.Format(core.DateLayout), Snapshot: snap},
	})
}

type trendPage struct {
	Months  int
	Options []int
	Report  report.TrendReport
	Chart   bool
}

func trendMonths(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("months"))
	if v == "" {
		return report.DefaultTrendMonths, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 120 {
		return 0, &FieldError{Field: "months", Err: fmt.Errorf("invalid month count %q", v)}
	}
	return n, nil
}

// handleTrend shows the expense trend, seasonality and category movers.
func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	months, err := trendMonths(r)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	rep, err := s.svc.Reports.Trend(r.Context(), months)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	s.render(w, r, http.StatusOK, "trend.html", page{
		Title:  "Tendências",
		Active: "reports",
		Data: trendPage{
			Months:  months,
			Options: []int{3, 6, 12, 24},
			Report:  rep,
			Chart:   len(rep.Monthly) >= 2,
		},
	})
}

// handleTrendChart serves the monthly expense line chart as PNG. Windows
// with fewer than two months have no chart.
func (s *Server) handleTrendChart(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	months, err := trendMonths(r)
	if err != nil {
		s.fail(w, r, applog.OpRender, err)
		return
	}
	rep, err := s.svc.Reports.Trend(r.Context(), months)
	if err != nil {
		s.fail(w, r, applog.OpRender, err)
		return
	}
	png, err := report.RenderTrendChart(rep)
	if err != nil {
		NotFoundError("Dados insuficientes para o gráfico").Write(w)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
