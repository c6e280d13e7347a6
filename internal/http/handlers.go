package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/report"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady checks templates and the database.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.repo.Ping(ctx); err != nil {
		checks["database"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traceMetrics := s.tracer.GetMetrics()
	rateMetrics := s.limiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("movements_written_total", "Movements created, updated or deleted through the UI", "counter", atomic.LoadInt64(&s.movementsWritten))
	metric("rate_limit_hits_total", "Requests rejected by the rate limiter", "counter", rateMetrics.TotalHits)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateMetrics.ClientCount)
	metric("suspicious_requests_total", "Requests matching scanner patterns", "counter", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "Application uptime in seconds", "gauge", fmt.Sprintf("%.0f", time.Since(s.started).Seconds()))
}

type indexData struct {
	Snapshot report.Snapshot
	Columns  []string
	Result   []decimal.Decimal
	Income   decimal.Decimal
	Expense  decimal.Decimal
	Net      decimal.Decimal
}

// handleIndex shows today's balances and the year-to-date result.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, err := s.svc.Reports.Snapshot(ctx, s.now())
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	monthly, err := s.svc.Reports.Monthly(ctx, s.svc.Reports.DefaultFilter())
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}

	data := indexData{Snapshot: snap, Columns: monthly.ColumnLabels()}
	for _, l := range monthly.CashFlow.Lines {
		switch {
		case l.Kind == report.Result:
			data.Result = l.Values
			data.Net = sum(l.Values)
		case l.Kind == report.Subtotal && l.Group == string(core.Income):
			data.Income = sum(l.Values)
		case l.Kind == report.Subtotal && l.Group == string(core.Expense):
			data.Expense = sum(l.Values)
		}
	}

	s.render(w, r, http.StatusOK, "index.html", page{Title: "Resumo", Active: "index", Data: data})
}

func sum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
