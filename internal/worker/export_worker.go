package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/report"
	"financas/internal/sheets"
)

// Reporter computes the monthly report the worker exports.
type Reporter interface {
	Monthly(ctx context.Context, f report.Filter) (report.MonthlyReport, error)
	Invalidate()
}

// ExportConfig holds configuration for the export worker
type ExportConfig struct {
	// Interval is how often the current year is re-exported (default: 15m)
	Interval time.Duration

	// Concurrency caps how many years are exported at once (default: 2)
	Concurrency int

	// SheetName maps a year to the target sheet (default: "<year> Fluxo de Caixa")
	SheetName func(year int) string
}

// DefaultExportConfig returns sensible defaults
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		Interval:    15 * time.Minute,
		Concurrency: 2,
		SheetName: func(year int) string {
			return fmt.Sprintf("%d Fluxo de Caixa", year)
		},
	}
}

// ExportWorker keeps the yearly cash-flow sheets in step with the database.
// It reacts to change messages and also re-exports on a timer in case
// messages were lost.
type ExportWorker struct {
	reports  Reporter
	exporter sheets.ReportExporter
	config   ExportConfig
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportWorker(reports Reporter, exporter sheets.ReportExporter, config ExportConfig) *ExportWorker {
	def := DefaultExportConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.Concurrency <= 0 {
		config.Concurrency = def.Concurrency
	}
	if config.SheetName == nil {
		config.SheetName = def.SheetName
	}
	return &ExportWorker{
		reports:  reports,
		exporter: exporter,
		config:   config,
		now:      time.Now,
	}
}

// HandleMovementsChanged exports every year touched by msg. A message without
// periods exports the current year.
func (w *ExportWorker) HandleMovementsChanged(ctx context.Context, msg *amqp.MovementsChangedMessage) error {
	years := msg.Years()
	slog.InfoContext(ctx, "Processing movements changed message",
		"reason", msg.Reason,
		"count", msg.Count,
		"years", years)
	if len(years) == 0 {
		years = []int{w.now().Year()}
	}
	return w.ExportYears(ctx, years)
}

// ExportYears recomputes and writes the cash-flow sheet of each year.
func (w *ExportWorker) ExportYears(ctx context.Context, years []int) error {
	years = uniqueYears(years)
	w.reports.Invalidate()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.Concurrency)
	for _, year := range years {
		g.Go(func() error {
			return w.exportYear(gctx, year)
		})
	}
	return g.Wait()
}

func (w *ExportWorker) exportYear(ctx context.Context, year int) error {
	f := report.Filter{
		Start:   time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:     time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
		Sharing: core.SharingAll,
	}
	r, err := w.reports.Monthly(ctx, f)
	if err != nil {
		return fmt.Errorf("compute report %d: %w", year, err)
	}

	sheet := w.config.SheetName(year)
	rows := r.Grid(r.CashFlow)
	if err := w.exporter.WriteGrid(ctx, sheet, rows); err != nil {
		return fmt.Errorf("write sheet %q: %w", sheet, err)
	}

	slog.InfoContext(ctx, "Exported cash-flow report",
		"year", year,
		"sheet", sheet,
		"periods", len(r.Columns),
		"rows", len(rows)-1)
	return nil
}

func uniqueYears(years []int) []int {
	seen := make(map[int]bool, len(years))
	out := make([]int, 0, len(years))
	for _, y := range years {
		if !seen[y] {
			seen[y] = true
			out = append(out, y)
		}
	}
	sort.Ints(out)
	return out
}

// Start begins the periodic export loop. Returns an error if already running.
func (w *ExportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("export worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stop, done := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, stop, done)

	slog.InfoContext(ctx, "Export worker started", "interval", w.config.Interval)
	return nil
}

// Stop signals the loop and waits for the export in progress to finish.
// Only the first of several concurrent callers waits; the rest return nil.
func (w *ExportWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stop, done := w.stopCh, w.doneCh
	w.running = false
	w.stopCh, w.doneCh = nil, nil
	w.mu.Unlock()

	close(stop)

	select {
	case <-done:
		slog.InfoContext(ctx, "Export worker stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export worker stop timed out")
		return ctx.Err()
	}
	return nil
}

// IsRunning returns whether the periodic loop is active
func (w *ExportWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ExportWorker) runLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	// Export immediately on startup
	w.exportCurrent(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.exportCurrent(ctx)
		}
	}
}

func (w *ExportWorker) exportCurrent(ctx context.Context) {
	year := w.now().Year()
	if err := w.ExportYears(ctx, []int{year}); err != nil {
		slog.ErrorContext(ctx, "Periodic export failed", "year", year, "error", err)
	}
}
