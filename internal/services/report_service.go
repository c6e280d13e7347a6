package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"financas/internal/cache"
	"financas/internal/core"
	"financas/internal/report"
)

// ReportSource is the read side the report engine needs.
type ReportSource interface {
	MovementsForReport(ctx context.Context, from, to core.Date) ([]core.MovementView, error)
	SettledUntil(ctx context.Context, date core.Date) ([]core.MovementView, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	ListInvestments(ctx context.Context) ([]core.InvestmentView, error)
}

// ReportService computes reports from storage and memoizes them until the
// next write. Concurrent requests for the same report share one computation.
type ReportService struct {
	src   ReportSource
	cache *cache.LRUCache[any]
	group singleflight.Group
	now   func() time.Time

	// gen counts invalidations. A result computed under an older
	// generation is returned to its callers but never stored.
	mu  sync.Mutex
	gen uint64
}

func NewReportService(src ReportSource, maxEntries int, ttl time.Duration) *ReportService {
	return &ReportService{
		src:   src,
		cache: cache.NewLRUCache[any](maxEntries, ttl),
		now:   time.Now,
	}
}

// Cleaner exposes the report cache for periodic expiry.
func (s *ReportService) Cleaner() cache.Cleaner {
	return s.cache
}

// Invalidate drops every cached report. Computations already running are
// not stored once they finish.
func (s *ReportService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.cache.Purge()
}

func (s *ReportService) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// store caches v unless an invalidation happened since gen was read.
func (s *ReportService) store(gen uint64, key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.cache.Set(key, v)
	}
}

func cached[T any](s *ReportService, key string, compute func() (T, error)) (T, error) {
	if v, ok := s.cache.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}
	// Callers after an invalidation never join a flight started before it.
	gen := s.generation()
	v, err, _ := s.group.Do(fmt.Sprintf("%d|%s", gen, key), func() (interface{}, error) {
		t, err := compute()
		if err != nil {
			return nil, err
		}
		s.store(gen, key, t)
		return t, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// DefaultFilter covers the current calendar year up to today.
func (s *ReportService) DefaultFilter() report.Filter {
	now := s.now()
	return report.Filter{
		Start:   time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC),
		End:     core.DateOf(now).Time,
		Sharing: core.SharingAll,
	}
}

// Monthly builds the cash-flow, balance and card pivots for f.
func (s *ReportService) Monthly(ctx context.Context, f report.Filter) (report.MonthlyReport, error) {
	key := fmt.Sprintf("monthly:%s:%s:%s", f.Start.Format(core.DateLayout), f.End.Format(core.DateLayout), f.Sharing)
	return cached(s, key, func() (report.MonthlyReport, error) {
		rows, err := s.src.MovementsForReport(ctx, core.Date{Time: f.Start}, core.Date{Time: f.End})
		if err != nil {
			return report.MonthlyReport{}, fmt.Errorf("load movements: %w", err)
		}
		return report.Monthly(rows, f), nil
	})
}

// Snapshot returns per-account balances as of date.
func (s *ReportService) Snapshot(ctx context.Context, date time.Time) (report.Snapshot, error) {
	key := "snapshot:" + date.Format(core.DateLayout)
	return cached(s, key, func() (report.Snapshot, error) {
		rows, err := s.src.SettledUntil(ctx, core.Date{Time: date})
		if err != nil {
			return report.Snapshot{}, fmt.Errorf("load settled movements: %w", err)
		}
		accounts, err := s.src.ListAccounts(ctx)
		if err != nil {
			return report.Snapshot{}, fmt.Errorf("load accounts: %w", err)
		}
		return report.SnapshotAt(rows, accounts, date), nil
	})
}

// Trend analyzes the last months calendar months up to now.
func (s *ReportService) Trend(ctx context.Context, months int) (report.TrendReport, error) {
	if months < 1 {
		months = report.DefaultTrendMonths
	}
	now := s.now()
	key := fmt.Sprintf("trend:%s:%d", now.Format(core.DateLayout), months)
	return cached(s, key, func() (report.TrendReport, error) {
		from := report.HistoryStart(now, months)
		to := core.AddMonths(core.MonthStart(now), 1).AddDate(0, 0, -1)
		rows, err := s.src.MovementsForReport(ctx, core.Date{Time: from}, core.Date{Time: to})
		if err != nil {
			return report.TrendReport{}, fmt.Errorf("load movements: %w", err)
		}
		return report.Trend(rows, now, months), nil
	})
}

// Positions summarizes investment holdings per ticker.
func (s *ReportService) Positions(ctx context.Context) (report.PositionSummary, error) {
	return cached(s, "positions", func() (report.PositionSummary, error) {
		ops, err := s.src.ListInvestments(ctx)
		if err != nil {
			return report.PositionSummary{}, fmt.Errorf("load investments: %w", err)
		}
		return report.Positions(ops), nil
	})
}
