package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	ports "financas/internal/sheets"
)

var _ ports.ReportExporter = (*Store)(nil)

// Store keeps exported grids in memory. Used when no spreadsheet is
// configured and in tests.
type Store struct {
	mu     sync.Mutex
	grids  map[string][][]string
	writes int
}

func New() *Store {
	return &Store{grids: map[string][][]string{}}
}

func (s *Store) WriteGrid(_ context.Context, sheet string, rows [][]string) error {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		return errors.New("empty sheet name")
	}
	cp := make([][]string, len(rows))
	for i, r := range rows {
		cp[i] = append([]string(nil), r...)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grids[sheet] = cp
	s.writes++
	return nil
}

// Grid returns the last grid written to sheet.
func (s *Store) Grid(sheet string) ([][]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grids[sheet]
	return g, ok
}

// Sheets lists the sheet names written so far, sorted.
func (s *Store) Sheets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.grids))
	for name := range s.grids {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Writes counts successful WriteGrid calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
