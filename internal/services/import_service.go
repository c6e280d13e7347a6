package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"financas/internal/core"
	"financas/internal/importer"
)

// ErrRowNotFound is returned when an edited line is not part of the session.
var ErrRowNotFound = errors.New("import row not found")

// ReferenceSource yields the current name lookup for validation.
type ReferenceSource interface {
	References(ctx context.Context) (importer.ReferenceLookup, error)
}

// ImportService drives an upload through parse, validate, review and commit.
type ImportService struct {
	refs      ReferenceSource
	store     importer.MovementStore
	sessions  *importer.SessionStore
	uploadDir string
	reports   Invalidator
	publisher Publisher
}

func NewImportService(refs ReferenceSource, store importer.MovementStore, sessions *importer.SessionStore, uploadDir string, reports Invalidator, publisher Publisher) *ImportService {
	return &ImportService{
		refs:      refs,
		store:     store,
		sessions:  sessions,
		uploadDir: uploadDir,
		reports:   reports,
		publisher: publisher,
	}
}

// Upload stores the file, parses and validates it and opens a review session.
// The stored file is removed when parsing fails.
func (s *ImportService) Upload(ctx context.Context, fileName string, r io.Reader) (*importer.Session, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	f, err := os.CreateTemp(s.uploadDir, "import-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	path := f.Name()
	discard := func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.WarnContext(ctx, "Failed to remove import upload", "path", path, "error", err)
		}
	}

	_, err = io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		discard()
		return nil, fmt.Errorf("store upload: %w", err)
	}

	rows, err := s.validateFile(ctx, fileName, path)
	if err != nil {
		discard()
		return nil, err
	}

	sess := s.sessions.Create(fileName, path, rows)
	valid, invalid := sess.Counts()
	slog.InfoContext(ctx, "Import file validated",
		"session", sess.ID,
		"file", fileName,
		"rows", len(rows),
		"valid", valid,
		"invalid", invalid)
	return sess, nil
}

func (s *ImportService) validateFile(ctx context.Context, fileName, path string) ([]importer.ImportRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &importer.UnreadableFileError{Name: fileName, Err: err}
	}
	defer f.Close()

	table, err := importer.Parse(fileName, f)
	if err != nil {
		return nil, err
	}
	refs, err := s.refs.References(ctx)
	if err != nil {
		return nil, fmt.Errorf("load references: %w", err)
	}
	return importer.Validate(table, refs), nil
}

func (s *ImportService) Session(id string) (*importer.Session, error) {
	return s.sessions.Get(id)
}

// UpdateRow replaces a row of the session with an edited version and
// validates it again against the current references.
func (s *ImportService) UpdateRow(ctx context.Context, id string, edited importer.ImportRow) (importer.ImportRow, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return importer.ImportRow{}, err
	}
	if _, ok := sess.Row(edited.Line); !ok {
		return importer.ImportRow{}, fmt.Errorf("line %d: %w", edited.Line, ErrRowNotFound)
	}
	refs, err := s.refs.References(ctx)
	if err != nil {
		return importer.ImportRow{}, fmt.Errorf("load references: %w", err)
	}
	row := importer.Revalidate(edited, refs)
	if !sess.ReplaceRow(row) {
		return importer.ImportRow{}, fmt.Errorf("line %d: %w", edited.Line, ErrRowNotFound)
	}
	return row, nil
}

// Commit persists the confirmed rows and ends the session whatever the
// outcome. The session is taken out of the store first, so a repeated
// commit of the same session finds nothing.
func (s *ImportService) Commit(ctx context.Context, id string, confirmed map[int]bool) (importer.CommitResult, error) {
	sess, err := s.sessions.Take(id)
	if err != nil {
		return importer.CommitResult{}, err
	}
	defer sess.Close()

	rows := sess.Rows()
	res, err := importer.Commit(ctx, s.store, rows, confirmed)
	if err != nil {
		slog.ErrorContext(ctx, "Import commit rolled back", "session", id, "error", err)
		return res, err
	}

	slog.InfoContext(ctx, "Import committed",
		"session", id,
		"file", sess.FileName,
		"success", res.Success,
		"total", res.Total,
		"skipped", len(res.Skipped))

	if res.Success > 0 {
		if s.reports != nil {
			s.reports.Invalidate()
		}
		publishChanged(ctx, s.publisher, "import", confirmedPeriods(rows, confirmed), res.Success)
	}
	return res, nil
}

// Cancel discards the session and its uploaded file.
func (s *ImportService) Cancel(id string) {
	s.sessions.Finish(id)
}

func confirmedPeriods(rows []importer.ImportRow, confirmed map[int]bool) []string {
	set := map[string]bool{}
	for _, r := range rows {
		if !confirmed[r.Line] {
			continue
		}
		for _, d := range []string{r.Date, r.SettlementDate} {
			if t, err := core.ParseDate(d); err == nil {
				set[core.PeriodKey(t.Time)] = true
			}
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
