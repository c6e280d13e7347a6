package importer

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"financas/internal/cache"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("import session not found or expired")

// Session holds validated rows between the review and commit steps. Rows
// are guarded by mu because row edits and page renders run concurrently.
type Session struct {
	ID       string
	FileName string
	Path     string
	Created  time.Time

	mu      sync.RWMutex
	rows    []ImportRow
	cleanup sync.Once
}

// Close removes the uploaded temp file. It is safe to call more than once.
func (s *Session) Close() {
	s.cleanup.Do(func() {
		if s.Path == "" {
			return
		}
		if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Failed to remove import upload", "path", s.Path, "error", err)
		}
	})
}

// Rows returns a copy of the session rows in file order.
func (s *Session) Rows() []ImportRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ImportRow(nil), s.rows...)
}

// Len returns the number of rows.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Counts returns how many rows are valid and how many carry errors.
func (s *Session) Counts() (valid, invalid int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rows {
		if r.Valid() {
			valid++
		} else {
			invalid++
		}
	}
	return valid, invalid
}

// Row returns the row with the given line number.
func (s *Session) Row(line int) (ImportRow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rows {
		if r.Line == line {
			return r, true
		}
	}
	return ImportRow{}, false
}

// ReplaceRow swaps in row for the row with the same line number. It reports
// false when the line is not part of the session.
func (s *Session) ReplaceRow(row ImportRow) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].Line == row.Line {
			s.rows[i] = row
			return true
		}
	}
	return false
}

// SessionStore keeps sessions in a TTL cache. Sessions leaving the cache for
// any reason get their temp file removed.
type SessionStore struct {
	sessions *cache.LRUCache[*Session]
}

func NewSessionStore(maxSessions int, ttl time.Duration) *SessionStore {
	c := cache.NewLRUCache[*Session](maxSessions, ttl).OnEvict(func(_ string, s *Session) {
		s.Close()
	})
	return &SessionStore{sessions: c}
}

// Create registers a new session for an uploaded file and its rows.
func (st *SessionStore) Create(fileName, path string, rows []ImportRow) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		FileName: fileName,
		Path:     path,
		Created:  time.Now(),
		rows:     rows,
	}
	st.sessions.Set(s.ID, s)
	return s
}

func (st *SessionStore) Get(id string) (*Session, error) {
	s, ok := st.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Take removes the session from the store and hands it to the caller, who
// becomes responsible for calling Close. Only one caller can take a session.
func (st *SessionStore) Take(id string) (*Session, error) {
	s, ok := st.sessions.Take(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Finish ends a session and removes its file.
func (st *SessionStore) Finish(id string) {
	st.sessions.Delete(id)
}

// Cleaner exposes the backing cache for periodic expiry.
func (st *SessionStore) Cleaner() cache.Cleaner {
	return st.sessions
}
