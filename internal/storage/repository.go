package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"financas/internal/core"
	"financas/internal/importer"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	ErrInUse     = errors.New("in use")
)

// SQLiteRepository persists the ledger in a single SQLite database.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("SQLite repository ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// mapError translates driver errors into the package sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %v", ErrInUse, err)
		}
	}
	return err
}

// guardDelete refuses to delete a row still referenced elsewhere.
func guardDelete(ctx context.Context, what string, id int64, count func(context.Context, int64) (int64, error), del func(context.Context, int64) error) error {
	n, err := count(ctx, id)
	if err != nil {
		return fmt.Errorf("count %s usage: %w", what, err)
	}
	if n > 0 {
		return fmt.Errorf("%s %d referenced by %d rows: %w", what, id, n, ErrInUse)
	}
	if err := del(ctx, id); err != nil {
		return fmt.Errorf("delete %s: %w", what, mapError(err))
	}
	slog.InfoContext(ctx, "Row deleted", "table", what, "id", id)
	return nil
}

// InTx runs fn inside a single database transaction. Any error returned by fn
// rolls the whole transaction back.
func (r *SQLiteRepository) InTx(ctx context.Context, fn func(importer.MovementTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&movementTx{q: r.queries.WithTx(tx)}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type movementTx struct {
	q *Queries
}

func (t *movementTx) References(ctx context.Context) (importer.ReferenceLookup, error) {
	return loadReferences(ctx, t.q)
}

func (t *movementTx) InsertMovement(ctx context.Context, m core.Movement) (int64, error) {
	id, err := t.q.CreateMovement(ctx, movementParams(m))
	if err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

// References returns the current name lookup used to validate imports.
func (r *SQLiteRepository) References(ctx context.Context) (importer.ReferenceLookup, error) {
	return loadReferences(ctx, r.queries)
}

func loadReferences(ctx context.Context, q *Queries) (importer.ReferenceLookup, error) {
	cats, err := q.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	accounts, err := q.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	cards, err := q.ListCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return importer.NewReferences(mapSlice(cats, toCategory), mapSlice(accounts, toAccount), mapSlice(cards, toCard)), nil
}
