// Package store persists transactions, import batches, candidates and
// subscriptions in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
)

const dayFormat = "2006-01-02"

// busyTimeout bounds how long a write waits on a lock held by another
// process. Writers in this process queue on DB.writeSlot instead.
const busyTimeout = 30 * time.Second

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is an open subscan database.
type DB struct {
	db   *sql.DB
	path string

	// writeSlot admits one transaction at a time so import workers sharing
	// this DB never contend inside SQLite's busy handler.
	writeSlot chan struct{}

	// Now stamps created_at/updated_at columns. Defaults to time.Now.
	Now func() time.Time
}

// Open opens (creating if needed) the SQLite database at path and applies
// the schema. Transactions begin IMMEDIATE so a writer from another process
// waits at BEGIN instead of failing at its first write.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=%d&_txlock=immediate",
		path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &DB{db: db, path: path, writeSlot: make(chan struct{}, 1), Now: time.Now}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *DB) Path() string { return d.path }

// Queries returns repository methods that run outside a transaction.
func (d *DB) Queries() *Queries {
	return &Queries{q: d.db, now: d.now}
}

// InTx runs fn inside one transaction. The transaction is committed when fn
// returns nil and rolled back otherwise (including on panic). Transactions
// on the same DB run one at a time; waiting for a turn honors ctx.
func (d *DB) InTx(ctx context.Context, fn func(q *Queries) error) (err error) {
	select {
	case d.writeSlot <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("waiting for transaction: %w", ctx.Err())
	}
	defer func() { <-d.writeSlot }()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Queries{q: tx, now: d.now}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (d *DB) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now().UTC()
}

// Queries holds the repository methods. Obtain one from DB.Queries or
// inside DB.InTx.
type Queries struct {
	q   querier
	now func() time.Time
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func formatDay(t time.Time) string { return t.Format(dayFormat) }

func parseDay(s string) (time.Time, error) {
	t, err := time.Parse(dayFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored date %q: %w", s, err)
	}
	return t, nil
}

func formatStamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func parseStamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored timestamp %q: %w", s, err)
	}
	return t, nil
}

// rowsAffectedOrNotFound maps an UPDATE/DELETE that touched nothing to
// ErrNotFound.
func rowsAffectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
