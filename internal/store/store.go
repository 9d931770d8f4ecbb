// Package store is the persistent layer: one SQLite database per
// library, holding file metadata, per-frame brightness, scene
// fingerprints, and whitelist pairs. Every exported method that touches
// more than one statement runs inside a transaction; a failed multi-step
// operation leaves nothing behind.
package store

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// ErrFileExists is returned by InsertFile/IngestFile when the path is
// already present.
var ErrFileExists = errors.New("store: file already ingested")

// ErrFileNotFound is returned when an operation names a file id that has no
// row in filenames.
var ErrFileNotFound = errors.New("store: file not found")

// ErrSelfWhitelist is returned when a whitelist operation would pair a file
// with itself.
var ErrSelfWhitelist = errors.New("store: whitelist pair must reference two distinct files")

// busyTimeout is the SQLite busy_timeout. It is deliberately large so a
// background reporting tool holding the database does not cause ingest
// to fail.
const busyTimeout = 5 * time.Minute

// Store is a handle to one library's database. There is no process-wide
// database path; every pass (ingest, search, whitelist, purge) threads
// its own *Store through explicitly.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path. It
// does not create the schema; call EnsureSchema for that.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path + "?_pragma=busy_timeout(" + strconv.Itoa(int(busyTimeout/time.Millisecond)) + ")&_pragma=journal_mode(wal)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "store: open %s", path)
	}
	// SQLite serializes writers itself; a single open connection avoids
	// "database is locked" churn under modernc.org/sqlite's driver.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "store: ping %s", path)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates all tables and indexes if they do not already
// exist. It is idempotent and safe to call on every startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "store: ensure schema")
	}
	return nil
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error (including a panic, which it re-raises after
// rollback).
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "store: begin tx")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "store: commit tx")
	}
	return nil
}
