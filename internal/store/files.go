package store

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"github.com/viddup/viddup/internal/record"
)

// IsIngested reports whether path already has a filenames row.
func (s *Store) IsIngested(ctx context.Context, path string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM filenames WHERE name = ?`, path).Scan(&n)
	if err != nil {
		return false, errors.Wrap(err, "store: is ingested")
	}
	return n > 0, nil
}

// InsertFile records a new file. It fails with ErrFileExists if path is
// already present.
func (s *Store) InsertFile(ctx context.Context, path string, fps, duration float64) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var txErr error
		id, txErr = insertFile(ctx, tx, path, fps, duration)
		return txErr
	})
	return id, err
}

func insertFile(ctx context.Context, tx *sql.Tx, path string, fps, duration float64) (int64, error) {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM filenames WHERE name = ?`, path).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "store: check existing file")
	}
	if n > 0 {
		return 0, ErrFileExists
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO filenames (name, fps, duration) VALUES (?, ?, ?)`, path, fps, duration)
	if err != nil {
		return 0, errors.Wrap(err, "store: insert file")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "store: last insert id")
	}
	return id, nil
}

// IngestFile atomically records a new file along with its brightness
// samples and scene fingerprints. Fingerprint frame indices must be
// strictly increasing; a violation fails the whole operation.
func (s *Store) IngestFile(
	ctx context.Context,
	path string,
	fps, duration float64,
	brightness []record.Brightness,
	fingerprints []record.Fingerprint,
) (int64, error) {
	if err := requireStrictlyIncreasing(fingerprints); err != nil {
		return 0, err
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var txErr error
		id, txErr = insertFile(ctx, tx, path, fps, duration)
		if txErr != nil {
			return txErr
		}
		if txErr = insertBrightness(ctx, tx, id, brightness); txErr != nil {
			return txErr
		}
		return insertFingerprints(ctx, tx, id, fingerprints)
	})
	return id, err
}

func requireStrictlyIncreasing(fingerprints []record.Fingerprint) error {
	for i := 1; i < len(fingerprints); i++ {
		if fingerprints[i].Frame <= fingerprints[i-1].Frame {
			return errors.Newf("store: fingerprint frames not strictly increasing at index %d (%d <= %d)",
				i, fingerprints[i].Frame, fingerprints[i-1].Frame)
		}
	}
	return nil
}

// FileIter is a lazy, ordered cursor over filenames rows.
type FileIter struct {
	rows *sql.Rows
	cur  record.File
	err  error
}

// IterFiles returns a lazy cursor over every known file record.
func (s *Store) IterFiles(ctx context.Context) (*FileIter, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, fps, duration FROM filenames ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "store: iter files")
	}
	return &FileIter{rows: rows}, nil
}

// Next advances the cursor, returning false at the end or on error (check
// Err after Next returns false).
func (it *FileIter) Next() bool {
	if !it.rows.Next() {
		it.err = it.rows.Err()
		return false
	}
	it.err = it.rows.Scan(&it.cur.ID, &it.cur.Path, &it.cur.FPS, &it.cur.Duration)
	return it.err == nil
}

// File returns the record most recently advanced to.
func (it *FileIter) File() record.File { return it.cur }

// Err returns the first error encountered, if any.
func (it *FileIter) Err() error { return it.err }

// Close releases the cursor's underlying rows.
func (it *FileIter) Close() error { return it.rows.Close() }

// FindByPath loads a single file record by its path, for CLI verbs (like
// whitelist) that take paths from the user rather than ids.
func (s *Store) FindByPath(ctx context.Context, path string) (record.File, error) {
	var f record.File
	f.Path = path
	err := s.db.QueryRowContext(ctx, `SELECT id, fps, duration FROM filenames WHERE name = ?`, path).
		Scan(&f.ID, &f.FPS, &f.Duration)
	if errors.Is(err, sql.ErrNoRows) {
		return record.File{}, ErrFileNotFound
	}
	if err != nil {
		return record.File{}, errors.Wrap(err, "store: find by path")
	}
	return f, nil
}

// GetFile loads a single file record by id.
func (s *Store) GetFile(ctx context.Context, id int64) (record.File, error) {
	var f record.File
	f.ID = id
	err := s.db.QueryRowContext(ctx, `SELECT name, fps, duration FROM filenames WHERE id = ?`, id).
		Scan(&f.Path, &f.FPS, &f.Duration)
	if errors.Is(err, sql.ErrNoRows) {
		return record.File{}, ErrFileNotFound
	}
	if err != nil {
		return record.File{}, errors.Wrap(err, "store: get file")
	}
	return f, nil
}

// UpdateFileMetadata rewrites fps and duration for an existing file. It
// is used only by the fix-metadata maintenance verb; ordinary ingest
// never mutates a file record.
func (s *Store) UpdateFileMetadata(ctx context.Context, id int64, fps, duration float64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE filenames SET fps = ?, duration = ? WHERE id = ?`, fps, duration, id)
	if err != nil {
		return errors.Wrap(err, "store: update file metadata")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "store: rows affected")
	}
	if n == 0 {
		return ErrFileNotFound
	}
	return nil
}
