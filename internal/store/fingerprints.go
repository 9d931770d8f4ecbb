package store

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"github.com/viddup/viddup/internal/record"
)

// InsertFingerprints stores fingerprints standalone; see InsertBrightness
// for why IngestFile does not call through this.
func (s *Store) InsertFingerprints(ctx context.Context, fileID int64, fingerprints []record.Fingerprint) error {
	if err := requireStrictlyIncreasing(fingerprints); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertFingerprints(ctx, tx, fileID, fingerprints)
	})
}

func insertFingerprints(ctx context.Context, tx *sql.Tx, fileID int64, fingerprints []record.Fingerprint) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO hashes (filename_id, frame, value) VALUES (?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "store: prepare insert fingerprints")
	}
	defer stmt.Close()

	for _, fp := range fingerprints {
		if _, err := stmt.ExecContext(ctx, fileID, fp.Frame, fp.Value); err != nil {
			return errors.Wrapf(err, "store: insert fingerprint frame %d", fp.Frame)
		}
	}
	return nil
}

// FingerprintIter is a lazy, frame-ordered cursor over hashes rows for one
// file.
type FingerprintIter struct {
	rows *sql.Rows
	cur  record.Fingerprint
	err  error
}

// IterFingerprints returns fingerprints for fileID with minFrame <= frame
// <= maxFrame, ordered ascending by frame.
func (s *Store) IterFingerprints(ctx context.Context, fileID int64, minFrame, maxFrame int64) (*FingerprintIter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT frame, value FROM hashes WHERE filename_id = ? AND frame >= ? AND frame <= ? ORDER BY frame`,
		fileID, minFrame, maxFrame)
	if err != nil {
		return nil, errors.Wrap(err, "store: iter fingerprints")
	}
	return &FingerprintIter{rows: rows}, nil
}

func (it *FingerprintIter) Next() bool {
	if !it.rows.Next() {
		it.err = it.rows.Err()
		return false
	}
	it.err = it.rows.Scan(&it.cur.Frame, &it.cur.Value)
	return it.err == nil
}

func (it *FingerprintIter) Fingerprint() record.Fingerprint { return it.cur }
func (it *FingerprintIter) Err() error                      { return it.err }
func (it *FingerprintIter) Close() error                    { return it.rows.Close() }

// CountFingerprints returns the number of fingerprints for fileID with
// minFrame <= frame <= maxFrame, without loading them.
func (s *Store) CountFingerprints(ctx context.Context, fileID int64, minFrame, maxFrame int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM hashes WHERE filename_id = ? AND frame >= ? AND frame <= ?`,
		fileID, minFrame, maxFrame).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "store: count fingerprints")
	}
	return n, nil
}
