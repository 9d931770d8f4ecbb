package store

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"github.com/viddup/viddup/internal/record"
)

// InsertBrightness stores brightness for fileID standalone, outside a
// broader transaction. Ingest itself uses IngestFile instead, which shares
// one transaction across file+brightness+fingerprints; this entry point
// exists for maintenance tooling (e.g. a future backfill) that needs to add
// brightness independent of a fresh file row.
func (s *Store) InsertBrightness(ctx context.Context, fileID int64, samples []record.Brightness) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertBrightness(ctx, tx, fileID, samples)
	})
}

func insertBrightness(ctx context.Context, tx *sql.Tx, fileID int64, samples []record.Brightness) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO brightness (filename_id, frame, value) VALUES (?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "store: prepare insert brightness")
	}
	defer stmt.Close()

	for _, b := range samples {
		if _, err := stmt.ExecContext(ctx, fileID, b.Frame, b.Value); err != nil {
			return errors.Wrapf(err, "store: insert brightness frame %d", b.Frame)
		}
	}
	return nil
}
