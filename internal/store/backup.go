package store

import (
	"context"
	"database/sql"
	"encoding/gob"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"

	"github.com/viddup/viddup/internal/record"
)

// snapshot is the full contents of a library database, used by
// Export/Import to move a library between machines without shipping the
// raw SQLite file.
type snapshot struct {
	Files        []record.File
	Brightness   map[int64][]record.Brightness
	Fingerprints map[int64][]record.Fingerprint
	Whitelist    []record.WhitelistPair
}

// Export streams a zstd-compressed snapshot of every table to w.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	snap, err := s.readSnapshot(ctx)
	if err != nil {
		return err
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return errors.Wrap(err, "store: export zstd writer")
	}
	defer zw.Close()

	if err := gob.NewEncoder(zw).Encode(snap); err != nil {
		return errors.Wrap(err, "store: export encode")
	}
	return nil
}

func (s *Store) readSnapshot(ctx context.Context) (snapshot, error) {
	snap := snapshot{
		Brightness:   make(map[int64][]record.Brightness),
		Fingerprints: make(map[int64][]record.Fingerprint),
	}

	it, err := s.IterFiles(ctx)
	if err != nil {
		return snapshot{}, err
	}
	defer it.Close()
	for it.Next() {
		snap.Files = append(snap.Files, it.File())
	}
	if err := it.Err(); err != nil {
		return snapshot{}, errors.Wrap(err, "store: export read files")
	}

	for _, f := range snap.Files {
		bRows, err := s.db.QueryContext(ctx,
			`SELECT frame, value FROM brightness WHERE filename_id = ? ORDER BY frame`, f.ID)
		if err != nil {
			return snapshot{}, errors.Wrap(err, "store: export read brightness")
		}
		var samples []record.Brightness
		for bRows.Next() {
			var b record.Brightness
			if err := bRows.Scan(&b.Frame, &b.Value); err != nil {
				bRows.Close()
				return snapshot{}, errors.Wrap(err, "store: export scan brightness")
			}
			samples = append(samples, b)
		}
		bErr := bRows.Err()
		bRows.Close()
		if bErr != nil {
			return snapshot{}, errors.Wrap(bErr, "store: export iterate brightness")
		}
		snap.Brightness[f.ID] = samples

		fIt, err := s.IterFingerprints(ctx, f.ID, 0, 1<<62)
		if err != nil {
			return snapshot{}, err
		}
		var fingerprints []record.Fingerprint
		for fIt.Next() {
			fingerprints = append(fingerprints, fIt.Fingerprint())
		}
		fErr := fIt.Err()
		fIt.Close()
		if fErr != nil {
			return snapshot{}, errors.Wrap(fErr, "store: export iterate fingerprints")
		}
		snap.Fingerprints[f.ID] = fingerprints
	}

	wRows, err := s.db.QueryContext(ctx, `SELECT id1, id2 FROM whitelist ORDER BY id1, id2`)
	if err != nil {
		return snapshot{}, errors.Wrap(err, "store: export read whitelist")
	}
	for wRows.Next() {
		var p record.WhitelistPair
		if err := wRows.Scan(&p.ID1, &p.ID2); err != nil {
			wRows.Close()
			return snapshot{}, errors.Wrap(err, "store: export scan whitelist")
		}
		snap.Whitelist = append(snap.Whitelist, p)
	}
	wErr := wRows.Err()
	wRows.Close()
	if wErr != nil {
		return snapshot{}, errors.Wrap(wErr, "store: export iterate whitelist")
	}

	return snap, nil
}

// Import loads a snapshot produced by Export into an empty database. It
// refuses to run against a database that already has file rows, to avoid
// silently merging two libraries' id spaces.
func (s *Store) Import(ctx context.Context, r io.Reader) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM filenames`).Scan(&n); err != nil {
		return errors.Wrap(err, "store: import check empty")
	}
	if n > 0 {
		return errors.New("store: import target database is not empty")
	}

	zr, err := zstd.NewReader(r)
	if err != nil {
		return errors.Wrap(err, "store: import zstd reader")
	}
	defer zr.Close()

	var snap snapshot
	if err := gob.NewDecoder(zr).Decode(&snap); err != nil {
		return errors.Wrap(err, "store: import decode")
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		idMap := make(map[int64]int64, len(snap.Files))
		for _, f := range snap.Files {
			newID, err := insertFile(ctx, tx, f.Path, f.FPS, f.Duration)
			if err != nil {
				return err
			}
			idMap[f.ID] = newID
		}
		for oldID, samples := range snap.Brightness {
			if err := insertBrightness(ctx, tx, idMap[oldID], samples); err != nil {
				return err
			}
		}
		for oldID, fingerprints := range snap.Fingerprints {
			if err := insertFingerprints(ctx, tx, idMap[oldID], fingerprints); err != nil {
				return err
			}
		}
		for _, p := range snap.Whitelist {
			pair := record.Canonical(idMap[p.ID1], idMap[p.ID2])
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO whitelist (id1, id2) VALUES (?, ?)`, pair.ID1, pair.ID2); err != nil {
				return errors.Wrap(err, "store: import whitelist pair")
			}
		}
		return nil
	})
}
