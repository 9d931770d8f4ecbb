package store

import (
	"context"
	"database/sql"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/viddup/viddup/internal/record"
)

// Purge reports (and, unless dryRun, deletes) rows left behind by files
// that have disappeared from disk: the filenames row itself, its
// brightness and fingerprint rows, and any whitelist pair naming it. It
// also sweeps up fingerprint rows that are already orphaned (referencing
// a filename_id with no filenames row at all; not expected in steady
// state, but purge is the tool that would repair a database left in that
// state by an earlier crash or manual edit).
//
// Purge is idempotent: running it twice in a row reports zero missing
// files and zero orphans the second time.
func (s *Store) Purge(ctx context.Context, dryRun bool) (missing []record.File, orphanFingerprints int64, err error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, fps, duration FROM filenames ORDER BY id`)
	if err != nil {
		return nil, 0, errors.Wrap(err, "store: purge list files")
	}
	var all []record.File
	for rows.Next() {
		var f record.File
		if err := rows.Scan(&f.ID, &f.Path, &f.FPS, &f.Duration); err != nil {
			rows.Close()
			return nil, 0, errors.Wrap(err, "store: purge scan file")
		}
		all = append(all, f)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, errors.Wrap(err, "store: purge iterate files")
	}
	rows.Close()

	survivors := make(map[int64]struct{}, len(all))
	for _, f := range all {
		if _, statErr := os.Stat(f.Path); statErr != nil {
			missing = append(missing, f)
			continue
		}
		survivors[f.ID] = struct{}{}
	}

	orphanFingerprints, err = s.countOrphanHashes(ctx, survivors)
	if err != nil {
		return nil, 0, err
	}

	if dryRun {
		return missing, orphanFingerprints, nil
	}

	removedIDs := make([]int64, 0, len(missing))
	for _, f := range missing {
		removedIDs = append(removedIDs, f.ID)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range removedIDs {
			if _, err := tx.ExecContext(ctx, `DELETE FROM hashes WHERE filename_id = ?`, id); err != nil {
				return errors.Wrap(err, "store: purge delete hashes")
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM brightness WHERE filename_id = ?`, id); err != nil {
				return errors.Wrap(err, "store: purge delete brightness")
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM whitelist WHERE id1 = ? OR id2 = ?`, id, id); err != nil {
				return errors.Wrap(err, "store: purge delete whitelist")
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM filenames WHERE id = ?`, id); err != nil {
				return errors.Wrap(err, "store: purge delete filename")
			}
		}

		// Sweep pre-existing orphans: hashes/brightness rows whose
		// filename_id never matched a surviving filenames row (and
		// wasn't one of the missing ids just removed above either).
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM hashes WHERE filename_id NOT IN (SELECT id FROM filenames)`); err != nil {
			return errors.Wrap(err, "store: purge sweep orphan hashes")
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM brightness WHERE filename_id NOT IN (SELECT id FROM filenames)`); err != nil {
			return errors.Wrap(err, "store: purge sweep orphan brightness")
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM whitelist WHERE id1 NOT IN (SELECT id FROM filenames) OR id2 NOT IN (SELECT id FROM filenames)`); err != nil {
			return errors.Wrap(err, "store: purge sweep orphan whitelist")
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return missing, orphanFingerprints, nil
}

// countOrphanHashes sums hashes rows grouped by filename_id, counting only
// groups whose filename_id is not a survivor (either genuinely missing from
// filenames, or about to be removed as a missing file).
func (s *Store) countOrphanHashes(ctx context.Context, survivors map[int64]struct{}) (int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT filename_id, COUNT(1) FROM hashes GROUP BY filename_id`)
	if err != nil {
		return 0, errors.Wrap(err, "store: count orphan hashes")
	}
	defer rows.Close()

	var total int64
	for rows.Next() {
		var id, count int64
		if err := rows.Scan(&id, &count); err != nil {
			return 0, errors.Wrap(err, "store: scan orphan hash group")
		}
		if _, ok := survivors[id]; !ok {
			total += count
		}
	}
	if err := rows.Err(); err != nil {
		return 0, errors.Wrap(err, "store: iterate orphan hash groups")
	}
	return total, nil
}
