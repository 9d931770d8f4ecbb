package store

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"github.com/viddup/viddup/internal/record"
)

// WhitelistAdd records a whitelist clique over ids: every unordered pair
// among them is inserted (canonicalized, idempotent). The whole add is
// rejected if fewer than two distinct ids are given or any id does not
// reference a live file.
func (s *Store) WhitelistAdd(ctx context.Context, ids []int64) error {
	distinct := dedupeIDs(ids)
	if len(distinct) < 2 {
		return ErrSelfWhitelist
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range distinct {
			var n int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM filenames WHERE id = ?`, id).Scan(&n); err != nil {
				return errors.Wrap(err, "store: check whitelist file exists")
			}
			if n == 0 {
				return errors.Wrapf(ErrFileNotFound, "store: whitelist file id %d", id)
			}
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR IGNORE INTO whitelist (id1, id2) VALUES (?, ?)`)
		if err != nil {
			return errors.Wrap(err, "store: prepare whitelist insert")
		}
		defer stmt.Close()

		for i := 0; i < len(distinct); i++ {
			for j := i + 1; j < len(distinct); j++ {
				pair := record.Canonical(distinct[i], distinct[j])
				if _, err := stmt.ExecContext(ctx, pair.ID1, pair.ID2); err != nil {
					return errors.Wrap(err, "store: insert whitelist pair")
				}
			}
		}
		return nil
	})
}

// WhitelistContains reports whether the canonicalized pair (a, b) is
// whitelisted. It panics if a == b; callers only ever call this with two
// distinct file ids observed in a cluster.
func (s *Store) WhitelistContains(ctx context.Context, a, b int64) (bool, error) {
	pair := record.Canonical(a, b)
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM whitelist WHERE id1 = ? AND id2 = ?`, pair.ID1, pair.ID2).Scan(&n)
	if err != nil {
		return false, errors.Wrap(err, "store: whitelist contains")
	}
	return n > 0, nil
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
