// Package whitelist isolates the "is this pair a known, accepted
// duplicate" query behind a small interface, so the duplicate reducer
// does not need to depend on the concrete store package or a live
// database to be tested.
package whitelist

import "context"

// Checker answers whether a canonicalized file-id pair has been
// whitelisted. *store.Store satisfies this directly.
type Checker interface {
	WhitelistContains(ctx context.Context, a, b int64) (bool, error)
}

// AllPairsWhitelisted reports whether every pair in pairs is whitelisted,
// short-circuiting (returning false) on the first pair that is not. An
// empty pairs slice is vacuously not a clique worth suppressing, so it
// returns false rather than true; callers must not call this with an
// empty slice expecting suppression.
//
// Pairwise-transitive cliques are the unit of suppression, so a single
// non-whitelisted pair means the whole group must still be reported.
func AllPairsWhitelisted(ctx context.Context, checker Checker, pairs [][2]int64) (bool, error) {
	if len(pairs) == 0 {
		return false, nil
	}
	for _, p := range pairs {
		ok, err := checker.WhitelistContains(ctx, p[0], p[1])
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
