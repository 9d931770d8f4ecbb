// Package dedup implements the duplicate reducer: it walks an ANN index
// over assembled windows and emits clusters of files that share a
// near-duplicate window, filtering out pairs already reported and pairs
// that form a fully whitelisted clique.
package dedup

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/viddup/viddup/internal/ann"
	"github.com/viddup/viddup/internal/record"
	"github.com/viddup/viddup/internal/whitelist"
	"github.com/viddup/viddup/internal/window"
)

// ClusterEntry is one file's appearance in a duplicate cluster: the file
// record plus the earliest-touched offset, in seconds, at which the
// shared window begins.
type ClusterEntry struct {
	File          record.File
	OffsetSeconds float64
}

// Cluster is a set of ≥ 2 files considered near-duplicates of one
// another, in the order they were first encountered while walking the
// ANN index.
type Cluster struct {
	Entries []ClusterEntry
}

// FileResolver loads a file record by id. *store.Store satisfies this.
type FileResolver interface {
	GetFile(ctx context.Context, id int64) (record.File, error)
}

// Params controls the reducer's walk.
type Params struct {
	Step   int     // σ, default 1
	Radius float64 // r
}

// Reduce walks the ANN index row by row over windows (in ANN row order,
// windows[i] must be the vector idx was built from at row i) and returns
// every emitted cluster. It returns early, with whatever clusters have
// already been emitted, if ctx is canceled; a partial cluster in
// progress is discarded, not emitted.
func Reduce(
	ctx context.Context,
	windows []window.Window,
	idx ann.Index,
	params Params,
	checker whitelist.Checker,
	files FileResolver,
) ([]Cluster, error) {
	step := params.Step
	if step <= 0 {
		step = 1
	}

	n := idx.Len()
	if n != len(windows) {
		return nil, errors.Newf("dedup: index has %d rows but %d windows were supplied", n, len(windows))
	}

	known := make(map[record.WhitelistPair]bool)
	fileCache := make(map[int64]record.File)
	getFile := func(id int64) (record.File, error) {
		if f, ok := fileCache[id]; ok {
			return f, nil
		}
		f, err := files.GetFile(ctx, id)
		if err != nil {
			return record.File{}, errors.Wrapf(err, "dedup: resolve file %d", id)
		}
		fileCache[id] = f
		return f, nil
	}

	var clusters []Cluster
	for i := 0; i < n; i += step {
		if err := ctx.Err(); err != nil {
			return clusters, nil
		}

		neighbors, err := idx.QueryRadius(i, params.Radius)
		if err != nil {
			return nil, errors.Wrapf(err, "dedup: query radius at row %d", i)
		}
		sort.Ints(neighbors)
		if len(neighbors) <= 1 {
			continue
		}

		fileIDs := distinctFileIDsAscending(neighbors, windows)
		if len(fileIDs) < 2 {
			continue
		}

		pairs := newPairs(fileIDs, known)
		if len(pairs) == 0 {
			continue
		}

		suppressed, err := whitelist.AllPairsWhitelisted(ctx, checker, toCheckerPairs(pairs))
		if err != nil {
			return nil, errors.Wrap(err, "dedup: check whitelist clique")
		}
		if suppressed {
			continue
		}

		for _, p := range pairs {
			known[p] = true
		}

		cluster, err := materializeCluster(neighbors, windows, pairs, getFile)
		if err != nil {
			return nil, err
		}
		if len(cluster.Entries) >= 2 {
			clusters = append(clusters, cluster)
		}
	}

	return clusters, nil
}

// distinctFileIDsAscending returns the distinct file ids referenced by
// neighbors (already sorted by row index), sorted ascending.
func distinctFileIDsAscending(neighbors []int, windows []window.Window) []int64 {
	seen := make(map[int64]bool, len(neighbors))
	var ids []int64
	for _, row := range neighbors {
		id := windows[row].FileID
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// newPairs forms every unordered pair of fileIDs, excluding any pair
// already present in known.
func newPairs(fileIDs []int64, known map[record.WhitelistPair]bool) []record.WhitelistPair {
	var pairs []record.WhitelistPair
	for a := 0; a < len(fileIDs); a++ {
		for b := a + 1; b < len(fileIDs); b++ {
			pair := record.Canonical(fileIDs[a], fileIDs[b])
			if known[pair] {
				continue
			}
			pairs = append(pairs, pair)
		}
	}
	return pairs
}

func toCheckerPairs(pairs []record.WhitelistPair) [][2]int64 {
	out := make([][2]int64, len(pairs))
	for i, p := range pairs {
		out[i] = [2]int64{p.ID1, p.ID2}
	}
	return out
}

// materializeCluster walks neighbors (in row-index order) a second time,
// appending one entry per file-id that still appears in pairs, at its
// earliest-touched row.
func materializeCluster(
	neighbors []int,
	windows []window.Window,
	pairs []record.WhitelistPair,
	getFile func(int64) (record.File, error),
) (Cluster, error) {
	inSurvivingPairs := make(map[int64]bool)
	for _, p := range pairs {
		inSurvivingPairs[p.ID1] = true
		inSurvivingPairs[p.ID2] = true
	}

	var cluster Cluster
	added := make(map[int64]bool)
	for _, row := range neighbors {
		w := windows[row]
		if !inSurvivingPairs[w.FileID] || added[w.FileID] {
			continue
		}
		added[w.FileID] = true

		f, err := getFile(w.FileID)
		if err != nil {
			return Cluster{}, err
		}
		cluster.Entries = append(cluster.Entries, ClusterEntry{
			File:          f,
			OffsetSeconds: float64(w.FirstFrame) / f.FPS,
		})
	}
	return cluster, nil
}
