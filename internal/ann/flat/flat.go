// Package flat is the always-available exact ANN backend: a brute-force
// linear scan under the Euclidean metric. At least one backend must be
// available at runtime; this one needs no external library at all, so it
// can never be the reason startup fails.
package flat

import (
	"math"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/viddup/viddup/internal/ann"
)

// Name is the backend name registered for this implementation.
const Name = "flat"

func init() {
	ann.Register(Name, New)
}

// Index is a brute-force, exact radius-query backend.
type Index struct {
	items []ann.Vector
}

// New constructs an empty flat Index. It satisfies ann.Factory.
func New() ann.Index {
	return &Index{}
}

func (idx *Index) Build(items []ann.Vector) error {
	idx.items = items
	return nil
}

func (idx *Index) Len() int { return len(idx.items) }

func (idx *Index) GetVector(row int) (ann.Vector, error) {
	if row < 0 || row >= len(idx.items) {
		return nil, errors.Newf("flat: row %d out of range [0, %d)", row, len(idx.items))
	}
	return idx.items[row], nil
}

// QueryRadius scans every indexed item and returns those strictly within
// radius, capped at ann.MaxRadiusResults closest-first so that the cap
// drops the farthest candidates rather than an arbitrary scan-order
// prefix.
func (idx *Index) QueryRadius(row int, radius float64) ([]int, error) {
	query, err := idx.GetVector(row)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		row  int
		dist float64
	}
	var candidates []candidate
	for i, v := range idx.items {
		d := l2(query, v)
		if d < radius {
			candidates = append(candidates, candidate{row: i, dist: d})
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
	if len(candidates) > ann.MaxRadiusResults {
		candidates = candidates[:ann.MaxRadiusResults]
	}

	out := make([]int, len(candidates))
	for i, c := range candidates {
		out[i] = c.row
	}
	return out, nil
}

func l2(a, b ann.Vector) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
