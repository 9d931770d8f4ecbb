// Package kdtree is the tree-structured ANN backend, built on
// gonum.org/v1/gonum/spatial/kdtree. Unlike flat, it partitions the
// space so a radius query does not have to touch every indexed vector;
// its results are otherwise exact, not approximate; only the amount of
// work done to find them differs.
package kdtree

import (
	"sort"

	"github.com/cockroachdb/errors"
	gokd "gonum.org/v1/gonum/spatial/kdtree"

	"github.com/viddup/viddup/internal/ann"
)

// Name is the backend name registered for this implementation.
const Name = "kdtree"

func init() {
	ann.Register(Name, New)
}

// Index wraps a gonum kd-tree over the indexed vectors.
type Index struct {
	tree  *gokd.Tree
	items vectorPoints
}

// New constructs an empty kdtree Index. It satisfies ann.Factory.
func New() ann.Index {
	return &Index{}
}

func (idx *Index) Build(vectors []ann.Vector) error {
	points := make(vectorPoints, len(vectors))
	for i, v := range vectors {
		points[i] = vectorPoint{row: i, values: v}
	}
	// gokd.New partitions points in place via Pivot/Slice; keep our own
	// copy so GetVector(row) can answer by original row without walking
	// the tree.
	idx.items = make(vectorPoints, len(points))
	copy(idx.items, points)

	idx.tree = gokd.New(points, false)
	return nil
}

func (idx *Index) Len() int { return len(idx.items) }

func (idx *Index) GetVector(row int) (ann.Vector, error) {
	if row < 0 || row >= len(idx.items) {
		return nil, errors.Newf("kdtree: row %d out of range [0, %d)", row, len(idx.items))
	}
	return idx.items[row].values, nil
}

// QueryRadius returns every indexed row whose Euclidean distance to row's
// vector is strictly less than radius, capped at ann.MaxRadiusResults
// closest-first.
func (idx *Index) QueryRadius(row int, radius float64) ([]int, error) {
	query, err := idx.GetVector(row)
	if err != nil {
		return nil, err
	}

	// DistKeeper retains every candidate with squared distance <= the
	// sentinel it was seeded with; the sentinel carries a nil Comparable,
	// and NearestSet drops it before returning (the nil check below is a
	// guard). The contract wants strictly-within, so boundary hits are
	// filtered out below.
	radiusSq := radius * radius
	keeper := gokd.NewDistKeeper(radiusSq)
	idx.tree.NearestSet(keeper, vectorPoint{row: row, values: query})

	var found []gokd.ComparableDist
	for _, c := range keeper.Heap {
		if c.Comparable == nil || c.Dist >= radiusSq {
			continue
		}
		found = append(found, c)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Dist < found[j].Dist })
	if len(found) > ann.MaxRadiusResults {
		found = found[:ann.MaxRadiusResults]
	}

	out := make([]int, len(found))
	for i, c := range found {
		out[i] = c.Comparable.(vectorPoint).row
	}
	return out, nil
}

// vectorPoint is our own gokd.Comparable, carrying the original row index
// alongside the window values so a query result can be mapped back to a
// row without a secondary lookup.
type vectorPoint struct {
	row    int
	values []float64
}

func (p vectorPoint) Compare(c gokd.Comparable, d gokd.Dim) float64 {
	o := c.(vectorPoint)
	return p.values[int(d)] - o.values[int(d)]
}

func (p vectorPoint) Dims() int { return len(p.values) }

// Distance returns the squared Euclidean distance, matching the contract
// gokd.Comparable documents (the tree itself never takes a square root;
// callers needing true L2 distance, like flat, do that themselves).
func (p vectorPoint) Distance(c gokd.Comparable) float64 {
	o := c.(vectorPoint)
	var sum float64
	for i, v := range p.values {
		d := v - o.values[i]
		sum += d * d
	}
	return sum
}

// vectorPoints implements gokd.Interface over a slice of vectorPoint.
type vectorPoints []vectorPoint

func (ps vectorPoints) Index(i int) gokd.Comparable { return ps[i] }
func (ps vectorPoints) Len() int                    { return len(ps) }

// Pivot partitions ps by dimension d so the median element lands at
// len(ps)/2 with lesser values before it and greater values after, per
// gokd.Interface's contract. A full sort is simpler to get right than a
// hand-rolled quickselect and Build is not in any hot loop relative to the
// O(n) fingerprint work upstream.
func (ps vectorPoints) Pivot(d gokd.Dim) int {
	sort.Slice(ps, func(i, j int) bool { return ps[i].values[int(d)] < ps[j].values[int(d)] })
	return len(ps) / 2
}

func (ps vectorPoints) Slice(start, end int) gokd.Interface { return ps[start:end] }
