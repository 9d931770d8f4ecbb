// Package ann defines the capability set every approximate-nearest-
// neighbor backend must expose, independent of which concrete backend
// (flat, kdtree, ...) is selected at startup: one small interface,
// multiple implementations dispatched by name.
package ann

import "github.com/cockroachdb/errors"

// MaxRadiusResults caps QueryRadius results. The search is intentionally
// local: the reducer relies on this cap regardless of which backend is
// selected, so backends that could return unbounded radius results must
// enforce it themselves rather than leaving it to callers.
const MaxRadiusResults = 20

// ErrBackendUnavailable is returned by Open when the requested backend
// name is not registered. This is a fail-fast startup error, never a
// silent fallback.
var ErrBackendUnavailable = errors.New("ann: backend unavailable")

// Vector is a fixed-length real-valued window, built by the window
// assembler.
type Vector []float64

// Index is the unified interface over every ANN backend.
type Index interface {
	// Build constructs the index over items. It must only be called once
	// per Index; backends are not required to support incremental build.
	Build(items []Vector) error

	// Len returns how many items were indexed.
	Len() int

	// GetVector returns the vector at row, distance-identical to what was
	// passed to Build.
	GetVector(row int) (Vector, error)

	// QueryRadius returns the row indices whose Euclidean distance to
	// GetVector(row) is strictly less than radius, capped at
	// MaxRadiusResults. The result order is backend-defined; the reducer
	// sorts it itself, so callers must not rely on distance order.
	QueryRadius(row int, radius float64) ([]int, error)
}

// Factory builds a fresh, empty Index for a named backend.
type Factory func() Index

var registry = map[string]Factory{}

// Register adds a backend factory under name. Backend packages call this
// from an init func; the CLI selects among registered names by flag.
func Register(name string, factory Factory) {
	registry[name] = factory
}

// Open returns a fresh Index for the named backend, or ErrBackendUnavailable
// if no such backend was registered.
func Open(name string) (Index, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(ErrBackendUnavailable, "backend %q", name)
	}
	return factory(), nil
}

// Names returns every registered backend name, for help text and error
// messages.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
