// Package window projects a file's scene fingerprints into fixed-length
// windows suitable as ANN query vectors.
package window

import (
	"context"
	"runtime"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/viddup/viddup/internal/ann"
	"github.com/viddup/viddup/internal/record"
	"github.com/viddup/viddup/internal/store"
)

// Params are the assembler's tunable parameters.
type Params struct {
	Len          int     // window length, default 10
	SceneCapSecs float64 // scene cap, default 300
	TrimLeadSecs float64 // leading trim
	TrimTailSecs float64 // trailing trim
}

// DefaultParams returns the standard window length and scene cap, with
// zero trim.
func DefaultParams() Params {
	return Params{Len: 10, SceneCapSecs: 300}
}

// Window is one L-length slice of (possibly scene-capped) fingerprint
// values, tagged with which file it came from and the frame its first
// entry starts at.
type Window struct {
	FileID     int64
	FirstFrame int64
	Values     ann.Vector
}

// Assemble loads fingerprints for every known file from src and slides a
// fixed-length window over each file's in-range sequence. Files with
// fewer than 5 in-range fingerprints are skipped entirely.
//
// Per-file work is independent (each file's fingerprints are loaded and
// windowed in isolation), so files are assembled concurrently, bounded by
// GOMAXPROCS, via errgroup. Results are collected into a slice indexed by
// each file's position in the iteration order and concatenated afterward,
// so the output is identical to the sequential walk regardless of
// goroutine scheduling.
func Assemble(ctx context.Context, src *store.Store, params Params) ([]Window, error) {
	if params.Len <= 0 {
		return nil, errors.Newf("window: length must be positive, got %d", params.Len)
	}

	fileIt, err := src.IterFiles(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "window: iter files")
	}
	defer fileIt.Close()

	var files []record.File
	for fileIt.Next() {
		files = append(files, fileIt.File())
	}
	if err := fileIt.Err(); err != nil {
		return nil, errors.Wrap(err, "window: iterate files")
	}

	perFile := make([][]Window, len(files))
	limit := runtime.GOMAXPROCS(0)
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			fw, err := assembleFile(gctx, src, f, params)
			if err != nil {
				return err
			}
			perFile[i] = fw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var windows []Window
	for _, fw := range perFile {
		windows = append(windows, fw...)
	}
	return windows, nil
}

func assembleFile(ctx context.Context, src *store.Store, f record.File, params Params) ([]Window, error) {
	minFrame := int64(params.TrimLeadSecs * f.FPS)
	maxFrame := int64((f.Duration - params.TrimTailSecs) * f.FPS)
	if maxFrame < minFrame {
		return nil, nil
	}

	it, err := src.IterFingerprints(ctx, f.ID, minFrame, maxFrame)
	if err != nil {
		return nil, errors.Wrapf(err, "window: iter fingerprints for file %d", f.ID)
	}
	defer it.Close()

	var fingerprints []record.Fingerprint
	for it.Next() {
		fingerprints = append(fingerprints, it.Fingerprint())
	}
	if err := it.Err(); err != nil {
		return nil, errors.Wrapf(err, "window: iterate fingerprints for file %d", f.ID)
	}

	if len(fingerprints) < 5 {
		return nil, nil
	}

	n := len(fingerprints)
	if n < params.Len {
		return nil, nil
	}

	windows := make([]Window, 0, n-params.Len+1)
	for i := 0; i+params.Len <= n; i++ {
		values := make(ann.Vector, params.Len)
		for j := 0; j < params.Len; j++ {
			values[j] = fingerprints[i+j].Value
		}
		applySceneCap(values, params.SceneCapSecs)

		windows = append(windows, Window{
			FileID:     f.ID,
			FirstFrame: fingerprints[i].Frame,
			Values:     values,
		})
	}

	return windows, nil
}

// applySceneCap zeroes every entry of values past the point the running
// sum exceeds capSecs. The comparison happens before adding the current
// entry to the running total, so values up to and including the entry
// that first pushes the sum over the cap are kept and everything after
// is zeroed. Downstream match radii are tuned to this exact sequencing;
// do not move the comparison after the increment.
func applySceneCap(values []float64, capSecs float64) {
	var total float64
	capped := false
	for i, v := range values {
		if capped {
			values[i] = 0
			continue
		}
		if total > capSecs {
			capped = true
			values[i] = 0
			continue
		}
		total += v
	}
}
