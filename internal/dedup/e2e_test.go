package dedup_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viddup/viddup/internal/dedup"
	"github.com/viddup/viddup/internal/record"
	"github.com/viddup/viddup/internal/store"
	"github.com/viddup/viddup/internal/window"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lib.db")
	s, err := store.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(ctx))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// sceneFingerprints builds n fingerprints spaced gapFrames apart, the
// shape the scene extractor produces for a video with evenly spaced
// scene breaks.
func sceneFingerprints(n int, gapFrames int64, fps float64) []record.Fingerprint {
	out := make([]record.Fingerprint, n)
	for i := range out {
		frame := int64(i) * gapFrames
		out[i] = record.Fingerprint{Frame: frame, Value: float64(gapFrames) / fps}
	}
	out[0].Value = 0
	return out
}

// TestSearchPassFindsIdenticalCopies runs the whole search pass (store,
// window assembly, flat index, reducer) over two files ingested with
// identical scene structure, expecting one cluster of two entries at the
// same offset.
func TestSearchPassFindsIdenticalCopies(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	fps, gap := 25.0, int64(300) // a scene break every 12 seconds
	fingerprints := sceneFingerprints(20, gap, fps)
	_, err := s.IngestFile(ctx, "/video/a.mp4", fps, 600, nil, fingerprints)
	require.NoError(t, err)
	_, err = s.IngestFile(ctx, "/video/b.mp4", fps, 600, nil, fingerprints)
	require.NoError(t, err)

	windows, err := window.Assemble(ctx, s, window.DefaultParams())
	require.NoError(t, err)
	require.NotEmpty(t, windows)

	idx := buildIndex(t, windows)
	clusters, err := dedup.Reduce(ctx, windows, idx,
		dedup.Params{Step: 1, Radius: 1.0}, s, s)
	require.NoError(t, err)

	require.Len(t, clusters, 1)
	require.Len(t, clusters[0].Entries, 2)
	require.Equal(t, "/video/a.mp4", clusters[0].Entries[0].File.Path)
	require.Equal(t, "/video/b.mp4", clusters[0].Entries[1].File.Path)
	require.InDelta(t,
		clusters[0].Entries[0].OffsetSeconds,
		clusters[0].Entries[1].OffsetSeconds, 1.0/fps)
}

// TestSearchPassWhitelistSuppressesKnownPair re-runs the search after
// whitelisting the pair found above; the cluster must disappear.
func TestSearchPassWhitelistSuppressesKnownPair(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	fps, gap := 25.0, int64(300)
	fingerprints := sceneFingerprints(20, gap, fps)
	idA, err := s.IngestFile(ctx, "/video/a.mp4", fps, 600, nil, fingerprints)
	require.NoError(t, err)
	idB, err := s.IngestFile(ctx, "/video/b.mp4", fps, 600, nil, fingerprints)
	require.NoError(t, err)
	require.NoError(t, s.WhitelistAdd(ctx, []int64{idA, idB}))

	windows, err := window.Assemble(ctx, s, window.DefaultParams())
	require.NoError(t, err)

	idx := buildIndex(t, windows)
	clusters, err := dedup.Reduce(ctx, windows, idx,
		dedup.Params{Step: 1, Radius: 1.0}, s, s)
	require.NoError(t, err)
	require.Empty(t, clusters)
}

// TestSearchPassTrimBelowFiveFingerprintsYieldsNothing trims both files
// down to a tail with fewer than five in-range fingerprints, which
// excludes them from the search entirely.
func TestSearchPassTrimBelowFiveFingerprintsYieldsNothing(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	fps, gap := 25.0, int64(300)
	fingerprints := sceneFingerprints(20, gap, fps)
	_, err := s.IngestFile(ctx, "/video/a.mp4", fps, 600, nil, fingerprints)
	require.NoError(t, err)
	_, err = s.IngestFile(ctx, "/video/b.mp4", fps, 600, nil, fingerprints)
	require.NoError(t, err)

	params := window.DefaultParams()
	params.TrimLeadSecs = 560 // leaves ~40s: at most 4 of the 12s-spaced breaks
	windows, err := window.Assemble(ctx, s, params)
	require.NoError(t, err)
	require.Empty(t, windows)
}
