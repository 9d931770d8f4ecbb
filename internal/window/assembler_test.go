package window_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

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

func TestAssembleSkipsFilesUnderFiveFingerprints(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.IngestFile(ctx, "/video/short.mp4", 25, 10, nil,
		[]record.Fingerprint{{Frame: 0, Value: 1}, {Frame: 1, Value: 1}, {Frame: 2, Value: 1}})
	require.NoError(t, err)

	windows, err := window.Assemble(ctx, s, window.Params{Len: 3, SceneCapSecs: 300})
	require.NoError(t, err)
	require.Empty(t, windows)
}

func TestAssembleProducesSlidingWindows(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	fingerprints := make([]record.Fingerprint, 7)
	for i := range fingerprints {
		fingerprints[i] = record.Fingerprint{Frame: int64(i), Value: float64(i)}
	}
	id, err := s.IngestFile(ctx, "/video/a.mp4", 25, 10, nil, fingerprints)
	require.NoError(t, err)

	windows, err := window.Assemble(ctx, s, window.Params{Len: 3, SceneCapSecs: 1000})
	require.NoError(t, err)
	require.Len(t, windows, 5) // 7 fingerprints, length 3 -> 5 sliding windows

	require.Equal(t, id, windows[0].FileID)
	require.Equal(t, int64(0), windows[0].FirstFrame)
	require.Equal(t, []float64{0, 1, 2}, []float64(windows[0].Values))

	require.Equal(t, int64(4), windows[4].FirstFrame)
	require.Equal(t, []float64{4, 5, 6}, []float64(windows[4].Values))
}

func TestAssembleRespectsTrim(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	fingerprints := make([]record.Fingerprint, 10)
	for i := range fingerprints {
		fingerprints[i] = record.Fingerprint{Frame: int64(i), Value: float64(i)}
	}
	// fps=1 so min_frame/max_frame land on whole seconds directly.
	_, err := s.IngestFile(ctx, "/video/a.mp4", 1, 10, nil, fingerprints)
	require.NoError(t, err)

	windows, err := window.Assemble(ctx, s, window.Params{
		Len: 3, SceneCapSecs: 1000, TrimLeadSecs: 2, TrimTailSecs: 3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, windows)
	for _, w := range windows {
		require.GreaterOrEqual(t, w.FirstFrame, int64(2))
	}
}

func TestApplySceneCapZeroesTailAfterOverflow(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	fingerprints := []record.Fingerprint{
		{Frame: 0, Value: 100},
		{Frame: 1, Value: 100},
		{Frame: 2, Value: 100},
		{Frame: 3, Value: 100},
		{Frame: 4, Value: 100},
	}
	_, err := s.IngestFile(ctx, "/video/a.mp4", 25, 60, nil, fingerprints)
	require.NoError(t, err)

	// Running sum after each entry: 100, 200, 300, 400 (> 300 -> cap from here).
	windows, err := window.Assemble(ctx, s, window.Params{Len: 5, SceneCapSecs: 300})
	require.NoError(t, err)
	require.Len(t, windows, 1)

	// Entries 0,1,2 (sum 100,200,300) pass the "total > cap" check before
	// adding; entry 3 is the first where the running total (300) is not yet
	// over cap so it still counts, pushing the total to 400 - entry 4 then
	// sees total=400 > 300 and is zeroed.
	require.Equal(t, []float64{100, 100, 100, 100, 0}, []float64(windows[0].Values))
}
