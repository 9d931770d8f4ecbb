package scene_test

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/require"

	"github.com/viddup/viddup/internal/scene"
)

// TestExtractDataDriven drives scene.Extract from testdata/extract: each
// "extract" command gives fps and min-spacing as args and a
// newline-separated brightness sequence as input, and expects one
// "frame gap" pair per line back.
func TestExtractDataDriven(t *testing.T) {
	datadriven.RunTest(t, "testdata/extract", func(t *testing.T, d *datadriven.TestData) string {
		switch d.Cmd {
		case "extract":
			fps, minSpacing := 1.0, scene.DefaultMinSpacingSeconds
			var arg string
			d.ScanArgs(t, "fps", &arg)
			fps = parseFloat(t, arg)
			if d.HasArg("min-spacing") {
				d.ScanArgs(t, "min-spacing", &arg)
				minSpacing = parseFloat(t, arg)
			}

			var brightness []float64
			for _, line := range strings.Split(strings.TrimSpace(d.Input), "\n") {
				v, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
				require.NoError(t, err)
				brightness = append(brightness, v)
			}

			fingerprints := scene.Extract(brightness, fps, minSpacing)

			var sb strings.Builder
			for _, fp := range fingerprints {
				fmt.Fprintf(&sb, "%d %.4f\n", fp.Frame, fp.Value)
			}
			return sb.String()
		default:
			t.Fatalf("unknown command %q", d.Cmd)
			return ""
		}
	})
}

func parseFloat(t *testing.T, s string) float64 {
	t.Helper()
	v, err := strconv.ParseFloat(s, 64)
	require.NoError(t, err)
	return v
}

func TestExtractPlantedPeaksRoundTrip(t *testing.T) {
	// Planted peaks at frames 0, 30, 70 with fps=10, so gaps are >= 3s
	// apart; min-spacing of 2s means all three survive.
	brightness := make([]float64, 100)
	for i := range brightness {
		brightness[i] = 1
	}
	for _, peak := range []int{0, 30, 70} {
		brightness[peak] = 100
	}

	got := scene.Extract(brightness, 10, 2)
	require.Len(t, got, 3)
	require.Equal(t, int64(0), got[0].Frame)
	require.Equal(t, int64(30), got[1].Frame)
	require.InDelta(t, 3.0, got[1].Value, 1e-9)
	require.Equal(t, int64(70), got[2].Frame)
	require.InDelta(t, 4.0, got[2].Value, 1e-9)
}

func TestExtractEmptyInput(t *testing.T) {
	require.Nil(t, scene.Extract(nil, 25, 10))
	require.Nil(t, scene.Extract([]float64{1, 2, 3}, 0, 10))
}
