package report_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viddup/viddup/internal/dedup"
	"github.com/viddup/viddup/internal/record"
	"github.com/viddup/viddup/internal/report"
)

func TestWriteClustersFormatsOffsetsAndBlankLines(t *testing.T) {
	clusters := []dedup.Cluster{
		{Entries: []dedup.ClusterEntry{
			{File: record.File{Path: "/a.mp4"}, OffsetSeconds: 65},
			{File: record.File{Path: "/b.mp4"}, OffsetSeconds: 3725},
		}},
		{Entries: []dedup.ClusterEntry{
			{File: record.File{Path: "/c.mp4"}, OffsetSeconds: 0},
			{File: record.File{Path: "/d.mp4"}, OffsetSeconds: 5.9},
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, report.WriteClusters(&buf, clusters))

	require.Equal(t,
		"/a.mp4 --ss 0:01:05\n"+
			"/b.mp4 --ss 1:02:05\n"+
			"\n"+
			"/c.mp4 --ss 0:00:00\n"+
			"/d.mp4 --ss 0:00:05\n",
		buf.String())
}

func TestPlotClusterSizesHandlesEmpty(t *testing.T) {
	require.Equal(t, "no clusters to plot", report.PlotClusterSizes(nil))
}

func TestPlotClusterSizesRendersSomething(t *testing.T) {
	clusters := []dedup.Cluster{
		{Entries: []dedup.ClusterEntry{{}, {}}},
		{Entries: []dedup.ClusterEntry{{}, {}, {}}},
	}
	out := report.PlotClusterSizes(clusters)
	require.NotEmpty(t, out)
}
