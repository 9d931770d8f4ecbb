// Package report formats duplicate clusters for terminal output: one
// line per file in a cluster, a blank line between clusters, each line
// carrying a `--ss H:MM:SS` offset a playback command can be handed
// directly.
package report

import (
	"fmt"
	"io"

	"github.com/guptarohit/asciigraph"

	"github.com/viddup/viddup/internal/dedup"
)

// WriteClusters writes every cluster to w in order.
func WriteClusters(w io.Writer, clusters []dedup.Cluster) error {
	for i, c := range clusters {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		for _, entry := range c.Entries {
			_, err := fmt.Fprintf(w, "%s --ss %s\n", entry.File.Path, formatOffset(entry.OffsetSeconds))
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// formatOffset renders seconds as H:MM:SS, truncating (not rounding) any
// fractional second. A player's --ss flag seeks at second granularity,
// and rounding up could seek past the matched frame.
func formatOffset(seconds float64) string {
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// PlotClusterSizes renders cluster sizes as an ascii line chart, for the
// search verb's `--plot` flag. It gives a quick visual sense of whether a
// run mostly found pairs or large groups of near-duplicates.
func PlotClusterSizes(clusters []dedup.Cluster) string {
	sizes := make([]float64, len(clusters))
	for i, c := range clusters {
		sizes[i] = float64(len(c.Entries))
	}
	if len(sizes) == 0 {
		return "no clusters to plot"
	}
	return asciigraph.Plot(sizes, asciigraph.Height(10), asciigraph.Caption("cluster size by emission order"))
}
