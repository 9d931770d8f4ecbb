package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viddup/viddup/internal/ann"
	_ "github.com/viddup/viddup/internal/ann/flat"
	_ "github.com/viddup/viddup/internal/ann/kdtree"
	"github.com/viddup/viddup/internal/dedup"
	"github.com/viddup/viddup/internal/report"
	"github.com/viddup/viddup/internal/whitelist"
	"github.com/viddup/viddup/internal/window"
)

func newSearchCmd() *cobra.Command {
	var (
		length  int
		scene   float64
		radius  float64
		step    int
		trim    string
		backend string
		plot    bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run the search pass and print duplicate clusters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			lead, tail, err := parseTrim(trim)
			if err != nil {
				return err
			}

			windows, err := window.Assemble(ctx, s, window.Params{
				Len: length, SceneCapSecs: scene, TrimLeadSecs: lead, TrimTailSecs: tail,
			})
			if err != nil {
				return err
			}
			if len(windows) == 0 {
				fmt.Fprintln(os.Stderr, "no windows assembled; nothing to search")
				return nil
			}

			idx, err := ann.Open(backend)
			if err != nil {
				return err
			}
			vectors := make([]ann.Vector, len(windows))
			for i, w := range windows {
				vectors[i] = w.Values
			}
			if err := idx.Build(vectors); err != nil {
				return err
			}

			var checker whitelist.Checker = s
			clusters, err := dedup.Reduce(ctx, windows, idx, dedup.Params{Step: step, Radius: radius}, checker, s)
			if err != nil {
				return err
			}

			if err := report.WriteClusters(os.Stdout, clusters); err != nil {
				return err
			}
			if plot {
				fmt.Fprintln(os.Stderr, report.PlotClusterSizes(clusters))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&length, "len", 10, "window length L")
	cmd.Flags().Float64Var(&scene, "scene", 300, "scene cap S, in seconds")
	cmd.Flags().Float64Var(&radius, "radius", 1.0, "ANN query radius")
	cmd.Flags().IntVar(&step, "step", 1, "row step sigma")
	cmd.Flags().StringVar(&trim, "trim", "0/0", "leading/trailing trim in seconds, as T0/T1")
	cmd.Flags().StringVar(&backend, "backend", "flat", fmt.Sprintf("ANN backend (%s)", strings.Join(ann.Names(), ", ")))
	cmd.Flags().BoolVar(&plot, "plot", false, "print an ascii plot of cluster sizes")
	return cmd
}

func parseTrim(s string) (lead, tail float64, err error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("search: --trim must be T0/T1, got %q", s)
	}
	if _, err := fmt.Sscanf(parts[0], "%g", &lead); err != nil {
		return 0, 0, fmt.Errorf("search: invalid leading trim %q: %w", parts[0], err)
	}
	if _, err := fmt.Sscanf(parts[1], "%g", &tail); err != nil {
		return 0, 0, fmt.Errorf("search: invalid trailing trim %q: %w", parts[1], err)
	}
	return lead, tail, nil
}
