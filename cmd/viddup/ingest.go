package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/viddup/viddup/internal/decode"
	"github.com/viddup/viddup/internal/ingest"
	"github.com/viddup/viddup/internal/metrics"
)

func newIngestCmd() *cobra.Command {
	var exts string

	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Walk a directory and ingest new video files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			reg := startMetricsServer(ctx)
			m := metrics.NewIngest(reg)

			controller := &ingest.Controller{
				Store:   s,
				Decoder: decode.FFmpegDecoder{},
				Log:     logger,
				Metrics: m,
			}

			extList := strings.Split(exts, ",")
			return controller.Run(ctx, args[0], extList)
		},
	}

	cmd.Flags().StringVar(&exts, "exts", "mp4,mkv,avi,mov", "comma-separated list of file extensions to ingest")
	return cmd
}
