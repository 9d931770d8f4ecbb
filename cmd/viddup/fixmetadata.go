package main

import (
	"github.com/spf13/cobra"

	"github.com/viddup/viddup/internal/decode"
)

func newFixMetadataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fix-metadata",
		Short: "Re-probe files with missing fps/duration and update them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			it, err := s.IterFiles(ctx)
			if err != nil {
				return err
			}
			defer it.Close()

			var toFix []int64
			for it.Next() {
				f := it.File()
				if f.FPS <= 0 || f.Duration <= 0 {
					toFix = append(toFix, f.ID)
				}
			}
			if err := it.Err(); err != nil {
				return err
			}

			for _, id := range toFix {
				f, err := s.GetFile(ctx, id)
				if err != nil {
					logger.Warn().Err(err).Int64("file_id", id).Msg("failed to load file for fix-metadata")
					continue
				}
				fps, duration, err := decode.Probe(ctx, f.Path)
				if err != nil {
					logger.Warn().Err(err).Str("path", f.Path).Msg("failed to re-probe file")
					continue
				}
				if err := s.UpdateFileMetadata(ctx, id, fps, duration); err != nil {
					logger.Warn().Err(err).Str("path", f.Path).Msg("failed to update file metadata")
					continue
				}
				logger.Info().Str("path", f.Path).Float64("fps", fps).Float64("duration", duration).Msg("fixed metadata")
			}
			return nil
		},
	}
}
