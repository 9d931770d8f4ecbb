package main

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/viddup/viddup/internal/store"
)

func newWhitelistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whitelist <file...>",
		Short: "Record a whitelist clique over the listed files",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			ids := make([]int64, 0, len(args))
			for _, path := range args {
				abs, err := filepath.Abs(path)
				if err != nil {
					return errors.Wrapf(err, "whitelist: resolve path %s", path)
				}
				f, err := s.FindByPath(ctx, abs)
				if errors.Is(err, store.ErrFileNotFound) {
					return errors.Wrapf(err, "whitelist: %s was never ingested", abs)
				}
				if err != nil {
					return err
				}
				ids = append(ids, f.ID)
			}
			return s.WhitelistAdd(ctx, ids)
		},
	}
}
