package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newBackupCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a compressed snapshot of the library database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()

			return s.Export(ctx, f)
		},
	}

	cmd.Flags().StringVar(&out, "out", "viddup.snapshot", "output snapshot path")
	return cmd
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <snapshot>",
		Short: "Load a snapshot produced by backup into an empty library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			return s.Import(ctx, f)
		},
	}
}
