package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newPurgeCmd() *cobra.Command {
	var del bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Report or delete records for missing files and orphans",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			missing, orphans, err := s.Purge(ctx, !del)
			if err != nil {
				return err
			}

			for _, f := range missing {
				fmt.Fprintln(os.Stdout, f.Path)
			}
			fmt.Fprintf(os.Stderr, "%d missing files, %d orphan fingerprints", len(missing), orphans)
			if !del {
				fmt.Fprint(os.Stderr, " (dry run; pass --delete to remove)")
			}
			fmt.Fprintln(os.Stderr)
			return nil
		},
	}

	cmd.Flags().BoolVar(&del, "delete", false, "actually delete the reported rows instead of a dry run")
	return cmd
}
