// Command viddup finds near-duplicate video files in a media library by
// comparing perceptual scene-transition fingerprints rather than
// byte-level content.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/viddup/viddup/internal/config"
	"github.com/viddup/viddup/internal/metrics"
	"github.com/viddup/viddup/internal/store"
)

var (
	dbPath      string
	metricsAddr string
	logger      zerolog.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "viddup",
		Short:         "Find near-duplicate videos in a media library",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&dbPath, "db", config.DBPath(), "library database path")
	root.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address")

	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	root.AddCommand(
		newIngestCmd(),
		newSearchCmd(),
		newWhitelistCmd(),
		newPurgeCmd(),
		newFixMetadataCmd(),
		newBackupCmd(),
		newRestoreCmd(),
	)
	return root
}

// signalContext returns a context canceled on SIGINT/SIGTERM, so every
// verb's pass aborts cleanly mid-ingest or mid-search.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func openStore(ctx context.Context) (*store.Store, error) {
	s, err := store.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// startMetricsServer serves /metrics on metricsAddr if the flag is set,
// returning the registry for the caller's own collectors.
func startMetricsServer(ctx context.Context) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	if metricsAddr == "" {
		return reg
	}
	errCh := metrics.ServeAddr(ctx, metricsAddr, reg)
	go func() {
		if err := <-errCh; err != nil {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	return reg
}
