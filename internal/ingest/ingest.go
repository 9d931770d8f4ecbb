// Package ingest drives the ingest pass: enumerate candidate files, skip
// ones already known to the store, and run the frame-to-scene pipeline
// over every new one, each in its own transaction.
package ingest

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/viddup/viddup/internal/frame"
	"github.com/viddup/viddup/internal/metrics"
	"github.com/viddup/viddup/internal/record"
	"github.com/viddup/viddup/internal/remotefs"
	"github.com/viddup/viddup/internal/scene"
	"github.com/viddup/viddup/internal/store"
)

// Decoder opens path as a frame.Source. It is the external collaborator
// the core pipeline never implements itself; callers supply a concrete
// decoder (e.g. the ffmpeg-backed one in internal/decode).
type Decoder interface {
	Open(ctx context.Context, path string) (frame.Source, error)
}

// Controller runs ingest passes against a single Store.
type Controller struct {
	Store      *store.Store
	Decoder    Decoder
	Log        zerolog.Logger
	Metrics    *metrics.Ingest
	MinSpacing float64 // scene extractor's D; zero means scene.DefaultMinSpacingSeconds

	// Remote is an optional additional file source. When set, Run also
	// stages and ingests every object it lists, alongside the local
	// directory walk.
	Remote remotefs.Source
}

// Run walks root for files whose extension (case-insensitive, with or
// without a leading dot) is in exts, ingesting every one not already
// known to the Store. It returns an error only on cancellation, a
// directory-walk error, or a failure to list the Remote source; per-file
// failures are logged and skipped.
func (c *Controller) Run(ctx context.Context, root string, exts []string) error {
	runID := uuid.NewString()
	log := c.Log.With().Str("run_id", runID).Logger()
	extSet := normalizeExts(exts)

	log.Info().Str("root", root).Strs("exts", exts).Msg("ingest pass starting")

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "ingest: walk %s", path)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !extSet[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		c.ingestOne(ctx, log, path)
		return ctx.Err()
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, "ingest: walk directory")
	}
	if ctx.Err() != nil {
		log.Info().Msg("ingest pass canceled")
		return ctx.Err()
	}

	if c.Remote != nil {
		if err := c.runRemote(ctx, log, extSet); err != nil {
			return err
		}
	}

	if c.Metrics != nil {
		log.Info().Str("summary", c.Metrics.Summary()).Msg("ingest pass complete")
	}
	return nil
}

func (c *Controller) runRemote(ctx context.Context, log zerolog.Logger, extSet map[string]bool) error {
	keys, err := c.Remote.List(ctx)
	if err != nil {
		return errors.Wrap(err, "ingest: list remote source")
	}
	for _, key := range keys {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !extSet[strings.ToLower(filepath.Ext(key))] {
			continue
		}
		localPath, err := c.Remote.Stage(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to stage remote file")
			continue
		}
		c.ingestOne(ctx, log, localPath)
		if err := remotefs.Cleanup(localPath); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to clean up staged file")
		}
	}
	return nil
}

// ingestOne runs the summarize-extract-persist pipeline for a single
// file. It never returns an error; every failure is logged and the pass
// continues.
func (c *Controller) ingestOne(ctx context.Context, log zerolog.Logger, path string) {
	start := time.Now()
	defer func() {
		if c.Metrics != nil {
			c.Metrics.ObserveFile(time.Since(start))
		}
	}()

	already, err := c.Store.IsIngested(ctx, path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to check ingest status")
		if c.Metrics != nil {
			c.Metrics.IncFailed()
		}
		return
	}
	if already {
		if c.Metrics != nil {
			c.Metrics.IncSkipped()
		}
		return
	}

	src, err := c.Decoder.Open(ctx, path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to open decoder")
		if c.Metrics != nil {
			c.Metrics.IncFailed()
		}
		return
	}

	seq, err := frame.Summarize(ctx, src)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, frame.ErrDecodeTruncated) {
			log.Warn().Err(err).Str("path", path).Msg("decode truncated, keeping partial sequence")
		} else {
			log.Warn().Err(err).Str("path", path).Msg("unexpected decode error, keeping partial sequence")
		}
	}
	if len(seq.Brightness) == 0 {
		log.Warn().Str("path", path).Msg("file produced zero frames, skipping")
		if c.Metrics != nil {
			c.Metrics.IncFailed()
		}
		return
	}

	spacing := c.MinSpacing
	if spacing <= 0 {
		spacing = scene.DefaultMinSpacingSeconds
	}
	fingerprints := scene.Extract(seq.Brightness, seq.FPS, spacing)
	if len(fingerprints) == 0 {
		log.Warn().Str("path", path).Msg("file produced zero scene fingerprints, skipping")
		if c.Metrics != nil {
			c.Metrics.IncFailed()
		}
		return
	}

	brightness := make([]record.Brightness, len(seq.Brightness))
	for i, v := range seq.Brightness {
		brightness[i] = record.Brightness{Frame: int64(i), Value: v}
	}

	id, err := c.Store.IngestFile(ctx, path, seq.FPS, seq.Duration, brightness, fingerprints)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to persist ingest, rolled back")
		if c.Metrics != nil {
			c.Metrics.IncFailed()
		}
		return
	}

	if c.Metrics != nil {
		c.Metrics.IncIngested()
	}
	log.Info().
		Str("path", path).
		Int64("file_id", id).
		Int("fingerprints", len(fingerprints)).
		Dur("elapsed", time.Since(start)).
		Msg("ingested file")
}

func normalizeExts(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = true
	}
	return set
}
