// Package metrics instruments the ingest and search passes: Prometheus
// counters/histograms for anyone scraping `--metrics-addr`, plus an
// HdrHistogram-backed latency recorder for the human-readable summary
// printed at the end of a pass.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ingestLatencyMax is the highest per-file ingest duration HdrHistogram
// will track, in microseconds. A single file is never expected to take
// longer than an hour to ingest; anything above that saturates the top
// bucket instead of erroring.
const ingestLatencyMax = int64(time.Hour / time.Microsecond)

// Ingest collects counters and latency samples for one ingest pass.
type Ingest struct {
	filesIngested prometheus.Counter
	filesSkipped  prometheus.Counter
	filesFailed   prometheus.Counter
	duration      prometheus.Histogram
	latency       *hdrhistogram.Histogram
}

// NewIngest registers its collectors against reg (the CLI passes the
// registry it serves on --metrics-addr).
func NewIngest(reg prometheus.Registerer) *Ingest {
	factory := promauto.With(reg)
	return &Ingest{
		filesIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "viddup_ingest_files_total",
			Help: "Files successfully ingested.",
		}),
		filesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "viddup_ingest_files_skipped_total",
			Help: "Files skipped because they were already ingested.",
		}),
		filesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "viddup_ingest_files_failed_total",
			Help: "Files that failed to ingest and were rolled back.",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "viddup_ingest_file_duration_seconds",
			Help:    "Per-file ingest wall-clock duration.",
			Buckets: prometheus.DefBuckets,
		}),
		latency: hdrhistogram.New(1, ingestLatencyMax, 3),
	}
}

// ObserveFile records one file's ingest duration, regardless of outcome.
func (m *Ingest) ObserveFile(d time.Duration) {
	m.duration.Observe(d.Seconds())
	us := d.Microseconds()
	if us > ingestLatencyMax {
		us = ingestLatencyMax
	}
	_ = m.latency.RecordValue(us)
}

func (m *Ingest) IncIngested() { m.filesIngested.Inc() }
func (m *Ingest) IncSkipped()  { m.filesSkipped.Inc() }
func (m *Ingest) IncFailed()   { m.filesFailed.Inc() }

// Summary renders the pass's latency distribution as a human-readable
// percentile table, for printing to the operator after an ingest pass.
func (m *Ingest) Summary() string {
	if m.latency.TotalCount() == 0 {
		return "no files ingested"
	}
	return fmt.Sprintf(
		"files: p50=%s p90=%s p99=%s max=%s (n=%d)",
		microseconds(m.latency.ValueAtQuantile(50)),
		microseconds(m.latency.ValueAtQuantile(90)),
		microseconds(m.latency.ValueAtQuantile(99)),
		microseconds(m.latency.Max()),
		m.latency.TotalCount(),
	)
}

func microseconds(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}

// ServeAddr starts a background HTTP server exposing /metrics on addr,
// stopping when ctx is canceled. It returns immediately; a non-nil error
// is only possible from the listener setup, reported once via errCh.
func ServeAddr(ctx context.Context, addr string, reg *prometheus.Registry) <-chan error {
	errCh := make(chan error, 1)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrapf(err, "metrics: serve %s", addr)
			return
		}
		errCh <- nil
	}()

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	return errCh
}
