// Package metrics exposes run counters for Prometheus scraping. All recording
// methods are safe on a nil *Metrics, so components can take an optional
// recorder without guarding every call site.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ghrecon"

// Metrics holds the collectors of one run on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	FilesScanned  prometheus.Counter
	ScanErrors    *prometheus.CounterVec
	ReposMerged   prometheus.Counter
	Checks        *prometheus.CounterVec
	CheckDuration *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.FilesScanned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_scanned_total",
			Help:      "Files read and passed to the extractor",
		},
	)

	m.ScanErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_errors_total",
			Help:      "Per-file failures during repository walks",
		},
		[]string{"kind"},
	)

	m.ReposMerged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repositories_merged_total",
			Help:      "Repositories whose findings reached the accumulator",
		},
	)

	m.Checks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Verification checks by subject and outcome",
		},
		[]string{"subject", "kind"},
	)

	m.CheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Verification check latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"subject"},
	)

	m.registry.MustRegister(
		m.FilesScanned,
		m.ScanErrors,
		m.ReposMerged,
		m.Checks,
		m.CheckDuration,
	)

	return m
}

// FileScanned counts one extracted file.
func (m *Metrics) FileScanned() {
	if m == nil {
		return
	}
	m.FilesScanned.Inc()
}

// ScanError counts a skipped file or manifest. kind is "read" or "manifest".
func (m *Metrics) ScanError(kind string) {
	if m == nil {
		return
	}
	m.ScanErrors.WithLabelValues(kind).Inc()
}

// RepositoryMerged counts one accumulator merge.
func (m *Metrics) RepositoryMerged() {
	if m == nil {
		return
	}
	m.ReposMerged.Inc()
}

// ObserveCheck records a finished check. subject is "url" or an ecosystem name.
func (m *Metrics) ObserveCheck(subject, kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.Checks.WithLabelValues(subject, kind).Inc()
	m.CheckDuration.WithLabelValues(subject).Observe(d.Seconds())
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
