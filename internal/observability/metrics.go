// Package observability keeps process-wide counters and serves them in
// Prometheus text format.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Metrics tracks operational metrics for aggregation runs.
type Metrics struct {
	// Run metrics
	RunsTotal atomic.Int64

	// Source metrics
	SourcesTotal       atomic.Int64
	SourcesOK          atomic.Int64
	SourcesUnavailable atomic.Int64
	SourcesTimedOut    atomic.Int64
	SourcesMalformed   atomic.Int64

	// Response metrics
	Responses2xx    atomic.Int64
	Responses4xx    atomic.Int64
	Responses5xx    atomic.Int64
	BytesDownloaded atomic.Int64

	// Item metrics
	ItemsExtracted atomic.Int64
	ItemsMissed    atomic.Int64
	ItemsDropped   atomic.Int64
	ItemsExported  atomic.Int64

	// API metrics
	APIRequests  atomic.Int64
	APICacheHits atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// RecordStatus counts a response by status class.
func (m *Metrics) RecordStatus(status int) {
	switch {
	case status >= 500:
		m.Responses5xx.Add(1)
	case status >= 400:
		m.Responses4xx.Add(1)
	case status >= 200 && status < 300:
		m.Responses2xx.Add(1)
	}
}

// RecordSource counts one finished source by outcome. A nil error is a
// success.
func (m *Metrics) RecordSource(err error) {
	m.SourcesTotal.Add(1)
	if err == nil {
		m.SourcesOK.Add(1)
		return
	}
	switch types.KindOf(err) {
	case types.KindSourceTimeout:
		m.SourcesTimedOut.Add(1)
	case types.KindMalformedPayload:
		m.SourcesMalformed.Add(1)
	default:
		m.SourcesUnavailable.Add(1)
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"trendgoat_runs_total", "Total aggregation runs", m.RunsTotal.Load()},
		{"trendgoat_sources_total", "Total source fetches", m.SourcesTotal.Load()},
		{"trendgoat_sources_ok_total", "Sources that produced a result", m.SourcesOK.Load()},
		{"trendgoat_sources_unavailable_total", "Sources that failed to fetch", m.SourcesUnavailable.Load()},
		{"trendgoat_sources_timeout_total", "Sources that timed out", m.SourcesTimedOut.Load()},
		{"trendgoat_sources_malformed_total", "Sources with malformed payloads", m.SourcesMalformed.Load()},
		{"trendgoat_responses_2xx_total", "Total 2xx responses", m.Responses2xx.Load()},
		{"trendgoat_responses_4xx_total", "Total 4xx responses", m.Responses4xx.Load()},
		{"trendgoat_responses_5xx_total", "Total 5xx responses", m.Responses5xx.Load()},
		{"trendgoat_bytes_downloaded_total", "Total bytes downloaded", m.BytesDownloaded.Load()},
		{"trendgoat_items_extracted_total", "Items extracted", m.ItemsExtracted.Load()},
		{"trendgoat_items_missed_total", "Containers that failed extraction", m.ItemsMissed.Load()},
		{"trendgoat_items_dropped_total", "Items dropped by the pipeline", m.ItemsDropped.Load()},
		{"trendgoat_items_exported_total", "Items written by exporters", m.ItemsExported.Load()},
		{"trendgoat_api_requests_total", "API requests served", m.APIRequests.Load()},
		{"trendgoat_api_cache_hits_total", "API responses served from cache", m.APICacheHits.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer serves metrics and /health on port until ctx is done.
func (m *Metrics) StartServer(ctx context.Context, port int, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return srv
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"runs_total":          m.RunsTotal.Load(),
		"sources_total":       m.SourcesTotal.Load(),
		"sources_ok":          m.SourcesOK.Load(),
		"sources_unavailable": m.SourcesUnavailable.Load(),
		"sources_timeout":     m.SourcesTimedOut.Load(),
		"sources_malformed":   m.SourcesMalformed.Load(),
		"responses_2xx":       m.Responses2xx.Load(),
		"responses_4xx":       m.Responses4xx.Load(),
		"responses_5xx":       m.Responses5xx.Load(),
		"bytes_downloaded":    m.BytesDownloaded.Load(),
		"items_extracted":     m.ItemsExtracted.Load(),
		"items_missed":        m.ItemsMissed.Load(),
		"items_dropped":       m.ItemsDropped.Load(),
		"items_exported":      m.ItemsExported.Load(),
		"api_requests":        m.APIRequests.Load(),
		"api_cache_hits":      m.APICacheHits.Load(),
	}
}
