// Package api serves aggregated trending items over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/IshaanNene/TrendGoat/internal/aggregator"
	"github.com/IshaanNene/TrendGoat/internal/classify"
	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/observability"
	"github.com/IshaanNene/TrendGoat/internal/pipeline"
	"github.com/IshaanNene/TrendGoat/internal/source"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Aggregator is what the API needs from the aggregation layer.
type Aggregator interface {
	Run(ctx context.Context, specs []*source.Spec) *aggregator.Run
}

// Server provides a read-only JSON API over the source table.
type Server struct {
	router     *chi.Mux
	server     *http.Server
	agg        Aggregator
	table      *source.Table
	classifier *classify.Classifier
	pipeCfg    config.PipelineConfig
	cache      *expirable.LRU[string, *aggregator.Run]
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// SourceInfo describes one configured source.
type SourceInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Fetcher string `json:"fetcher"`
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
}

// SourceResult is the processed result of one source in a run.
type SourceResult struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Items      []types.TrendItem `json:"items"`
	Skipped    int               `json:"skipped"`
	Dropped    int               `json:"dropped"`
	Error      string            `json:"error,omitempty"`
	Kind       types.ErrorKind   `json:"kind,omitempty"`
	DurationMS int64             `json:"duration_ms"`
}

// TrendingResponse is the body of the trending endpoints.
type TrendingResponse struct {
	RunID     string         `json:"run_id"`
	FetchedAt time.Time      `json:"fetched_at"`
	Cached    bool           `json:"cached"`
	Topic     string         `json:"topic,omitempty"`
	Sources   []SourceResult `json:"sources"`
	Failed    []string       `json:"failed"`
}

// NewServer creates an API server. metrics may be nil.
func NewServer(cfg *config.Config, agg Aggregator, table *source.Table, metrics *observability.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		agg:        agg,
		table:      table,
		classifier: classify.New(cfg.Classifier.Topics),
		pipeCfg:    cfg.Pipeline,
		cache:      expirable.NewLRU[string, *aggregator.Run](max(cfg.API.CacheSize, 1), nil, cfg.API.CacheTTL),
		metrics:    metrics,
		logger:     logger.With("component", "api_server"),
	}

	s.registerRoutes()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", s.server.Addr)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("API server stopping")
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.countRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/sources", s.handleSources)
		r.Get("/trending", s.handleTrending)
		r.Get("/trending/{source}", s.handleTrendingSource)
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics != nil {
			s.metrics.APIRequests.Add(1)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": config.Version,
		"sources": s.table.Len(),
	})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	specs := s.table.All()
	out := make([]SourceInfo, 0, len(specs))
	for _, spec := range specs {
		out = append(out, SourceInfo{
			ID:      spec.ID,
			Name:    spec.DisplayName(),
			Kind:    string(spec.Kind),
			Fetcher: spec.FetcherType(),
			URL:     spec.URL,
			Enabled: !spec.Disabled,
		})
	}
	s.jsonResponse(w, http.StatusOK, out)
}

// handleTrending aggregates the enabled sources, or those named in
// ?source=a,b.
func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if raw := r.URL.Query().Get("source"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	specs, err := s.table.Select(ids...)
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, err)
		return
	}
	s.serveTrending(w, r, specs)
}

func (s *Server) handleTrendingSource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "source")
	spec, ok := s.table.Get(id)
	if !ok {
		s.errorResponse(w, http.StatusNotFound, fmt.Errorf("%w: %q", types.ErrUnknownSource, id))
		return
	}
	s.serveTrending(w, r, []*source.Spec{spec})
}

func (s *Server) serveTrending(w http.ResponseWriter, r *http.Request, specs []*source.Spec) {
	pipeCfg := s.pipeCfg
	q := r.URL.Query()
	if topic := q.Get("topic"); topic != "" {
		if !s.classifier.Has(topic) {
			s.errorResponse(w, http.StatusBadRequest, fmt.Errorf("unknown topic %q (valid: %s)",
				topic, strings.Join(s.classifier.Topics(), ", ")))
			return
		}
		pipeCfg.Topic = topic
	}
	if raw := q.Get("min_metric"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			s.errorResponse(w, http.StatusBadRequest, fmt.Errorf("invalid min_metric %q", raw))
			return
		}
		pipeCfg.MinMetric = n
	}

	// A run outlives its request: the cache shares it with later clients,
	// and sources are bounded by their own timeouts.
	run, cached := s.run(context.WithoutCancel(r.Context()), specs)

	resp := TrendingResponse{
		RunID:     run.ID,
		FetchedAt: run.Started,
		Cached:    cached,
		Topic:     pipeCfg.Topic,
		Sources:   make([]SourceResult, 0, len(specs)),
		Failed:    run.Results.Failed(),
	}
	if resp.Failed == nil {
		resp.Failed = []string{}
	}

	p := pipeline.FromConfig(&pipeCfg, s.classifier, s.logger)
	for _, spec := range specs {
		res, ok := run.Results[spec.ID]
		if !ok {
			continue
		}
		sr := SourceResult{
			ID:         spec.ID,
			Name:       spec.DisplayName(),
			Items:      []types.TrendItem{},
			Skipped:    len(res.Failures),
			DurationMS: res.Duration.Milliseconds(),
		}
		if !res.OK() {
			sr.Error = res.Err.Error()
			sr.Kind = res.Kind()
		} else {
			items, dropped, err := p.ProcessAll(res.Items)
			if err != nil {
				s.errorResponse(w, http.StatusInternalServerError, err)
				return
			}
			sr.Items = items
			sr.Dropped = dropped
			if s.metrics != nil {
				s.metrics.ItemsDropped.Add(int64(dropped))
			}
		}
		resp.Sources = append(resp.Sources, sr)
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

// run returns a cached aggregation for the source set or performs one.
// Cached runs are shared, so callers must not modify their items.
func (s *Server) run(ctx context.Context, specs []*source.Spec) (*aggregator.Run, bool) {
	ids := make([]string, len(specs))
	for i, spec := range specs {
		ids[i] = spec.ID
	}
	sort.Strings(ids)
	key := strings.Join(ids, ",")

	if run, ok := s.cache.Get(key); ok {
		if s.metrics != nil {
			s.metrics.APICacheHits.Add(1)
		}
		return run, true
	}

	run := s.agg.Run(ctx, specs)
	if len(run.Results.Failed()) < len(run.Results) || len(run.Results) == 0 {
		s.cache.Add(key, run)
	}
	return run, false
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		s.logger.Warn("encode response", "error", err)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, err error) {
	s.jsonResponse(w, status, map[string]string{"error": err.Error()})
}
