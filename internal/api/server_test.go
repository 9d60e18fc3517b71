package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/TrendGoat/internal/aggregator"
	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/observability"
	"github.com/IshaanNene/TrendGoat/internal/source"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeAggregator returns canned results for the requested specs.
type fakeAggregator struct {
	results aggregator.Results
	calls   atomic.Int64
}

func (f *fakeAggregator) Run(ctx context.Context, specs []*source.Spec) *aggregator.Run {
	n := f.calls.Add(1)
	rs := make(aggregator.Results, len(specs))
	for _, s := range specs {
		if r, ok := f.results[s.ID]; ok {
			rs[s.ID] = r
		}
	}
	return &aggregator.Run{ID: "run-" + string(rune('0'+n)), Started: time.Now(), Results: rs}
}

// cancellingAggregator cancels the request mid-run and fails every
// source whose context was cancelled with it.
type cancellingAggregator struct {
	cancel context.CancelFunc
	calls  atomic.Int64
}

func (c *cancellingAggregator) Run(ctx context.Context, specs []*source.Spec) *aggregator.Run {
	c.calls.Add(1)
	c.cancel()
	rs := make(aggregator.Results, len(specs))
	for _, s := range specs {
		r := aggregator.Result{SourceID: s.ID}
		if err := ctx.Err(); err != nil {
			r.Err = types.NewSourceError(s.ID, types.KindSourceUnavailable, err)
		} else {
			r.Items = []types.TrendItem{{Title: s.ID, URL: "https://example.test/" + s.ID, SourceID: s.ID}}
		}
		rs[s.ID] = r
	}
	return &aggregator.Run{ID: "run", Started: time.Now(), Results: rs}
}

func newTestServer(t *testing.T) (*Server, *fakeAggregator, *observability.Metrics) {
	t.Helper()

	table, err := source.NewTable(source.BuiltinAt("https://hot.example.test"))
	require.NoError(t, err)

	agg := &fakeAggregator{results: aggregator.Results{
		"github": {
			SourceID: "github",
			Items: []types.TrendItem{
				{Title: "owner / llm-agent", URL: "https://github.com/owner/llm-agent", Description: "An AI agent", Metric: types.Int64(900), SourceID: "github"},
				{Title: "owner / db", URL: "https://github.com/owner/db", Metric: types.Int64(50), SourceID: "github"},
				{Title: "owner / db again", URL: "https://github.com/owner/db", Metric: types.Int64(40), SourceID: "github"},
			},
			Failures: []types.Failure{{SourceID: "github", ContainerIndex: 4, Reason: types.ReasonMissingTitleLink}},
		},
		"weibo": {
			SourceID: "weibo",
			Err:      types.NewSourceError("weibo", types.KindSourceTimeout, context.DeadlineExceeded),
		},
		"zhihu": {
			SourceID: "zhihu",
			Items:    []types.TrendItem{{Title: "问题", URL: "https://example.test/q", SourceID: "zhihu", Category: "Zhihu"}},
		},
	}}

	cfg := config.DefaultConfig()
	cfg.Pipeline.Dedup = true
	metrics := observability.NewMetrics(testLogger)
	return NewServer(cfg, agg, table, metrics, testLogger), agg, metrics
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeTrending(t *testing.T, rec *httptest.ResponseRecorder) TrendingResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp TrendingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := get(t, s, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestSources(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := get(t, s, "/api/sources")
	require.Equal(t, http.StatusOK, rec.Code)

	var infos []SourceInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	require.Len(t, infos, 7)
	assert.Equal(t, "github", infos[0].ID)
	assert.Equal(t, "html", infos[0].Kind)
	assert.Equal(t, "https://hot.example.test/baidu", infos[1].URL)
}

func TestTrendingSource(t *testing.T) {
	s, _, _ := newTestServer(t)
	resp := decodeTrending(t, get(t, s, "/api/trending/github"))

	require.Len(t, resp.Sources, 1)
	gh := resp.Sources[0]
	assert.Equal(t, "GitHub Trending", gh.Name)
	assert.Len(t, gh.Items, 2, "duplicate url is dropped")
	assert.Equal(t, 1, gh.Dropped)
	assert.Equal(t, 1, gh.Skipped)
	assert.Empty(t, resp.Failed)
}

func TestTrendingUnknownSource(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := get(t, s, "/api/trending/myspace")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, s, "/api/trending?source=github,myspace")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTrendingReportsFailures(t *testing.T) {
	s, _, _ := newTestServer(t)
	resp := decodeTrending(t, get(t, s, "/api/trending?source=weibo,zhihu"))

	assert.Equal(t, []string{"weibo"}, resp.Failed)
	require.Len(t, resp.Sources, 2)
	assert.Equal(t, types.KindSourceTimeout, resp.Sources[0].Kind)
	assert.Empty(t, resp.Sources[0].Items)
	assert.Equal(t, "问题", resp.Sources[1].Items[0].Title)
}

func TestTrendingTopic(t *testing.T) {
	s, _, _ := newTestServer(t)
	resp := decodeTrending(t, get(t, s, "/api/trending/github?topic=ai"))
	require.Len(t, resp.Sources[0].Items, 1)
	assert.Equal(t, "owner / llm-agent", resp.Sources[0].Items[0].Title)
	assert.Equal(t, "ai", resp.Topic)

	rec := get(t, s, "/api/trending/github?topic=gardening")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrendingMinMetric(t *testing.T) {
	s, _, _ := newTestServer(t)
	resp := decodeTrending(t, get(t, s, "/api/trending/github?min_metric=100"))
	require.Len(t, resp.Sources[0].Items, 1)

	rec := get(t, s, "/api/trending/github?min_metric=lots")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrendingCache(t *testing.T) {
	s, agg, metrics := newTestServer(t)

	first := decodeTrending(t, get(t, s, "/api/trending?source=github,zhihu"))
	second := decodeTrending(t, get(t, s, "/api/trending?source=zhihu,github"))
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, int64(1), agg.calls.Load())
	assert.Equal(t, int64(1), metrics.APICacheHits.Load())

	// a topic filter reuses the cached run without altering it
	filtered := decodeTrending(t, get(t, s, "/api/trending?source=github,zhihu&topic=ai"))
	assert.True(t, filtered.Cached)
	again := decodeTrending(t, get(t, s, "/api/trending?source=github,zhihu"))
	assert.Len(t, again.Sources[0].Items, 2)
}

func TestTrendingAllFailedNotCached(t *testing.T) {
	s, agg, _ := newTestServer(t)
	decodeTrending(t, get(t, s, "/api/trending/weibo"))
	decodeTrending(t, get(t, s, "/api/trending/weibo"))
	assert.Equal(t, int64(2), agg.calls.Load())
}

func TestTrendingSurvivesClientCancel(t *testing.T) {
	table, err := source.NewTable(source.BuiltinAt("https://hot.example.test"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	agg := &cancellingAggregator{cancel: cancel}
	s := NewServer(config.DefaultConfig(), agg, table, nil, testLogger)

	req := httptest.NewRequest(http.MethodGet, "/api/trending?source=github,weibo", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	resp := decodeTrending(t, rec)
	assert.Empty(t, resp.Failed, "sources must not fail because the client went away")

	resp = decodeTrending(t, get(t, s, "/api/trending?source=weibo,github"))
	assert.True(t, resp.Cached)
	assert.Empty(t, resp.Failed)
	assert.Equal(t, int64(1), agg.calls.Load())
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	get(t, s, "/api/health")
	rec := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "trendgoat_api_requests_total"), rec.Body.String())
}

func TestListenAndServeStops(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.API.Port = 0
	table, err := source.NewTable(source.Builtin())
	require.NoError(t, err)
	s := NewServer(cfg, &fakeAggregator{}, table, nil, testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.False(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
