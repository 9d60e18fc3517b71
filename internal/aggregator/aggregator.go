// Package aggregator fetches and parses many sources concurrently and
// collects one result per source.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/fetcher"
	"github.com/IshaanNene/TrendGoat/internal/observability"
	"github.com/IshaanNene/TrendGoat/internal/parser"
	"github.com/IshaanNene/TrendGoat/internal/source"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Result is what one source produced. Err is set for source-level
// failures; Items and Failures are then empty.
type Result struct {
	SourceID  string
	Items     []types.TrendItem
	Failures  []types.Failure
	Err       error
	Duration  time.Duration
	FetchedAt time.Time
}

// OK reports whether the source was fetched and parsed.
func (r Result) OK() bool { return r.Err == nil }

// Kind returns the failure kind, or "" for a successful source.
func (r Result) Kind() types.ErrorKind {
	if r.Err == nil {
		return ""
	}
	return types.KindOf(r.Err)
}

// Results maps source ids to their results.
type Results map[string]Result

// IDs returns the source ids in sorted order.
func (rs Results) IDs() []string {
	ids := make([]string, 0, len(rs))
	for id := range rs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Items concatenates the items of the given sources in the order given.
// With no ids, sources are taken in sorted id order.
func (rs Results) Items(ids ...string) []types.TrendItem {
	if len(ids) == 0 {
		ids = rs.IDs()
	}
	var items []types.TrendItem
	for _, id := range ids {
		items = append(items, rs[id].Items...)
	}
	return items
}

// Failed returns the ids of sources that failed, sorted.
func (rs Results) Failed() []string {
	var ids []string
	for _, id := range rs.IDs() {
		if !rs[id].OK() {
			ids = append(ids, id)
		}
	}
	return ids
}

// Process returns a copy of rs with fn applied to the items of every
// successful source, plus the total number of items fn dropped. rs itself
// is not modified.
func (rs Results) Process(fn func([]types.TrendItem) ([]types.TrendItem, int, error)) (Results, int, error) {
	out := make(Results, len(rs))
	total := 0
	for _, id := range rs.IDs() {
		r := rs[id]
		if r.OK() {
			items, dropped, err := fn(r.Items)
			if err != nil {
				return nil, total, fmt.Errorf("process %s: %w", id, err)
			}
			r.Items = items
			total += dropped
		}
		out[id] = r
	}
	return out, total, nil
}

// Run is one aggregation with its identity and timing.
type Run struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	Results  Results
}

// Aggregator fans out one fetch per source and joins the results.
type Aggregator struct {
	fetchers fetcher.Set
	parser   parser.Parser
	cfg      config.AggregatorConfig
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New creates an aggregator. metrics may be nil.
func New(fetchers fetcher.Set, p parser.Parser, cfg config.AggregatorConfig, metrics *observability.Metrics, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		fetchers: fetchers,
		parser:   p,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.With("component", "aggregator"),
	}
}

// Aggregate fetches every source concurrently and returns a fresh result
// map keyed by source id. A source's failure is recorded in its own
// result and never affects the others. Specs repeating an id are fetched
// once.
func (a *Aggregator) Aggregate(ctx context.Context, specs []*source.Spec) Results {
	return a.Run(ctx, specs).Results
}

// Run is Aggregate with a run id and timing attached.
func (a *Aggregator) Run(ctx context.Context, specs []*source.Spec) *Run {
	run := &Run{ID: uuid.NewString(), Started: time.Now()}
	logger := a.logger.With("run_id", run.ID)

	unique := make([]*source.Spec, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		if s == nil || seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		unique = append(unique, s)
	}

	logger.Info("aggregation started", "sources", len(unique))

	// Each task writes only its own slot; the map is built after Wait.
	slots := make([]Result, len(unique))

	var g errgroup.Group
	if a.cfg.MaxConcurrency > 0 {
		g.SetLimit(a.cfg.MaxConcurrency)
	}
	for i, spec := range unique {
		g.Go(func() error {
			slots[i] = a.collect(ctx, spec, logger)
			return nil
		})
	}
	_ = g.Wait()

	run.Results = make(Results, len(slots))
	ok := 0
	for _, r := range slots {
		run.Results[r.SourceID] = r
		if r.OK() {
			ok++
		}
	}
	run.Duration = time.Since(run.Started)

	if a.metrics != nil {
		a.metrics.RunsTotal.Add(1)
	}
	logger.Info("aggregation complete",
		"sources", len(slots),
		"ok", ok,
		"failed", len(slots)-ok,
		"duration", run.Duration,
	)
	return run
}

// collect runs one source under its own timeout.
func (a *Aggregator) collect(ctx context.Context, spec *source.Spec, logger *slog.Logger) Result {
	start := time.Now()
	logger = logger.With("source", spec.ID)

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = a.cfg.SourceTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res := Result{SourceID: spec.ID, FetchedAt: start}
	outcomes, err := a.fetchAndParse(ctx, spec, timeout)
	res.Duration = time.Since(start)

	if a.metrics != nil {
		a.metrics.RecordSource(err)
	}
	if err != nil {
		res.Err = err
		logger.Warn("source failed", "kind", types.KindOf(err), "error", err, "duration", res.Duration)
		return res
	}

	res.Items, res.Failures = types.Split(outcomes)
	if a.metrics != nil {
		a.metrics.ItemsExtracted.Add(int64(len(res.Items)))
		a.metrics.ItemsMissed.Add(int64(len(res.Failures)))
	}
	logger.Info("source complete",
		"items", len(res.Items),
		"failures", len(res.Failures),
		"duration", res.Duration,
	)
	return res
}

func (a *Aggregator) fetchAndParse(ctx context.Context, spec *source.Spec, timeout time.Duration) ([]types.ParseOutcome, error) {
	f, err := a.fetchers.For(spec.FetcherType())
	if err != nil {
		return nil, types.NewSourceError(spec.ID, types.KindSourceUnavailable, err)
	}

	req, err := types.NewRequest(spec.URL)
	if err != nil {
		return nil, types.NewSourceError(spec.ID, types.KindSourceUnavailable, err)
	}
	req.SourceID = spec.ID
	req.Timeout = timeout
	req.FetcherType = f.Type()
	req.WaitSelector = spec.WaitSelector
	for k, v := range spec.Headers {
		req.Headers.Set(k, v)
	}

	resp, err := f.Fetch(ctx, req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return nil, types.NewSourceError(spec.ID, types.KindSourceTimeout, err)
		}
		return nil, types.NewSourceError(spec.ID, types.KindSourceUnavailable, err)
	}

	if a.metrics != nil {
		a.metrics.RecordStatus(resp.StatusCode)
		a.metrics.BytesDownloaded.Add(int64(len(resp.Body)))
	}
	if !resp.IsSuccess() {
		return nil, types.NewSourceError(spec.ID, types.KindSourceUnavailable,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	outcomes, err := a.parser.Parse(resp, spec)
	if err != nil {
		var se *types.SourceError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, types.NewSourceError(spec.ID, types.KindMalformedPayload, err)
	}
	return outcomes, nil
}
