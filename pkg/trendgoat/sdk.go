// Package trendgoat provides a public SDK for embedding TrendGoat as a library.
//
// Example usage:
//
//	client, err := trendgoat.New(
//	    trendgoat.WithSourceTimeout(10*time.Second),
//	    trendgoat.WithTopic("ai"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	results, err := client.Fetch(ctx, "github", "weibo")
//	for _, id := range results.IDs() {
//	    r := results[id]
//	    if !r.OK() {
//	        log.Printf("%s failed: %v", id, r.Err)
//	        continue
//	    }
//	    for _, item := range r.Items {
//	        fmt.Println(item.Title, item.URL)
//	    }
//	}
package trendgoat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/IshaanNene/TrendGoat/internal/aggregator"
	"github.com/IshaanNene/TrendGoat/internal/classify"
	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/fetcher"
	"github.com/IshaanNene/TrendGoat/internal/parser"
	"github.com/IshaanNene/TrendGoat/internal/pipeline"
	"github.com/IshaanNene/TrendGoat/internal/source"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

type (
	// Item is one normalized trending entry.
	Item = types.TrendItem
	// Outcome is the parse result of one candidate: an item or a failure.
	Outcome = types.ParseOutcome
	// Result is what one source produced.
	Result = aggregator.Result
	// Results maps source ids to their results.
	Results = aggregator.Results
	// Source describes how to fetch and read one site.
	Source = source.Spec
	// Selector is one CSS or XPath step of a selector chain.
	Selector = source.Selector
	// Role names a structural role within a listing page.
	Role = source.Role
	// FieldMap maps JSON payload keys onto item fields.
	FieldMap = source.FieldMap
	// Quirks carries per-source extraction tweaks.
	Quirks = source.Quirks
)

// Source kinds and selector roles.
const (
	KindHTML = source.KindHTML
	KindJSON = source.KindJSON

	RoleContainer      = source.RoleContainer
	RoleTitleLink      = source.RoleTitleLink
	RoleDescription    = source.RoleDescription
	RoleMetric         = source.RoleMetric
	RoleCategory       = source.RoleCategory
	RoleCategoryMarker = source.RoleCategoryMarker
)

// CSS and XPath build selectors.
var (
	CSS   = source.CSS
	XPath = source.XPath
)

// Client fetches and normalizes trending items.
type Client struct {
	cfg        *config.Config
	table      *source.Table
	fetchers   fetcher.Set
	agg        *aggregator.Aggregator
	parser     *parser.CompositeParser
	classifier *classify.Classifier
	logger     *slog.Logger
}

type settings struct {
	cfg    *config.Config
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*settings)

// WithLogger sets the logger. The default discards everything below warn.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithSourceTimeout bounds each source's fetch and parse.
func WithSourceTimeout(d time.Duration) Option {
	return func(s *settings) { s.cfg.Aggregator.SourceTimeout = d }
}

// WithConcurrency caps how many sources are fetched at once.
func WithConcurrency(n int) Option {
	return func(s *settings) { s.cfg.Aggregator.MaxConcurrency = n }
}

// WithRateLimit sets the per-host request rate; zero disables pacing.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *settings) {
		s.cfg.Fetcher.RateLimit = perSecond
		s.cfg.Fetcher.RateBurst = burst
	}
}

// WithUserAgent sets a custom User-Agent.
func WithUserAgent(ua string) Option {
	return func(s *settings) { s.cfg.Fetcher.UserAgents = []string{ua} }
}

// WithHotListURL points the built-in hot-list sources at another endpoint.
func WithHotListURL(base string) Option {
	return func(s *settings) { s.cfg.HotListURL = base }
}

// WithSources adds sources, replacing built-ins that share an id.
func WithSources(specs ...*Source) Option {
	return func(s *settings) { s.cfg.Sources = append(s.cfg.Sources, specs...) }
}

// WithTopic keeps only items matching a classifier topic.
func WithTopic(topic string) Option {
	return func(s *settings) { s.cfg.Pipeline.Topic = topic }
}

// WithTopics replaces the classifier's topic keywords.
func WithTopics(topics map[string][]string) Option {
	return func(s *settings) { s.cfg.Classifier.Topics = topics }
}

// WithMinMetric drops items whose metric is below min.
func WithMinMetric(min int64) Option {
	return func(s *settings) { s.cfg.Pipeline.MinMetric = min }
}

// WithDedup drops repeated URLs within a source.
func WithDedup() Option {
	return func(s *settings) { s.cfg.Pipeline.Dedup = true }
}

// WithBrowser enables the headless browser for sources that ask for it.
func WithBrowser(headless bool) Option {
	return func(s *settings) {
		s.cfg.Fetcher.Browser.Enabled = true
		s.cfg.Fetcher.Browser.Headless = headless
	}
}

// New creates a Client with the given options.
func New(opts ...Option) (*Client, error) {
	s := &settings{cfg: config.DefaultConfig()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	if err := config.Validate(s.cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	table, err := s.cfg.SourceTable()
	if err != nil {
		return nil, err
	}

	fetchers := []fetcher.Fetcher{fetcher.NewHTTPFetcher(&s.cfg.Fetcher, s.logger)}
	if s.cfg.Fetcher.Browser.Enabled {
		bf, err := fetcher.NewBrowserFetcher(&s.cfg.Fetcher, s.cfg.Aggregator.MaxConcurrency, s.logger)
		if err != nil {
			return nil, fmt.Errorf("create browser fetcher: %w", err)
		}
		fetchers = append(fetchers, bf)
	}
	set := fetcher.NewSet(fetchers...)

	p := parser.NewCompositeParser(s.logger)
	return &Client{
		cfg:        s.cfg,
		table:      table,
		fetchers:   set,
		agg:        aggregator.New(set, p, s.cfg.Aggregator, nil, s.logger),
		parser:     p,
		classifier: classify.New(s.cfg.Classifier.Topics),
		logger:     s.logger,
	}, nil
}

// Sources returns the configured sources in table order.
func (c *Client) Sources() []*Source {
	return c.table.All()
}

// Fetch aggregates the named sources, or every enabled source when none
// are named, and runs the configured filters over each source's items.
// Source failures are reported in the results, not as an error.
func (c *Client) Fetch(ctx context.Context, ids ...string) (Results, error) {
	specs, err := c.table.Select(ids...)
	if err != nil {
		return nil, err
	}
	return c.FetchSources(ctx, specs...)
}

// FetchSources is Fetch over ad-hoc source specs.
func (c *Client) FetchSources(ctx context.Context, specs ...*Source) (Results, error) {
	for _, spec := range specs {
		if err := config.ValidateSource(spec); err != nil {
			return nil, err
		}
	}
	rs := c.agg.Aggregate(ctx, specs)
	out, _, err := rs.Process(pipeline.FromConfig(&c.cfg.Pipeline, c.classifier, c.logger).ProcessAll)
	return out, err
}

// Items fetches like Fetch and flattens the items in source order.
func (c *Client) Items(ctx context.Context, ids ...string) ([]Item, error) {
	rs, err := c.Fetch(ctx, ids...)
	if err != nil {
		return nil, err
	}
	return rs.Items(ids...), nil
}

// Parse runs a configured source's parser over a saved document.
func (c *Client) Parse(r io.Reader, sourceID string) ([]Outcome, error) {
	spec, ok := c.table.Get(sourceID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownSource, sourceID)
	}
	return c.parser.ParseReader(r, spec)
}

// Close releases fetcher resources.
func (c *Client) Close() error {
	return c.fetchers.Close()
}
