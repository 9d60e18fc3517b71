// Package pipeline post-processes extracted items: cleanup, filtering
// and dedup, applied per item in order.
package pipeline

import (
	"log/slog"
	"strings"

	"github.com/IshaanNene/TrendGoat/internal/classify"
	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Middleware processes an item and returns the (possibly modified) item.
// Return nil to drop the item from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms an item. Return nil to drop the item.
	Process(item *types.TrendItem) (*types.TrendItem, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// FromConfig builds the standard chain: trim, required fields, then the
// optional dedup, topic and metric filters. Text is taken as the parsers
// left it; markup in JSON fields is already stripped there.
func FromConfig(cfg *config.PipelineConfig, classifier *classify.Classifier, logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(&TrimMiddleware{})
	p.Use(&RequiredFieldsMiddleware{})
	if cfg.Dedup {
		p.Use(NewDedupMiddleware())
	}
	if cfg.Topic != "" && classifier != nil {
		p.Use(&TopicFilterMiddleware{Classifier: classifier, Topic: cfg.Topic})
	}
	if cfg.MinMetric > 0 {
		p.Use(&MinMetricMiddleware{Min: cfg.MinMetric})
	}
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the item through all middleware in order.
func (p *Pipeline) Process(item *types.TrendItem) (*types.TrendItem, error) {
	current := item

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage: mw.Name(),
				Item:  current,
				Err:   err,
			}
		}
		if result == nil {
			p.logger.Debug("item dropped", "stage", mw.Name(), "source", item.SourceID, "url", item.URL)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// ProcessAll runs every item through the pipeline, keeping order. Items
// are copied first so the input slice is left untouched. It returns the
// surviving items and how many were dropped.
func (p *Pipeline) ProcessAll(items []types.TrendItem) ([]types.TrendItem, int, error) {
	out := make([]types.TrendItem, 0, len(items))
	dropped := 0
	for i := range items {
		result, err := p.Process(items[i].Clone())
		if err != nil {
			return nil, dropped, err
		}
		if result == nil {
			dropped++
			continue
		}
		out = append(out, *result)
	}
	return out, dropped, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// --- Built-in Middleware ---

// RequiredFieldsMiddleware drops items without a title or URL.
type RequiredFieldsMiddleware struct{}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(item *types.TrendItem) (*types.TrendItem, error) {
	if !item.Valid() {
		return nil, nil
	}
	return item, nil
}

// TopicFilterMiddleware keeps only items belonging to a topic.
type TopicFilterMiddleware struct {
	Classifier *classify.Classifier
	Topic      string
}

func (m *TopicFilterMiddleware) Name() string { return "topic_filter" }

func (m *TopicFilterMiddleware) Process(item *types.TrendItem) (*types.TrendItem, error) {
	if !m.Classifier.Match(item, m.Topic) {
		return nil, nil
	}
	return item, nil
}

// MinMetricMiddleware drops items whose metric is below Min. Items
// without a metric are kept unless DropUnknown is set.
type MinMetricMiddleware struct {
	Min         int64
	DropUnknown bool
}

func (m *MinMetricMiddleware) Name() string { return "min_metric" }

func (m *MinMetricMiddleware) Process(item *types.TrendItem) (*types.TrendItem, error) {
	if !item.HasMetric() {
		if m.DropUnknown {
			return nil, nil
		}
		return item, nil
	}
	if *item.Metric < m.Min {
		return nil, nil
	}
	return item, nil
}

// TrimMiddleware collapses whitespace in the text fields.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(item *types.TrendItem) (*types.TrendItem, error) {
	item.Title = strings.Join(strings.Fields(item.Title), " ")
	item.Description = strings.Join(strings.Fields(item.Description), " ")
	item.Category = strings.TrimSpace(item.Category)
	return item, nil
}
