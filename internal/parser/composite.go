package parser

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/IshaanNene/TrendGoat/internal/source"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// CompositeParser dispatches to the listing or JSON parser according to
// the source kind.
type CompositeParser struct {
	listing *ListingParser
	json    *JSONParser
	logger  *slog.Logger
}

// NewCompositeParser creates a parser that handles every source kind.
func NewCompositeParser(logger *slog.Logger) *CompositeParser {
	return &CompositeParser{
		listing: NewListingParser(logger),
		json:    NewJSONParser(logger),
		logger:  logger.With("component", "composite_parser"),
	}
}

// Parse implements Parser.
func (p *CompositeParser) Parse(resp *types.Response, spec *source.Spec) ([]types.ParseOutcome, error) {
	switch spec.Kind {
	case source.KindJSON:
		return p.json.Parse(resp, spec)
	case source.KindHTML, "":
		return p.listing.Parse(resp, spec)
	default:
		return nil, fmt.Errorf("source %s: unsupported kind %q", spec.ID, spec.Kind)
	}
}

// ParseReader parses a saved document or payload as if it had been
// fetched from the source's URL.
func (p *CompositeParser) ParseReader(r io.Reader, spec *source.Spec) ([]types.ParseOutcome, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	req, err := types.NewRequest(spec.URL)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", spec.ID, err)
	}
	req.SourceID = spec.ID

	contentType := "text/html"
	if spec.Kind == source.KindJSON {
		contentType = "application/json"
	}
	resp := &types.Response{
		StatusCode:  http.StatusOK,
		Headers:     make(http.Header),
		Body:        body,
		Request:     req,
		ContentType: contentType,
		FinalURL:    spec.URL,
		FetchedAt:   time.Now(),
	}
	return p.Parse(resp, spec)
}
