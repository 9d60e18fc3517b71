package parser

import (
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/TrendGoat/internal/source"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// ListingParser reads rendered listing pages.
type ListingParser struct {
	logger *slog.Logger
}

// NewListingParser creates a listing parser.
func NewListingParser(logger *slog.Logger) *ListingParser {
	return &ListingParser{
		logger: logger.With("component", "listing_parser"),
	}
}

// Parse implements Parser.
func (p *ListingParser) Parse(resp *types.Response, spec *source.Spec) ([]types.ParseOutcome, error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, types.NewSourceError(spec.ID, types.KindMalformedPayload, err)
	}
	return p.ParseDocument(doc, spec)
}

// ParseDocument locates the containers of doc and extracts each one,
// keeping document order. The only error is an invalid selector.
func (p *ListingParser) ParseDocument(doc *goquery.Document, spec *source.Spec) ([]types.ParseOutcome, error) {
	loc, err := NewLocator(spec, p.logger)
	if err != nil {
		return nil, err
	}
	x := NewExtractor(loc, p.logger)

	containers := loc.Containers(doc)
	outcomes := make([]types.ParseOutcome, 0, len(containers))
	for _, c := range containers {
		outcomes = append(outcomes, x.Extract(c))
	}

	p.logger.Debug("listing parsed",
		"source", spec.ID,
		"containers", len(containers),
	)
	return outcomes, nil
}
