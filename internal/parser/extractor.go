package parser

import (
	"log/slog"
	"net/url"
	"path"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/TrendGoat/internal/normalize"
	"github.com/IshaanNene/TrendGoat/internal/source"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// itemScope carries what has been found so far in one container.
type itemScope struct {
	Container
	anchor *goquery.Selection
	desc   *goquery.Selection
}

// Strategies are tried in order; the first that reports ok wins.
type (
	textStrategy   func(x *Extractor, s *itemScope) (string, bool)
	metricStrategy func(x *Extractor, s *itemScope) (int64, bool)
)

// Extractor turns one container into a ParseOutcome.
type Extractor struct {
	loc    *Locator
	spec   *source.Spec
	base   *url.URL
	norm   *normalize.Normalizer
	logger *slog.Logger

	title       []textStrategy
	description []textStrategy
	metric      []metricStrategy
	category    []textStrategy
}

// NewExtractor creates an extractor for the locator's source.
func NewExtractor(loc *Locator, logger *slog.Logger) *Extractor {
	spec := loc.Spec()
	return &Extractor{
		loc:    loc,
		spec:   spec,
		base:   spec.Base(),
		norm:   spec.Normalizer(),
		logger: logger.With("component", "extractor", "source", spec.ID),

		title:       []textStrategy{titleFromAnchorText, titleFromAnchorAttr, titleFromHref},
		description: []textStrategy{descriptionFromRole},
		metric:      []metricStrategy{metricFromRole, metricFromTextScan},
		category:    []textStrategy{categoryFromRole, categoryFromMarker, categoryFromQuirk},
	}
}

// Extract reads every field of the container. It never panics on odd
// markup; every way a required field can go missing maps to a reason.
func (x *Extractor) Extract(c Container) types.ParseOutcome {
	s := &itemScope{Container: c}

	anchor, _, ok := x.loc.First(c, source.RoleTitleLink)
	if !ok {
		return x.miss(c, types.ReasonMissingTitleLink)
	}
	s.anchor = anchor

	title := firstText(x, s, x.title)
	if x.spec.Quirks.CompactTitle {
		title = strings.Join(strings.FieldsFunc(title, unicode.IsSpace), "")
	}
	if title == "" {
		return x.miss(c, types.ReasonEmptyTitle)
	}

	href := strings.TrimSpace(anchor.AttrOr("href", ""))
	if href == "" {
		return x.miss(c, types.ReasonMissingURL)
	}
	link, err := ResolveURL(x.base, href)
	if err != nil {
		return x.miss(c, types.ReasonInvalidURL)
	}

	item := &types.TrendItem{
		Title:       title,
		URL:         link,
		Description: firstText(x, s, x.description),
		Category:    firstText(x, s, x.category),
		SourceID:    x.spec.ID,
	}
	for _, strategy := range x.metric {
		if v, ok := strategy(x, s); ok {
			item.Metric = types.Int64(v)
			break
		}
	}

	return types.Success(item)
}

func (x *Extractor) miss(c Container, reason types.Reason) types.ParseOutcome {
	x.logger.Debug("structural miss", "container", c.Index, "reason", reason)
	return types.Miss(x.spec.ID, c.Index, reason)
}

func firstText(x *Extractor, s *itemScope, strategies []textStrategy) string {
	for _, strategy := range strategies {
		if v, ok := strategy(x, s); ok {
			return v
		}
	}
	return ""
}

func titleFromAnchorText(_ *Extractor, s *itemScope) (string, bool) {
	t := collapseSpace(s.anchor.Text())
	return t, t != ""
}

func titleFromAnchorAttr(_ *Extractor, s *itemScope) (string, bool) {
	t := collapseSpace(s.anchor.AttrOr("title", ""))
	return t, t != ""
}

// titleFromHref names the item after its link path, e.g. "/acme/widgets"
// becomes "acme/widgets".
func titleFromHref(_ *Extractor, s *itemScope) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(s.anchor.AttrOr("href", "")))
	if err != nil {
		return "", false
	}
	p := strings.Trim(path.Clean("/"+ref.Path), "/")
	return p, p != ""
}

func descriptionFromRole(x *Extractor, s *itemScope) (string, bool) {
	sel, cs, ok := x.loc.First(s.Container, source.RoleDescription)
	if !ok {
		return "", false
	}
	s.desc = sel
	v := cs.value(sel)
	return v, v != ""
}

func metricFromRole(x *Extractor, s *itemScope) (int64, bool) {
	sel, cs, ok := x.loc.First(s.Container, source.RoleMetric)
	if !ok {
		return 0, false
	}
	v := cs.value(sel)
	if strings.IndexFunc(v, isASCIIDigit) < 0 {
		return 0, false
	}
	return x.norm.Quantity(v), true
}

// metricFromTextScan looks through the container's own text for the
// first quantity-like token, ignoring the title and description.
func metricFromTextScan(x *Extractor, s *itemScope) (int64, bool) {
	var skip []*html.Node
	if s.anchor != nil {
		skip = append(skip, s.anchor.Nodes...)
	}
	if s.desc != nil {
		skip = append(skip, s.desc.Nodes...)
	}

	var (
		found string
		ok    bool
	)
	for _, root := range s.Selection.Nodes {
		scanTextNodes(root, x.spec.MetricScanDepth(), skip, func(text string) bool {
			found, ok = quantityToken(text, x.norm.Suffix)
			return ok
		})
		if ok {
			return x.norm.Quantity(found), true
		}
	}
	return 0, false
}

func categoryFromRole(x *Extractor, s *itemScope) (string, bool) {
	sel, cs, ok := x.loc.First(s.Container, source.RoleCategory)
	if !ok {
		return "", false
	}
	v := cs.value(sel)
	return v, v != ""
}

func categoryFromMarker(x *Extractor, s *itemScope) (string, bool) {
	marker, _, ok := x.loc.First(s.Container, source.RoleCategoryMarker)
	if !ok || len(s.Selection.Nodes) == 0 {
		return "", false
	}
	v := categoryNearMarker(marker.Nodes[0], s.Selection.Nodes[0], x.spec.CategoryDepth(), x.countLike)
	return v, v != ""
}

func categoryFromQuirk(x *Extractor, _ *itemScope) (string, bool) {
	v := strings.TrimSpace(x.spec.Quirks.Category)
	return v, v != ""
}

// countLike reports whether a category candidate is really a number such
// as a star count.
func (x *Extractor) countLike(text string) bool {
	if strings.IndexFunc(text, unicode.IsLetter) < 0 {
		return true
	}
	return !strings.ContainsFunc(text, unicode.IsSpace) && quantityLike(text, x.norm.Suffix) &&
		isASCIIDigit(rune(text[0]))
}

// ResolveURL makes href absolute against base. Absolute http(s) links
// are returned unchanged; anything else that cannot become an absolute
// http(s) link is an error.
func ResolveURL(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		if !httpScheme(ref.Scheme) || ref.Host == "" {
			return "", errUnsupportedLink
		}
		return href, nil
	}
	if ref.Host == "" && ref.Path == "" && ref.RawQuery == "" {
		return "", errUnsupportedLink
	}
	if base == nil || !httpScheme(base.Scheme) || base.Host == "" {
		return "", errNoBase
	}
	return base.ResolveReference(ref).String(), nil
}

func httpScheme(s string) bool {
	return strings.EqualFold(s, "http") || strings.EqualFold(s, "https")
}
