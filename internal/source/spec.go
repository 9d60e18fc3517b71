// Package source describes the sources trending items are read from: how
// to fetch them and how to find each field in what comes back.
package source

import (
	"net/url"
	"strings"
	"time"

	"github.com/IshaanNene/TrendGoat/internal/normalize"
)

// Kind is the access method of a source.
type Kind string

const (
	// KindHTML sources are rendered listing pages read with selector chains.
	KindHTML Kind = "html"
	// KindJSON sources return a payload mapped through a field map.
	KindJSON Kind = "json"
)

// Role names a structural role within a listing document.
type Role string

const (
	RoleContainer      Role = "container"
	RoleTitleLink      Role = "title_link"
	RoleDescription    Role = "description"
	RoleMetric         Role = "metric"
	RoleCategory       Role = "category"
	RoleCategoryMarker Role = "category_marker"
)

// Roles lists every role in locator order.
var Roles = []Role{
	RoleContainer, RoleTitleLink, RoleDescription, RoleMetric, RoleCategory, RoleCategoryMarker,
}

// Selector is a structural predicate. Type is "css" (default) or "xpath".
// Attribute, when set, names the attribute holding the value instead of
// the element text.
type Selector struct {
	Type      string `mapstructure:"type"      yaml:"type"      validate:"omitempty,oneof=css xpath"`
	Expr      string `mapstructure:"expr"      yaml:"expr"      validate:"required"`
	Attribute string `mapstructure:"attribute" yaml:"attribute"`
}

// CSS builds a CSS selector.
func CSS(expr string) Selector { return Selector{Type: "css", Expr: expr} }

// XPath builds an XPath selector.
func XPath(expr string) Selector { return Selector{Type: "xpath", Expr: expr} }

// Attr returns a copy of s reading the named attribute.
func (s Selector) Attr(name string) Selector {
	s.Attribute = name
	return s
}

// IsXPath reports whether the selector is an XPath expression.
func (s Selector) IsXPath() bool {
	return strings.EqualFold(s.Type, "xpath")
}

func (s Selector) String() string {
	if s.IsXPath() {
		return "xpath:" + s.Expr
	}
	return s.Expr
}

// FieldMap maps a JSON payload onto TrendItem fields. Every field lists
// candidate keys in priority order; dotted keys descend into objects.
type FieldMap struct {
	Items       string   `mapstructure:"items"       yaml:"items"`
	Title       []string `mapstructure:"title"       yaml:"title"       validate:"required,min=1"`
	URL         []string `mapstructure:"url"         yaml:"url"         validate:"required,min=1"`
	Description []string `mapstructure:"description" yaml:"description"`
	Metric      []string `mapstructure:"metric"      yaml:"metric"`
	Category    []string `mapstructure:"category"    yaml:"category"`
}

// Defaults for the depth caps in Quirks.
const (
	DefaultCategoryDepth   = 3
	DefaultMetricScanDepth = 4
)

// Quirks are source-specific extraction adjustments.
type Quirks struct {
	// Suffixes is the magnitude alphabet for quantities; empty means k/m.
	Suffixes map[string]int64 `mapstructure:"suffixes" yaml:"suffixes"`

	// CompactTitle removes all whitespace from titles ("owner / repo" -> "owner/repo").
	CompactTitle bool `mapstructure:"compact_title" yaml:"compact_title"`

	// CategoryDepth caps how far the marker strategy climbs and descends.
	// Zero selects DefaultCategoryDepth.
	CategoryDepth int `mapstructure:"category_depth" yaml:"category_depth" validate:"gte=0,lte=16"`

	// MetricScanDepth caps the descendant depth of the metric text heuristic.
	// Zero selects DefaultMetricScanDepth.
	MetricScanDepth int `mapstructure:"metric_scan_depth" yaml:"metric_scan_depth" validate:"gte=0,lte=16"`

	// Category is a literal category for every item (e.g. the platform name).
	Category string `mapstructure:"category" yaml:"category"`
}

// Spec is the static description of one source. Specs are built once at
// startup and never mutated; components receive them by pointer.
type Spec struct {
	ID           string              `mapstructure:"id"            yaml:"id"            validate:"required,excludesall=/?#"`
	Name         string              `mapstructure:"name"          yaml:"name"`
	Kind         Kind                `mapstructure:"kind"          yaml:"kind"          validate:"required,oneof=html json"`
	URL          string              `mapstructure:"url"           yaml:"url"           validate:"required,url"`
	BaseURL      string              `mapstructure:"base_url"      yaml:"base_url"      validate:"omitempty,url"`
	Fetcher      string              `mapstructure:"fetcher"       yaml:"fetcher"       validate:"omitempty,oneof=http browser"`
	Headers      map[string]string   `mapstructure:"headers"       yaml:"headers"`
	Timeout      time.Duration       `mapstructure:"timeout"       yaml:"timeout"       validate:"gte=0"`
	Disabled     bool                `mapstructure:"disabled"      yaml:"disabled"`
	WaitSelector string              `mapstructure:"wait_selector" yaml:"wait_selector"`
	Selectors    map[Role][]Selector `mapstructure:"selectors"     yaml:"selectors"     validate:"omitempty,dive,dive"`
	Fields       *FieldMap           `mapstructure:"fields"        yaml:"fields"`
	Quirks       Quirks              `mapstructure:"quirks"        yaml:"quirks"`
}

// Chain returns the ordered selectors for role.
func (s *Spec) Chain(role Role) []Selector {
	return s.Selectors[role]
}

// Base returns the origin relative links resolve against: BaseURL when
// set, else the scheme and host of URL.
func (s *Spec) Base() *url.URL {
	raw := s.BaseURL
	if raw == "" {
		raw = s.URL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil
	}
	if s.BaseURL == "" {
		return &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}
	}
	return u
}

// Normalizer returns the quantity normalizer for the source's alphabet.
func (s *Spec) Normalizer() *normalize.Normalizer {
	return normalize.New(s.Quirks.Suffixes)
}

// CategoryDepth returns the effective category recursion cap.
func (s *Spec) CategoryDepth() int {
	if s.Quirks.CategoryDepth > 0 {
		return s.Quirks.CategoryDepth
	}
	return DefaultCategoryDepth
}

// MetricScanDepth returns the effective metric heuristic depth cap.
func (s *Spec) MetricScanDepth() int {
	if s.Quirks.MetricScanDepth > 0 {
		return s.Quirks.MetricScanDepth
	}
	return DefaultMetricScanDepth
}

// DisplayName returns Name, falling back to ID.
func (s *Spec) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// FetcherType returns the fetcher to use, defaulting to "http".
func (s *Spec) FetcherType() string {
	if s.Fetcher == "" {
		return "http"
	}
	return s.Fetcher
}

// WithURL returns a copy of the spec pointed at a different URL. The
// selector tables are shared, which is fine since specs are read-only.
func (s *Spec) WithURL(id, rawURL string) *Spec {
	clone := *s
	clone.ID = id
	clone.URL = rawURL
	if clone.BaseURL == "" {
		if base := s.Base(); base != nil {
			clone.BaseURL = base.String()
		}
	}
	return &clone
}
