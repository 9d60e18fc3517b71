package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/url"
	"strings"

	"github.com/IshaanNene/TrendGoat/internal/normalize"
	"github.com/IshaanNene/TrendGoat/internal/source"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// JSONParser maps JSON payloads onto items through a source's field map.
type JSONParser struct {
	logger *slog.Logger
}

// NewJSONParser creates a JSON parser.
func NewJSONParser(logger *slog.Logger) *JSONParser {
	return &JSONParser{
		logger: logger.With("component", "json_parser"),
	}
}

// Parse implements Parser. A payload that is not JSON, or whose items
// path does not hold an array, is malformed; individual entries that
// lack a title or URL are dropped as failures.
func (p *JSONParser) Parse(resp *types.Response, spec *source.Spec) ([]types.ParseOutcome, error) {
	if spec.Fields == nil {
		return nil, types.NewSourceError(spec.ID, types.KindMalformedPayload, errors.New("source has no field map"))
	}

	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, types.NewSourceError(spec.ID, types.KindMalformedPayload, fmt.Errorf("decode: %w", err))
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, types.NewSourceError(spec.ID, types.KindMalformedPayload, errors.New("trailing data after payload"))
	}

	raw := payload
	if spec.Fields.Items != "" {
		var ok bool
		if raw, ok = lookup(payload, spec.Fields.Items); !ok {
			return nil, types.NewSourceError(spec.ID, types.KindMalformedPayload,
				fmt.Errorf("items path %q not found", spec.Fields.Items))
		}
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, types.NewSourceError(spec.ID, types.KindMalformedPayload,
			fmt.Errorf("items path %q is %T, not an array", spec.Fields.Items, raw))
	}

	m := &fieldMapper{
		spec: spec,
		base: spec.Base(),
		norm: spec.Normalizer(),
	}
	outcomes := make([]types.ParseOutcome, 0, len(list))
	for i, entry := range list {
		outcomes = append(outcomes, m.extract(i, entry))
	}

	p.logger.Debug("payload parsed", "source", spec.ID, "entries", len(list))
	return outcomes, nil
}

type fieldMapper struct {
	spec *source.Spec
	base *url.URL
	norm *normalize.Normalizer
}

func (m *fieldMapper) extract(index int, entry any) types.ParseOutcome {
	obj, ok := entry.(map[string]any)
	if !ok {
		return types.Miss(m.spec.ID, index, types.ReasonNotAnObject)
	}
	f := m.spec.Fields

	title := collapseSpace(stripMarkup(m.text(obj, f.Title)))
	if title == "" {
		return types.Miss(m.spec.ID, index, types.ReasonMissingTitle)
	}
	if m.spec.Quirks.CompactTitle {
		title = strings.Join(strings.Fields(title), "")
	}

	href := strings.TrimSpace(m.text(obj, f.URL))
	if href == "" {
		return types.Miss(m.spec.ID, index, types.ReasonMissingURL)
	}
	link, err := ResolveURL(m.base, href)
	if err != nil {
		return types.Miss(m.spec.ID, index, types.ReasonInvalidURL)
	}

	item := &types.TrendItem{
		Title:       title,
		URL:         link,
		Description: collapseSpace(stripMarkup(m.text(obj, f.Description))),
		Category:    collapseSpace(stripMarkup(m.text(obj, f.Category))),
		SourceID:    m.spec.ID,
	}
	if item.Category == "" {
		item.Category = strings.TrimSpace(m.spec.Quirks.Category)
	}
	if v, ok := m.metric(obj, f.Metric); ok {
		item.Metric = types.Int64(v)
	}
	return types.Success(item)
}

// text returns the first non-empty scalar among keys.
func (m *fieldMapper) text(obj map[string]any, keys []string) string {
	for _, k := range keys {
		v, ok := lookup(obj, k)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if strings.TrimSpace(t) != "" {
				return t
			}
		case json.Number:
			return t.String()
		case bool:
			return fmt.Sprint(t)
		}
	}
	return ""
}

// metric returns the first usable quantity among keys. Numbers are
// truncated toward zero and clamped at zero; strings go through the
// source's normalizer and count only when they hold a digit.
func (m *fieldMapper) metric(obj map[string]any, keys []string) (int64, bool) {
	for _, k := range keys {
		v, ok := lookup(obj, k)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case json.Number:
			if n, err := t.Int64(); err == nil {
				return max(n, 0), true
			}
			f, err := t.Float64()
			if err != nil || math.IsNaN(f) {
				continue
			}
			switch {
			case f <= 0:
				return 0, true
			case f >= math.MaxInt64:
				return math.MaxInt64, true
			default:
				return int64(f), true
			}
		case string:
			if strings.IndexFunc(t, isASCIIDigit) >= 0 {
				return m.norm.Quantity(t), true
			}
		}
	}
	return 0, false
}

// lookup follows a dotted key path through nested objects.
func lookup(v any, path string) (any, bool) {
	cur := v
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[part]; !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}
