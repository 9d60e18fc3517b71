package types

import (
	"encoding/json"
	"strconv"
)

// TrendItem is the canonical record produced for every trending entry,
// whichever source it came from.
type TrendItem struct {
	// Title is the trimmed, non-empty display name of the entry.
	Title string `json:"title"`

	// URL is the absolute link to the entry.
	URL string `json:"url"`

	// Description is the entry's blurb, empty when the source has none.
	Description string `json:"description"`

	// Metric is the normalized quantity (stars, heat score). Nil means the
	// source exposed no quantity for this entry; zero means it parsed as zero.
	Metric *int64 `json:"metric,omitempty"`

	// Category is the programming language for repositories or the
	// platform name for news items.
	Category string `json:"category,omitempty"`

	// SourceID identifies the source that produced the entry.
	SourceID string `json:"source_id"`
}

// Valid reports whether the item satisfies the required-field invariant.
func (i *TrendItem) Valid() bool {
	return i != nil && i.Title != "" && i.URL != ""
}

// HasMetric reports whether a quantity was found for the item.
func (i *TrendItem) HasMetric() bool {
	return i.Metric != nil
}

// MetricValue returns the metric or zero when absent.
func (i *TrendItem) MetricValue() int64 {
	if i.Metric == nil {
		return 0
	}
	return *i.Metric
}

// ToJSON serializes the item to JSON bytes.
func (i *TrendItem) ToJSON() ([]byte, error) {
	return json.Marshal(i)
}

// ToFlatMap returns a flat map suitable for CSV export.
func (i *TrendItem) ToFlatMap() map[string]string {
	flat := map[string]string{
		"title":       i.Title,
		"url":         i.URL,
		"description": i.Description,
		"category":    i.Category,
		"source_id":   i.SourceID,
		"metric":      "",
	}
	if i.Metric != nil {
		flat["metric"] = strconv.FormatInt(*i.Metric, 10)
	}
	return flat
}

// Clone creates a deep copy of the item.
func (i *TrendItem) Clone() *TrendItem {
	clone := *i
	if i.Metric != nil {
		m := *i.Metric
		clone.Metric = &m
	}
	return &clone
}

// Int64 returns a pointer to v. Handy for building metrics in literals.
func Int64(v int64) *int64 {
	return &v
}
