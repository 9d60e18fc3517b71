// Package classify tags trending items with topics by keyword.
package classify

import (
	"sort"
	"strings"

	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Classify reports whether any keyword occurs in the item's title.
// Matching is a case-sensitive substring test: "AI" matches
// "AI breakthrough" but not "New ai-powered tool". Empty keywords never
// match.
func Classify(item *types.TrendItem, keywords []string) bool {
	if item == nil {
		return false
	}
	for _, kw := range keywords {
		if kw != "" && strings.Contains(item.Title, kw) {
			return true
		}
	}
	return false
}

// Classifier holds named keyword sets. It is built once and only read
// afterwards, so it is safe for concurrent use.
type Classifier struct {
	topics map[string][]string
	names  []string
}

// New copies topics into a classifier. Topics without any non-empty
// keyword are dropped.
func New(topics map[string][]string) *Classifier {
	c := &Classifier{topics: make(map[string][]string, len(topics))}
	for name, keywords := range topics {
		var kept []string
		for _, kw := range keywords {
			if kw != "" {
				kept = append(kept, kw)
			}
		}
		if len(kept) == 0 {
			continue
		}
		c.topics[name] = kept
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)
	return c
}

// Topics returns the topic names in sorted order.
func (c *Classifier) Topics() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Has reports whether the topic exists.
func (c *Classifier) Has(topic string) bool {
	_, ok := c.topics[topic]
	return ok
}

// Match reports whether item belongs to topic. Unknown topics match
// nothing.
func (c *Classifier) Match(item *types.TrendItem, topic string) bool {
	return Classify(item, c.topics[topic])
}

// Tags returns every topic the item belongs to, sorted.
func (c *Classifier) Tags(item *types.TrendItem) []string {
	var tags []string
	for _, name := range c.names {
		if Classify(item, c.topics[name]) {
			tags = append(tags, name)
		}
	}
	return tags
}

// Filter returns the items belonging to topic, preserving order.
func (c *Classifier) Filter(items []types.TrendItem, topic string) []types.TrendItem {
	var out []types.TrendItem
	for i := range items {
		if c.Match(&items[i], topic) {
			out = append(out, items[i])
		}
	}
	return out
}
