package source

import (
	"fmt"

	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Table is the immutable, ordered set of configured sources.
type Table struct {
	specs []*Spec
	byID  map[string]*Spec
}

// NewTable builds a table, rejecting duplicate ids.
func NewTable(specs []*Spec) (*Table, error) {
	t := &Table{
		specs: make([]*Spec, 0, len(specs)),
		byID:  make(map[string]*Spec, len(specs)),
	}
	for _, s := range specs {
		if s == nil {
			continue
		}
		if _, dup := t.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate source id %q", s.ID)
		}
		t.byID[s.ID] = s
		t.specs = append(t.specs, s)
	}
	return t, nil
}

// Merge returns the built-in specs with overrides applied: an override
// replaces the built-in spec with the same id, new ids are appended.
func Merge(builtin, overrides []*Spec) []*Spec {
	index := make(map[string]int, len(builtin))
	merged := make([]*Spec, 0, len(builtin)+len(overrides))
	for _, s := range builtin {
		index[s.ID] = len(merged)
		merged = append(merged, s)
	}
	for _, s := range overrides {
		if i, ok := index[s.ID]; ok {
			merged[i] = s
			continue
		}
		index[s.ID] = len(merged)
		merged = append(merged, s)
	}
	return merged
}

// Get returns the spec with the given id.
func (t *Table) Get(id string) (*Spec, bool) {
	s, ok := t.byID[id]
	return s, ok
}

// All returns every spec in table order.
func (t *Table) All() []*Spec {
	out := make([]*Spec, len(t.specs))
	copy(out, t.specs)
	return out
}

// Enabled returns the specs not marked disabled.
func (t *Table) Enabled() []*Spec {
	var out []*Spec
	for _, s := range t.specs {
		if !s.Disabled {
			out = append(out, s)
		}
	}
	return out
}

// Select resolves ids to specs in the order given. An empty list selects
// every enabled source.
func (t *Table) Select(ids ...string) ([]*Spec, error) {
	if len(ids) == 0 {
		return t.Enabled(), nil
	}
	out := make([]*Spec, 0, len(ids))
	for _, id := range ids {
		s, ok := t.byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", types.ErrUnknownSource, id)
		}
		out = append(out, s)
	}
	return out, nil
}

// Len returns the number of sources.
func (t *Table) Len() int { return len(t.specs) }
