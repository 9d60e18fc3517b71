package output

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"

	"github.com/IshaanNene/TrendGoat/internal/aggregator"
	"github.com/IshaanNene/TrendGoat/internal/source"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// PrintItems prints one table of items under a header.
func (p *Printer) PrintItems(title string, items []types.TrendItem) error {
	p.Header(fmt.Sprintf("%s (%d)", title, len(items)))
	if len(items) == 0 {
		fmt.Fprintln(p.out, "  no items")
		return nil
	}

	t := NewTable(p.out, []string{"#", "title", "metric", "category", "description", "url"})
	for i := range items {
		it := &items[i]
		t.AddRow(
			strconv.Itoa(i+1),
			truncate(it.Title, p.TitleWidth),
			p.paint([]color.Attribute{color.FgYellow}, FormatMetric(it.Metric)),
			p.paint([]color.Attribute{color.FgCyan}, it.Category),
			truncate(it.Description, p.DescriptionWidth),
			it.URL,
		)
	}
	return t.Render()
}

// PrintResults prints a table per source in id order, then the failures.
// name maps a source id to its display name and may be nil.
func (p *Printer) PrintResults(rs aggregator.Results, name func(id string) string) error {
	for _, id := range rs.IDs() {
		r := rs[id]
		if !r.OK() {
			continue
		}
		title := id
		if name != nil {
			title = name(id)
		}
		if err := p.PrintItems(title, r.Items); err != nil {
			return err
		}
		if n := len(r.Failures); n > 0 {
			fmt.Fprintln(p.out, p.paint([]color.Attribute{color.Faint}, fmt.Sprintf("  %d candidate(s) skipped", n)))
		}
	}
	p.PrintFailures(rs)
	return nil
}

// PrintFailures reports every source that failed, with its kind.
func (p *Printer) PrintFailures(rs aggregator.Results) {
	for _, id := range rs.Failed() {
		r := rs[id]
		p.Error("%s: %s: %v", id, r.Kind(), r.Err)
	}
}

// PrintOutcomes prints every parse outcome of one document, successes
// and failures alike, in container order.
func (p *Printer) PrintOutcomes(title string, outcomes []types.ParseOutcome) error {
	items, failures := types.Split(outcomes)
	p.Header(fmt.Sprintf("%s: %d item(s), %d failure(s)", title, len(items), len(failures)))

	t := NewTable(p.out, []string{"#", "result", "title", "metric", "category", "url"})
	for i, o := range outcomes {
		if o.Item != nil {
			t.AddRow(
				strconv.Itoa(i),
				p.paint([]color.Attribute{color.FgGreen}, "ok"),
				truncate(o.Item.Title, p.TitleWidth),
				FormatMetric(o.Item.Metric),
				o.Item.Category,
				o.Item.URL,
			)
			continue
		}
		t.AddRow(
			strconv.Itoa(o.Failure.ContainerIndex),
			p.paint([]color.Attribute{color.FgRed}, string(o.Failure.Reason)),
			"", "", "", "",
		)
	}
	if t.Len() == 0 {
		fmt.Fprintln(p.out, "  no candidates")
		return nil
	}
	return t.Render()
}

// PrintSources lists source specs.
func (p *Printer) PrintSources(specs []*source.Spec) error {
	t := NewTable(p.out, []string{"id", "name", "kind", "fetcher", "enabled", "url"})
	for _, s := range specs {
		enabled := p.paint([]color.Attribute{color.FgGreen}, "yes")
		if s.Disabled {
			enabled = p.paint([]color.Attribute{color.Faint}, "no")
		}
		t.AddRow(s.ID, s.DisplayName(), string(s.Kind), s.FetcherType(), enabled, s.URL)
	}
	return t.Render()
}
