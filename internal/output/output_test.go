package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/IshaanNene/TrendGoat/internal/aggregator"
	"github.com/IshaanNene/TrendGoat/internal/source"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

func newTestPrinter() (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewPrinterWithWriters(&out, &errOut, false), &out, &errOut
}

func TestFormatMetric(t *testing.T) {
	tests := []struct {
		in   *int64
		want string
	}{
		{nil, "-"},
		{types.Int64(0), "0"},
		{types.Int64(999), "999"},
		{types.Int64(1000), "1,000"},
		{types.Int64(1234567), "1,234,567"},
		{types.Int64(-12000), "-12,000"},
	}
	for _, tt := range tests {
		if got := FormatMetric(tt.in); got != tt.want {
			t.Errorf("FormatMetric(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("short string changed: %q", got)
	}
	got := truncate("一二三四五六", 7)
	if got != "一二三…" {
		t.Errorf("wide truncate = %q", got)
	}
	if got := truncate("anything", 0); got != "anything" {
		t.Errorf("zero width should not truncate, got %q", got)
	}
}

func TestParseColorMode(t *testing.T) {
	if m, err := ParseColorMode("never"); err != nil || m != ColorNever {
		t.Errorf("never: %v %v", m, err)
	}
	if _, err := ParseColorMode("sometimes"); err == nil {
		t.Error("expected error for unknown mode")
	}
	if ResolveColors(ColorNever) || !ResolveColors(ColorAlways) {
		t.Error("explicit modes must win")
	}
}

func TestPrintResults(t *testing.T) {
	p, out, errOut := newTestPrinter()

	rs := aggregator.Results{
		"github": {
			SourceID: "github",
			Items: []types.TrendItem{
				{Title: "owner / repo", URL: "https://github.com/owner/repo", Metric: types.Int64(1234), Category: "Go"},
			},
			Failures: []types.Failure{{SourceID: "github", ContainerIndex: 3, Reason: types.ReasonMissingTitleLink}},
		},
		"weibo": {
			SourceID: "weibo",
			Err:      types.NewSourceError("weibo", types.KindSourceTimeout, errors.New("deadline")),
		},
	}

	if err := p.PrintResults(rs, func(id string) string { return strings.ToUpper(id) }); err != nil {
		t.Fatalf("print: %v", err)
	}

	got := out.String()
	for _, want := range []string{"GITHUB (1)", "owner / repo", "1,234", "Go", "1 candidate(s) skipped"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "WEIBO") {
		t.Error("failed source should not get an item table")
	}
	if !strings.Contains(errOut.String(), "weibo: source_timeout") {
		t.Errorf("failure not reported: %q", errOut.String())
	}
}

func TestPrintOutcomes(t *testing.T) {
	p, out, _ := newTestPrinter()
	outcomes := []types.ParseOutcome{
		types.Success(&types.TrendItem{Title: "kept", URL: "https://example.test/kept"}),
		types.Miss("test", 1, types.ReasonMissingTitleLink),
	}

	if err := p.PrintOutcomes("test", outcomes); err != nil {
		t.Fatalf("print: %v", err)
	}
	got := out.String()
	for _, want := range []string{"1 item(s), 1 failure(s)", "kept", "missing_title_link"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPrintSources(t *testing.T) {
	p, out, _ := newTestPrinter()
	specs := source.Builtin()
	specs[1].Disabled = true

	if err := p.PrintSources(specs); err != nil {
		t.Fatalf("print: %v", err)
	}
	got := out.String()
	for _, want := range []string{"https://github.com/trending", "GitHub Trending", "json", "no"} {
		if !strings.Contains(got, want) {
			t.Errorf("sources output missing %q:\n%s", want, got)
		}
	}
}

func TestPrinterMessages(t *testing.T) {
	p, out, errOut := newTestPrinter()
	p.Success("exported %d items", 3)
	p.Warning("careful")

	if out.String() != "[OK] exported 3 items\n" {
		t.Errorf("success = %q", out.String())
	}
	if errOut.String() != "[WARN] careful\n" {
		t.Errorf("warning = %q", errOut.String())
	}
}
