package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/IshaanNene/TrendGoat/internal/classify"
	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestPipelineBasic(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})

	item := &types.TrendItem{
		Title:       "  Hello   World  ",
		URL:         "https://example.test/hello",
		Description: " spaced\n out ",
		SourceID:    "test",
	}

	result, err := p.Process(item)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if result.Title != "Hello World" {
		t.Errorf("expected trimmed title, got %q", result.Title)
	}
	if result.Description != "spaced out" {
		t.Errorf("expected trimmed description, got %q", result.Description)
	}
}

func TestRequiredFieldsMiddleware(t *testing.T) {
	m := &RequiredFieldsMiddleware{}

	result, err := m.Process(&types.TrendItem{Title: "Hello", URL: "https://example.test"})
	if err != nil || result == nil {
		t.Error("item with title and url should pass")
	}

	result, _ = m.Process(&types.TrendItem{Title: "Hello"})
	if result != nil {
		t.Error("item missing url should be dropped (nil)")
	}
}

func TestFromConfigKeepsAngleBrackets(t *testing.T) {
	p := FromConfig(&config.PipelineConfig{}, nil, testLogger)

	for _, title := range []string{"Vec<T> in Rust", "<T>"} {
		result, err := p.Process(&types.TrendItem{Title: title, URL: "https://example.test", SourceID: "s"})
		if err != nil {
			t.Fatalf("pipeline error: %v", err)
		}
		if result == nil || result.Title != title {
			t.Errorf("%q: got %+v", title, result)
		}
	}
}

func TestDedupMiddleware(t *testing.T) {
	m := NewDedupMiddleware()

	first := &types.TrendItem{Title: "a", URL: "https://example.test/1", SourceID: "s1"}
	if result, _ := m.Process(first); result == nil {
		t.Fatal("first item should pass dedup")
	}

	again := &types.TrendItem{Title: "a again", URL: "https://example.test/1", SourceID: "s1"}
	if result, _ := m.Process(again); result != nil {
		t.Error("duplicate within a source should be dropped")
	}

	other := &types.TrendItem{Title: "a", URL: "https://example.test/1", SourceID: "s2"}
	if result, _ := m.Process(other); result == nil {
		t.Error("same url from another source should pass")
	}
}

func TestDedupCanonicalURL(t *testing.T) {
	m := NewDedupMiddleware()

	urls := []string{
		"https://github.com/owner/repo",
		"HTTPS://GitHub.com/owner/repo/",
		"https://github.com:443/owner/repo#readme",
	}
	for i, u := range urls {
		r, _ := m.Process(&types.TrendItem{Title: "repo", URL: u, SourceID: "github"})
		if (r != nil) != (i == 0) {
			t.Errorf("%s: kept = %v", u, r != nil)
		}
	}
	if m.Count() != 1 {
		t.Errorf("count = %d, want 1", m.Count())
	}
}

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://Example.test/a/?b=2&a=1#frag", "https://example.test/a?a=1&b=2"},
		{"http://example.test:80", "http://example.test/"},
		{"https://example.test:8443/x", "https://example.test:8443/x"},
	}
	for _, tt := range tests {
		if got := CanonicalizeURL(tt.in); got != tt.want {
			t.Errorf("CanonicalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMinMetricMiddleware(t *testing.T) {
	m := &MinMetricMiddleware{Min: 100}

	if r, _ := m.Process(&types.TrendItem{Metric: types.Int64(99)}); r != nil {
		t.Error("metric below threshold should be dropped")
	}
	if r, _ := m.Process(&types.TrendItem{Metric: types.Int64(100)}); r == nil {
		t.Error("metric at threshold should pass")
	}
	if r, _ := m.Process(&types.TrendItem{}); r == nil {
		t.Error("item without metric should pass by default")
	}

	m.DropUnknown = true
	if r, _ := m.Process(&types.TrendItem{}); r != nil {
		t.Error("item without metric should be dropped when DropUnknown is set")
	}
}

func TestTopicFilterMiddleware(t *testing.T) {
	m := &TopicFilterMiddleware{
		Classifier: classify.New(map[string][]string{"ai": {"AI"}}),
		Topic:      "ai",
	}
	if r, _ := m.Process(&types.TrendItem{Title: "AI breakthrough"}); r == nil {
		t.Error("matching item should pass")
	}
	if r, _ := m.Process(&types.TrendItem{Title: "New ai-powered tool"}); r != nil {
		t.Error("non-matching item should be dropped")
	}
}

func TestProcessAllKeepsOrderAndInput(t *testing.T) {
	cfg := &config.PipelineConfig{Dedup: true, MinMetric: 10}
	p := FromConfig(cfg, nil, testLogger)

	items := []types.TrendItem{
		{Title: " one ", URL: "https://example.test/1", SourceID: "s", Metric: types.Int64(50)},
		{Title: "low", URL: "https://example.test/2", SourceID: "s", Metric: types.Int64(1)},
		{Title: "dup", URL: "https://example.test/1", SourceID: "s", Metric: types.Int64(60)},
		{Title: "three", URL: "https://example.test/3", SourceID: "s"},
	}

	out, dropped, err := p.ProcessAll(items)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if len(out) != 2 || out[0].Title != "one" || out[1].Title != "three" {
		t.Errorf("unexpected output: %+v", out)
	}
	if items[0].Title != " one " {
		t.Error("input items must not be modified")
	}
}

type failingMiddleware struct{}

func (failingMiddleware) Name() string { return "failing" }

func (failingMiddleware) Process(*types.TrendItem) (*types.TrendItem, error) {
	return nil, errors.New("boom")
}

func TestPipelineError(t *testing.T) {
	p := New(testLogger)
	p.Use(failingMiddleware{})

	_, err := p.Process(&types.TrendItem{Title: "x", URL: "https://example.test"})
	var pe *types.PipelineError
	if !errors.As(err, &pe) || pe.Stage != "failing" {
		t.Errorf("expected pipeline error from stage failing, got %v", err)
	}
}

// --- Benchmarks ---

func BenchmarkPipeline(b *testing.B) {
	p := FromConfig(&config.PipelineConfig{Dedup: true}, nil, testLogger)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		item := &types.TrendItem{
			Title:       "  Hello <b>World</b>  ",
			URL:         "https://example.test/bench",
			Description: "  <p>Content</p>  ",
			SourceID:    "bench",
		}
		p.Process(item)
	}
}
