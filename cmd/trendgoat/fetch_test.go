package main

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/IshaanNene/TrendGoat/internal/aggregator"
	"github.com/IshaanNene/TrendGoat/internal/classify"
	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/observability"
	"github.com/IshaanNene/TrendGoat/internal/source"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestApplyVariant(t *testing.T) {
	fetchLanguage, fetchSince = "Go", "weekly"
	defer func() { fetchLanguage, fetchSince = "", "" }()

	specs, err := applyVariant(source.Builtin()[:2])
	if err != nil {
		t.Fatalf("applyVariant: %v", err)
	}
	if specs[0].ID != "github-go-weekly" || specs[0].URL != "https://github.com/trending/go?since=weekly" {
		t.Errorf("unexpected variant %s %s", specs[0].ID, specs[0].URL)
	}
	if specs[1].ID != "baidu" {
		t.Errorf("non-github spec changed: %s", specs[1].ID)
	}

	fetchSince = "hourly"
	if _, err := applyVariant(source.Builtin()); err == nil {
		t.Error("expected error for invalid --since")
	}
}

func TestProcessResults(t *testing.T) {
	rs := aggregator.Results{
		"github": {SourceID: "github", Items: []types.TrendItem{
			{Title: "AI agent", URL: "https://github.com/a/b", SourceID: "github"},
			{Title: "plain", URL: "https://github.com/c/d", SourceID: "github"},
		}},
		"weibo": {SourceID: "weibo", Err: types.NewSourceError("weibo", types.KindSourceUnavailable, errors.New("down"))},
	}
	cfg := &config.PipelineConfig{Topic: "ai"}
	metrics := observability.NewMetrics(testLogger)

	out, err := processResults(rs, cfg, classify.New(map[string][]string{"ai": {"AI"}}), metrics, testLogger)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if n := len(out["github"].Items); n != 1 {
		t.Errorf("github items = %d, want 1", n)
	}
	if len(rs["github"].Items) != 2 {
		t.Error("input results must not change")
	}
	if out["weibo"].OK() {
		t.Error("failed source must stay failed")
	}
	if metrics.ItemsDropped.Load() != 1 {
		t.Errorf("dropped = %d, want 1", metrics.ItemsDropped.Load())
	}
}
