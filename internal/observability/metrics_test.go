package observability

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/IshaanNene/TrendGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestRecordSource(t *testing.T) {
	m := NewMetrics(testLogger)

	m.RecordSource(nil)
	m.RecordSource(types.NewSourceError("a", types.KindSourceTimeout, errors.New("slow")))
	m.RecordSource(types.NewSourceError("b", types.KindMalformedPayload, errors.New("bad json")))
	m.RecordSource(errors.New("connection refused"))

	snap := m.Snapshot()
	want := map[string]int64{
		"sources_total":       4,
		"sources_ok":          1,
		"sources_timeout":     1,
		"sources_malformed":   1,
		"sources_unavailable": 1,
	}
	for k, v := range want {
		if snap[k] != v {
			t.Errorf("%s = %d, want %d", k, snap[k], v)
		}
	}
}

func TestRecordStatus(t *testing.T) {
	m := NewMetrics(testLogger)
	for _, s := range []int{200, 204, 301, 404, 429, 503} {
		m.RecordStatus(s)
	}
	if m.Responses2xx.Load() != 2 || m.Responses4xx.Load() != 2 || m.Responses5xx.Load() != 1 {
		t.Errorf("unexpected counts: %v", m.Snapshot())
	}
}

func TestServeHTTP(t *testing.T) {
	m := NewMetrics(testLogger)
	m.ItemsExtracted.Add(7)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "trendgoat_items_extracted_total 7\n") {
		t.Errorf("missing counter in output:\n%s", body)
	}
	if !strings.Contains(body, "# TYPE trendgoat_runs_total counter") {
		t.Errorf("missing type line in output:\n%s", body)
	}
}
