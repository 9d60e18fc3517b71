package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func testFetcher() *HTTPFetcher {
	cfg := config.DefaultConfig().Fetcher
	cfg.RateLimit = 0
	cfg.RequestTimeout = 5 * time.Second
	return NewHTTPFetcher(&cfg, testLogger)
}

func TestHTTPFetcherBrotli(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"), "source header overrides default")
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "br")
		bw := brotli.NewWriter(w)
		_, _ = bw.Write([]byte(`{"data":[]}`))
		_ = bw.Close()
	}))
	defer srv.Close()

	req, err := types.NewRequest(srv.URL + "/weibo")
	require.NoError(t, err)
	req.Headers.Set("Accept", "application/json")

	resp, err := testFetcher().Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"data":[]}`, string(resp.Body))
	assert.True(t, resp.IsJSON())
}

func TestHTTPFetcherStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/busy":
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			http.Error(w, "boom", http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	f := testFetcher()

	req, _ := types.NewRequest(srv.URL + "/missing")
	resp, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, resp.IsSuccess())

	req, _ = types.NewRequest(srv.URL + "/busy")
	_, err = f.Fetch(context.Background(), req)
	var fe *types.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusTooManyRequests, fe.StatusCode)
	assert.Equal(t, 7*time.Second, fe.RetryAfter)

	req, _ = types.NewRequest(srv.URL + "/error")
	_, err = f.Fetch(context.Background(), req)
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusBadGateway, fe.StatusCode)
	assert.True(t, fe.IsRetryable())
}

func TestHTTPFetcherRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	req, _ := types.NewRequest(srv.URL)
	req.Timeout = 50 * time.Millisecond

	_, err := testFetcher().Fetch(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHostLimiter(t *testing.T) {
	var nilLimiter *HostLimiter
	assert.NoError(t, nilLimiter.Wait(context.Background(), "example.test"))
	assert.Nil(t, NewHostLimiter(0, 1))

	l := NewHostLimiter(1, 1)
	require.NoError(t, l.Wait(context.Background(), "a.test"))
	require.NoError(t, l.Wait(context.Background(), "b.test"), "hosts are paced independently")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "a.test")
	assert.ErrorIs(t, err, context.DeadlineExceeded, "a wait past the deadline is a timeout")
}

func TestSet(t *testing.T) {
	f := testFetcher()
	set := NewSet(f)

	got, err := set.For("http")
	require.NoError(t, err)
	assert.Same(t, f, got)

	_, err = set.For("browser")
	assert.ErrorIs(t, err, types.ErrNoFetcher)

	assert.NoError(t, set.Close())
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 5*time.Second, parseRetryAfter(""))
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Equal(t, 120*time.Second, parseRetryAfter("600"))
	assert.Equal(t, 5*time.Second, parseRetryAfter("soon"))
}
