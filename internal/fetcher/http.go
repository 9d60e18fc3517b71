package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

const (
	defaultAccept         = "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8"
	defaultAcceptLanguage = "en-US,en;q=0.9,zh-CN;q=0.8"

	// errorSnippet caps how much of an error body ends up in the error.
	errorSnippet = 512

	defaultRetryAfter = 5 * time.Second
	maxRetryAfter     = 2 * time.Minute
)

// HTTPFetcher fetches source endpoints with net/http. It decodes gzip,
// deflate and brotli bodies itself and paces requests per host.
type HTTPFetcher struct {
	client     *http.Client
	cfg        *config.FetcherConfig
	limiter    *HostLimiter
	logger     *slog.Logger
	userAgents []string
	uaIndex    atomic.Int64
}

// NewHTTPFetcher creates an HTTP fetcher from cfg.
func NewHTTPFetcher(cfg *config.FetcherConfig, logger *slog.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Transport:     newTransport(cfg),
			CheckRedirect: redirectPolicy(cfg),
		},
		cfg:        cfg,
		limiter:    NewHostLimiter(cfg.RateLimit, cfg.RateBurst),
		logger:     logger.With("component", "http_fetcher"),
		userAgents: cfg.UserAgents,
	}
}

func newTransport(cfg *config.FetcherConfig) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: max(cfg.MaxIdleConns/2, 1),
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: cfg.TLSInsecure},
		// Bodies are decoded in decodeBody, which also knows brotli.
		DisableCompression: true,
	}
}

func redirectPolicy(cfg *config.FetcherConfig) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if !cfg.FollowRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) >= cfg.MaxRedirects {
			return fmt.Errorf("stopped after %d redirects", cfg.MaxRedirects)
		}
		return nil
	}
}

// Fetch performs a GET for req. Statuses below 500 other than 429 come
// back as a Response for the caller to judge; 429 and 5xx, like network
// failures, are returned as *types.FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	if timeout := f.timeout(req); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := f.limiter.Wait(ctx, req.Host()); err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	httpReq, err := f.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}

	start := time.Now()
	httpResp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: isRetryableError(err)}
	}
	defer httpResp.Body.Close()

	if err := statusError(req, httpResp); err != nil {
		return nil, err
	}

	body, err := f.readBody(httpResp)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), StatusCode: httpResp.StatusCode, Err: err, Retryable: true}
	}
	resp := types.NewHTTPResponse(req, httpResp, body, time.Since(start))

	f.logger.Debug("fetched",
		"source", req.SourceID,
		"url", req.URLString(),
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", resp.Duration,
	)
	return resp, nil
}

// Close drops idle connections.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Type returns "http".
func (f *HTTPFetcher) Type() string { return "http" }

func (f *HTTPFetcher) timeout(req *types.Request) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	return f.cfg.RequestTimeout
}

// newHTTPRequest sets browser-like defaults, then the source's own
// headers, which win.
func (f *HTTPFetcher) newHTTPRequest(ctx context.Context, req *types.Request) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URLString(), nil)
	if err != nil {
		return nil, err
	}
	h := httpReq.Header
	h.Set("User-Agent", f.nextUserAgent())
	h.Set("Accept", defaultAccept)
	h.Set("Accept-Language", defaultAcceptLanguage)
	h.Set("Accept-Encoding", "gzip, deflate, br")
	for key, values := range req.Headers {
		h.Del(key)
		for _, v := range values {
			h.Add(key, v)
		}
	}
	return httpReq, nil
}

func (f *HTTPFetcher) readBody(httpResp *http.Response) ([]byte, error) {
	var r io.Reader = httpResp.Body
	if f.cfg.MaxBodySize > 0 {
		r = io.LimitReader(r, f.cfg.MaxBodySize)
	}
	r, err := decodeBody(httpResp.Header.Get("Content-Encoding"), r)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return io.ReadAll(r)
}

// nextUserAgent rotates through the configured user agents.
func (f *HTTPFetcher) nextUserAgent() string {
	if len(f.userAgents) == 0 {
		return "TrendGoat/" + config.Version
	}
	idx := f.uaIndex.Add(1) % int64(len(f.userAgents))
	return f.userAgents[idx]
}

// statusError turns 429 and 5xx into a FetchError carrying a short
// excerpt of the body.
func statusError(req *types.Request, httpResp *http.Response) error {
	code := httpResp.StatusCode
	if code != http.StatusTooManyRequests && code < 500 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, errorSnippet))
	fe := &types.FetchError{
		URL:        req.URLString(),
		StatusCode: code,
		Retryable:  true,
	}
	if code == http.StatusTooManyRequests {
		fe.RetryAfter = parseRetryAfter(httpResp.Header.Get("Retry-After"))
		fe.Err = fmt.Errorf("HTTP 429: rate limited (retry after %s): %s", fe.RetryAfter, strings.TrimSpace(string(snippet)))
	} else {
		fe.Err = fmt.Errorf("HTTP %d: %s", code, strings.TrimSpace(string(snippet)))
	}
	return fe
}

func decodeBody(encoding string, r io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip":
		return gzip.NewReader(r)
	case "deflate":
		return flate.NewReader(r), nil
	case "br":
		return brotli.NewReader(r), nil
	default:
		return r, nil
	}
}

// isRetryableError reports transport failures worth another attempt.
// Cancellation and deadlines are final.
func isRetryableError(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return true
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.ECONNREFUSED):
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// parseRetryAfter reads Retry-After as seconds or an HTTP date, capped
// at two minutes.
func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return defaultRetryAfter
	}
	var d time.Duration
	if secs, err := strconv.Atoi(header); err == nil {
		d = time.Duration(max(secs, 0)) * time.Second
	} else if t, err := http.ParseTime(header); err == nil {
		d = max(time.Until(t), time.Second)
	} else {
		return defaultRetryAfter
	}
	return min(d, maxRetryAfter)
}
