package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// BrowserFetcher renders pages in headless Chromium through Rod. Sources
// whose listing is built client-side select it with `fetcher: browser`.
type BrowserFetcher struct {
	browser *rod.Browser
	cfg     *config.FetcherConfig
	logger  *slog.Logger

	// idle holds blank pages for reuse. Stealth pages are never pooled.
	idle chan *rod.Page
}

// NewBrowserFetcher launches a browser and keeps up to maxPages idle tabs.
func NewBrowserFetcher(cfg *config.FetcherConfig, maxPages int, logger *slog.Logger) (*BrowserFetcher, error) {
	controlURL, err := launch(&cfg.Browser)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	bf := &BrowserFetcher{
		browser: browser,
		cfg:     cfg,
		logger:  logger.With("component", "browser_fetcher"),
		idle:    make(chan *rod.Page, max(maxPages, 1)),
	}
	bf.logger.Info("browser ready", "max_idle_pages", cap(bf.idle), "stealth", cfg.Browser.Stealth)
	return bf, nil
}

func launch(cfg *config.BrowserConfig) (string, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")
	if cfg.BinPath != "" {
		l = l.Bin(cfg.BinPath)
	}
	return l.Launch()
}

// Fetch loads req in a tab, waits for the page to settle (and for
// req.WaitSelector, if set) and returns the rendered HTML.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	start := time.Now()
	fail := func(err error) (*types.Response, error) {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
	}

	page, release, err := bf.acquire()
	if err != nil {
		return fail(err)
	}
	defer release()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = bf.cfg.RequestTimeout
	}
	page = page.Context(ctx).Timeout(timeout)

	bf.applyHeaders(page, req)
	if err := page.Navigate(req.URLString()); err != nil {
		return fail(err)
	}
	bf.waitReady(page, req)

	html, err := page.HTML()
	if err != nil {
		return fail(err)
	}

	final := req.URLString()
	if info, err := page.Info(); err == nil && info != nil {
		final = info.URL
	}
	resp := types.NewRenderedResponse(req, html, final, time.Since(start))

	bf.logger.Debug("rendered",
		"source", req.SourceID,
		"url", final,
		"bytes", len(html),
		"duration", resp.Duration,
	)
	return resp, nil
}

// applyHeaders sends the source's headers with the navigation. The user
// agent goes through the emulation override rather than a raw header.
func (bf *BrowserFetcher) applyHeaders(page *rod.Page, req *types.Request) {
	var extra []string
	for k, vals := range req.Headers {
		if k == "User-Agent" {
			continue
		}
		for _, v := range vals {
			extra = append(extra, k, v)
		}
	}
	if len(extra) > 0 {
		if _, err := page.SetExtraHeaders(extra); err != nil {
			bf.logger.Warn("set headers", "source", req.SourceID, "error", err)
		}
	}
	if ua := req.Headers.Get("User-Agent"); ua != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
			bf.logger.Warn("set user agent", "source", req.SourceID, "error", err)
		}
	}
}

// waitReady is best effort: a page that never goes quiet is still
// captured as it stands.
func (bf *BrowserFetcher) waitReady(page *rod.Page, req *types.Request) {
	if err := page.WaitStable(bf.cfg.Browser.WaitIdle); err != nil {
		bf.logger.Warn("page not stable", "source", req.SourceID, "error", err)
	}
	if req.WaitSelector == "" {
		return
	}
	el, err := page.Element(req.WaitSelector)
	if err == nil {
		err = el.WaitVisible()
	}
	if err != nil {
		bf.logger.Warn("wait selector", "source", req.SourceID, "selector", req.WaitSelector, "error", err)
	}
}

// acquire hands out a tab and the func that returns it.
func (bf *BrowserFetcher) acquire() (*rod.Page, func(), error) {
	if bf.cfg.Browser.Stealth {
		page, err := stealth.Page(bf.browser)
		if err != nil {
			return nil, nil, fmt.Errorf("stealth page: %w", err)
		}
		return page, func() { _ = page.Close() }, nil
	}

	var page *rod.Page
	select {
	case page = <-bf.idle:
	default:
		p, err := bf.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
		if err != nil {
			return nil, nil, fmt.Errorf("open page: %w", err)
		}
		page = p
	}
	return page, func() { bf.park(page) }, nil
}

// park blanks a tab and keeps it if the pool has room.
func (bf *BrowserFetcher) park(page *rod.Page) {
	if err := page.Navigate("about:blank"); err != nil {
		_ = page.Close()
		return
	}
	select {
	case bf.idle <- page:
	default:
		_ = page.Close()
	}
}

// Close closes idle tabs and the browser.
func (bf *BrowserFetcher) Close() error {
	close(bf.idle)
	for page := range bf.idle {
		_ = page.Close()
	}
	return bf.browser.Close()
}

// Type returns "browser".
func (bf *BrowserFetcher) Type() string { return "browser" }
