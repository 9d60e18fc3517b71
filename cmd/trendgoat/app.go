package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/IshaanNene/TrendGoat/internal/aggregator"
	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/fetcher"
	"github.com/IshaanNene/TrendGoat/internal/observability"
	"github.com/IshaanNene/TrendGoat/internal/parser"
	"github.com/IshaanNene/TrendGoat/internal/source"
)

// needsBrowser reports whether any spec renders through the browser.
func needsBrowser(specs []*source.Spec) bool {
	for _, s := range specs {
		if s.FetcherType() == "browser" {
			return true
		}
	}
	return false
}

// buildFetchers creates the HTTP fetcher and, when enabled and some spec
// asks for it, the browser fetcher. A browser that fails to launch is
// logged; its sources then fail as unavailable.
func buildFetchers(cfg *config.Config, specs []*source.Spec, logger *slog.Logger) fetcher.Set {
	fetchers := []fetcher.Fetcher{fetcher.NewHTTPFetcher(&cfg.Fetcher, logger)}

	if needsBrowser(specs) {
		if !cfg.Fetcher.Browser.Enabled {
			logger.Warn("browser sources configured but fetcher.browser.enabled is false")
		} else if bf, err := fetcher.NewBrowserFetcher(&cfg.Fetcher, cfg.Aggregator.MaxConcurrency, logger); err != nil {
			logger.Error("browser fetcher unavailable", "error", err)
		} else {
			fetchers = append(fetchers, bf)
		}
	}
	return fetcher.NewSet(fetchers...)
}

// newAggregator wires fetchers, the composite parser and metrics. The
// returned set must be closed by the caller.
func newAggregator(cfg *config.Config, specs []*source.Spec, metrics *observability.Metrics, logger *slog.Logger) (*aggregator.Aggregator, fetcher.Set) {
	fetchers := buildFetchers(cfg, specs, logger)
	agg := aggregator.New(fetchers, parser.NewCompositeParser(logger), cfg.Aggregator, metrics, logger)
	return agg, fetchers
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// closeFetchers closes every fetcher, logging failures.
func closeFetchers(fetchers fetcher.Set, logger *slog.Logger) {
	if err := fetchers.Close(); err != nil {
		logger.Warn("close fetchers", "error", err)
	}
}
