package main

import (
	"github.com/spf13/cobra"

	"github.com/IshaanNene/TrendGoat/internal/api"
	"github.com/IshaanNene/TrendGoat/internal/observability"
)

var servePort int

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve trending items as a JSON API",
		Long: `Start the JSON API:

  GET /api/health
  GET /api/sources
  GET /api/trending?source=a,b&topic=ai&min_metric=100
  GET /api/trending/{source}
  GET /metrics

Aggregations are cached per source set for api.cache_ttl.`,
		RunE: runServe,
	}

	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (0 = api.port from config)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.API.Port = servePort
	}
	logger := setupLogger(cfg)

	table, err := cfg.SourceTable()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	metrics := observability.NewMetrics(logger)
	agg, fetchers := newAggregator(cfg, table.All(), metrics, logger)
	defer closeFetchers(fetchers, logger)

	return api.NewServer(cfg, agg, table, metrics, logger).ListenAndServe(ctx)
}
