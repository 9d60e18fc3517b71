package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/TrendGoat/internal/classify"
	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/output"
)

var (
	cfgFile   string
	verbose   bool
	colorMode string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "trendgoat",
		Short: "TrendGoat: trending items from many sources, one shape",
		Long: `TrendGoat fetches trending listings (GitHub Trending, Chinese hot lists)
and normalizes every entry into the same record: title, url, description,
metric, category and source.

Features:
  • Concurrent fetching with per-source timeouts and failure isolation
  • Selector chains with CSS and XPath fallbacks
  • Quantity normalization (1.2k, 3,456, 1.2万)
  • Keyword topic filters
  • JSON, JSONL, CSV export
  • JSON API with response cache and Prometheus metrics`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "color output: auto, always, never")

	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(sourcesCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("TrendGoat %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			table, err := cfg.SourceTable()
			if err != nil {
				return err
			}
			fmt.Printf("Fetcher:\n")
			fmt.Printf("  Request Timeout:   %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  Rate Limit:        %.1f/s per host (burst %d)\n", cfg.Fetcher.RateLimit, cfg.Fetcher.RateBurst)
			fmt.Printf("  Max Body Size:     %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("  User Agents:       %d configured\n", len(cfg.Fetcher.UserAgents))
			fmt.Printf("  Browser:           %v (stealth %v)\n", cfg.Fetcher.Browser.Enabled, cfg.Fetcher.Browser.Stealth)
			fmt.Printf("\nAggregator:\n")
			fmt.Printf("  Source Timeout:    %s\n", cfg.Aggregator.SourceTimeout)
			fmt.Printf("  Max Concurrency:   %d\n", cfg.Aggregator.MaxConcurrency)
			fmt.Printf("\nSources:\n")
			fmt.Printf("  Configured:        %d (%d enabled)\n", table.Len(), len(table.Enabled()))
			fmt.Printf("  Hot List Base:     %s\n", cfg.HotListURL)
			fmt.Printf("\nClassifier:\n")
			fmt.Printf("  Topics:            %s\n", strings.Join(classify.New(cfg.Classifier.Topics).Topics(), ", "))
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:              %s\n", cfg.Storage.Type)
			fmt.Printf("  Output Path:       %s\n", cfg.Storage.OutputPath)
			fmt.Printf("\nAPI:\n")
			fmt.Printf("  Port:              %d\n", cfg.API.Port)
			fmt.Printf("  Cache TTL:         %s\n", cfg.API.CacheTTL)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}

// loadConfig loads and validates configuration from --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogger creates a structured logger from the logging section.
// --verbose forces debug level.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func newPrinter() (*output.Printer, error) {
	mode, err := output.ParseColorMode(colorMode)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(mode), nil
}
