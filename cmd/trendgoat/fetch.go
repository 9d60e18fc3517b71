package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/TrendGoat/internal/aggregator"
	"github.com/IshaanNene/TrendGoat/internal/classify"
	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/observability"
	"github.com/IshaanNene/TrendGoat/internal/pipeline"
	"github.com/IshaanNene/TrendGoat/internal/source"
	"github.com/IshaanNene/TrendGoat/internal/storage"
)

var (
	fetchTopic     string
	fetchMinMetric int64
	fetchDedup     bool
	fetchOutput    string
	fetchFormat    string
	fetchLanguage  string
	fetchSince     string
	fetchTimeout   time.Duration
)

// fetchCmd creates the "fetch" subcommand.
func fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [source...]",
		Short: "Fetch trending items",
		Long: `Fetch the named sources concurrently (all enabled sources when none are
named), normalize their entries and print a table per source. Sources that
fail are reported without affecting the others.`,
		Example: `  trendgoat fetch
  trendgoat fetch github --language go --since weekly
  trendgoat fetch weibo zhihu --topic ai -o ./output -f csv`,
		RunE: runFetch,
	}

	cmd.Flags().StringVarP(&fetchTopic, "topic", "t", "", "keep only items matching a classifier topic")
	cmd.Flags().Int64Var(&fetchMinMetric, "min-metric", 0, "drop items whose metric is below this value")
	cmd.Flags().BoolVar(&fetchDedup, "dedup", false, "drop repeated URLs within a source")
	cmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "export items to this directory")
	cmd.Flags().StringVarP(&fetchFormat, "format", "f", "", "export format: json, jsonl, csv")
	cmd.Flags().StringVar(&fetchLanguage, "language", "", "GitHub trending language (e.g. go, rust)")
	cmd.Flags().StringVar(&fetchSince, "since", "", "GitHub trending window: daily, weekly, monthly")
	cmd.Flags().DurationVar(&fetchTimeout, "timeout", 0, "per-source timeout (0 = config default)")

	return cmd
}

// applyFetchOverrides copies explicitly set flags into cfg.
func applyFetchOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("topic") {
		cfg.Pipeline.Topic = fetchTopic
	}
	if flags.Changed("min-metric") {
		cfg.Pipeline.MinMetric = fetchMinMetric
	}
	if flags.Changed("dedup") {
		cfg.Pipeline.Dedup = fetchDedup
	}
	if fetchOutput != "" {
		cfg.Storage.OutputPath = fetchOutput
	}
	if fetchFormat != "" {
		cfg.Storage.Type = strings.ToLower(fetchFormat)
	}
	if fetchTimeout > 0 {
		cfg.Aggregator.SourceTimeout = fetchTimeout
	}
}

// applyVariant replaces the GitHub listing with its language/window variant.
func applyVariant(specs []*source.Spec) ([]*source.Spec, error) {
	switch fetchSince {
	case "", "daily", "weekly", "monthly":
	default:
		return nil, fmt.Errorf("invalid --since %q (valid: daily, weekly, monthly)", fetchSince)
	}
	out := make([]*source.Spec, len(specs))
	for i, s := range specs {
		if s.ID == "github" {
			s = source.GitHubVariant(s, fetchLanguage, fetchSince)
		}
		out[i] = s
	}
	return out, nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFetchOverrides(cmd, cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(cfg)
	printer, err := newPrinter()
	if err != nil {
		return err
	}

	table, err := cfg.SourceTable()
	if err != nil {
		return err
	}
	specs, err := table.Select(args...)
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		return fmt.Errorf("no sources selected")
	}
	if specs, err = applyVariant(specs); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		metrics.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path)
	}

	agg, fetchers := newAggregator(cfg, specs, metrics, logger)
	defer closeFetchers(fetchers, logger)

	run := agg.Run(ctx, specs)

	classifier := classify.New(cfg.Classifier.Topics)
	processed, err := processResults(run.Results, &cfg.Pipeline, classifier, metrics, logger)
	if err != nil {
		return err
	}

	names := make(map[string]string, len(specs))
	for _, s := range specs {
		names[s.ID] = s.DisplayName()
	}
	if err := printer.PrintResults(processed, func(id string) string { return names[id] }); err != nil {
		return err
	}

	items := processed.Items(ids(specs)...)
	if fetchOutput != "" {
		store, err := storage.NewFileStorage(cfg.Storage.Type, cfg.Storage.OutputPath, "trending-"+run.ID, logger)
		if err != nil {
			return fmt.Errorf("create storage: %w", err)
		}
		if err := storage.Export(store, items); err != nil {
			return err
		}
		metrics.ItemsExported.Add(int64(len(items)))
		printer.Success("exported %d items to %s", len(items), store.Path())
	}

	failed := processed.Failed()
	fmt.Println()
	printer.Info("%d items from %d/%d sources in %s (run %s)",
		len(items), len(specs)-len(failed), len(specs), run.Duration.Round(time.Millisecond), run.ID)

	if len(failed) == len(specs) {
		return fmt.Errorf("all %d sources failed", len(specs))
	}
	return nil
}

// processResults runs every successful source through one configured
// pipeline and returns new results; rs is left untouched.
func processResults(rs aggregator.Results, cfg *config.PipelineConfig, classifier *classify.Classifier, metrics *observability.Metrics, logger *slog.Logger) (aggregator.Results, error) {
	p := pipeline.FromConfig(cfg, classifier, logger)
	out, dropped, err := rs.Process(p.ProcessAll)
	if err != nil {
		return nil, err
	}
	metrics.ItemsDropped.Add(int64(dropped))
	return out, nil
}

func ids(specs []*source.Spec) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.ID
	}
	return out
}
