package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/TrendGoat/internal/parser"
)

var (
	parseSource  string
	parseBaseURL string
)

// parseCmd creates the "parse" subcommand, which runs a source's parser
// over a saved document without fetching anything.
func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a saved listing page or payload",
		Long: `Run a source's parser over a local file and print every outcome,
including candidates that were skipped and why.`,
		Example: `  trendgoat parse trending.html --source github
  trendgoat parse weibo.json --source weibo`,
		Args: cobra.ExactArgs(1),
		RunE: runParse,
	}

	cmd.Flags().StringVarP(&parseSource, "source", "s", "github", "source whose rules apply to the file")
	cmd.Flags().StringVar(&parseBaseURL, "base-url", "", "resolve relative links against this URL")

	return cmd
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
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
	spec, ok := table.Get(parseSource)
	if !ok {
		return fmt.Errorf("unknown source %q", parseSource)
	}
	if parseBaseURL != "" {
		clone := *spec
		clone.BaseURL = parseBaseURL
		spec = &clone
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	outcomes, err := parser.NewCompositeParser(logger).ParseReader(f, spec)
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}
	return printer.PrintOutcomes(fmt.Sprintf("%s (%s)", args[0], spec.DisplayName()), outcomes)
}
