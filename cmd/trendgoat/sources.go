package main

import (
	"github.com/spf13/cobra"
)

// sourcesCmd creates the "sources" subcommand.
func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List configured sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			printer, err := newPrinter()
			if err != nil {
				return err
			}
			table, err := cfg.SourceTable()
			if err != nil {
				return err
			}
			return printer.PrintSources(table.All())
		},
	}
}
