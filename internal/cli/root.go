// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

// Package cli provides the leadledger command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomtom215/leadledger/internal/config"
	"github.com/tomtom215/leadledger/internal/logging"
)

// Version information (set at build time via -ldflags).
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// configKey is used to store config in context.
type configKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "leadledger",
		Short: "LeadLedger - municipal permit ingestion",
		Long: `LeadLedger pulls building permits from city and county open-data portals,
normalizes them into one record shape and upserts them into Postgres.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion", "__complete", "version":
				return nil
			}

			cfg, err := config.LoadWithKoanf(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			logging.Init(logging.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Caller: cfg.Logging.Caller,
				Output: cmd.ErrOrStderr(),
			})

			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: $LEADLEDGER_CONFIG or ./leadledger.yaml)")
	pf.String("sink", "", "upsert target: postgres or postgrest")
	pf.String("database-url", "", "Postgres connection URL")
	pf.String("log-level", "", "log level (trace|debug|info|warn|error)")
	pf.String("log-format", "", "log format (json|console)")
	pf.StringP("output", "o", outputAuto, "output format (auto|table|csv|markdown|json|yaml)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return outputFormats, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("sink", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.SinkPostgres, config.SinkPostgREST}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newIngestCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newSourcesCommand())
	rootCmd.AddCommand(newRecentCommand())
	rootCmd.AddCommand(newRunsCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// configFrom retrieves the config stored by PersistentPreRunE.
func configFrom(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return config.Defaults()
}

// addIngestFlags registers the flags shared by ingest and serve. Their
// names match the config flag mapping so only flags the user sets
// override file and environment values.
func addIngestFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("batch-size", 0, "records per upsert batch (default 500)")
	f.Int("page-size", 0, "records per fetch page (default 1000)")
	f.Int("limit", 0, "stop after N records per source (0 = no limit)")
	f.Bool("dry-run", false, "fetch and map but do not write")
	f.Int("parallel", 0, "sources ingested concurrently")
	f.Bool("checkpoint", false, "resume from and save per-source checkpoints")
}
