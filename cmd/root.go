package cmd

import (
	"github.com/spf13/cobra"

	"bichat/internal/config"
	"bichat/internal/tui"
)

var (
	configFile string
	database   string
	rootCmd    = &cobra.Command{
		Use:   "bichat",
		Short: "BI Chat - Ask questions about your data",
		Long: `BI Chat answers natural language questions over your databases by
generating SQL with Claude, running it and describing the result.

When run without commands, it launches an interactive TUI.
Use subcommands for the HTTP API and CLI mode.`,
		Run: func(cmd *cobra.Command, args []string) {
			a := mustSetup(cmd)
			defer a.close()

			opts := tui.Options{
				Store:    a.store,
				Database: database,
				PageSize: a.cfg.PageSize,
				Logger:   a.logger,
			}
			if a.assistant != nil {
				opts.Assistant = a.assistant
			}
			if err := tui.Run(opts); err != nil {
				HandleError(err, "TUI failed")
			}
		},
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (default ./bichat.yaml if present)")
	pf.StringVarP(&database, "db", "D", "", "Database to query (default: workspace)")
	pf.StringP("data-dir", "d", config.DefaultDataDir, "Directory holding the workspace and database files")
	pf.String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	pf.String("workspace-driver", config.DefaultWorkspaceDriver, "Workspace engine: duckdb or sqlite")
	pf.String("model", config.DefaultModel, "Claude model used for SQL generation")
	pf.Int("max-sql-retries", config.DefaultMaxSQLRetries, "SQL attempts per question")
	pf.Int("page-size", config.DefaultPageSize, "Rows per table page")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
