package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"bichat/internal/config"
	"bichat/internal/logging"
	"bichat/internal/nlsql"
	"bichat/internal/store"
)

// app is what every command needs: resolved configuration, the log file
// logger and the open workspace.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *store.Workspace
	assistant *nlsql.Assistant // nil without an API key

	closers []io.Closer
}

// setup loads configuration from the command's flags, opens the log file
// and the workspace. The caller must call close.
func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger, logFile, err := logging.Setup(cfg.DataDir, level)
	if err != nil {
		return nil, err
	}
	logger.Info("Application started", "command", cmd.Name(), "data_dir", cfg.DataDir, "config_file", cfg.ConfigFile)

	ws, err := store.Open(cmd.Context(), cfg.DataDir, store.Options{
		WorkspaceDriver: cfg.WorkspaceDriver,
		Logger:          logger,
	})
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, store: ws, closers: []io.Closer{ws, logFile}}
	if cfg.HasAPIKey() {
		llm, err := nlsql.NewAnthropicCompleter(cfg.AnthropicAPIKey)
		if err != nil {
			a.close()
			return nil, err
		}
		a.assistant = nlsql.NewAssistant(llm, ws,
			nlsql.WithModel(cfg.Model),
			nlsql.WithDescriptionModel(cfg.DescriptionModel),
			nlsql.WithMaxAttempts(cfg.MaxSQLRetries),
			nlsql.WithLogger(logger),
		)
	} else {
		logger.Info("No API key configured, questions are disabled")
	}
	return a, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		c.Close()
	}
}

// requireAssistant fails with a hint when no API key is configured.
func (a *app) requireAssistant() *nlsql.Assistant {
	if a.assistant == nil {
		HandleError(fmt.Errorf("%s is not set", config.AnthropicAPIKeyVariable), "Questions need an Anthropic API key")
	}
	return a.assistant
}

func (a *app) ctx() context.Context {
	return logging.WithLogger(context.Background(), a.logger)
}

// HandleError prints error and exits
func HandleError(err error, message string) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, err)
	os.Exit(1)
}

// mustSetup is setup for Run funcs.
func mustSetup(cmd *cobra.Command) *app {
	a, err := setup(cmd)
	if err != nil {
		HandleError(err, "Failed to initialize")
	}
	return a
}
