package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bichat/internal/config"
	"bichat/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server.

The server exposes the catalog, upload, chat, description and view endpoints
used by the web front end.`,
	Run: func(cmd *cobra.Command, args []string) {
		runServe(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", config.DefaultPort, "Port to run the server on")
}

func runServe(cmd *cobra.Command) {
	a := mustSetup(cmd)
	defer a.close()

	fmt.Printf("Starting BI Chat server...\n")
	fmt.Printf("Data directory: %s\n", a.cfg.DataDir)
	fmt.Printf("Port: %d\n", a.cfg.Port)
	if a.assistant == nil {
		fmt.Printf("Warning: %s not set, chat endpoints are disabled\n", config.AnthropicAPIKeyVariable)
	}
	fmt.Println()

	srv := server.New(server.Config{
		Port:           a.cfg.Port,
		Store:          a.store,
		Assistant:      a.assistant,
		AllowedOrigins: a.cfg.AllowedOrigins,
		RequestTimeout: a.cfg.RequestTimeout,
		PageSize:       a.cfg.PageSize,
		Logger:         a.logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		HandleError(err, "Server failed")
	}
}
