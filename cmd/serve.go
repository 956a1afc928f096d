// File: cmd/serve.go
package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/xkilldash9x/lancet-mcp/internal/observability"
	"github.com/xkilldash9x/lancet-mcp/internal/server"
)

// serveCmd runs the MCP server over stdio until the host closes the stream
// or the process receives an interrupt.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser tool surface over MCP stdio.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command) error {
	logger := observability.GetLogger()
	defer observability.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, logger)
	return srv.Run(ctx)
}
