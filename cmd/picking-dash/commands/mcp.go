package commands

import (
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"picking-dash/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP tool server on stdio",
	Long: `Serves load_picking_file, list_datasets, get_dashboard, get_outliers and export_filtered over the
Model Context Protocol. Stdout carries the protocol; logs go to stderr and the log file only.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mcp.NewServer(newService(nil), mcp.Options{
		Version:      Version,
		Mermaid:      cfg.EnableMermaidCharts,
		ExportDir:    cfg.ExportDir,
		MaxFileBytes: cfg.HTTP.MaxUploadBytes,
	})

	log.Info().Msg("MCP Server starting Stdio loop")
	return server.Run(ctx, &sdk.StdioTransport{})
}
