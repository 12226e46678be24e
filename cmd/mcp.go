// File: cmd/mcp.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/mcp"
	"github.com/xkilldash9x/droidpilot/internal/observability"
)

// newMCPCmd creates the `mcp` command, exposing the agent as an MCP server.
func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serves the agent over the Model Context Protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			ag, err := buildAgent(cfg, logger)
			if err != nil {
				return err
			}

			server := mcp.NewServer(ag.perceiver, ag.sessions, ag.unlocker, Version, logger)
			switch transport {
			case "stdio":
				return server.ServeStdio()
			case "streamable-http":
				addr := fmt.Sprintf("127.0.0.1:%d", port)
				logger.Info("MCP server listening", zap.String("addr", addr))
				return server.ServeHTTP(addr)
			default:
				return fmt.Errorf("unsupported transport %q (use stdio or streamable-http)", transport)
			}
		},
	}

	mcpCmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport: stdio or streamable-http")
	mcpCmd.Flags().IntVar(&port, "port", 8080, "port for the streamable-http transport")
	return mcpCmd
}
