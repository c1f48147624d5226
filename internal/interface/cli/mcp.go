package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neilberkman/chatify/cmd/chatify/mcp"
	"github.com/neilberkman/chatify/internal/core/logging"
)

var mcpCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Start MCP server exposing your conversations",
	Long: `Start an MCP (Model Context Protocol) server on stdio that lets an MCP
client list your conversations, read them, and ask questions about the
uploaded documents. Sign in with 'chatify login' first.

Configure in your MCP client's config file:
  {
    "mcpServers": {
      "chatify": {
        "command": "chatify",
        "args": ["serve-mcp"]
      }
    }
  }
`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol; logs go to the log file
	f, err := logging.OpenFile(cfg.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := logging.Init(cfg.LogLevel, cfg.LogFormat, f); err != nil {
		return err
	}

	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	if err := mcp.StartServer(ws, version); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
