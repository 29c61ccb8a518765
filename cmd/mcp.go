package cmd

import (
	"fmt"

	"github.com/fileelf/fileelf/pkg/client"
	"github.com/fileelf/fileelf/pkg/config"
	"github.com/fileelf/fileelf/pkg/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var (
	mcpAddr      string
	mcpReadWrite bool
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server exposing locator tools",
	Long: `Run a Model Context Protocol server over stdin/stdout that exposes the
locator's query surface as tools (search, hot_search, regex_search, and
with --read-write also star_path/unstar_path). A fileelf daemon must be
running; the tools call its HTTP endpoints.

Example MCP client configuration:
{
  "mcpServers": {
    "fileelf": {
      "command": "/path/to/fileelf",
      "args": ["mcp"]
    }
  }
}`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := server.NewMCPServer(
			"fileelf",
			rootCmd.Version,
			server.WithToolCapabilities(false),
		)

		mcp.RegisterAll(s, mcp.Config{
			Client:    client.New(mcpAddr),
			ReadWrite: mcpReadWrite,
		})

		return server.ServeStdio(s)
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpAddr, "addr",
		fmt.Sprintf("http://127.0.0.1:%d", config.DefaultPort), "daemon address")
	mcpCmd.Flags().BoolVar(&mcpReadWrite, "read-write", false, "expose the star/unstar tools")
	rootCmd.AddCommand(mcpCmd)
}
