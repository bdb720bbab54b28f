package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docent/internal/adapters/driving/mcp"
)

var (
	mcpFile string
	mcpHTTP string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve a document to MCP clients",
	Long: `Load a document and serve it over the Model Context Protocol.

Tools:
  ask        answer a question from the document
  retrieve   return the most relevant passages

Resources:
  docent://document   the full text
  docent://history    questions answered so far

By default the server speaks JSON-RPC over stdio. Use --http to listen on an
address instead, for example with MCP Inspector.

Examples:
  docent mcp --file handbook.pdf
  docent mcp --file handbook.pdf --http localhost:8080

Client configuration:
  {
    "mcpServers": {
      "docent": {
        "command": "/path/to/docent",
        "args": ["mcp", "--file", "/path/to/handbook.pdf"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVarP(&mcpFile, "file", "f", "", "document to serve")
	mcpCmd.Flags().StringVar(&mcpHTTP, "http", "", "listen address for streamable HTTP (default stdio)")
	_ = mcpCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	sess, err := svc.Chat.Open(cmd.Context(), mcpFile)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{Chat: svc.Chat, Session: sess})
	if err != nil {
		return err
	}

	if mcpHTTP != "" {
		cmd.PrintErrf("MCP server listening on http://%s\n", mcpHTTP)
		return server.RunHTTP(cmd.Context(), mcpHTTP)
	}
	return server.Run(cmd.Context())
}
