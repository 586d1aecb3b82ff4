package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/mcp"
)

var mcpPort int

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve docqa to AI assistants over MCP",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server for one user",
	Long: `Run a Model Context Protocol server acting for --user and --role.

The assistant can start chats, upload local documents and ask questions
that are answered from those documents only. Organization admins also get
an ingest_documents tool for the shared knowledge base.

The server speaks JSON-RPC on stdio unless --port is given, in which case
it serves the streamable HTTP transport on that port.

  docqa mcp serve --user alice@acme.com
  docqa mcp serve --user alice@acme.com --port 8080

Example assistant entry:
  {
    "mcpServers": {
      "docqa": {
        "command": "/path/to/docqa",
        "args": ["mcp", "serve", "--user", "alice@acme.com"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "Serve HTTP on this port instead of stdio")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	svcs, err := requireServices(cmd)
	if err != nil {
		return err
	}
	id, err := currentIdentity(svcs)
	if err != nil {
		return err
	}

	ports := &mcp.Ports{
		Session:        svcs.Session,
		KnowledgeBases: svcs.KnowledgeBases,
	}
	if id.TenantKey().IsShared() {
		ports.Collections = svcs.Collections
	}

	server, err := mcp.NewServer(ports, id)
	if err != nil {
		return err
	}
	if mcpPort == 0 {
		return server.Run(commandContext(cmd))
	}
	cmd.Printf("MCP server for %s on http://localhost:%d\n", id.User, mcpPort)
	return server.RunHTTP(commandContext(cmd), fmt.Sprintf(":%d", mcpPort))
}
