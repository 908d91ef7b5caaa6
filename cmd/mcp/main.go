// deploydesk MCP server.
// Exposes the dashboard over MCP stdio transport.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcptools "github.com/deploydesk/deploydesk/internal/mcp"
)

func main() {
	dashboardURL := os.Getenv("DEPLOYDESK_URL")
	if dashboardURL == "" {
		dashboardURL = "http://localhost:3002"
	}

	s := server.NewMCPServer(
		"deploydesk",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	client := mcptools.NewClient(dashboardURL)
	mcptools.RegisterTools(s, client)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
