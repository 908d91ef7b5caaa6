package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gomcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/deploydesk/deploydesk/pkg/types"
)

// RegisterTools registers all dashboard tools on the MCP server.
func RegisterTools(s *server.MCPServer, client *Client) {
	registerState(s, client)
	registerDeploy(s, client)
	registerDeployments(s, client)
	registerHistory(s, client)
}

func registerState(s *server.MCPServer, client *Client) {
	tool := gomcp.NewTool("deploydesk_state",
		gomcp.WithDescription("Get the current dashboard state: wallet session, deployment fee, pause flag, deploy command status, and the account's deployments."),
	)
	s.AddTool(tool, func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		raw, err := client.Get("/api/state")
		if err != nil {
			return gomcp.NewToolResultError(fmt.Sprintf("Dashboard unreachable: %v\n\nIs deploydesk running?", err)), nil
		}
		return gomcp.NewToolResultText(formatState(raw)), nil
	})
}

func registerDeploy(s *server.MCPServer, client *Client) {
	tool := gomcp.NewTool("deploydesk_deploy",
		gomcp.WithDescription("Deploy a new contract instance through the factory. This is a MUTATING operation that submits an on-chain transaction paying the deployment fee."),
	)
	s.AddTool(tool, func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		raw, err := client.Post("/api/deploy", nil)
		if err != nil {
			return gomcp.NewToolResultError(fmt.Sprintf("Deploy failed: %v", err)), nil
		}

		var resp types.DeployResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return gomcp.NewToolResultText(string(raw)), nil
		}
		if !resp.Accepted {
			return gomcp.NewToolResultError(resp.Message), nil
		}
		return gomcp.NewToolResultText("Deployment submitted; watch deploydesk_state for the transaction hash."), nil
	})
}

func registerDeployments(s *server.MCPServer, client *Client) {
	tool := gomcp.NewTool("deploydesk_deployments",
		gomcp.WithDescription("List the active account's factory deployments in chain order."),
	)
	s.AddTool(tool, func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		raw, err := client.Get("/api/deployments")
		if err != nil {
			return gomcp.NewToolResultError(fmt.Sprintf("Dashboard unreachable: %v", err)), nil
		}
		return gomcp.NewToolResultText(formatDeployments(raw)), nil
	})
}

func registerHistory(s *server.MCPServer, client *Client) {
	tool := gomcp.NewTool("deploydesk_history",
		gomcp.WithDescription("Show this session's deployment submission history (tx hashes, fees paid, outcomes)."),
	)
	s.AddTool(tool, func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		raw, err := client.Get("/api/history")
		if err != nil {
			return gomcp.NewToolResultError(fmt.Sprintf("Dashboard unreachable: %v", err)), nil
		}
		return gomcp.NewToolResultText(formatHistory(raw)), nil
	})
}

func formatState(raw json.RawMessage) string {
	var st types.ViewState
	if err := json.Unmarshal(raw, &st); err != nil {
		return string(raw)
	}

	var b strings.Builder
	if st.Account != "" {
		fmt.Fprintf(&b, "Account: %s\n", st.Account)
	} else {
		b.WriteString("Account: not connected\n")
	}
	if st.ChainID != "" {
		fmt.Fprintf(&b, "Chain: %s\n", st.ChainID)
	} else {
		b.WriteString("Chain: unavailable\n")
	}
	if !st.Configured {
		b.WriteString("Factory: NOT CONFIGURED\n")
	} else {
		fmt.Fprintf(&b, "Factory: %s\n", st.FactoryAddress)
	}
	if st.FeeWei != "" {
		fmt.Fprintf(&b, "Deployment fee: %s wei\n", st.FeeWei)
	} else {
		b.WriteString("Deployment fee: unknown\n")
	}
	fmt.Fprintf(&b, "Paused: %v\n", st.Paused)
	fmt.Fprintf(&b, "Command: %s", st.Command)
	if st.CommandMessage != "" {
		fmt.Fprintf(&b, " (%s)", st.CommandMessage)
	}
	b.WriteString("\n")
	if st.ReadError != "" {
		fmt.Fprintf(&b, "Read error: %s\n", st.ReadError)
	}
	fmt.Fprintf(&b, "Deployments: %d\n", len(st.Deployments))
	return b.String()
}

func formatDeployments(raw json.RawMessage) string {
	var records []types.DeploymentRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return string(raw)
	}
	if len(records) == 0 {
		return "No deployments yet."
	}

	var b strings.Builder
	for i, r := range records {
		created := time.Unix(r.CreationTime, 0).UTC().Format(time.RFC3339)
		fmt.Fprintf(&b, "%d. %s", i+1, r.ContractAddress)
		if r.Label != "" {
			fmt.Fprintf(&b, " (%s)", r.Label)
		}
		fmt.Fprintf(&b, " - created %s\n", created)
	}
	return b.String()
}

func formatHistory(raw json.RawMessage) string {
	var records []types.SubmissionRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return string(raw)
	}
	if len(records) == 0 {
		return "No submissions this session."
	}

	var b strings.Builder
	for _, r := range records {
		at := time.Unix(r.SubmittedAt, 0).UTC().Format(time.RFC3339)
		fmt.Fprintf(&b, "[%s] %s", at, r.Outcome)
		if r.TxHash != "" {
			fmt.Fprintf(&b, " %s", r.TxHash)
		}
		if r.FeeWei != "" {
			fmt.Fprintf(&b, " (fee %s wei)", r.FeeWei)
		}
		if r.Error != "" {
			fmt.Fprintf(&b, " - %s", r.Error)
		}
		b.WriteString("\n")
	}
	return b.String()
}
