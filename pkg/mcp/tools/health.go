// Package tools holds the MCP tools served next to the prompt catalog.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/arqioly/arqioly/pkg/models"
)

// PromptLister is the part of the prompt service the health tool needs.
type PromptLister interface {
	ListMCPPrompts(ctx context.Context) ([]models.Prompt, error)
}

type healthResult struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	ExposedPrompts int    `json:"exposed_prompts"`
	Error          string `json:"error,omitempty"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool returns the server status, version and how many prompts are
// exposed. A store failure reports "degraded" rather than a tool error.
func RegisterHealthTool(s *server.MCPServer, version string, prompts PromptLister) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status and version"),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := healthResult{Status: "ok", Version: version}
		exposed, err := prompts.ListMCPPrompts(ctx)
		if err != nil {
			res.Status = "degraded"
			res.Error = err.Error()
		} else {
			res.ExposedPrompts = len(exposed)
		}

		result, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}
