package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/auth"
)

// TestServer_HTTPContextPropagation verifies that the actor placed on the
// HTTP request context reaches MCP tool handlers.
func TestServer_HTTPContextPropagation(t *testing.T) {
	var received auth.Actor

	s := NewServer("test-server", "1.0.0", zap.NewNop())

	tool := mcp.NewTool("whoami", mcp.WithDescription("Returns the acting user"))
	s.RegisterTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		received = auth.GetActor(ctx)
		return mcp.NewToolResultText(received.ID), nil
	})

	toolCallRequest := map[string]any{
		"jsonrpc": "2.0",
		"method":  "tools/call",
		"params": map[string]any{
			"name": "whoami",
		},
		"id": 1,
	}
	body, _ := json.Marshal(toolCallRequest)

	req := httptest.NewRequest(http.MethodPost, "/api/mcp", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.HeaderUser, "u-7")
	req.Header.Set(auth.HeaderUserName, "Ada")

	rec := httptest.NewRecorder()
	auth.NewMiddleware("", zap.NewNop()).WithActor(s.NewStreamableHTTPServer()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if received.ID != "u-7" {
		t.Errorf("expected actor u-7, got %q", received.ID)
	}
	if received.Name != "Ada" {
		t.Errorf("expected actor name Ada, got %q", received.Name)
	}
}
