package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// ServerName is reported in the initialize handshake.
const ServerName = "arqioly"

// Server wraps the mcp-go MCPServer with arqioly patterns.
type Server struct {
	mcp     *server.MCPServer
	hooks   *server.Hooks
	version string
	logger  *zap.Logger
}

// NewServer creates a new MCP server instance with prompt and tool capabilities.
func NewServer(name, version string, logger *zap.Logger) *Server {
	hooks := &server.Hooks{}
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithPromptCapabilities(true),
		server.WithHooks(hooks),
	)

	return &Server{
		mcp:     mcpServer,
		hooks:   hooks,
		version: version,
		logger:  logger,
	}
}

// MCP returns the underlying MCPServer for tool and prompt registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Hooks returns the lifecycle hooks shared with the underlying server.
// Hooks added after construction still run.
func (s *Server) Hooks() *server.Hooks {
	return s.hooks
}

// Version returns the version reported to clients.
func (s *Server) Version() string {
	return s.version
}

// NewStreamableHTTPServer creates an HTTP transport server wrapping this MCP server.
// The HTTP mux handles routing to /api/mcp, so no endpoint path is configured here.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}

// RegisterTool is a convenience wrapper for registering a tool.
func (s *Server) RegisterTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
}
