package handlers

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/auth"
	"github.com/arqioly/arqioly/pkg/config"
	"github.com/arqioly/arqioly/pkg/mcp"
	"github.com/arqioly/arqioly/pkg/middleware"
)

// MCPPath is the MCP endpoint.
const MCPPath = "/api/mcp"

// MCPInfoResponse is returned by GET /api/mcp.
type MCPInfoResponse struct {
	Name         string         `json:"name"`
	Version      string         `json:"version"`
	Description  string         `json:"description"`
	Endpoint     string         `json:"endpoint"`
	Capabilities map[string]any `json:"capabilities"`
}

// MCPHandler handles MCP protocol requests over HTTP.
type MCPHandler struct {
	httpServer *server.StreamableHTTPServer
	version    string
	logger     *zap.Logger
	mcpConfig  config.MCPConfig
}

// NewMCPHandler creates a new MCP handler from an MCP server.
func NewMCPHandler(mcpServer *mcp.Server, logger *zap.Logger, mcpConfig config.MCPConfig) *MCPHandler {
	return &MCPHandler{
		httpServer: mcpServer.NewStreamableHTTPServer(),
		version:    mcpServer.Version(),
		logger:     logger,
		mcpConfig:  mcpConfig,
	}
}

// RegisterRoutes registers /api/mcp.
func (h *MCPHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	// POST layers, innermost first: JSON-RPC logging, then the API key check.
	logged := middleware.MCPRequestLogger(h.logger, h.mcpConfig.LogRequestBodies)(h.httpServer)
	authed := authMiddleware.RequireMCPKey(logged.ServeHTTP)
	mux.Handle(MCPPath, h.withCORS(h.dispatch(authed)))
}

// dispatch routes by method: GET describes the server, POST carries JSON-RPC,
// OPTIONS answers preflight and anything else is rejected.
func (h *MCPHandler) dispatch(post http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Info(w, r)
		case http.MethodPost:
			post(w, r)
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
		default:
			w.Header().Set("Allow", "GET, POST, OPTIONS")
			writeErrorResponse(w, h.logger, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		}
	})
}

func (h *MCPHandler) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id")
		next.ServeHTTP(w, r)
	})
}

// Info handles GET /api/mcp.
func (h *MCPHandler) Info(w http.ResponseWriter, r *http.Request) {
	resp := MCPInfoResponse{
		Name:        mcp.ServerName,
		Version:     h.version,
		Description: "Model Context Protocol server for arqioly prompts",
		Endpoint:    MCPPath,
		Capabilities: map[string]any{
			"prompts": map[string]any{"listChanged": true},
			"tools":   map[string]any{},
		},
	}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to write MCP info", zap.Error(err))
	}
}
