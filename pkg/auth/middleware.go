package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Request headers that identify the acting user.
const (
	HeaderUser       = "X-Arqioly-User"
	HeaderUserName   = "X-Arqioly-User-Name"
	HeaderUserAvatar = "X-Arqioly-User-Avatar"
)

// Middleware provides HTTP identity middleware.
type Middleware struct {
	mcpAPIKey string
	logger    *zap.Logger
}

// NewMiddleware creates the middleware. An empty mcpAPIKey leaves the MCP
// endpoint open.
func NewMiddleware(mcpAPIKey string, logger *zap.Logger) *Middleware {
	return &Middleware{
		mcpAPIKey: mcpAPIKey,
		logger:    logger,
	}
}

// ActorFromRequest reads the acting user from request headers.
func ActorFromRequest(r *http.Request) Actor {
	id := strings.TrimSpace(r.Header.Get(HeaderUser))
	if id == "" {
		return Anonymous()
	}
	name := strings.TrimSpace(r.Header.Get(HeaderUserName))
	if name == "" {
		name = id
	}
	return Actor{
		ID:     id,
		Name:   name,
		Avatar: strings.TrimSpace(r.Header.Get(HeaderUserAvatar)),
	}
}

// WithActor puts the acting user into the request context.
func (m *Middleware) WithActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithActor(r.Context(), ActorFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireMCPKey checks the Bearer token against the configured MCP API key.
// It is a pass-through when no key is configured.
func (m *Middleware) RequireMCPKey(next http.HandlerFunc) http.HandlerFunc {
	if m.mcpAPIKey == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		// Preflight requests carry no credentials.
		if r.Method == http.MethodOptions {
			next(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			m.unauthorized(w, "Authentication required")
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(m.mcpAPIKey)) != 1 {
			m.logger.Warn("Rejected MCP request with invalid API key",
				zap.String("remote_addr", r.RemoteAddr))
			m.unauthorized(w, "Invalid API key")
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

// unauthorized returns a 401 response with JSON error body.
func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="arqioly-mcp"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}
