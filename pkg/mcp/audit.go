package mcp

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/auth"
	"github.com/arqioly/arqioly/pkg/events"
	"github.com/arqioly/arqioly/pkg/logging"
)

// CallLogger records every tools/call and prompts/get: a log line with the
// caller, duration and argument names, and an events.MCPCall.
// Argument values are never recorded.
type CallLogger struct {
	publisher events.Publisher
	logger    *zap.Logger

	// startTimes tracks when calls begin, keyed by JSON-RPC request ID.
	startTimes sync.Map
}

// NewCallLogger creates a CallLogger. Attach it with Register.
func NewCallLogger(publisher events.Publisher, logger *zap.Logger) *CallLogger {
	return &CallLogger{
		publisher: publisher,
		logger:    logger.Named("mcp-calls"),
	}
}

// Register adds the logger's hooks to s.
func (c *CallLogger) Register(s *Server) {
	hooks := s.Hooks()
	hooks.AddBeforeAny(c.before)
	hooks.AddOnSuccess(c.onSuccess)
	hooks.AddOnError(c.onError)
}

type call struct {
	method   mcplib.MCPMethod
	name     string
	promptID string
	argNames []string
}

func describeCall(method mcplib.MCPMethod, message any) (call, bool) {
	switch req := message.(type) {
	case *mcplib.CallToolRequest:
		c := call{method: method, name: req.Params.Name}
		if args, ok := req.Params.Arguments.(map[string]any); ok {
			for k := range args {
				c.argNames = append(c.argNames, k)
			}
		}
		slices.Sort(c.argNames)
		return c, true
	case *mcplib.GetPromptRequest:
		c := call{method: method, name: req.Params.Name}
		c.promptID, _ = strings.CutPrefix(req.Params.Name, PromptNamePrefix)
		for k := range req.Params.Arguments {
			c.argNames = append(c.argNames, k)
		}
		slices.Sort(c.argNames)
		return c, true
	}
	return call{}, false
}

func (c *CallLogger) before(_ context.Context, id any, method mcplib.MCPMethod, message any) {
	if _, ok := describeCall(method, message); ok {
		c.startTimes.Store(id, time.Now())
	}
}

func (c *CallLogger) onSuccess(ctx context.Context, id any, method mcplib.MCPMethod, message any, _ any) {
	if cl, ok := describeCall(method, message); ok {
		c.record(ctx, id, cl, nil)
	}
}

func (c *CallLogger) onError(ctx context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if cl, ok := describeCall(method, message); ok {
		c.record(ctx, id, cl, err)
	}
}

func (c *CallLogger) loadAndDeleteStart(id any) time.Time {
	if v, ok := c.startTimes.LoadAndDelete(id); ok {
		return v.(time.Time)
	}
	return time.Now()
}

func (c *CallLogger) record(ctx context.Context, id any, cl call, callErr error) {
	duration := time.Since(c.loadAndDeleteStart(id))
	actor := auth.GetActor(ctx)

	event := events.MCPCall{
		Method:     string(cl.method),
		Name:       cl.name,
		PromptID:   cl.promptID,
		Actor:      actor.ID,
		DurationMs: duration.Milliseconds(),
	}
	fields := []zap.Field{
		zap.String("method", event.Method),
		zap.String("name", cl.name),
		zap.String("actor", actor.ID),
		zap.Strings("arguments", cl.argNames),
		zap.Duration("duration", duration),
	}

	if callErr != nil {
		event.Error = logging.SanitizeError(callErr)
		c.logger.Warn("MCP call failed", append(fields, zap.String("error", event.Error))...)
	} else {
		c.logger.Info("MCP call", fields...)
	}

	if err := c.publisher.Publish(ctx, events.TopicMCPCall, event); err != nil {
		c.logger.Warn("Failed to publish MCP call event", zap.Error(err))
	}
}
