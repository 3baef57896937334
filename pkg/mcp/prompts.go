package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/apperrors"
	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/placeholders"
)

// PromptNamePrefix is prepended to prompt ids to form MCP prompt names.
const PromptNamePrefix = "prompt-"

// ErrPromptNotExposed is returned by Get for prompts that are missing,
// archived or not exposed.
var ErrPromptNotExposed = errors.New("prompt not found or not exposed to MCP")

// promptNotExposedMessage is the prompts/get error text clients see.
const promptNotExposedMessage = "Prompt not found or not exposed to MCP"

// clientError replaces the text of err in responses sent to MCP clients.
type clientError struct {
	message string
	err     error
}

func (e *clientError) Error() string { return e.message }
func (e *clientError) Unwrap() error { return e.err }

// PromptSource is what the catalog reads prompts from.
type PromptSource interface {
	ListMCPPrompts(ctx context.Context) ([]models.Prompt, error)
	GetPrompt(ctx context.Context, id string) (*models.Prompt, error)
}

// PromptName returns the MCP name of a prompt.
func PromptName(promptID string) string {
	return PromptNamePrefix + promptID
}

// PromptDefinition describes a stored prompt as an MCP prompt. Every
// placeholder becomes an optional argument.
func PromptDefinition(p models.Prompt) mcp.Prompt {
	description := p.Description
	if strings.TrimSpace(description) == "" {
		description = p.Title
	}

	opts := []mcp.PromptOption{mcp.WithPromptDescription(description)}
	for _, name := range placeholders.Extract(p.Content) {
		opts = append(opts, mcp.WithArgument(name, mcp.ArgumentDescription("Value for "+name)))
	}
	return mcp.NewPrompt(PromptName(p.ID), opts...)
}

// PromptCatalog keeps the server's registered prompts in line with storage.
type PromptCatalog struct {
	server *server.MCPServer
	source PromptSource
	logger *zap.Logger

	mu         sync.Mutex
	registered map[string]string // name -> signature
}

// NewPromptCatalog creates a catalog and hooks it into s so the prompt list
// is reconciled before every prompts request.
func NewPromptCatalog(s *Server, source PromptSource, logger *zap.Logger) *PromptCatalog {
	c := &PromptCatalog{
		server:     s.MCP(),
		source:     source,
		logger:     logger.Named("mcp-prompts"),
		registered: make(map[string]string),
	}
	s.Hooks().AddBeforeAny(func(ctx context.Context, id any, method mcp.MCPMethod, message any) {
		if method != mcp.MethodPromptsList && method != mcp.MethodPromptsGet {
			return
		}
		if err := c.Sync(ctx); err != nil {
			c.logger.Error("Failed to sync MCP prompts", zap.Error(err))
		}
	})
	return c
}

func signature(p mcp.Prompt) string {
	args := make([]string, len(p.Arguments))
	for i, a := range p.Arguments {
		args[i] = a.Name
	}
	return p.Description + "\x00" + strings.Join(args, "\x00")
}

// Sync registers exposed prompts, re-registers changed ones and removes the
// rest.
func (c *PromptCatalog) Sync(ctx context.Context) error {
	prompts, err := c.source.ListMCPPrompts(ctx)
	if err != nil {
		return fmt.Errorf("list MCP prompts: %w", err)
	}

	want := make(map[string]mcp.Prompt, len(prompts))
	for _, p := range prompts {
		def := PromptDefinition(p)
		want[def.Name] = def
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var stale []string
	for name := range c.registered {
		if _, ok := want[name]; !ok {
			stale = append(stale, name)
		}
	}
	if len(stale) > 0 {
		sort.Strings(stale)
		c.server.DeletePrompts(stale...)
		for _, name := range stale {
			delete(c.registered, name)
		}
	}

	added := 0
	for name, def := range want {
		sig := signature(def)
		if c.registered[name] == sig {
			continue
		}
		c.server.AddPrompt(def, c.handler(strings.TrimPrefix(name, PromptNamePrefix)))
		c.registered[name] = sig
		added++
	}

	if added > 0 || len(stale) > 0 {
		c.logger.Debug("MCP prompts synced",
			zap.Int("registered", len(c.registered)),
			zap.Int("added", added),
			zap.Int("removed", len(stale)))
	}
	return nil
}

func (c *PromptCatalog) handler(promptID string) server.PromptHandlerFunc {
	return func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		result, err := c.Get(ctx, promptID, req.Params.Arguments)
		if errors.Is(err, ErrPromptNotExposed) {
			return nil, &clientError{message: promptNotExposedMessage, err: err}
		}
		return result, err
	}
}

// Get renders a prompt as a single user message with the argument values
// substituted into its placeholders.
func (c *PromptCatalog) Get(ctx context.Context, promptID string, args map[string]string) (*mcp.GetPromptResult, error) {
	p, err := c.source.GetPrompt(ctx, promptID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, ErrPromptNotExposed
	}
	if err != nil {
		return nil, err
	}
	if !p.MCPVisible() {
		return nil, ErrPromptNotExposed
	}

	description := p.Description
	if strings.TrimSpace(description) == "" {
		description = p.Title
	}
	content := placeholders.Replace(p.Content, args)

	c.logger.Debug("MCP prompt rendered",
		zap.String("prompt_id", p.ID),
		zap.Int("arguments", len(args)))
	return mcp.NewGetPromptResult(description, []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(content)),
	}), nil
}
