package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/apperrors"
	"github.com/arqioly/arqioly/pkg/models"
)

type fakeSource struct {
	mu      sync.Mutex
	prompts map[string]models.Prompt
	order   []string
	listErr error
}

func newFakeSource(prompts ...models.Prompt) *fakeSource {
	f := &fakeSource{prompts: make(map[string]models.Prompt)}
	for _, p := range prompts {
		f.put(p)
	}
	return f
}

func (f *fakeSource) put(p models.Prompt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.prompts[p.ID]; !ok {
		f.order = append(f.order, p.ID)
	}
	f.prompts[p.ID] = p
}

func (f *fakeSource) ListMCPPrompts(ctx context.Context) ([]models.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Prompt
	for _, id := range f.order {
		if p := f.prompts[id]; p.MCPVisible() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeSource) GetPrompt(ctx context.Context, id string) (*models.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prompts[id]
	if !ok {
		return nil, fmt.Errorf("prompt %q: %w", id, apperrors.ErrNotFound)
	}
	return &p, nil
}

type listedPrompt struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Arguments   []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Required    bool   `json:"required"`
	} `json:"arguments"`
}

func rpc(t *testing.T, s *Server, request string) []byte {
	t.Helper()
	result := s.MCP().HandleMessage(context.Background(), []byte(request))
	data, err := json.Marshal(result)
	require.NoError(t, err)
	return data
}

func listPrompts(t *testing.T, s *Server) []listedPrompt {
	t.Helper()
	var response struct {
		Result struct {
			Prompts []listedPrompt `json:"prompts"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rpc(t, s, `{"jsonrpc":"2.0","id":1,"method":"prompts/list"}`), &response))
	return response.Result.Prompts
}

type getResponse struct {
	Result *struct {
		Description string `json:"description"`
		Messages    []struct {
			Role    string `json:"role"`
			Content struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"messages"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func getPrompt(t *testing.T, s *Server, name string, args map[string]string) getResponse {
	t.Helper()
	params, err := json.Marshal(map[string]any{"name": name, "arguments": args})
	require.NoError(t, err)
	var response getResponse
	require.NoError(t, json.Unmarshal(rpc(t, s, `{"jsonrpc":"2.0","id":2,"method":"prompts/get","params":`+string(params)+`}`), &response))
	return response
}

func TestPromptDefinition(t *testing.T) {
	def := PromptDefinition(models.Prompt{
		ID:      "p1",
		Title:   "Greeting",
		Content: "Hello {{name}}, welcome to {{ place }}. Bye {{name}}.",
	})

	assert.Equal(t, "prompt-p1", def.Name)
	assert.Equal(t, "Greeting", def.Description, "falls back to the title")
	require.Len(t, def.Arguments, 2)
	assert.Equal(t, "name", def.Arguments[0].Name)
	assert.Equal(t, "Value for name", def.Arguments[0].Description)
	assert.False(t, def.Arguments[0].Required)
	assert.Equal(t, "place", def.Arguments[1].Name)

	described := PromptDefinition(models.Prompt{ID: "p2", Title: "T", Description: "Says hello"})
	assert.Equal(t, "Says hello", described.Description)
	assert.Empty(t, described.Arguments)
}

func TestPromptCatalog_ListsExposedPrompts(t *testing.T) {
	source := newFakeSource(
		models.Prompt{ID: "a", Title: "Exposed", Content: "Hi {{who}}", ExposedToMCP: true},
		models.Prompt{ID: "b", Title: "Private", Content: "secret"},
		models.Prompt{ID: "c", Title: "Archived", ExposedToMCP: true, IsArchived: true},
	)
	s := NewServer(ServerName, "test", zap.NewNop())
	NewPromptCatalog(s, source, zap.NewNop())

	listed := listPrompts(t, s)
	require.Len(t, listed, 1)
	assert.Equal(t, "prompt-a", listed[0].Name)
	assert.Equal(t, "Exposed", listed[0].Description)
	require.Len(t, listed[0].Arguments, 1)
	assert.Equal(t, "who", listed[0].Arguments[0].Name)
	assert.Equal(t, "Value for who", listed[0].Arguments[0].Description)
}

func TestPromptCatalog_ReconcilesBeforeEachRequest(t *testing.T) {
	source := newFakeSource(models.Prompt{ID: "a", Title: "First", ExposedToMCP: true})
	s := NewServer(ServerName, "test", zap.NewNop())
	NewPromptCatalog(s, source, zap.NewNop())

	require.Len(t, listPrompts(t, s), 1)

	source.put(models.Prompt{ID: "b", Title: "Second", Content: "{{x}}", ExposedToMCP: true})
	source.put(models.Prompt{ID: "a", Title: "First", Description: "Renamed", ExposedToMCP: true})
	listed := listPrompts(t, s)
	require.Len(t, listed, 2)
	byName := map[string]listedPrompt{}
	for _, p := range listed {
		byName[p.Name] = p
	}
	assert.Equal(t, "Renamed", byName["prompt-a"].Description)
	assert.Len(t, byName["prompt-b"].Arguments, 1)

	source.put(models.Prompt{ID: "a", Title: "First", ExposedToMCP: false})
	listed = listPrompts(t, s)
	require.Len(t, listed, 1)
	assert.Equal(t, "prompt-b", listed[0].Name)

	resp := getPrompt(t, s, "prompt-a", nil)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "not found")
}

func TestPromptCatalog_GetSubstitutesArguments(t *testing.T) {
	source := newFakeSource(models.Prompt{
		ID:           "a",
		Title:        "Letter",
		Description:  "Writes a letter",
		Content:      "Dear {{name}}, re: {{ topic }}. {{unused}}",
		ExposedToMCP: true,
	})
	s := NewServer(ServerName, "test", zap.NewNop())
	NewPromptCatalog(s, source, zap.NewNop())

	resp := getPrompt(t, s, "prompt-a", map[string]string{"name": "Ada", "topic": "engines"})
	require.Nil(t, resp.Error)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "Writes a letter", resp.Result.Description)
	require.Len(t, resp.Result.Messages, 1)
	assert.Equal(t, "user", resp.Result.Messages[0].Role)
	assert.Equal(t, "text", resp.Result.Messages[0].Content.Type)
	assert.Equal(t, "Dear Ada, re: engines. {{unused}}", resp.Result.Messages[0].Content.Text)
}

func TestPromptCatalog_GetRejectsHiddenPrompts(t *testing.T) {
	source := newFakeSource(models.Prompt{ID: "a", Title: "Gone soon", ExposedToMCP: true})
	s := NewServer(ServerName, "test", zap.NewNop())
	catalog := NewPromptCatalog(s, source, zap.NewNop())
	require.NoError(t, catalog.Sync(context.Background()))

	// Exposure revoked after the last sync.
	source.put(models.Prompt{ID: "a", Title: "Gone soon", ExposedToMCP: true, IsArchived: true})
	_, err := catalog.Get(context.Background(), "a", nil)
	assert.ErrorIs(t, err, ErrPromptNotExposed)

	_, err = catalog.Get(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrPromptNotExposed)

	// The registered handler keeps the client-facing wording.
	_, err = catalog.handler("a")(context.Background(), mcp.GetPromptRequest{})
	assert.ErrorIs(t, err, ErrPromptNotExposed)
	assert.Equal(t, "Prompt not found or not exposed to MCP", err.Error())
}

func TestPromptCatalog_SyncError(t *testing.T) {
	source := newFakeSource()
	source.listErr = errors.New("store offline")
	s := NewServer(ServerName, "test", zap.NewNop())
	catalog := NewPromptCatalog(s, source, zap.NewNop())

	err := catalog.Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store offline")

	// Listing still answers, with nothing registered.
	assert.Empty(t, listPrompts(t, s))
}
