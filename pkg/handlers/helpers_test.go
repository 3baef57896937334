package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/auth"
	"github.com/arqioly/arqioly/pkg/events"
	"github.com/arqioly/arqioly/pkg/kv"
	"github.com/arqioly/arqioly/pkg/llm"
	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/repositories"
	"github.com/arqioly/arqioly/pkg/services"
)

// testAPI serves every REST handler over in-memory services.
type testAPI struct {
	handler  http.Handler
	events   *events.RecordingPublisher
	llm      *llm.MockClientFactory
	archiver *stubArchiver
}

type stubArchiver struct {
	names []string
}

func (a *stubArchiver) Archive(ctx context.Context, name string, data []byte) (string, error) {
	a.names = append(a.names, name)
	return "s3://exports/" + name, nil
}

type staticProviders []models.Provider

func (p staticProviders) AvailableProviders() []models.Provider { return p }

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := zap.NewNop()
	repos := repositories.New(kv.NewMemoryStore())
	pub := &events.RecordingPublisher{}
	factory := &llm.MockClientFactory{Client: llm.NewMockLLMClient()}
	archiver := &stubArchiver{}

	prompts := services.NewPromptService(repos, pub, logger)
	resolution := services.NewResolutionService(repos, logger)

	mux := http.NewServeMux()
	NewPromptsHandler(prompts, logger).RegisterRoutes(mux)
	NewCommentsHandler(services.NewCommentService(repos, logger), logger).RegisterRoutes(mux)
	NewSharesHandler(services.NewShareService(repos, prompts, pub, logger), logger).RegisterRoutes(mux)
	NewAssistHandler(services.NewAssistService(repos, prompts, resolution, factory, pub, logger), logger).RegisterRoutes(mux)
	NewExportHandler(services.NewExportService(repos, archiver, pub, logger), logger).RegisterRoutes(mux)
	NewCatalogHandler(services.NewCatalogService(repos, pub, logger), logger).RegisterRoutes(mux)
	NewConfigHandler(services.NewScopedConfigService(repos, pub, logger), resolution,
		staticProviders{models.ProviderOpenAI}, logger).RegisterRoutes(mux)
	NewTeamsHandler(services.NewTeamService(repos, pub, logger), logger).RegisterRoutes(mux)
	NewTemplatesHandler(services.NewTemplateService(repos, prompts, logger), logger).RegisterRoutes(mux)

	return &testAPI{
		handler:  auth.NewMiddleware("", logger).WithActor(mux),
		events:   pub,
		llm:      factory,
		archiver: archiver,
	}
}

// do sends a request as user (anonymous when empty) and returns the recorder.
func (a *testAPI) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(auth.HeaderUser, user)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// decodeData decodes the data field of an ApiResponse into T.
func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), string(env.Data))
	return out
}

// decodeError returns the error code and message of an error response.
func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	code, _ := body["error"].(string)
	msg, _ := body["message"].(string)
	return code, msg
}

// mustCreate asserts a 201 and returns the decoded entity.
func mustCreate[T any](t *testing.T, a *testAPI, path, user string, body any) T {
	t.Helper()
	rec := a.do(t, http.MethodPost, path, user, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeData[T](t, rec)
}

func (a *testAPI) project(t *testing.T, name string) models.Project {
	t.Helper()
	return mustCreate[models.Project](t, a, "/api/projects", "", map[string]any{"name": name})
}

func (a *testAPI) prompt(t *testing.T, projectID, title, content string) models.Prompt {
	t.Helper()
	return mustCreate[models.Prompt](t, a, "/api/prompts", "", map[string]any{
		"title":      title,
		"content":    content,
		"project_id": projectID,
	})
}
