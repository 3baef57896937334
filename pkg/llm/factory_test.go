package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/config"
	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/retry"
)

func TestClientFactory_CreateForModel(t *testing.T) {
	f := NewClientFactory(config.LLMConfig{
		OpenAI:    config.OpenAIConfig{APIKey: "sk-openai"},
		Anthropic: config.AnthropicConfig{APIKey: "ak-anthropic"},
		Azure:     config.AzureConfig{APIKey: "az", Endpoint: "https://example.openai.azure.com", APIVersion: "2024-06-01"},
	}, zap.NewNop())

	for _, p := range []models.Provider{models.ProviderOpenAI, models.ProviderAnthropic, models.ProviderAzure} {
		t.Run(string(p), func(t *testing.T) {
			client, err := f.CreateForModel(context.Background(), models.ModelParams{Provider: p, ModelName: "some-model"})
			require.NoError(t, err)
			assert.Equal(t, p, client.GetProvider())
			assert.Equal(t, "some-model", client.GetModel())
		})
	}

	assert.ElementsMatch(t,
		[]models.Provider{models.ProviderOpenAI, models.ProviderAnthropic, models.ProviderAzure},
		f.AvailableProviders())
}

func TestClientFactory_ProviderUnavailable(t *testing.T) {
	f := NewClientFactory(config.LLMConfig{}, zap.NewNop())

	_, err := f.CreateForModel(context.Background(), models.ModelParams{Provider: models.ProviderAnthropic, ModelName: "claude"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	_, err = f.CreateForModel(context.Background(), models.ModelParams{Provider: "mistral", ModelName: "m"})
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	assert.Empty(t, f.AvailableProviders())
}

func TestRetryingClient_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	mock := NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, req GenerateRequest) (*GenerateResponseResult, error) {
		if calls.Add(1) < 3 {
			return nil, NewError(ErrorTypeRateLimit, "rate limited", true, nil)
		}
		return &GenerateResponseResult{Content: "done"}, nil
	}

	cfg := &retry.Config{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
	c := NewRetryingClient(mock, cfg, time.Second, zap.NewNop())

	res, err := c.GenerateResponse(context.Background(), GenerateRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "done", res.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryingClient_StopsOnPermanentError(t *testing.T) {
	var calls atomic.Int32
	mock := NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, req GenerateRequest) (*GenerateResponseResult, error) {
		calls.Add(1)
		return nil, NewError(ErrorTypeAuth, "authentication failed", false, nil)
	}

	cfg := &retry.Config{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	c := NewRetryingClient(mock, cfg, 0, zap.NewNop())

	_, err := c.GenerateResponse(context.Background(), GenerateRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, ErrorTypeAuth, GetErrorType(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryingClient_AgainstServer(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"temporarily unavailable","type":"server_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"recovered"}}],"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`))
	}))
	t.Cleanup(srv.Close)

	inner, err := NewClient(&Config{Endpoint: srv.URL, Model: "gpt-4o", APIKey: "sk"}, zap.NewNop())
	require.NoError(t, err)
	cfg := &retry.Config{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

	res, err := NewRetryingClient(inner, cfg, 5*time.Second, zap.NewNop()).
		GenerateResponse(context.Background(), GenerateRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", res.Content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestMockClientFactory(t *testing.T) {
	f := &MockClientFactory{Client: &MockLLMClient{}}
	c, err := f.CreateForModel(context.Background(), models.ModelParams{Provider: models.ProviderOpenAI, ModelName: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", c.GetModel())
	require.Len(t, f.Params(), 1)

	f.Err = errors.New("boom")
	_, err = f.CreateForModel(context.Background(), models.ModelParams{})
	assert.Error(t, err)
}
