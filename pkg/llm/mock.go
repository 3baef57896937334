package llm

import (
	"context"
	"sync"

	"github.com/arqioly/arqioly/pkg/models"
)

// MockLLMClient is a configurable mock for testing LLM functionality.
// Set the function fields to control behavior in tests.
type MockLLMClient struct {
	// GenerateResponseFunc is called when GenerateResponse is invoked.
	// If nil, the prompt is echoed back.
	GenerateResponseFunc func(ctx context.Context, req GenerateRequest) (*GenerateResponseResult, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Provider is returned by GetProvider. Defaults to openai.
	Provider models.Provider

	mu       sync.Mutex
	requests []GenerateRequest
}

// NewMockLLMClient creates a new mock with sensible defaults.
func NewMockLLMClient() *MockLLMClient {
	return &MockLLMClient{Model: "mock-model", Provider: models.ProviderOpenAI}
}

// GenerateResponse implements LLMClient.
func (m *MockLLMClient) GenerateResponse(ctx context.Context, req GenerateRequest) (*GenerateResponseResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, req)
	}
	return &GenerateResponseResult{Content: req.Prompt}, nil
}

// GetModel implements LLMClient.
func (m *MockLLMClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// GetProvider implements LLMClient.
func (m *MockLLMClient) GetProvider() models.Provider {
	if m.Provider == "" {
		return models.ProviderOpenAI
	}
	return m.Provider
}

// Requests returns the requests received so far.
func (m *MockLLMClient) Requests() []GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GenerateRequest(nil), m.requests...)
}

// MockClientFactory hands out a fixed client and records the params it was asked for.
type MockClientFactory struct {
	Client *MockLLMClient
	Err    error

	mu     sync.Mutex
	params []models.ModelParams
}

// CreateForModel implements LLMClientFactory.
func (f *MockClientFactory) CreateForModel(ctx context.Context, params models.ModelParams) (LLMClient, error) {
	f.mu.Lock()
	f.params = append(f.params, params)
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	if f.Client.Model == "" {
		f.Client.Model = params.ModelName
	}
	return f.Client, nil
}

// Params returns the model params requested so far.
func (f *MockClientFactory) Params() []models.ModelParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ModelParams(nil), f.params...)
}

var (
	_ LLMClient        = (*MockLLMClient)(nil)
	_ LLMClientFactory = (*MockClientFactory)(nil)
)
