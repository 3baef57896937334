package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/config"
	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/retry"
)

// ClientFactory creates provider clients from server credentials and the
// resolved model configuration.
type ClientFactory struct {
	cfg    config.LLMConfig
	logger *zap.Logger
}

// NewClientFactory creates a new factory.
func NewClientFactory(cfg config.LLMConfig, logger *zap.Logger) *ClientFactory {
	return &ClientFactory{cfg: cfg, logger: logger}
}

// AvailableProviders lists providers with credentials configured.
func (f *ClientFactory) AvailableProviders() []models.Provider {
	var out []models.Provider
	if f.cfg.OpenAI.IsAvailable() {
		out = append(out, models.ProviderOpenAI)
	}
	if f.cfg.Anthropic.IsAvailable() {
		out = append(out, models.ProviderAnthropic)
	}
	if f.cfg.Azure.IsAvailable() {
		out = append(out, models.ProviderAzure)
	}
	return out
}

// CreateForModel builds a client for params.Provider. The returned client
// applies the configured request timeout and retries transient failures.
func (f *ClientFactory) CreateForModel(ctx context.Context, params models.ModelParams) (LLMClient, error) {
	var (
		client LLMClient
		err    error
	)

	switch params.Provider {
	case models.ProviderOpenAI:
		if !f.cfg.OpenAI.IsAvailable() {
			return nil, fmt.Errorf("%s: %w", params.Provider, ErrProviderUnavailable)
		}
		client, err = NewClient(&Config{
			Endpoint: f.cfg.OpenAI.BaseURL,
			Model:    params.ModelName,
			APIKey:   f.cfg.OpenAI.APIKey,
		}, f.logger)
	case models.ProviderAzure:
		if !f.cfg.Azure.IsAvailable() {
			return nil, fmt.Errorf("%s: %w", params.Provider, ErrProviderUnavailable)
		}
		client, err = NewClient(&Config{
			Endpoint:        f.cfg.Azure.Endpoint,
			Model:           params.ModelName,
			APIKey:          f.cfg.Azure.APIKey,
			AzureAPIVersion: f.cfg.Azure.APIVersion,
		}, f.logger)
	case models.ProviderAnthropic:
		if !f.cfg.Anthropic.IsAvailable() {
			return nil, fmt.Errorf("%s: %w", params.Provider, ErrProviderUnavailable)
		}
		client, err = NewAnthropicClient(&AnthropicConfig{
			Endpoint: f.cfg.Anthropic.BaseURL,
			Model:    params.ModelName,
			APIKey:   f.cfg.Anthropic.APIKey,
		}, f.logger)
	default:
		return nil, fmt.Errorf("unknown provider %q: %w", params.Provider, ErrProviderUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", params.Provider, err)
	}

	retryCfg := retry.WithMaxRetries(f.cfg.MaxRetries)
	return NewRetryingClient(client, retryCfg, f.cfg.RequestTimeout, f.logger), nil
}

var _ LLMClientFactory = (*ClientFactory)(nil)

// RetryingClient retries transient provider failures with backoff. Each
// attempt gets its own timeout.
type RetryingClient struct {
	inner   LLMClient
	retry   *retry.Config
	timeout time.Duration
	logger  *zap.Logger
}

// NewRetryingClient wraps inner. A zero timeout leaves the caller's deadline alone.
func NewRetryingClient(inner LLMClient, cfg *retry.Config, timeout time.Duration, logger *zap.Logger) *RetryingClient {
	c := &RetryingClient{inner: inner, timeout: timeout, logger: logger.Named("llm")}
	copied := *cfg
	copied.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.logger.Warn("Retrying LLM request",
			zap.String("model", inner.GetModel()),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.String("error_type", string(GetErrorType(err))))
	}
	c.retry = &copied
	return c
}

func (c *RetryingClient) GenerateResponse(ctx context.Context, req GenerateRequest) (*GenerateResponseResult, error) {
	return retry.Do(ctx, c.retry, func(ctx context.Context) (*GenerateResponseResult, error) {
		if c.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
		return c.inner.GenerateResponse(ctx, req)
	})
}

func (c *RetryingClient) GetModel() string { return c.inner.GetModel() }

func (c *RetryingClient) GetProvider() models.Provider { return c.inner.GetProvider() }

var _ LLMClient = (*RetryingClient)(nil)
