package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
		status    int
	}{
		{"openai unauthorized", errors.New("error, status code: 401, status: 401 Unauthorized, message: Incorrect API key provided"), ErrorTypeAuth, false, 401},
		{"anthropic auth", errors.New("anthropic api error type: authentication_error, message: invalid x-api-key"), ErrorTypeAuth, false, 0},
		{"model missing", errors.New("error, status code: 404, message: The model `gpt-9` does not exist"), ErrorTypeModel, false, 404},
		{"plain 404", errors.New("error, status code: 404, message: Resource not found"), ErrorTypeEndpoint, false, 404},
		{"rate limited", errors.New("error, status code: 429, message: Rate limit reached"), ErrorTypeRateLimit, true, 429},
		{"overloaded", errors.New("anthropic api error type: overloaded_error, message: Overloaded"), ErrorTypeEndpoint, true, 0},
		{"server error", errors.New("error, status code: 502, message: bad gateway"), ErrorTypeEndpoint, true, 502},
		{"connection refused", errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), ErrorTypeEndpoint, true, 0},
		{"provider unavailable", fmt.Errorf("anthropic: %w", ErrProviderUnavailable), ErrorTypeProvider, false, 0},
		{"unknown", errors.New("something odd"), ErrorTypeUnknown, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.retryable, got.Retryable)
			assert.Equal(t, tt.status, got.StatusCode)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyError_Nil(t *testing.T) {
	assert.Nil(t, ClassifyError(nil))
}

func TestClassifyError_KeepsExisting(t *testing.T) {
	orig := NewError(ErrorTypeModel, "bad model", false, nil)
	wrapped := fmt.Errorf("call: %w", orig)
	assert.Same(t, orig, ClassifyError(wrapped))
}

func TestError_ErrorString(t *testing.T) {
	err := NewErrorWithContext(ErrorTypeAuth, "authentication failed", false, context.Canceled,
		"gpt-4o", "https://api.openai.com/v1", 401)

	msg := err.Error()
	assert.Contains(t, msg, "auth")
	assert.Contains(t, msg, "HTTP 401")
	assert.Contains(t, msg, "model=gpt-4o")
	assert.Contains(t, msg, "endpoint=api.openai.com")
	assert.NotContains(t, msg, "/v1")
	assert.Contains(t, msg, "context canceled")
}

func TestGetErrorType_NonLLMError(t *testing.T) {
	assert.Equal(t, ErrorTypeUnknown, GetErrorType(errors.New("x")))
	assert.False(t, IsRetryable(errors.New("x")))
}
