package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultModelConfig(t *testing.T) {
	mc := DefaultModelConfig()

	assert.Equal(t, ProviderOpenAI, mc.Provider)
	assert.Equal(t, "gpt-4o-mini", mc.ModelName)
	assert.Equal(t, 0.7, mc.Temperature)
	assert.Equal(t, 2000, mc.MaxTokens)
	assert.Equal(t, ScopeTeam, mc.ScopeType)
	assert.Empty(t, mc.ScopeID)
	assert.Equal(t, DefaultModelConfig(), mc)
}

func TestModelConfig_JSONFlattensParams(t *testing.T) {
	data, err := json.Marshal(DefaultModelConfig())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "openai", raw["provider"])
	assert.Equal(t, "gpt-4o-mini", raw["model_name"])
	assert.NotContains(t, raw, "scope_id")
}

func TestProvider_SupportsModel(t *testing.T) {
	assert.True(t, ProviderAnthropic.SupportsModel("claude-3-haiku-20240307"))
	assert.True(t, ProviderAzure.SupportsModel("gpt-35-turbo"))
	assert.False(t, ProviderOpenAI.SupportsModel("gpt-35-turbo"))
	assert.False(t, Provider("mistral").IsValid())
}

func TestScopeType_IsValid(t *testing.T) {
	for _, s := range ValidScopeTypes {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, ScopeType("org").IsValid())
}

func TestPrompt_MCPVisible(t *testing.T) {
	p := Prompt{ExposedToMCP: true}
	assert.True(t, p.MCPVisible())
	p.IsArchived = true
	assert.False(t, p.MCPVisible())
}
