package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nlquery/nlq-engine/pkg/config"
)

func TestNewCompletionClient_OpenAI(t *testing.T) {
	client, err := NewCompletionClient(&config.LLMConfig{
		Provider: "openai",
		Endpoint: "http://localhost:8000/v1",
		Model:    "gpt-4o-mini",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Client{}, client)
	assert.Equal(t, "gpt-4o-mini", client.GetModel())
}

func TestNewCompletionClient_Anthropic(t *testing.T) {
	client, err := NewCompletionClient(&config.LLMConfig{
		Provider: "anthropic",
		Model:    "claude-sonnet-4-20250514",
		APIKey:   "test-key",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, client)
}

func TestNewCompletionClient_UnknownProvider(t *testing.T) {
	_, err := NewCompletionClient(&config.LLMConfig{
		Provider: "cohere",
		Endpoint: "http://localhost:8000/v1",
		Model:    "command",
	}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown llm provider")
}

func TestNewCompletionClient_MissingModel(t *testing.T) {
	_, err := NewCompletionClient(&config.LLMConfig{
		Provider: "openai",
		Endpoint: "http://localhost:8000/v1",
	}, zap.NewNop())
	require.Error(t, err)
}

func TestNewAnthropicClient_RequiresAPIKey(t *testing.T) {
	_, err := NewAnthropicClient(&Config{Model: "claude-sonnet-4-20250514"}, zap.NewNop())
	require.Error(t, err)
}

func TestNewAnthropicClient_DefaultEndpoint(t *testing.T) {
	client, err := NewAnthropicClient(&Config{
		Model:  "claude-sonnet-4-20250514",
		APIKey: "test-key",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "https://api.anthropic.com", client.GetEndpoint())
}

func TestNewAnthropicClient_EndpointOverride(t *testing.T) {
	client, err := NewAnthropicClient(&Config{
		Model:    "claude-sonnet-4-20250514",
		APIKey:   "test-key",
		Endpoint: "http://localhost:8200",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8200", client.GetEndpoint())
}

func TestNewEmbeddingClient(t *testing.T) {
	embedder, err := NewEmbeddingClient(&config.EmbeddingConfig{
		Endpoint: "http://localhost:8000/v1",
		Model:    "text-embedding-3-small",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, embedder)
}
