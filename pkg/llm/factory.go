package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nlquery/nlq-engine/pkg/config"
)

// NewCompletionClient builds the completion client for the configured provider.
func NewCompletionClient(cfg *config.LLMConfig, logger *zap.Logger) (LLMClient, error) {
	switch cfg.Provider {
	case "openai":
		return NewClient(&Config{
			Endpoint: cfg.Endpoint,
			Model:    cfg.Model,
			APIKey:   cfg.APIKey,
		}, logger)
	case "anthropic":
		return NewAnthropicClient(&Config{
			Endpoint: cfg.Endpoint,
			Model:    cfg.Model,
			APIKey:   cfg.APIKey,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.Provider)
	}
}

// NewEmbeddingClient builds the embedding client. Embeddings always go
// through an OpenAI-compatible endpoint regardless of the completion
// provider.
func NewEmbeddingClient(cfg *config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	return NewClient(&Config{
		Endpoint: cfg.Endpoint,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
	}, logger)
}
