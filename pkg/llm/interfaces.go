package llm

import "context"

// GenerateResponseResult contains the generated completion and usage stats.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LLMClient is the single-exchange completion contract: one prompt in,
// one text response out. No streaming, no tool calls.
type LLMClient interface {
	// GenerateResponse generates a completion for the given prompt.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// Embedder generates embedding vectors for text inputs.
type Embedder interface {
	// CreateEmbedding generates an embedding vector for a single input.
	CreateEmbedding(ctx context.Context, input string, model string) ([]float32, error)

	// CreateEmbeddings generates embeddings for multiple inputs in one call.
	CreateEmbeddings(ctx context.Context, inputs []string, model string) ([][]float32, error)
}
