package interfaces

import "context"

// CompletionRequest is a single prompt sent to an LLM provider
type CompletionRequest struct {
	System      string  // Optional system instruction
	Prompt      string  // User content
	Model       string  // Provider-specific model name; empty uses the client default
	Temperature float32 // 0 uses the client default
	MaxTokens   int     // 0 uses the client default

	// Schema, when set, asks the provider for a JSON object matching the
	// given JSON Schema. Providers without native structured output embed
	// the schema in the prompt instead.
	Schema map[string]interface{}
}

// CompletionResponse is the provider's reply
type CompletionResponse struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// LLMClient abstracts a single LLM provider connection
type LLMClient interface {
	// Complete sends the request and returns the model's text.
	// Rate-limit retries happen inside the client.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider identifier ("openai", "claude", "gemini")
	Name() string
}
