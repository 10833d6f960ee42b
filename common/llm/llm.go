package llm

import (
	"context"
	"fmt"
)

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds LLM client configuration.
type Config struct {
	Provider string // "openai" or "anthropic"
	APIKey   string
	BaseURL  string // Optional: custom API endpoint
	Model    string
}

// Client performs a single structured completion.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Model() string
}

type Request struct {
	SystemPrompt string
	UserPrompt   string
	SchemaName   string // Names the JSON schema when Schema is set
	Schema       any    // Optional JSON schema the reply should follow
	MaxTokens    int
	Temperature  *float64 // nil = model default, explicit 0 = deterministic
}

// Response carries the raw reply text. Parsing belongs to the caller.
type Response struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// New builds the client for cfg.Provider.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	switch cfg.Provider {
	case ProviderOpenAI, "":
		return newOpenAIClient(cfg), nil
	case ProviderAnthropic:
		return newAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}

func Temp(t float64) *float64 {
	return &t
}
