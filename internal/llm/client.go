// Package llm provides the chat-completion client used by the assistant.
// Only OpenAI-compatible endpoints are supported; the base URL can point
// at any provider speaking that API.
package llm

import (
	"context"
	"fmt"
	"time"

	"demandsight/internal/config"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Client is the narrow interface the assistant and handlers depend on, so
// tests can substitute a fake.
type Client interface {
	// Chat sends the full message list and returns the completion text.
	Chat(ctx context.Context, messages []Message) (string, error)

	// ChatStream sends the message list with streaming enabled and
	// returns channels of content deltas and errors. Both channels are
	// closed when the stream ends.
	ChatStream(ctx context.Context, messages []Message) (<-chan string, <-chan error)

	// Model returns the model identifier requests are sent with.
	Model() string
}

// NewFromConfig builds a client from the loaded configuration.
func NewFromConfig(cfg *config.LLMConfig) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}

	timeout := 60 * time.Second
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid llm timeout %q: %w", cfg.Timeout, err)
		}
		timeout = d
	}

	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
