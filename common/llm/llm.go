// Package llm talks to the external text completion service. It sends prompts and
// returns raw text or a typed failure; interpreting the text is the caller's job.
package llm

import (
	"context"
	"fmt"
)

// Provider constants for completion provider selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// placeholderAPIKey is sent to self-hosted OpenAI-compatible servers that ignore auth.
const placeholderAPIKey = "NULL"

// Config holds completion client configuration.
type Config struct {
	Provider string // "openai" or "anthropic"
	APIKey   string
	BaseURL  string // Optional: custom endpoint (e.g. a local inference server)
	Model    string
	// StructuredOutput sends a JSON schema response_format when the request carries one.
	StructuredOutput bool
}

// Completer is a single-shot chat completion backend.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Model() string
}

// Message is one role-tagged prompt message.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature *float64 // nil = model default
	SchemaName  string
	Schema      any // only honoured for object-shaped answers when StructuredOutput is on
}

type Response struct {
	CallID           string
	Content          string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// New creates a Completer for cfg.Provider. Defaults to OpenAI-compatible.
func New(cfg Config) (Completer, error) {
	if cfg.APIKey == "" {
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("API key is required")
		}
		cfg.APIKey = placeholderAPIKey
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}

	switch provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg), nil
	case ProviderAnthropic:
		return newAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", provider)
	}
}

// Prompt builds the message list for an optional system prompt and a user prompt.
func Prompt(system, user string) []Message {
	msgs := make([]Message, 0, 2)
	if system != "" {
		msgs = append(msgs, Message{Role: "system", Content: system})
	}
	return append(msgs, Message{Role: "user", Content: user})
}

func Temp(t float64) *float64 {
	return &t
}
