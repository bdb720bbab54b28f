package driven

import (
	"context"
	"iter"
)

// LLMService provides text generation.
//
// Implementations may include:
//   - OpenAI (GPT-4o family)
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Generate produces text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Chat conducts a multi-turn conversation.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ChatStream is Chat with incremental output. The sequence yields text
	// fragments; a non-nil error ends it. Stopping iteration cancels the request.
	ChatStream(ctx context.Context, messages []ChatMessage, opts ChatOptions) iter.Seq2[string, error]

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	// Nil leaves the provider default.
	Temperature *float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of RoleSystem, RoleUser, or RoleAssistant.
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	MaxTokens int

	// Temperature is sent when set, zero included. Nil leaves the provider default.
	Temperature *float64

	// JSON asks the provider for a JSON object reply where supported.
	JSON bool
}

// Temperature returns v as an explicit temperature setting.
func Temperature(v float64) *float64 { return &v }
