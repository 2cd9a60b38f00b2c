package core

import (
	"context"
)

// Role identifies the author of a message in a generation request.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged entry in a generation request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TokenInfo tracks token usage for a single generation call.
type TokenInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Total returns the total token count, deriving it from the parts when the
// provider did not report one.
func (t *TokenInfo) Total() int {
	if t == nil {
		return 0
	}
	if t.TotalTokens > 0 {
		return t.TotalTokens
	}
	return t.PromptTokens + t.CompletionTokens
}

// LLMResponse is the result of a single generation call.
type LLMResponse struct {
	Content  string
	Usage    *TokenInfo
	Metadata map[string]interface{}
}

// LLM represents a text-generation provider. Implementations must be safe to
// invoke repeatedly and independently; no session state is assumed between
// calls. Retry and fallback behavior, if any, belongs to the implementation.
type LLM interface {
	// Generate produces a completion for the given message list.
	Generate(ctx context.Context, messages []Message, options ...GenerateOption) (*LLMResponse, error)

	ProviderName() string
	ModelID() string
}

// GenerateOption configures a single generation call.
type GenerateOption func(*GenerateOptions)

// GenerateOptions holds configuration for text generation.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	Stop        []string
}

// NewGenerateOptions returns GenerateOptions with default values applied.
func NewGenerateOptions(opts ...GenerateOption) *GenerateOptions {
	options := &GenerateOptions{
		MaxTokens:   4096,
		Temperature: 0.5,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = t
	}
}

// WithStopSequences sets the stop sequences.
func WithStopSequences(sequences ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Stop = sequences
	}
}

// UserMessage is a convenience constructor for a single-message request.
func UserMessage(content string) []Message {
	return []Message{{Role: RoleUser, Content: content}}
}
