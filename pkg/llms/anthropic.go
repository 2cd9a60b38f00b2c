// Package llms provides ready-made bindings of real providers to the
// core.LLM boundary.
package llms

import (
	"context"
	goerrors "errors"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/XiaoConstantine/ruminate/pkg/core"
	errs "github.com/XiaoConstantine/ruminate/pkg/errors"
	"github.com/XiaoConstantine/ruminate/pkg/logging"
)

// Convenience aliases for the models most commonly used with the thinking
// loop.
const (
	ModelHaiku  = anthropic.ModelClaude_3_Haiku_20240307
	ModelSonnet = anthropic.ModelClaudeSonnet4_5_20250929
	ModelOpus   = anthropic.ModelClaudeOpus4_1_20250805
)

// ResolveModel maps a short model name to its full identifier. Unknown
// names are passed through untouched so callers can pin exact versions.
func ResolveModel(name string) anthropic.Model {
	switch name {
	case "haiku":
		return ModelHaiku
	case "sonnet":
		return ModelSonnet
	case "opus":
		return ModelOpus
	default:
		return anthropic.Model(name)
	}
}

// AnthropicLLM binds the Anthropic Messages API to core.LLM.
type AnthropicLLM struct {
	client *anthropic.Client
	model  anthropic.Model
}

var _ core.LLM = (*AnthropicLLM)(nil)

// NewAnthropicLLM creates a provider bound to the given model. An empty
// apiKey falls back to the ANTHROPIC_API_KEY environment variable.
func NewAnthropicLLM(apiKey string, model anthropic.Model) (*AnthropicLLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errs.New(errs.InvalidInput, "API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicLLM{
		client: &client,
		model:  model,
	}, nil
}

// Generate implements core.LLM.
func (a *AnthropicLLM) Generate(ctx context.Context, messages []core.Message, options ...core.GenerateOption) (*core.LLMResponse, error) {
	logger := logging.GetLogger()
	opts := core.NewGenerateOptions(options...)

	params := anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   int64(opts.MaxTokens),
		Temperature: anthropic.Float(opts.Temperature),
	}
	if len(opts.Stop) > 0 {
		params.StopSequences = opts.Stop
	}

	// System messages ride in the dedicated system field; the rest keep
	// their roles.
	for _, msg := range messages {
		switch msg.Role {
		case core.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: msg.Content})
		case core.RoleAssistant:
			params.Messages = append(params.Messages,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			params.Messages = append(params.Messages,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if goerrors.As(err, &apiErr) {
			logger.Error(ctx, "Anthropic API error: status code %d", apiErr.StatusCode)
		}
		return nil, errs.WithFields(
			errs.Wrap(err, errs.GenerationFailed, "failed to generate response"),
			errs.Fields{
				"model":      string(a.model),
				"max_tokens": opts.MaxTokens,
			})
	}
	if message == nil || len(message.Content) == 0 {
		return nil, errs.New(errs.InvalidResponse, "received empty response from Anthropic API")
	}

	var text string
	if block := message.Content[0]; block.Type == "text" {
		text = block.Text
	}

	return &core.LLMResponse{
		Content: text,
		Usage: &core.TokenInfo{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
	}, nil
}

// ProviderName implements core.LLM.
func (a *AnthropicLLM) ProviderName() string {
	return "anthropic"
}

// ModelID implements core.LLM.
func (a *AnthropicLLM) ModelID() string {
	return string(a.model)
}
