package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenInfoTotal(t *testing.T) {
	var nilInfo *TokenInfo
	assert.Equal(t, 0, nilInfo.Total())

	assert.Equal(t, 42, (&TokenInfo{TotalTokens: 42}).Total())
	assert.Equal(t, 30, (&TokenInfo{PromptTokens: 20, CompletionTokens: 10}).Total())
}

func TestNewGenerateOptionsDefaults(t *testing.T) {
	opts := NewGenerateOptions()
	assert.Equal(t, 4096, opts.MaxTokens)
	assert.Equal(t, 0.5, opts.Temperature)
	assert.Empty(t, opts.Stop)
}

func TestGenerateOptionsOverrides(t *testing.T) {
	opts := NewGenerateOptions(
		WithMaxTokens(256),
		WithTemperature(0.9),
		WithStopSequences("END", "STOP"),
	)
	assert.Equal(t, 256, opts.MaxTokens)
	assert.Equal(t, 0.9, opts.Temperature)
	assert.Equal(t, []string{"END", "STOP"}, opts.Stop)
}

func TestUserMessage(t *testing.T) {
	messages := UserMessage("hello")
	assert.Equal(t, []Message{{Role: RoleUser, Content: "hello"}}, messages)
}
