package thinking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 10000, cfg.MaxThinkingTokens)
	assert.Equal(t, 20, cfg.MaxCycles)
	assert.Equal(t, 300*time.Second, cfg.MaxDuration)
	assert.Equal(t, 0.85, cfg.MinConfidence)
	assert.Equal(t, 0.90, cfg.MinQuality)
	assert.Equal(t, 0.05, cfg.MinImprovement)
	assert.Equal(t, 3, cfg.StalledCycles)
	assert.Equal(t, 0.95, cfg.EarlyStopConfidence)
	assert.True(t, cfg.WebSearchEnabled())
	assert.True(t, cfg.CodebaseContextEnabled())
	assert.Equal(t, VisibilitySummary, cfg.ThinkingVisibility)
	assert.Equal(t, 3, cfg.MaxBranches)

	require.NoError(t, cfg.Validate())
}

func TestApplyDefaultsFillsZeroFields(t *testing.T) {
	off := false
	cfg := Config{
		MaxCycles:       5,
		EnableWebSearch: &off,
	}
	cfg.ApplyDefaults()

	assert.Equal(t, 5, cfg.MaxCycles)
	assert.False(t, cfg.WebSearchEnabled())
	assert.Equal(t, 10000, cfg.MaxThinkingTokens)
	assert.Equal(t, 0.90, cfg.MinQuality)
	assert.Equal(t, VisibilitySummary, cfg.ThinkingVisibility)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinConfidence = 1.5
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ThinkingVisibility = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxBranches = 50
	assert.Error(t, cfg.Validate())
}
