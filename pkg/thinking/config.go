package thinking

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Visibility controls how much of the chain is surfaced to the caller in the
// result bundle.
type Visibility string

const (
	VisibilityNone    Visibility = "none"
	VisibilitySummary Visibility = "summary"
	VisibilityFull    Visibility = "full"
)

// Config holds the tunables of the thinking loop. All fields have documented
// defaults; zero-value fields are filled in by ApplyDefaults.
type Config struct {
	// MaxThinkingTokens is the hard token ceiling per Think call.
	MaxThinkingTokens int `yaml:"max_thinking_tokens" validate:"min=0"`

	// MaxCycles is the hard cycle ceiling.
	MaxCycles int `yaml:"max_cycles" validate:"min=0,max=1000"`

	// MaxDuration is the wall-clock ceiling.
	MaxDuration time.Duration `yaml:"max_duration" validate:"min=0"`

	// MinConfidence is required alongside MinQuality to stop on quality_met.
	MinConfidence float64 `yaml:"min_confidence" validate:"min=0,max=1"`

	// MinQuality is the quality threshold for quality_met.
	MinQuality float64 `yaml:"min_quality" validate:"min=0,max=1"`

	// MinImprovement distinguishes real progress from noise.
	MinImprovement float64 `yaml:"min_improvement" validate:"min=0,max=1"`

	// StalledCycles is how many cycles without improvement trigger a stall.
	StalledCycles int `yaml:"stalled_cycles" validate:"min=0,max=100"`

	// EarlyStopConfidence alone is sufficient to stop.
	EarlyStopConfidence float64 `yaml:"early_stop_confidence" validate:"min=0,max=1"`

	// EnableWebSearch gates the research augmenter.
	EnableWebSearch *bool `yaml:"enable_web_search"`

	// EnableCodebaseContext gates context retrieval.
	EnableCodebaseContext *bool `yaml:"enable_codebase_context"`

	// ThinkingVisibility controls chain export: none, summary, or full.
	ThinkingVisibility Visibility `yaml:"thinking_visibility" validate:"omitempty,oneof=none summary full"`

	// MaxBranches bounds concurrent branch exploration.
	MaxBranches int `yaml:"max_branches" validate:"min=0,max=10"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	on := true
	return Config{
		MaxThinkingTokens:     10000,
		MaxCycles:             20,
		MaxDuration:           300 * time.Second,
		MinConfidence:         0.85,
		MinQuality:            0.90,
		MinImprovement:        0.05,
		StalledCycles:         3,
		EarlyStopConfidence:   0.95,
		EnableWebSearch:       &on,
		EnableCodebaseContext: &on,
		ThinkingVisibility:    VisibilitySummary,
		MaxBranches:           3,
	}
}

// ApplyDefaults fills zero-value fields from DefaultConfig.
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	if c.MaxThinkingTokens == 0 {
		c.MaxThinkingTokens = def.MaxThinkingTokens
	}
	if c.MaxCycles == 0 {
		c.MaxCycles = def.MaxCycles
	}
	if c.MaxDuration == 0 {
		c.MaxDuration = def.MaxDuration
	}
	if c.MinConfidence == 0 {
		c.MinConfidence = def.MinConfidence
	}
	if c.MinQuality == 0 {
		c.MinQuality = def.MinQuality
	}
	if c.MinImprovement == 0 {
		c.MinImprovement = def.MinImprovement
	}
	if c.StalledCycles == 0 {
		c.StalledCycles = def.StalledCycles
	}
	if c.EarlyStopConfidence == 0 {
		c.EarlyStopConfidence = def.EarlyStopConfidence
	}
	if c.EnableWebSearch == nil {
		c.EnableWebSearch = def.EnableWebSearch
	}
	if c.EnableCodebaseContext == nil {
		c.EnableCodebaseContext = def.EnableCodebaseContext
	}
	if c.ThinkingVisibility == "" {
		c.ThinkingVisibility = def.ThinkingVisibility
	}
	if c.MaxBranches == 0 {
		c.MaxBranches = def.MaxBranches
	}
}

// WebSearchEnabled reports the effective web-search gate.
func (c *Config) WebSearchEnabled() bool {
	return c.EnableWebSearch == nil || *c.EnableWebSearch
}

// CodebaseContextEnabled reports the effective context-retrieval gate.
func (c *Config) CodebaseContextEnabled() bool {
	return c.EnableCodebaseContext == nil || *c.EnableCodebaseContext
}

// Validate checks the configuration against its field constraints.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
