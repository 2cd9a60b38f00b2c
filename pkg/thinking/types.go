// Package thinking implements the iterative self-critique reasoning loop:
// step recording, multi-dimensional critique, stopping-policy evaluation,
// research augmentation, parallel branch exploration, and the orchestrator
// that composes them.
package thinking

import (
	"time"
)

// StepType tags a recorded reasoning event.
type StepType string

const (
	StepReasoning   StepType = "reasoning"
	StepCritique    StepType = "critique"
	StepObservation StepType = "observation"
	StepSynthesis   StepType = "synthesis"
	StepHypothesis  StepType = "hypothesis"
	StepValidation  StepType = "validation"
	StepExploration StepType = "exploration"
)

// Step is one recorded reasoning event. Steps reference their prerequisites
// by id, never by pointer; the resulting graph is a DAG, not a tree.
type Step struct {
	ID         string    `json:"id"`
	Cycle      int       `json:"cycle"`
	Type       StepType  `json:"type"`
	Content    string    `json:"content"`
	Confidence float64   `json:"confidence"`
	Tokens     int       `json:"tokens"`
	DependsOn  []string  `json:"depends_on,omitempty"`
	Depth      int       `json:"depth"`
	CreatedAt  time.Time `json:"created_at"`
	BranchID   string    `json:"branch_id,omitempty"`
}

// Chain is the full ordered collection of steps for one task execution,
// plus aggregate counters and the explored branches. It is created at the
// start of a Think call, mutated only through the Recorder, and immutable
// once CompletedAt is set.
type Chain struct {
	ID           string    `json:"id"`
	Task         string    `json:"task"`
	Steps        []Step    `json:"steps"`
	Branches     []Branch  `json:"branches,omitempty"`
	TotalTokens  int       `json:"total_tokens"`
	MaxDepth     int       `json:"max_depth"`
	CurrentCycle int       `json:"current_cycle"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at,omitzero"`
}

// Completed reports whether the chain has been finalized.
func (c *Chain) Completed() bool {
	return !c.CompletedAt.IsZero()
}

// CritiqueResult is the structured, multi-dimensional self-assessment of a
// candidate solution. All numeric scores are clamped to [0,1] regardless of
// what the model returned.
type CritiqueResult struct {
	// Primary quality dimensions.
	LogicalCoherence      float64 `json:"logical_coherence"`
	AssumptionValidity    float64 `json:"assumption_validity"`
	Coverage              float64 `json:"coverage"`
	EdgeCaseHandling      float64 `json:"edge_case_handling"`
	SolutionQuality       float64 `json:"solution_quality"`
	BestPracticeAdherence float64 `json:"best_practice_adherence"`

	// Meta dimensions.
	Clarity       float64 `json:"clarity"`
	Depth         float64 `json:"depth"`
	Relevance     float64 `json:"relevance"`
	Actionability float64 `json:"actionability"`

	UncertaintyAreas      []string `json:"uncertainty_areas,omitempty"`
	MissingInformation    []string `json:"missing_information,omitempty"`
	AlternativeApproaches []string `json:"alternative_approaches,omitempty"`
	CriticalIssues        []string `json:"critical_issues,omitempty"`
	Suggestions           []string `json:"suggestions,omitempty"`

	NeedsResearch           bool `json:"needs_research"`
	NeedsCodebaseContext    bool `json:"needs_codebase_context"`
	NeedsExternalValidation bool `json:"needs_external_validation"`

	Confidence float64 `json:"confidence"`

	// Improvement over the previous critique, only populated when a prior
	// result was supplied.
	Improvement *float64 `json:"improvement,omitempty"`

	// FromFallback marks results produced by the deterministic parse-failure
	// path rather than a validated model response.
	FromFallback bool `json:"from_fallback,omitempty"`

	// Tokens is the generation cost of producing this critique, carried for
	// budget accounting; it is not part of the assessment itself.
	Tokens int `json:"-"`
}

// OverallQuality aggregates the six primary dimensions into one scalar.
func (c *CritiqueResult) OverallQuality() float64 {
	return (c.LogicalCoherence + c.AssumptionValidity + c.Coverage +
		c.EdgeCaseHandling + c.SolutionQuality + c.BestPracticeAdherence) / 6
}

// IterationState is the live control-loop state, mutated once per cycle by
// the orchestrator immediately after each critique.
type IterationState struct {
	Cycle                    int
	Chain                    *Chain
	Quality                  float64
	Confidence               float64
	LastImprovement          float64
	CyclesWithoutImprovement int
	TokensUsed               int
	StartedAt                time.Time
	ResearchCount            int
	ContextRetrievals        int

	// QualityHistory holds the quality reported by each completed cycle, in
	// order; the stopping policy reads the tail for trend detection.
	QualityHistory []float64
}

// StopReason is the closed set of tags explaining loop termination.
type StopReason string

const (
	StopQualityMet         StopReason = "quality_met"
	StopConfidenceMet      StopReason = "confidence_met"
	StopStalled            StopReason = "stalled"
	StopMaxIterations      StopReason = "max_iterations"
	StopMaxTokens          StopReason = "max_tokens"
	StopTimeout            StopReason = "timeout"
	StopDiminishingReturns StopReason = "diminishing_returns"
	StopUserCancelled      StopReason = "user_cancelled"
)

// Metrics is a point-in-time snapshot of loop progress.
type Metrics struct {
	Cycle      int           `json:"cycle"`
	Quality    float64       `json:"quality"`
	Confidence float64       `json:"confidence"`
	TokensUsed int           `json:"tokens_used"`
	Elapsed    time.Duration `json:"elapsed"`
}

// StoppingDecision is the output of the stopping policy.
type StoppingDecision struct {
	ShouldContinue bool       `json:"should_continue"`
	Reason         StopReason `json:"reason,omitempty"`
	Metrics        Metrics    `json:"metrics"`
	Explanation    string     `json:"explanation"`
}

// Rating is a coarse low/medium/high assessment used in tradeoff records.
type Rating string

const (
	RatingLow    Rating = "low"
	RatingMedium Rating = "medium"
	RatingHigh   Rating = "high"
)

// TradeoffRecord captures the pros, cons and coarse ratings of one explored
// branch.
type TradeoffRecord struct {
	Pros            []string `json:"pros,omitempty"`
	Cons            []string `json:"cons,omitempty"`
	Complexity      Rating   `json:"complexity"`
	Performance     Rating   `json:"performance"`
	Maintainability Rating   `json:"maintainability"`
}

// Branch is one independently explored solution strategy. Branches share
// only the task description; there is no cross-branch mutation.
type Branch struct {
	ID          string         `json:"id"`
	Strategy    Strategy       `json:"strategy"`
	Description string         `json:"description"`
	Steps       []Step         `json:"steps,omitempty"`
	Solution    string         `json:"solution"`
	Tradeoffs   TradeoffRecord `json:"tradeoffs"`

	// Score is the recommendation score in [0,1] assigned during ranking;
	// nil until the ranking stage has run.
	Score *float64 `json:"score,omitempty"`
}

// Strategy enumerates the named solution strategies the explorer knows.
type Strategy string

const (
	StrategyDifferentAlgorithms    Strategy = "different_algorithms"
	StrategyDifferentLibraries     Strategy = "different_libraries"
	StrategyDifferentArchitectures Strategy = "different_architectures"
	StrategyOptimisticVsCautious   Strategy = "optimistic_vs_cautious"
	StrategySimpleVsComplex        Strategy = "simple_vs_complex"
)

// SearchType classifies a research query so it can be enhanced before
// execution.
type SearchType string

const (
	SearchCode     SearchType = "code"
	SearchDocs     SearchType = "docs"
	SearchAcademic SearchType = "academic"
	SearchGeneral  SearchType = "general"
)

// Urgency tags a detected research need.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// ResearchNeed is an ephemeral request produced by uncertainty detection and
// consumed immediately by the augmenter; it is not persisted on the chain.
type ResearchNeed struct {
	Question     string     `json:"question"`
	SearchType   SearchType `json:"search_type"`
	Urgency      Urgency    `json:"urgency"`
	SourceStepID string     `json:"source_step_id,omitempty"`
}

// ContextNeed is an ephemeral request for codebase context, consumed by the
// injected context-retrieval callback.
type ContextNeed struct {
	Type     string `json:"type"`
	Query    string `json:"query"`
	Scope    string `json:"scope,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// Result is the bundle returned to the caller when the loop stops.
type Result struct {
	Solution          string     `json:"solution"`
	Quality           float64    `json:"quality"`
	Confidence        float64    `json:"confidence"`
	Iterations        int        `json:"iterations"`
	TokensUsed        int        `json:"tokens_used"`
	Chain             *Chain     `json:"thinking_chain,omitempty"`
	StoppingReason    StopReason `json:"stopping_reason"`
	ResearchPerformed int        `json:"research_performed"`
	ContextRetrievals int        `json:"context_retrievals"`
}

// clamp01 confines a score to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
