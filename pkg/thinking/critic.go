package thinking

import (
	"context"
	"strings"

	"github.com/XiaoConstantine/ruminate/pkg/core"
	"github.com/XiaoConstantine/ruminate/pkg/errors"
	"github.com/XiaoConstantine/ruminate/pkg/logging"
)

// Critic produces structured multi-dimensional quality assessments of
// candidate solutions by prompting the generation provider.
type Critic struct {
	llm core.LLM
}

// NewCritic creates a critic bound to the given provider.
func NewCritic(llm core.LLM) *Critic {
	return &Critic{llm: llm}
}

// critiqueResponse is the wire shape the critique prompt asks for.
type critiqueResponse struct {
	LogicalCoherence      float64 `json:"logical_coherence"`
	AssumptionValidity    float64 `json:"assumption_validity"`
	Coverage              float64 `json:"coverage"`
	EdgeCaseHandling      float64 `json:"edge_case_handling"`
	SolutionQuality       float64 `json:"solution_quality"`
	BestPracticeAdherence float64 `json:"best_practice_adherence"`
	Clarity               float64 `json:"clarity"`
	Depth                 float64 `json:"depth"`
	Relevance             float64 `json:"relevance"`
	Actionability         float64 `json:"actionability"`

	UncertaintyAreas      []string `json:"uncertainty_areas"`
	MissingInformation    []string `json:"missing_information"`
	AlternativeApproaches []string `json:"alternative_approaches"`
	CriticalIssues        []string `json:"critical_issues"`
	Suggestions           []string `json:"suggestions"`

	NeedsResearch           bool `json:"needs_research"`
	NeedsCodebaseContext    bool `json:"needs_codebase_context"`
	NeedsExternalValidation bool `json:"needs_external_validation"`

	Confidence float64 `json:"confidence"`
}

// Critique assesses a candidate solution. A provider failure propagates; a
// malformed response never does. When a previous result is supplied, the
// returned result's Improvement field holds the quality delta.
func (c *Critic) Critique(ctx context.Context, task, solution, hints string, previous *CritiqueResult) (*CritiqueResult, error) {
	logger := logging.GetLogger()

	resp, err := c.llm.Generate(ctx, buildCritiquePrompt(task, solution, hints, previous),
		core.WithTemperature(0.2))
	if err != nil {
		return nil, errors.Wrap(err, errors.GenerationFailed, "critique generation failed")
	}

	result := parseCritique(resp.Content)
	result.Tokens = resp.Usage.Total()
	if result.FromFallback {
		logger.Warn(ctx, "Critique response unparsable, using fallback assessment")
	}

	if previous != nil {
		delta := result.OverallQuality() - previous.OverallQuality()
		result.Improvement = &delta
	}
	return result, nil
}

// parseCritique converts a raw response into a CritiqueResult, falling back
// to the documented neutral default when no valid JSON block is present.
func parseCritique(raw string) *CritiqueResult {
	p := decodeJSON[critiqueResponse](raw)
	if !p.OK {
		return fallbackCritique()
	}

	v := p.Value
	return &CritiqueResult{
		LogicalCoherence:      clamp01(v.LogicalCoherence),
		AssumptionValidity:    clamp01(v.AssumptionValidity),
		Coverage:              clamp01(v.Coverage),
		EdgeCaseHandling:      clamp01(v.EdgeCaseHandling),
		SolutionQuality:       clamp01(v.SolutionQuality),
		BestPracticeAdherence: clamp01(v.BestPracticeAdherence),
		Clarity:               clamp01(v.Clarity),
		Depth:                 clamp01(v.Depth),
		Relevance:             clamp01(v.Relevance),
		Actionability:         clamp01(v.Actionability),

		UncertaintyAreas:      v.UncertaintyAreas,
		MissingInformation:    v.MissingInformation,
		AlternativeApproaches: v.AlternativeApproaches,
		CriticalIssues:        v.CriticalIssues,
		Suggestions:           v.Suggestions,

		NeedsResearch:           v.NeedsResearch,
		NeedsCodebaseContext:    v.NeedsCodebaseContext,
		NeedsExternalValidation: v.NeedsExternalValidation,

		Confidence: clamp01(v.Confidence),
	}
}

// fallbackCritique is the deterministic neutral assessment used when the
// model's critique cannot be parsed. The loop must keep running.
func fallbackCritique() *CritiqueResult {
	return &CritiqueResult{
		LogicalCoherence:      0.5,
		AssumptionValidity:    0.5,
		Coverage:              0.5,
		EdgeCaseHandling:      0.5,
		SolutionQuality:       0.5,
		BestPracticeAdherence: 0.5,
		Clarity:               0.5,
		Depth:                 0.5,
		Relevance:             0.5,
		Actionability:         0.5,
		Confidence:            0.3,
		Suggestions:           []string{"retry critique with more context"},
		FromFallback:          true,
	}
}

// IdentifyFlaws returns a short list of the solution's most important flaws.
func (c *Critic) IdentifyFlaws(ctx context.Context, task, solution string) ([]string, error) {
	resp, err := c.llm.Generate(ctx, buildFlawPrompt(task, solution), core.WithTemperature(0.2))
	if err != nil {
		return nil, errors.Wrap(err, errors.GenerationFailed, "flaw identification failed")
	}
	return nonEmptyLines(resp.Content, 5), nil
}

// SuggestImprovements returns concrete improvement suggestions.
func (c *Critic) SuggestImprovements(ctx context.Context, task, solution string) ([]string, error) {
	resp, err := c.llm.Generate(ctx, buildImprovementPrompt(task, solution), core.WithTemperature(0.4))
	if err != nil {
		return nil, errors.Wrap(err, errors.GenerationFailed, "improvement suggestion failed")
	}
	return nonEmptyLines(resp.Content, 5), nil
}

// CompareAlternatives ranks N solution variants best-first and returns their
// indices into the input slice. On an unparsable ranking it returns the
// declaration order.
func (c *Critic) CompareAlternatives(ctx context.Context, task string, solutions []string) ([]int, error) {
	if len(solutions) < 2 {
		return identityOrder(len(solutions)), nil
	}

	resp, err := c.llm.Generate(ctx, buildComparePrompt(task, solutions), core.WithTemperature(0.2))
	if err != nil {
		return nil, errors.Wrap(err, errors.GenerationFailed, "alternative comparison failed")
	}

	type rankingResponse struct {
		Ranking []int `json:"ranking"`
	}
	p := decodeJSON[rankingResponse](resp.Content)
	if !p.OK || len(p.Value.Ranking) != len(solutions) {
		return identityOrder(len(solutions)), nil
	}

	// The prompt numbers candidates from 1; reject out-of-range entries.
	order := make([]int, 0, len(solutions))
	seen := make(map[int]bool)
	for _, n := range p.Value.Ranking {
		idx := n - 1
		if idx < 0 || idx >= len(solutions) || seen[idx] {
			return identityOrder(len(solutions)), nil
		}
		seen[idx] = true
		order = append(order, idx)
	}
	return order, nil
}

func identityOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// DetectCircularReasoning reports whether the last five reasoning steps
// contain an exact text repeat.
func DetectCircularReasoning(steps []Step) bool {
	var reasoning []string
	for _, s := range steps {
		if s.Type == StepReasoning {
			reasoning = append(reasoning, strings.TrimSpace(s.Content))
		}
	}
	if len(reasoning) > 5 {
		reasoning = reasoning[len(reasoning)-5:]
	}

	seen := make(map[string]bool, len(reasoning))
	for _, content := range reasoning {
		if seen[content] {
			return true
		}
		seen[content] = true
	}
	return false
}

// QualityTrend compares the mean of the last three quality samples against
// the mean of everything earlier, with the standard ±0.05 threshold.
func QualityTrend(history []float64) TrendDirection {
	if len(history) < 4 {
		return TrendStable
	}

	recent := history[len(history)-3:]
	earlier := history[:len(history)-3]

	delta := mean(recent) - mean(earlier)
	switch {
	case delta > trendThreshold:
		return TrendImproving
	case delta < -trendThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
