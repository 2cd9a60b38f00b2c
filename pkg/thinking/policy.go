package thinking

import (
	"fmt"
	"time"
)

// Policy decides, after each completed cycle, whether the loop continues.
// It is a pure function of the accumulated iteration state; it performs no
// calls and holds no mutable state of its own.
type Policy struct {
	config Config
}

// NewPolicy creates a stopping policy for the given configuration.
func NewPolicy(config Config) *Policy {
	config.ApplyDefaults()
	return &Policy{config: config}
}

// ShouldContinue evaluates the stopping conditions in fixed priority order;
// the first matching condition wins. Budget exhaustion always outranks
// quality, so a loop that is both out of tokens and above threshold reports
// max_tokens.
func (p *Policy) ShouldContinue(state *IterationState) StoppingDecision {
	metrics := Metrics{
		Cycle:      state.Cycle,
		Quality:    state.Quality,
		Confidence: state.Confidence,
		TokensUsed: state.TokensUsed,
		Elapsed:    time.Since(state.StartedAt),
	}

	stop := func(reason StopReason, explanation string) StoppingDecision {
		return StoppingDecision{
			ShouldContinue: false,
			Reason:         reason,
			Metrics:        metrics,
			Explanation:    explanation,
		}
	}

	// 1. Token budget.
	if state.TokensUsed >= p.config.MaxThinkingTokens {
		return stop(StopMaxTokens,
			fmt.Sprintf("token budget exhausted: %d >= %d", state.TokensUsed, p.config.MaxThinkingTokens))
	}

	// 2. Cycle budget.
	if state.Cycle >= p.config.MaxCycles {
		return stop(StopMaxIterations,
			fmt.Sprintf("cycle budget exhausted: %d >= %d", state.Cycle, p.config.MaxCycles))
	}

	// 3. Wall clock.
	if metrics.Elapsed >= p.config.MaxDuration {
		return stop(StopTimeout,
			fmt.Sprintf("wall-clock budget exhausted after %s", metrics.Elapsed.Round(time.Millisecond)))
	}

	// 4. Very high self-reported confidence is informative on its own, even
	// with mediocre quality.
	if state.Confidence >= p.config.EarlyStopConfidence {
		return stop(StopConfidenceMet,
			fmt.Sprintf("confidence %.2f >= early-stop threshold %.2f", state.Confidence, p.config.EarlyStopConfidence))
	}

	// 5. Quality and confidence both above threshold.
	if state.Quality >= p.config.MinQuality && state.Confidence >= p.config.MinConfidence {
		return stop(StopQualityMet,
			fmt.Sprintf("quality %.2f and confidence %.2f meet thresholds %.2f/%.2f",
				state.Quality, state.Confidence, p.config.MinQuality, p.config.MinConfidence))
	}

	// 6. Stalled.
	if state.CyclesWithoutImprovement >= p.config.StalledCycles {
		return stop(StopStalled,
			fmt.Sprintf("%d consecutive cycles with improvement < %.2f",
				state.CyclesWithoutImprovement, p.config.MinImprovement))
	}

	// 7. Diminishing returns over the last five quality samples.
	if diminishing, avgDelta := p.diminishingReturns(state.QualityHistory); diminishing {
		return stop(StopDiminishingReturns,
			fmt.Sprintf("mean quality delta %.4f below %.4f over last 5 cycles",
				avgDelta, p.config.MinImprovement/2))
	}

	return StoppingDecision{
		ShouldContinue: true,
		Metrics:        metrics,
		Explanation:    "no stopping condition met",
	}
}

// diminishingReturns reports whether the mean delta between consecutive
// samples of the last five quality readings has dropped below half of the
// improvement threshold.
func (p *Policy) diminishingReturns(history []float64) (bool, float64) {
	if len(history) < 5 {
		return false, 0
	}

	recent := history[len(history)-5:]
	var sum float64
	for i := 1; i < len(recent); i++ {
		sum += recent[i] - recent[i-1]
	}
	avgDelta := sum / float64(len(recent)-1)
	return avgDelta < p.config.MinImprovement/2, avgDelta
}

// ShouldEnableParallelThinking advises the orchestrator to branch out when
// refinement is stuck, quality is mediocre, and most of the token budget is
// still available.
func (p *Policy) ShouldEnableParallelThinking(state *IterationState) bool {
	return state.CyclesWithoutImprovement >= 2 &&
		state.Quality < 0.85 &&
		float64(state.TokensUsed) < 0.6*float64(p.config.MaxThinkingTokens)
}

// ShouldTriggerResearch advises research when the critique flagged it, the
// per-call research cap is not reached, and budget remains.
func (p *Policy) ShouldTriggerResearch(state *IterationState, critique *CritiqueResult) bool {
	return critique != nil && critique.NeedsResearch &&
		state.ResearchCount < 3 &&
		float64(state.TokensUsed) < 0.8*float64(p.config.MaxThinkingTokens)
}

// ShouldRetrieveContext advises codebase-context retrieval, capped at two
// retrievals per call.
func (p *Policy) ShouldRetrieveContext(state *IterationState, critique *CritiqueResult) bool {
	return critique != nil && critique.NeedsCodebaseContext &&
		state.ContextRetrievals < 2 &&
		float64(state.TokensUsed) < 0.8*float64(p.config.MaxThinkingTokens)
}
