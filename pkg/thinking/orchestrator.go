package thinking

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/XiaoConstantine/ruminate/pkg/core"
	"github.com/XiaoConstantine/ruminate/pkg/errors"
	"github.com/XiaoConstantine/ruminate/pkg/logging"
)

// Phase names the states of the control loop, surfaced for observability.
type Phase string

const (
	PhaseGenerating Phase = "generating"
	PhaseCritiquing Phase = "critiquing"
	PhaseAugmenting Phase = "augmenting"
	PhaseDeciding   Phase = "deciding"
	PhaseStopped    Phase = "stopped"
)

// researchPerCycleCap bounds research queries within a single cycle.
const researchPerCycleCap = 2

// defaultStrategies is the strategy set explored when the loop branches out
// on its own after stalling. Explore caps it at the configured branch limit.
var defaultStrategies = []Strategy{
	StrategyDifferentAlgorithms,
	StrategyDifferentLibraries,
	StrategyDifferentArchitectures,
}

// Orchestrator runs the generate -> critique -> decide loop. The loop is
// strictly sequential; the only concurrency lives inside the Explorer.
type Orchestrator struct {
	llm       core.LLM
	config    Config
	policy    *Policy
	critic    *Critic
	explorer  *Explorer
	augmenter *Augmenter
	retriever ContextRetriever
	observer  Observer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver registers an observer for loop events.
func WithObserver(o Observer) Option {
	return func(orch *Orchestrator) {
		orch.observer = o
	}
}

// WithSearchClient injects the web-search capability used for research
// augmentation. Without one, research advisories are ignored.
func WithSearchClient(s SearchClient) Option {
	return func(orch *Orchestrator) {
		orch.augmenter = NewAugmenter(orch.llm, s)
	}
}

// WithContextRetriever injects the codebase-context capability.
func WithContextRetriever(r ContextRetriever) Option {
	return func(orch *Orchestrator) {
		orch.retriever = r
	}
}

// NewOrchestrator creates the top-level thinking controller.
func NewOrchestrator(llm core.LLM, config Config, opts ...Option) *Orchestrator {
	config.ApplyDefaults()

	orch := &Orchestrator{
		llm:      llm,
		config:   config,
		policy:   NewPolicy(config),
		critic:   NewCritic(llm),
		explorer: NewExplorer(llm, config.MaxBranches),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(orch)
	}
	return orch
}

// Think runs the full refinement loop for a task and returns the result
// bundle. It returns an error only on provider-level failure during
// generation or critique; every other condition degrades and the loop keeps
// running until the stopping policy fires.
func (o *Orchestrator) Think(ctx context.Context, task string) (*Result, error) {
	return o.thinkInternal(ctx, task, nil)
}

// ThinkWithConfig runs one loop invocation under overridden thresholds
// without disturbing the orchestrator's configured defaults.
func (o *Orchestrator) ThinkWithConfig(ctx context.Context, task string, config Config) (*Result, error) {
	config.ApplyDefaults()

	derived := *o
	derived.config = config
	derived.policy = NewPolicy(config)
	derived.explorer = NewExplorer(o.llm, config.MaxBranches)
	return derived.thinkInternal(ctx, task, nil)
}

// ThinkWithExploration first explores the given strategies concurrently,
// seeds the loop with the synthesized solution, and then refines as usual.
func (o *Orchestrator) ThinkWithExploration(ctx context.Context, task string, strategies []Strategy) (*Result, error) {
	exploration, err := o.explorer.Explore(ctx, task, strategies)
	if err != nil {
		return nil, err
	}
	return o.thinkInternal(ctx, task, exploration)
}

func (o *Orchestrator) thinkInternal(ctx context.Context, task string, exploration *ExplorationResult) (*Result, error) {
	logger := logging.GetLogger()

	recorder := NewRecorder(task)
	ctx = logging.WithChainID(ctx, recorder.Chain().ID)

	state := &IterationState{
		Chain:     recorder.Chain(),
		StartedAt: time.Now(),
	}

	var (
		solution     string
		seed         string
		critique     *CritiqueResult
		augmentation string // feeds the next refinement, never a new critique
		contextHints string
	)
	explored := exploration != nil

	if exploration != nil {
		seed = exploration.SynthesizedSolution
		state.TokensUsed += exploration.TokensUsed
		if len(exploration.Branches) > 0 {
			recorder.AttachBranches(exploration.Branches)
			for _, b := range exploration.Branches {
				recorder.ImportSteps(b.Steps)
			}
		}
	}

	logger.Info(ctx, "Starting thinking loop for task (%d chars)", len(task))

	for {
		ctx = logging.WithCycle(ctx, state.Cycle)

		// Caller-side cancellation is a stopping reason, not a failure:
		// the chain so far is still a valid result.
		if ctx.Err() != nil {
			return o.finalize(ctx, recorder, state, solution, cancelledDecision(state)), nil
		}

		// generating
		var err error
		solution, err = o.generateOrRefine(ctx, recorder, state, task, seed, solution, critique, augmentation)
		if err != nil {
			return nil, err
		}
		augmentation = ""

		// critiquing
		critique, err = o.critic.Critique(ctx, task, solution, contextHints, critique)
		if err != nil {
			return nil, err
		}
		state.TokensUsed += critique.Tokens
		o.recordStep(recorder, StepCritique, critiqueSummary(critique), StepOptions{
			Confidence: critique.Confidence,
			Tokens:     critique.Tokens,
		})

		// Update loop state from the critique.
		state.Quality = critique.OverallQuality()
		state.Confidence = critique.Confidence
		state.QualityHistory = append(state.QualityHistory, state.Quality)
		if critique.Improvement != nil {
			state.LastImprovement = *critique.Improvement
			if *critique.Improvement >= o.config.MinImprovement {
				state.CyclesWithoutImprovement = 0
			} else {
				state.CyclesWithoutImprovement++
			}
		}

		// augmenting: gather information for the next refinement.
		if o.policy.ShouldTriggerResearch(state, critique) {
			augmentation += o.runResearch(ctx, recorder, state)
		}
		if o.policy.ShouldRetrieveContext(state, critique) {
			hints := o.retrieveContext(ctx, recorder, state, critique)
			contextHints += hints
			augmentation += hints
		}
		if !explored && o.policy.ShouldEnableParallelThinking(state) {
			explored = true
			augmentation += o.exploreAlternatives(ctx, recorder, state, task)
		}

		// deciding
		state.Cycle = recorder.AdvanceCycle()
		o.observer.OnCycleComplete(*state)
		logger.Debug(ctx, "Cycle %d complete: quality=%.2f confidence=%.2f tokens=%d",
			state.Cycle, state.Quality, state.Confidence, state.TokensUsed)

		decision := o.policy.ShouldContinue(state)
		o.observer.OnStoppingDecision(decision)
		if !decision.ShouldContinue {
			return o.finalize(ctx, recorder, state, solution, decision), nil
		}
	}
}

// generateOrRefine produces the cycle's candidate: a fresh generation when no
// solution exists yet, otherwise a refinement addressing the previous
// critique.
func (o *Orchestrator) generateOrRefine(ctx context.Context, recorder *Recorder, state *IterationState, task, seed, solution string, critique *CritiqueResult, augmentation string) (string, error) {
	var messages []core.Message
	if solution == "" {
		messages = buildGeneratePrompt(task, seed)
	} else {
		messages = buildRefinePrompt(task, solution, critique, augmentation)
	}

	resp, err := o.llm.Generate(ctx, messages, core.WithTemperature(0.7))
	if err != nil {
		return "", errors.Wrap(err, errors.GenerationFailed, "solution generation failed")
	}
	state.TokensUsed += resp.Usage.Total()

	confidence := 0.5
	if critique != nil {
		confidence = critique.Confidence
	}
	o.recordStep(recorder, StepReasoning, resp.Content, StepOptions{
		Confidence: confidence,
		Tokens:     resp.Usage.Total(),
	})

	return resp.Content, nil
}

// runResearch detects uncertainty in recent steps and resolves up to two
// needs this cycle. Outcomes land as observation steps; failures never stop
// the loop.
func (o *Orchestrator) runResearch(ctx context.Context, recorder *Recorder, state *IterationState) string {
	logger := logging.GetLogger()

	if o.augmenter == nil || !o.config.WebSearchEnabled() {
		return ""
	}

	needs := o.augmenter.DetectUncertainty(recorder.RecentSteps(5))
	if len(needs) > researchPerCycleCap {
		needs = needs[:researchPerCycleCap]
	}

	var gathered strings.Builder
	for _, need := range needs {
		if state.ResearchCount >= 3 {
			break
		}
		result, err := o.augmenter.Research(ctx, need)
		if err != nil {
			logger.Warn(ctx, "Research failed: %v", err)
			o.recordStep(recorder, StepObservation, "research failed: "+need.Question, StepOptions{Confidence: 0.1})
			continue
		}
		state.ResearchCount++
		state.TokensUsed += result.Tokens
		o.recordStep(recorder, StepObservation,
			fmt.Sprintf("research %q: %s", need.Question, result.Synthesis),
			StepOptions{Confidence: result.Confidence, Tokens: result.Tokens})
		fmt.Fprintf(&gathered, "\n%s\n", result.Synthesis)
	}
	return gathered.String()
}

// exploreAlternatives branches into the default strategies when refinement
// has stalled with most of the token budget still available. It runs at most
// once per invocation; the synthesized solution feeds the next refinement and
// a failure degrades to an observation step.
func (o *Orchestrator) exploreAlternatives(ctx context.Context, recorder *Recorder, state *IterationState, task string) string {
	logger := logging.GetLogger()

	exploration, err := o.explorer.Explore(ctx, task, defaultStrategies)
	if err != nil {
		logger.Warn(ctx, "Mid-loop exploration failed: %v", err)
		o.recordStep(recorder, StepObservation, "exploration failed: "+err.Error(), StepOptions{Confidence: 0.1})
		return ""
	}
	state.TokensUsed += exploration.TokensUsed
	if len(exploration.Branches) > 0 {
		recorder.AttachBranches(exploration.Branches)
		for _, b := range exploration.Branches {
			recorder.ImportSteps(b.Steps)
		}
	}
	o.recordStep(recorder, StepObservation,
		fmt.Sprintf("explored %d alternative strategies: %s", len(exploration.Branches), exploration.ComparisonAnalysis),
		StepOptions{Confidence: 0.7})
	return "\nA branch exploration synthesized this alternative candidate:\n" + exploration.SynthesizedSolution + "\n"
}

// retrieveContext asks the injected callback for codebase context based on
// what the critique found missing.
func (o *Orchestrator) retrieveContext(ctx context.Context, recorder *Recorder, state *IterationState, critique *CritiqueResult) string {
	logger := logging.GetLogger()

	if o.retriever == nil || !o.config.CodebaseContextEnabled() {
		return ""
	}

	query := strings.Join(critique.MissingInformation, "; ")
	if query == "" {
		query = strings.Join(critique.UncertaintyAreas, "; ")
	}
	if query == "" {
		return ""
	}

	need := ContextNeed{
		Type:     "codebase",
		Query:    query,
		Priority: "high",
	}
	text, err := o.retriever(ctx, need)
	if err != nil {
		logger.Warn(ctx, "Context retrieval failed: %v", err)
		o.recordStep(recorder, StepObservation, "context retrieval failed: "+query, StepOptions{Confidence: 0.1})
		return ""
	}
	state.ContextRetrievals++
	o.recordStep(recorder, StepObservation, "retrieved context: "+text, StepOptions{Confidence: 0.7})
	return "\n" + text + "\n"
}

// recordStep appends a step and notifies the observer. Recording failures
// are impossible for orchestrator-generated steps (no dependencies), so the
// error is dropped after logging.
func (o *Orchestrator) recordStep(recorder *Recorder, stepType StepType, content string, opts StepOptions) {
	step, err := recorder.AddStep(stepType, content, opts)
	if err != nil {
		logging.GetLogger().Warn(context.Background(), "Failed to record %s step: %v", stepType, err)
		return
	}
	o.observer.OnStep(step)
}

func (o *Orchestrator) finalize(ctx context.Context, recorder *Recorder, state *IterationState, solution string, decision StoppingDecision) *Result {
	logger := logging.GetLogger()

	chain := recorder.Complete()
	logger.Info(ctx, "Thinking stopped after %d cycles: %s (%s)",
		state.Cycle, decision.Reason, decision.Explanation)

	return &Result{
		Solution:          solution,
		Quality:           state.Quality,
		Confidence:        state.Confidence,
		Iterations:        state.Cycle,
		TokensUsed:        state.TokensUsed,
		Chain:             exportChain(chain, o.config.ThinkingVisibility),
		StoppingReason:    decision.Reason,
		ResearchPerformed: state.ResearchCount,
		ContextRetrievals: state.ContextRetrievals,
	}
}

func cancelledDecision(state *IterationState) StoppingDecision {
	return StoppingDecision{
		ShouldContinue: false,
		Reason:         StopUserCancelled,
		Metrics: Metrics{
			Cycle:      state.Cycle,
			Quality:    state.Quality,
			Confidence: state.Confidence,
			TokensUsed: state.TokensUsed,
			Elapsed:    time.Since(state.StartedAt),
		},
		Explanation: "caller cancelled the thinking context",
	}
}

// critiqueSummary renders a critique as step content.
func critiqueSummary(c *CritiqueResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "quality %.2f, confidence %.2f", c.OverallQuality(), c.Confidence)
	if len(c.CriticalIssues) > 0 {
		fmt.Fprintf(&b, "; critical: %s", strings.Join(c.CriticalIssues, "; "))
	}
	if c.FromFallback {
		b.WriteString(" (fallback assessment)")
	}
	return b.String()
}

// exportChain applies the configured visibility to the finished chain.
func exportChain(chain *Chain, visibility Visibility) *Chain {
	switch visibility {
	case VisibilityNone:
		return nil
	case VisibilityFull:
		return chain
	default:
		// summary: keep structure and counters, truncate step content.
		cp := *chain
		cp.Steps = make([]Step, len(chain.Steps))
		for i, s := range chain.Steps {
			if len(s.Content) > 160 {
				s.Content = truncateContent(s.Content, 157) + "..."
			}
			cp.Steps[i] = s
		}
		return &cp
	}
}

// truncateContent cuts s to at most n bytes without splitting a rune.
func truncateContent(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
