package thinking_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/ruminate/internal/testutil"
	"github.com/XiaoConstantine/ruminate/pkg/core"
	"github.com/XiaoConstantine/ruminate/pkg/thinking"
)

// critiqueJSON renders a critique response whose six primary dimensions all
// equal quality. extra is appended inside the object, e.g. a needs_research
// flag.
func critiqueJSON(quality, confidence float64, extra string) string {
	return fmt.Sprintf(`{
		"logical_coherence": %[1]f, "assumption_validity": %[1]f, "coverage": %[1]f,
		"edge_case_handling": %[1]f, "solution_quality": %[1]f, "best_practice_adherence": %[1]f,
		"clarity": 0.8, "depth": 0.8, "relevance": 0.8, "actionability": 0.8,
		"confidence": %[2]f%[3]s
	}`, quality, confidence, extra)
}

func TestThinkStopsWhenQualityMetImmediately(t *testing.T) {
	llm := &testutil.ScriptedLLM{Responses: []*core.LLMResponse{
		testutil.Response("final solution", 100),
		testutil.Response(critiqueJSON(0.95, 0.90, ""), 80),
	}}

	orch := thinking.NewOrchestrator(llm, thinking.DefaultConfig())
	result, err := orch.Think(context.Background(), "solve something")
	require.NoError(t, err)

	assert.Equal(t, thinking.StopQualityMet, result.StoppingReason)
	assert.Equal(t, 1, result.Iterations)
	assert.Equal(t, "final solution", result.Solution)
	assert.InDelta(t, 0.95, result.Quality, 1e-9)
	assert.InDelta(t, 0.90, result.Confidence, 1e-9)
	assert.Equal(t, 180, result.TokensUsed)

	require.NotNil(t, result.Chain)
	assert.Equal(t, 1, result.Chain.CurrentCycle)
	assert.True(t, result.Chain.Completed())
}

func TestThinkStopsOnEarlyConfidence(t *testing.T) {
	llm := &testutil.ScriptedLLM{Responses: []*core.LLMResponse{
		testutil.Response("confident solution", 100),
		testutil.Response(critiqueJSON(0.6, 0.96, ""), 80),
	}}

	orch := thinking.NewOrchestrator(llm, thinking.DefaultConfig())
	result, err := orch.Think(context.Background(), "solve something")
	require.NoError(t, err)

	assert.Equal(t, thinking.StopConfidenceMet, result.StoppingReason)
	assert.Equal(t, 1, result.Iterations)
}

func TestThinkStopsOnDiminishingReturns(t *testing.T) {
	llm := &plateauLLM{qualities: []float64{0.70, 0.74, 0.76, 0.77, 0.775}}

	config := thinking.DefaultConfig()
	config.StalledCycles = 10 // let diminishing returns fire first

	orch := thinking.NewOrchestrator(llm, config)
	result, err := orch.Think(context.Background(), "solve something")
	require.NoError(t, err)

	assert.Equal(t, thinking.StopDiminishingReturns, result.StoppingReason)
	assert.Equal(t, 5, result.Iterations)
	assert.InDelta(t, 0.775, result.Quality, 1e-6)
	assert.Equal(t, 5, result.Chain.CurrentCycle)
}

// plateauLLM walks a fixed per-cycle quality sequence and serves any
// exploration prompts by shape, since the stalling loop branches out on its
// own partway through.
type plateauLLM struct {
	explorerLLM
	qualities []float64
	critiques int
}

func (p *plateauLLM) Generate(ctx context.Context, messages []core.Message, options ...core.GenerateOption) (*core.LLMResponse, error) {
	prompt := messages[len(messages)-1].Content
	switch {
	case strings.Contains(prompt, "Return a JSON object with exactly these fields"):
		q := p.qualities[p.critiques]
		p.critiques++
		return testutil.Response(critiqueJSON(q, 0.5, ""), 10), nil
	case strings.Contains(prompt, "Solve the following task"),
		strings.Contains(prompt, "Produce an improved revision"):
		return testutil.Response("draft solution", 20), nil
	default:
		return p.explorerLLM.Generate(ctx, messages, options...)
	}
}

func TestThinkStopsOnTokenExhaustion(t *testing.T) {
	llm := &testutil.ScriptedLLM{Responses: []*core.LLMResponse{
		testutil.Response("draft", 150),
		testutil.Response(critiqueJSON(0.6, 0.5, ""), 100),
		testutil.Response("revised draft", 150),
		testutil.Response(critiqueJSON(0.62, 0.5, ""), 100),
	}}

	config := thinking.DefaultConfig()
	config.MaxThinkingTokens = 500

	orch := thinking.NewOrchestrator(llm, config)
	result, err := orch.Think(context.Background(), "solve something")
	require.NoError(t, err)

	assert.Equal(t, thinking.StopMaxTokens, result.StoppingReason)
	assert.GreaterOrEqual(t, result.TokensUsed, 500)
	assert.Equal(t, 2, result.Iterations)
}

func TestThinkStallsOnRepeatedFallbackCritiques(t *testing.T) {
	// An unparsable critique degrades to the neutral assessment; with zero
	// improvement each cycle the loop must stop as stalled, not crash.
	llm := &testutil.ScriptedLLM{Responses: []*core.LLMResponse{
		testutil.Response("draft", 20),
		testutil.Response("this critique is prose, not JSON", 10),
	}}

	orch := thinking.NewOrchestrator(llm, thinking.DefaultConfig())
	result, err := orch.Think(context.Background(), "solve something")
	require.NoError(t, err)

	assert.Equal(t, thinking.StopStalled, result.StoppingReason)
	assert.Equal(t, 4, result.Iterations)
	assert.Equal(t, 0.5, result.Quality)

	var sawFallback bool
	for _, step := range result.Chain.Steps {
		if strings.Contains(step.Content, "fallback assessment") {
			sawFallback = true
		}
	}
	assert.True(t, sawFallback)
}

// stallingLLM critiques every candidate identically so the loop never
// improves, and serves the resulting exploration prompts by shape.
type stallingLLM struct {
	explorerLLM
	refinePrompts []string
}

func (s *stallingLLM) Generate(ctx context.Context, messages []core.Message, options ...core.GenerateOption) (*core.LLMResponse, error) {
	prompt := messages[len(messages)-1].Content
	switch {
	case strings.Contains(prompt, "Return a JSON object with exactly these fields"):
		return testutil.Response(critiqueJSON(0.5, 0.5, ""), 10), nil
	case strings.Contains(prompt, "Solve the following task"):
		return testutil.Response("first draft", 20), nil
	case strings.Contains(prompt, "Produce an improved revision"):
		s.refinePrompts = append(s.refinePrompts, prompt)
		return testutil.Response("revised draft", 20), nil
	default:
		return s.explorerLLM.Generate(ctx, messages, options...)
	}
}

func TestThinkExploresAlternativesWhenStalled(t *testing.T) {
	llm := &stallingLLM{}

	orch := thinking.NewOrchestrator(llm, thinking.DefaultConfig())
	result, err := orch.Think(context.Background(), "build a cache")
	require.NoError(t, err)

	assert.Equal(t, thinking.StopStalled, result.StoppingReason)
	assert.Equal(t, 4, result.Iterations)

	// Two stalled cycles trigger one exploration; its branches land on the
	// chain and its cost counts against the same budget as the loop.
	require.NotNil(t, result.Chain)
	assert.Len(t, result.Chain.Branches, 3)
	assert.Equal(t, 4*(20+10)+3*(11+5)+7+9, result.TokensUsed)

	var explorationSteps int
	for _, step := range result.Chain.Steps {
		if step.Type == thinking.StepExploration {
			explorationSteps++
		}
	}
	assert.Equal(t, 3, explorationSteps)

	// The synthesized candidate reaches only the refinement after the stall
	// was detected.
	require.Len(t, llm.refinePrompts, 3)
	assert.NotContains(t, llm.refinePrompts[0], "combined text")
	assert.NotContains(t, llm.refinePrompts[1], "combined text")
	assert.Contains(t, llm.refinePrompts[2], "Newly gathered information")
	assert.Contains(t, llm.refinePrompts[2], "combined text")
}

func TestThinkReturnsResultOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	llm := &testutil.ScriptedLLM{Responses: []*core.LLMResponse{
		testutil.Response("never used", 10),
	}}

	orch := thinking.NewOrchestrator(llm, thinking.DefaultConfig())
	result, err := orch.Think(ctx, "solve something")
	require.NoError(t, err)

	assert.Equal(t, thinking.StopUserCancelled, result.StoppingReason)
	assert.Zero(t, result.Iterations)
	assert.Empty(t, result.Solution)
	assert.Zero(t, llm.Calls)
}

func TestThinkWithConfigOverridesPerInvocation(t *testing.T) {
	script := func() *testutil.ScriptedLLM {
		return &testutil.ScriptedLLM{Responses: []*core.LLMResponse{
			testutil.Response("draft", 20),
			testutil.Response(critiqueJSON(0.6, 0.5, ""), 10),
		}}
	}

	llm := script()
	orch := thinking.NewOrchestrator(llm, thinking.DefaultConfig())

	override := thinking.DefaultConfig()
	override.MaxCycles = 1
	result, err := orch.ThinkWithConfig(context.Background(), "task", override)
	require.NoError(t, err)
	assert.Equal(t, thinking.StopMaxIterations, result.StoppingReason)
	assert.Equal(t, 1, result.Iterations)

	// The orchestrator's own configuration is untouched by the override.
	llm2 := script()
	orch2 := thinking.NewOrchestrator(llm2, thinking.DefaultConfig())
	_, err = orch2.ThinkWithConfig(context.Background(), "task", override)
	require.NoError(t, err)
	result, err = orch2.Think(context.Background(), "task")
	require.NoError(t, err)
	assert.NotEqual(t, 1, result.Iterations)
}

func TestThinkNotifiesObserver(t *testing.T) {
	llm := &testutil.ScriptedLLM{Responses: []*core.LLMResponse{
		testutil.Response("final solution", 100),
		testutil.Response(critiqueJSON(0.95, 0.90, ""), 80),
	}}

	var steps, cycles, decisions int
	observer := thinking.ObserverFuncs{
		Step:             func(thinking.Step) { steps++ },
		CycleComplete:    func(thinking.IterationState) { cycles++ },
		StoppingDecision: func(thinking.StoppingDecision) { decisions++ },
	}

	orch := thinking.NewOrchestrator(llm, thinking.DefaultConfig(), thinking.WithObserver(observer))
	_, err := orch.Think(context.Background(), "solve something")
	require.NoError(t, err)

	assert.Equal(t, 2, steps) // one reasoning, one critique
	assert.Equal(t, 1, cycles)
	assert.Equal(t, 1, decisions)
}

func TestThinkRunsResearchAndFeedsItForward(t *testing.T) {
	search := new(testutil.MockSearch)
	search.On("Search", mock.Anything, mock.Anything).Return([]thinking.SearchResult{
		{Title: "Rate limiter behavior", URL: "https://example.com", Snippet: "rate limiter reset behavior explained"},
	}, nil)

	llm := &testutil.ScriptedLLM{Responses: []*core.LLMResponse{
		testutil.Response("I am not sure about the rate limiter reset behavior. Needs work.", 20),
		testutil.Response(critiqueJSON(0.6, 0.5, `, "needs_research": true`), 10),
		testutil.Response("Rate limiters reset on a fixed window [1].", 15),
		testutil.Response("revised solution", 20),
		testutil.Response(critiqueJSON(0.6, 0.5, ""), 10),
	}}

	config := thinking.DefaultConfig()
	config.MaxCycles = 2

	orch := thinking.NewOrchestrator(llm, config, thinking.WithSearchClient(search))
	result, err := orch.Think(context.Background(), "design a rate limiter")
	require.NoError(t, err)

	assert.Equal(t, thinking.StopMaxIterations, result.StoppingReason)
	assert.Equal(t, 1, result.ResearchPerformed)

	var sawResearch bool
	for _, step := range result.Chain.Steps {
		if step.Type == thinking.StepObservation && strings.Contains(step.Content, "research") {
			sawResearch = true
		}
	}
	assert.True(t, sawResearch)

	// The synthesis must reach the next refinement prompt.
	require.GreaterOrEqual(t, len(llm.Prompts), 4)
	refinePrompt := llm.Prompts[3][len(llm.Prompts[3])-1].Content
	assert.Contains(t, refinePrompt, "Newly gathered information")
	assert.Contains(t, refinePrompt, "Rate limiters reset on a fixed window")
}

func TestThinkRetrievesCodebaseContext(t *testing.T) {
	llm := &testutil.ScriptedLLM{Responses: []*core.LLMResponse{
		testutil.Response("draft", 20),
		testutil.Response(critiqueJSON(0.6, 0.5,
			`, "needs_codebase_context": true, "missing_information": ["token bucket implementation"]`), 10),
	}}

	var gotQuery string
	retriever := func(ctx context.Context, need thinking.ContextNeed) (string, error) {
		gotQuery = need.Query
		return "func TakeToken() bool { ... }", nil
	}

	config := thinking.DefaultConfig()
	config.MaxCycles = 1

	orch := thinking.NewOrchestrator(llm, config, thinking.WithContextRetriever(retriever))
	result, err := orch.Think(context.Background(), "design a rate limiter")
	require.NoError(t, err)

	assert.Equal(t, "token bucket implementation", gotQuery)
	assert.Equal(t, 1, result.ContextRetrievals)

	var sawContext bool
	for _, step := range result.Chain.Steps {
		if strings.Contains(step.Content, "retrieved context") {
			sawContext = true
		}
	}
	assert.True(t, sawContext)
}

func TestThinkVisibility(t *testing.T) {
	long := strings.Repeat("x", 200)
	script := func() *testutil.ScriptedLLM {
		return &testutil.ScriptedLLM{Responses: []*core.LLMResponse{
			testutil.Response(long, 100),
			testutil.Response(critiqueJSON(0.95, 0.90, ""), 80),
		}}
	}

	t.Run("none", func(t *testing.T) {
		config := thinking.DefaultConfig()
		config.ThinkingVisibility = thinking.VisibilityNone

		result, err := thinking.NewOrchestrator(script(), config).Think(context.Background(), "task")
		require.NoError(t, err)
		assert.Nil(t, result.Chain)
	})

	t.Run("summary truncates step content", func(t *testing.T) {
		result, err := thinking.NewOrchestrator(script(), thinking.DefaultConfig()).Think(context.Background(), "task")
		require.NoError(t, err)
		require.NotNil(t, result.Chain)
		for _, step := range result.Chain.Steps {
			assert.LessOrEqual(t, len(step.Content), 160)
		}
	})

	t.Run("full keeps step content", func(t *testing.T) {
		config := thinking.DefaultConfig()
		config.ThinkingVisibility = thinking.VisibilityFull

		result, err := thinking.NewOrchestrator(script(), config).Think(context.Background(), "task")
		require.NoError(t, err)
		require.NotNil(t, result.Chain)
		assert.Equal(t, long, result.Chain.Steps[0].Content)
	})
}

// seededLLM serves both the exploration prompts and the subsequent loop.
type seededLLM struct {
	explorerLLM
	genPrompt string
}

func (s *seededLLM) Generate(ctx context.Context, messages []core.Message, options ...core.GenerateOption) (*core.LLMResponse, error) {
	prompt := messages[len(messages)-1].Content
	switch {
	case strings.Contains(prompt, "Return a JSON object with exactly these fields"):
		return &core.LLMResponse{
			Content: critiqueJSON(0.95, 0.90, ""),
			Usage:   &core.TokenInfo{TotalTokens: 30},
		}, nil
	case strings.Contains(prompt, "Solve the following task"):
		s.genPrompt = prompt
		return &core.LLMResponse{Content: "seeded solution", Usage: &core.TokenInfo{TotalTokens: 40}}, nil
	default:
		return s.explorerLLM.Generate(ctx, messages, options...)
	}
}

func TestThinkWithExploration(t *testing.T) {
	llm := &seededLLM{}

	orch := thinking.NewOrchestrator(llm, thinking.DefaultConfig())
	result, err := orch.ThinkWithExploration(context.Background(), "build a cache", threeStrategies)
	require.NoError(t, err)

	assert.Equal(t, thinking.StopQualityMet, result.StoppingReason)
	assert.Equal(t, "seeded solution", result.Solution)

	// The synthesized branch solution seeds the first generation.
	assert.Contains(t, llm.genPrompt, "combined text")

	require.NotNil(t, result.Chain)
	assert.Len(t, result.Chain.Branches, 3)

	var explorationSteps int
	for _, step := range result.Chain.Steps {
		if step.Type == thinking.StepExploration {
			explorationSteps++
			assert.NotEmpty(t, step.BranchID)
		}
	}
	assert.Equal(t, 3, explorationSteps)

	// Exploration cost counts against the same budget as the loop.
	assert.Equal(t, 3*(11+5)+7+9+40+30, result.TokensUsed)
}
