package thinking_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/ruminate/internal/testutil"
	"github.com/XiaoConstantine/ruminate/pkg/thinking"
)

func TestCritiqueParsesScores(t *testing.T) {
	mockLLM := new(testutil.MockLLM)
	mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(testutil.Response(`{
		"logical_coherence": 0.9, "assumption_validity": 0.8, "coverage": 0.7,
		"edge_case_handling": 0.6, "solution_quality": 0.8, "best_practice_adherence": 0.8,
		"clarity": 0.9, "depth": 0.7, "relevance": 0.9, "actionability": 0.8,
		"critical_issues": ["no error handling"],
		"needs_research": true,
		"confidence": 0.75
	}`, 120), nil)

	critic := thinking.NewCritic(mockLLM)
	result, err := critic.Critique(context.Background(), "task", "solution", "", nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.7667, result.OverallQuality(), 0.001)
	assert.Equal(t, 0.75, result.Confidence)
	assert.Equal(t, []string{"no error handling"}, result.CriticalIssues)
	assert.True(t, result.NeedsResearch)
	assert.False(t, result.FromFallback)
	assert.Nil(t, result.Improvement)
	assert.Equal(t, 120, result.Tokens)
	mockLLM.AssertExpectations(t)
}

func TestCritiqueFallbackOnUnparsableResponse(t *testing.T) {
	mockLLM := new(testutil.MockLLM)
	mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(testutil.Response("I think the solution is pretty good overall.", 40), nil)

	critic := thinking.NewCritic(mockLLM)
	result, err := critic.Critique(context.Background(), "task", "solution", "", nil)
	require.NoError(t, err)

	assert.True(t, result.FromFallback)
	assert.Equal(t, 0.5, result.OverallQuality())
	assert.Equal(t, 0.3, result.Confidence)
	assert.NotEmpty(t, result.Suggestions)
}

func TestCritiqueClampsOutOfRangeScores(t *testing.T) {
	mockLLM := new(testutil.MockLLM)
	mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(testutil.Response(`{
		"logical_coherence": 1.4, "assumption_validity": -0.2, "coverage": 0.5,
		"edge_case_handling": 0.5, "solution_quality": 0.5, "best_practice_adherence": 0.5,
		"clarity": 2.0, "depth": 0.5, "relevance": 0.5, "actionability": 0.5,
		"confidence": 1.3
	}`, 50), nil)

	critic := thinking.NewCritic(mockLLM)
	result, err := critic.Critique(context.Background(), "task", "solution", "", nil)
	require.NoError(t, err)

	assert.Equal(t, 1.0, result.LogicalCoherence)
	assert.Equal(t, 0.0, result.AssumptionValidity)
	assert.Equal(t, 1.0, result.Clarity)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestCritiqueComputesImprovement(t *testing.T) {
	mockLLM := new(testutil.MockLLM)
	mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(testutil.Response(`{
		"logical_coherence": 0.8, "assumption_validity": 0.8, "coverage": 0.8,
		"edge_case_handling": 0.8, "solution_quality": 0.8, "best_practice_adherence": 0.8,
		"confidence": 0.7
	}`, 60), nil)

	previous := &thinking.CritiqueResult{
		LogicalCoherence: 0.6, AssumptionValidity: 0.6, Coverage: 0.6,
		EdgeCaseHandling: 0.6, SolutionQuality: 0.6, BestPracticeAdherence: 0.6,
	}

	critic := thinking.NewCritic(mockLLM)
	result, err := critic.Critique(context.Background(), "task", "solution", "", previous)
	require.NoError(t, err)

	require.NotNil(t, result.Improvement)
	assert.InDelta(t, 0.2, *result.Improvement, 1e-9)
}

func TestCritiquePropagatesProviderError(t *testing.T) {
	mockLLM := new(testutil.MockLLM)
	mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("provider down"))

	critic := thinking.NewCritic(mockLLM)
	_, err := critic.Critique(context.Background(), "task", "solution", "", nil)
	assert.Error(t, err)
}

func TestCompareAlternatives(t *testing.T) {
	solutions := []string{"solution a", "solution b", "solution c"}

	t.Run("valid ranking", func(t *testing.T) {
		mockLLM := new(testutil.MockLLM)
		mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
			Return(testutil.Response(`{"ranking": [2, 3, 1]}`, 20), nil)

		critic := thinking.NewCritic(mockLLM)
		order, err := critic.CompareAlternatives(context.Background(), "task", solutions)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 0}, order)
	})

	t.Run("wrong length falls back to declaration order", func(t *testing.T) {
		mockLLM := new(testutil.MockLLM)
		mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
			Return(testutil.Response(`{"ranking": [2, 1]}`, 20), nil)

		critic := thinking.NewCritic(mockLLM)
		order, err := critic.CompareAlternatives(context.Background(), "task", solutions)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2}, order)
	})

	t.Run("out-of-range entry falls back", func(t *testing.T) {
		mockLLM := new(testutil.MockLLM)
		mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
			Return(testutil.Response(`{"ranking": [2, 5, 1]}`, 20), nil)

		critic := thinking.NewCritic(mockLLM)
		order, err := critic.CompareAlternatives(context.Background(), "task", solutions)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2}, order)
	})

	t.Run("single solution needs no provider call", func(t *testing.T) {
		critic := thinking.NewCritic(new(testutil.MockLLM))
		order, err := critic.CompareAlternatives(context.Background(), "task", []string{"only"})
		require.NoError(t, err)
		assert.Equal(t, []int{0}, order)
	})
}

func TestIdentifyFlaws(t *testing.T) {
	mockLLM := new(testutil.MockLLM)
	mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(testutil.Response("1. races on shutdown\n2. ignores context\n", 30), nil)

	critic := thinking.NewCritic(mockLLM)
	flaws, err := critic.IdentifyFlaws(context.Background(), "task", "solution")
	require.NoError(t, err)
	assert.Equal(t, []string{"races on shutdown", "ignores context"}, flaws)
}

func TestDetectCircularReasoning(t *testing.T) {
	steps := []thinking.Step{
		{Type: thinking.StepReasoning, Content: "try a mutex"},
		{Type: thinking.StepCritique, Content: "try a mutex"}, // non-reasoning repeats don't count
		{Type: thinking.StepReasoning, Content: "try a channel"},
	}
	assert.False(t, thinking.DetectCircularReasoning(steps))

	steps = append(steps, thinking.Step{Type: thinking.StepReasoning, Content: "try a mutex"})
	assert.True(t, thinking.DetectCircularReasoning(steps))
}

func TestDetectCircularReasoningWindow(t *testing.T) {
	// A repeat outside the five-step window is forgotten.
	steps := []thinking.Step{{Type: thinking.StepReasoning, Content: "old idea"}}
	for i := 0; i < 5; i++ {
		steps = append(steps, thinking.Step{Type: thinking.StepReasoning, Content: string(rune('a' + i))})
	}
	steps = append(steps, thinking.Step{Type: thinking.StepReasoning, Content: "old idea"})

	// "old idea" appears twice, but only the trailing five steps count and
	// the first occurrence is no longer among them.
	assert.False(t, thinking.DetectCircularReasoning(steps))
}

func TestQualityTrend(t *testing.T) {
	assert.Equal(t, thinking.TrendStable, thinking.QualityTrend([]float64{0.5, 0.9, 0.9}))
	assert.Equal(t, thinking.TrendImproving, thinking.QualityTrend([]float64{0.5, 0.5, 0.8, 0.8, 0.8}))
	assert.Equal(t, thinking.TrendDeclining, thinking.QualityTrend([]float64{0.8, 0.8, 0.5, 0.5, 0.5}))
	assert.Equal(t, thinking.TrendStable, thinking.QualityTrend([]float64{0.7, 0.7, 0.71, 0.7, 0.7}))
}
