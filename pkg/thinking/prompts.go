package thinking

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/XiaoConstantine/ruminate/pkg/core"
)

var titleCaser = cases.Title(language.English)

// strategyGuidance maps each exploration strategy to its canned guidance.
var strategyGuidance = map[Strategy]string{
	StrategyDifferentAlgorithms:    "Explore a fundamentally different algorithm or computational approach than the obvious one.",
	StrategyDifferentLibraries:     "Solve the task using a different library, framework, or ecosystem than the default choice.",
	StrategyDifferentArchitectures: "Restructure the solution around a different architecture (e.g. event-driven vs. layered, monolith vs. pipeline).",
	StrategyOptimisticVsCautious:   "Take either an optimistic best-case design or a cautious defensive design, and commit to it fully.",
	StrategySimpleVsComplex:        "Prefer the simplest thing that could possibly work, or a deliberately thorough solution; pick one extreme.",
}

// strategyLabel renders a strategy tag as a human-readable title.
func strategyLabel(s Strategy) string {
	return titleCaser.String(strings.ReplaceAll(string(s), "_", " "))
}

const critiqueSystemPrompt = `You are a rigorous reviewer. Assess the candidate solution honestly;
inflated scores make the refinement loop useless. Respond ONLY with a JSON object.`

// buildCritiquePrompt embeds the task, candidate, optional hints, and the
// previous critique into a single structured request.
func buildCritiquePrompt(task, solution, hints string, previous *CritiqueResult) []core.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Task:\n%s\n\nCandidate solution:\n%s\n", task, solution)
	if hints != "" {
		fmt.Fprintf(&b, "\nAdditional context:\n%s\n", hints)
	}
	if previous != nil {
		fmt.Fprintf(&b, "\nPrevious critique scored overall quality %.2f.", previous.OverallQuality())
		if len(previous.CriticalIssues) > 0 {
			fmt.Fprintf(&b, " Previously flagged critical issues:\n- %s\n",
				strings.Join(previous.CriticalIssues, "\n- "))
		}
	}
	b.WriteString(`
Return a JSON object with exactly these fields, all scores in [0,1]:
{
  "logical_coherence": 0.0, "assumption_validity": 0.0, "coverage": 0.0,
  "edge_case_handling": 0.0, "solution_quality": 0.0, "best_practice_adherence": 0.0,
  "clarity": 0.0, "depth": 0.0, "relevance": 0.0, "actionability": 0.0,
  "uncertainty_areas": [], "missing_information": [], "alternative_approaches": [],
  "critical_issues": [], "suggestions": [],
  "needs_research": false, "needs_codebase_context": false, "needs_external_validation": false,
  "confidence": 0.0
}`)

	return []core.Message{
		{Role: core.RoleSystem, Content: critiqueSystemPrompt},
		{Role: core.RoleUser, Content: b.String()},
	}
}

// buildGeneratePrompt produces the initial-solution request, optionally
// seeded with a branch-synthesized draft.
func buildGeneratePrompt(task, seed string) []core.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Solve the following task. Give a complete, concrete solution.\n\nTask:\n%s\n", task)
	if seed != "" {
		fmt.Fprintf(&b, "\nA prior exploration produced this draft; build on it where it helps:\n%s\n", seed)
	}
	return core.UserMessage(b.String())
}

// buildRefinePrompt asks for a revision addressing the previous critique's
// critical issues and suggestions.
func buildRefinePrompt(task, solution string, critique *CritiqueResult, augmentation string) []core.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Task:\n%s\n\nCurrent solution:\n%s\n", task, solution)
	if critique != nil {
		if len(critique.CriticalIssues) > 0 {
			fmt.Fprintf(&b, "\nCritical issues to fix:\n- %s\n", strings.Join(critique.CriticalIssues, "\n- "))
		}
		if len(critique.Suggestions) > 0 {
			fmt.Fprintf(&b, "\nSuggestions:\n- %s\n", strings.Join(critique.Suggestions, "\n- "))
		}
	}
	if augmentation != "" {
		fmt.Fprintf(&b, "\nNewly gathered information:\n%s\n", augmentation)
	}
	b.WriteString("\nProduce an improved revision of the solution. Output only the revised solution.")
	return core.UserMessage(b.String())
}

// buildBranchPrompt generates one branch's solution under its strategy.
func buildBranchPrompt(task string, strategy Strategy) []core.Message {
	return core.UserMessage(fmt.Sprintf(
		"Task:\n%s\n\nStrategy: %s\n%s\n\nProduce a complete solution following this strategy.",
		task, strategyLabel(strategy), strategyGuidance[strategy]))
}

// buildTradeoffPrompt extracts a structured tradeoff record from a branch
// solution.
func buildTradeoffPrompt(solution string) []core.Message {
	return core.UserMessage(fmt.Sprintf(
		`Analyze the tradeoffs of this solution:

%s

Return ONLY a JSON object:
{"pros": [], "cons": [], "complexity": "low|medium|high", "performance": "low|medium|high", "maintainability": "low|medium|high"}`,
		solution))
}

// buildRankingPrompt scores all branches in one request.
func buildRankingPrompt(task string, branches []Branch) []core.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Task:\n%s\n\nScore each candidate branch 0-1 for suitability.\n", task)
	for i, br := range branches {
		fmt.Fprintf(&b, "\nBranch %d (%s, id %s):\n%s\nPros: %s\nCons: %s\n",
			i+1, strategyLabel(br.Strategy), br.ID, br.Solution,
			strings.Join(br.Tradeoffs.Pros, "; "), strings.Join(br.Tradeoffs.Cons, "; "))
	}
	b.WriteString("\nReturn ONLY a JSON object: {\"scores\": [0.0, ...]} with one score per branch in order.")
	return core.UserMessage(b.String())
}

// buildBranchSynthesisPrompt combines ranked branches into one solution.
func buildBranchSynthesisPrompt(task string, branches []Branch) []core.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Task:\n%s\n\nRanked candidate solutions, best first:\n", task)
	for i, br := range branches {
		score := 0.0
		if br.Score != nil {
			score = *br.Score
		}
		fmt.Fprintf(&b, "\n%d. %s (score %.2f):\n%s\n", i+1, strategyLabel(br.Strategy), score, br.Solution)
	}
	b.WriteString(`
Synthesize one combined solution that takes the best of each branch, then a
short comparison of the branches. Format:

SOLUTION:
<combined solution>

COMPARISON:
<2-4 sentence comparison>`)
	return core.UserMessage(b.String())
}

// buildResearchSynthesisPrompt turns ranked search results into a short
// sourced answer.
func buildResearchSynthesisPrompt(question string, results []SearchResult) []core.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nSearch results:\n", question)
	for i, res := range results {
		fmt.Fprintf(&b, "\n[%d] %s (%s)\n%s\n", i+1, res.Title, res.URL, res.Snippet)
	}
	b.WriteString("\nSynthesize a 2-3 paragraph answer to the question, citing sources as [n].")
	return core.UserMessage(b.String())
}

// buildFlawPrompt asks for a short flaw list.
func buildFlawPrompt(task, solution string) []core.Message {
	return core.UserMessage(fmt.Sprintf(
		"Task:\n%s\n\nSolution:\n%s\n\nList the most important flaws, one per line, at most five lines. No preamble.",
		task, solution))
}

// buildImprovementPrompt asks for concrete improvement suggestions.
func buildImprovementPrompt(task, solution string) []core.Message {
	return core.UserMessage(fmt.Sprintf(
		"Task:\n%s\n\nSolution:\n%s\n\nSuggest concrete improvements, one per line, at most five lines. No preamble.",
		task, solution))
}

// buildComparePrompt ranks N solution variants.
func buildComparePrompt(task string, solutions []string) []core.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Task:\n%s\n\nCandidate solutions:\n", task)
	for i, s := range solutions {
		fmt.Fprintf(&b, "\n--- Candidate %d ---\n%s\n", i+1, s)
	}
	b.WriteString("\nReturn ONLY a JSON object {\"ranking\": [..]} listing candidate numbers from best to worst.")
	return core.UserMessage(b.String())
}
