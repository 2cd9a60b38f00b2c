package thinking

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/XiaoConstantine/ruminate/pkg/core"
	"github.com/XiaoConstantine/ruminate/pkg/errors"
	"github.com/XiaoConstantine/ruminate/pkg/logging"
)

// ExplorationResult is the outcome of exploring alternative strategies.
type ExplorationResult struct {
	// Branches are sorted by recommendation score, best first; ties keep
	// declaration order.
	Branches []Branch

	// SynthesizedSolution combines the ranked branches into one solution.
	SynthesizedSolution string

	// RecommendedBranch is the top-ranked branch.
	RecommendedBranch *Branch

	// ComparisonAnalysis is a short narrative comparing the branches.
	ComparisonAnalysis string

	// TokensUsed is the total generation cost of the exploration.
	TokensUsed int
}

// Explorer runs independent strategy branches concurrently and synthesizes
// their results. Branches share only the task description.
type Explorer struct {
	llm         core.LLM
	maxBranches int
}

// NewExplorer creates a branch explorer. maxBranches <= 0 uses the default
// of 3.
func NewExplorer(llm core.LLM, maxBranches int) *Explorer {
	if maxBranches <= 0 {
		maxBranches = 3
	}
	return &Explorer{llm: llm, maxBranches: maxBranches}
}

// tradeoffResponse is the wire shape of the tradeoff-extraction prompt.
type tradeoffResponse struct {
	Pros            []string `json:"pros"`
	Cons            []string `json:"cons"`
	Complexity      string   `json:"complexity"`
	Performance     string   `json:"performance"`
	Maintainability string   `json:"maintainability"`
}

// Explore runs up to maxBranches strategies concurrently, extracts per-branch
// tradeoffs, ranks the branches, and synthesizes a combined solution. A
// provider failure in any branch aborts the exploration; parse failures in
// tradeoff extraction or ranking degrade to neutral defaults.
func (e *Explorer) Explore(ctx context.Context, task string, strategies []Strategy) (*ExplorationResult, error) {
	logger := logging.GetLogger()

	if len(strategies) == 0 {
		return nil, errors.New(errors.InvalidInput, "no strategies to explore")
	}
	if len(strategies) > e.maxBranches {
		strategies = strategies[:e.maxBranches]
	}

	logger.Debug(ctx, "Exploring %d strategy branches", len(strategies))

	branches := make([]Branch, len(strategies))
	var tokens int
	var tokenMu sync.Mutex

	// Fan out one generation per branch. Branches own their step lists and
	// solution text; nothing is shared until the fan-in below.
	p := pool.New().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(e.maxBranches)
	for i, strategy := range strategies {
		idx, strat := i, strategy
		p.Go(func(ctx context.Context) error {
			branch, used, err := e.exploreBranch(ctx, task, strat)
			if err != nil {
				return errors.WithFields(
					errors.Wrap(err, errors.ExplorationFailed, "branch exploration failed"),
					errors.Fields{"strategy": string(strat)})
			}
			branches[idx] = branch
			tokenMu.Lock()
			tokens += used
			tokenMu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	// Fan-in: rank all branches in a single prompt, then synthesize.
	used := e.rankBranches(ctx, task, branches)
	tokens += used

	sort.SliceStable(branches, func(i, j int) bool {
		return scoreOf(branches[i]) > scoreOf(branches[j])
	})

	synthesis, comparison, used, err := e.synthesize(ctx, task, branches)
	if err != nil {
		return nil, err
	}
	tokens += used

	result := &ExplorationResult{
		Branches:            branches,
		SynthesizedSolution: synthesis,
		ComparisonAnalysis:  comparison,
		TokensUsed:          tokens,
	}
	if len(branches) > 0 {
		result.RecommendedBranch = &branches[0]
	}
	return result, nil
}

// exploreBranch generates one branch's solution and its tradeoff record.
func (e *Explorer) exploreBranch(ctx context.Context, task string, strategy Strategy) (Branch, int, error) {
	branch := Branch{
		ID:          uuid.New().String(),
		Strategy:    strategy,
		Description: strategyGuidance[strategy],
	}
	tokens := 0

	resp, err := e.llm.Generate(ctx, buildBranchPrompt(task, strategy), core.WithTemperature(0.8))
	if err != nil {
		return Branch{}, 0, err
	}
	branch.Solution = resp.Content
	tokens += resp.Usage.Total()

	branch.Steps = append(branch.Steps, Step{
		ID:         uuid.New().String(),
		Type:       StepExploration,
		Content:    "explored strategy " + strategyLabel(strategy),
		Confidence: 0.5,
		Tokens:     resp.Usage.Total(),
		CreatedAt:  time.Now(),
		BranchID:   branch.ID,
	})

	// Second, smaller prompt extracts the structured tradeoff record.
	tradeoffResp, err := e.llm.Generate(ctx, buildTradeoffPrompt(branch.Solution), core.WithTemperature(0.2))
	if err != nil {
		return Branch{}, 0, err
	}
	tokens += tradeoffResp.Usage.Total()
	branch.Tradeoffs = parseTradeoffs(tradeoffResp.Content)

	return branch, tokens, nil
}

// parseTradeoffs decodes a tradeoff record, degrading to neutral defaults
// (medium ratings, empty lists) on any parse failure.
func parseTradeoffs(raw string) TradeoffRecord {
	neutral := TradeoffRecord{
		Complexity:      RatingMedium,
		Performance:     RatingMedium,
		Maintainability: RatingMedium,
	}

	p := decodeJSON[tradeoffResponse](raw)
	if !p.OK {
		return neutral
	}
	return TradeoffRecord{
		Pros:            p.Value.Pros,
		Cons:            p.Value.Cons,
		Complexity:      parseRating(p.Value.Complexity),
		Performance:     parseRating(p.Value.Performance),
		Maintainability: parseRating(p.Value.Maintainability),
	}
}

func parseRating(s string) Rating {
	switch Rating(strings.ToLower(strings.TrimSpace(s))) {
	case RatingLow:
		return RatingLow
	case RatingHigh:
		return RatingHigh
	default:
		return RatingMedium
	}
}

// rankBranches asks for one score per branch and writes them in place. An
// unparsable ranking leaves every branch at the neutral 0.5.
func (e *Explorer) rankBranches(ctx context.Context, task string, branches []Branch) int {
	logger := logging.GetLogger()

	neutral := func() {
		for i := range branches {
			s := 0.5
			branches[i].Score = &s
		}
	}

	resp, err := e.llm.Generate(ctx, buildRankingPrompt(task, branches), core.WithTemperature(0.2))
	if err != nil {
		logger.Warn(ctx, "Branch ranking failed, using neutral scores: %v", err)
		neutral()
		return 0
	}

	type rankingResponse struct {
		Scores []float64 `json:"scores"`
	}
	p := decodeJSON[rankingResponse](resp.Content)
	if !p.OK || len(p.Value.Scores) != len(branches) {
		logger.Warn(ctx, "Branch ranking unparsable, using neutral scores")
		neutral()
		return resp.Usage.Total()
	}

	for i := range branches {
		s := clamp01(p.Value.Scores[i])
		branches[i].Score = &s
	}
	return resp.Usage.Total()
}

func scoreOf(b Branch) float64 {
	if b.Score == nil {
		return 0
	}
	return *b.Score
}

// synthesize combines the ranked branches into one solution plus a short
// comparison narrative.
func (e *Explorer) synthesize(ctx context.Context, task string, branches []Branch) (solution, comparison string, tokens int, err error) {
	resp, err := e.llm.Generate(ctx, buildBranchSynthesisPrompt(task, branches), core.WithTemperature(0.5))
	if err != nil {
		return "", "", 0, errors.Wrap(err, errors.GenerationFailed, "branch synthesis failed")
	}

	solution, comparison = splitSynthesis(resp.Content)
	return solution, comparison, resp.Usage.Total(), nil
}

// splitSynthesis separates the SOLUTION and COMPARISON sections; a response
// without the markers is treated as all solution.
func splitSynthesis(raw string) (solution, comparison string) {
	const solMark, cmpMark = "SOLUTION:", "COMPARISON:"

	cmpIdx := strings.LastIndex(raw, cmpMark)
	if cmpIdx == -1 {
		return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), solMark)), ""
	}

	solution = raw[:cmpIdx]
	comparison = strings.TrimSpace(raw[cmpIdx+len(cmpMark):])
	solution = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(solution), solMark))
	return solution, comparison
}
