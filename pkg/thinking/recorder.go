package thinking

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/XiaoConstantine/ruminate/pkg/errors"
)

// TrendDirection classifies how confidence or quality is evolving.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
)

// trendThreshold is the minimum mean shift treated as a real trend.
const trendThreshold = 0.05

// Recorder owns a chain and is the only component allowed to mutate it.
// All methods are safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	chain *Chain
	index map[string]int // step id -> position in chain.Steps
}

// StepOptions carries the optional attributes of a recorded step.
type StepOptions struct {
	Confidence float64
	Tokens     int
	DependsOn  []string
	BranchID   string
}

// NewRecorder starts a new chain for the given task.
func NewRecorder(task string) *Recorder {
	return &Recorder{
		chain: &Chain{
			ID:        uuid.New().String(),
			Task:      task,
			Steps:     make([]Step, 0),
			StartedAt: time.Now(),
		},
		index: make(map[string]int),
	}
}

// AddStep appends a step, computing its depth from its declared dependencies.
// It fails if any dependency id is not already present; dependency cycles are
// impossible through this path since a step can only reference earlier steps.
func (r *Recorder) AddStep(stepType StepType, content string, opts StepOptions) (Step, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.chain.Completed() {
		return Step{}, errors.New(errors.InvalidInput, "chain already completed")
	}

	depth := 0
	for _, dep := range opts.DependsOn {
		pos, ok := r.index[dep]
		if !ok {
			return Step{}, errors.WithFields(
				errors.New(errors.InvalidInput, "unknown dependency"),
				errors.Fields{"dependency_id": dep})
		}
		if d := r.chain.Steps[pos].Depth + 1; d > depth {
			depth = d
		}
	}

	step := Step{
		ID:         uuid.New().String(),
		Cycle:      r.chain.CurrentCycle,
		Type:       stepType,
		Content:    content,
		Confidence: clamp01(opts.Confidence),
		Tokens:     opts.Tokens,
		DependsOn:  append([]string(nil), opts.DependsOn...),
		Depth:      depth,
		CreatedAt:  time.Now(),
		BranchID:   opts.BranchID,
	}

	r.index[step.ID] = len(r.chain.Steps)
	r.chain.Steps = append(r.chain.Steps, step)
	r.chain.TotalTokens += step.Tokens
	if depth > r.chain.MaxDepth {
		r.chain.MaxDepth = depth
	}

	return step, nil
}

// HasCircularDependency reports whether the dependency graph reachable from
// the given step contains a back-edge. Insertion never produces one, but
// imported or hand-built chains can; corrupt input should be observable, not
// silently dropped, so this is a diagnostic rather than an insertion gate.
func (r *Recorder) HasCircularDependency(stepID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var visit func(id string) bool
	visit = func(id string) bool {
		if onStack[id] {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		onStack[id] = true

		if pos, ok := r.index[id]; ok {
			for _, dep := range r.chain.Steps[pos].DependsOn {
				if visit(dep) {
					return true
				}
			}
		}

		onStack[id] = false
		return false
	}

	return visit(stepID)
}

// ImportSteps grafts externally produced steps (e.g. branch exploration
// output) onto the chain without recomputing depth. Unknown dependency ids
// are tolerated here; HasCircularDependency remains available to audit the
// result.
func (r *Recorder) ImportSteps(steps []Step) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, step := range steps {
		if _, exists := r.index[step.ID]; exists {
			continue
		}
		r.index[step.ID] = len(r.chain.Steps)
		r.chain.Steps = append(r.chain.Steps, step)
		r.chain.TotalTokens += step.Tokens
		if step.Depth > r.chain.MaxDepth {
			r.chain.MaxDepth = step.Depth
		}
	}
}

// AdvanceCycle moves the chain to the next control-loop cycle.
func (r *Recorder) AdvanceCycle() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chain.CurrentCycle++
	return r.chain.CurrentCycle
}

// AttachBranches records explored branches on the chain.
func (r *Recorder) AttachBranches(branches []Branch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chain.Branches = append(r.chain.Branches, branches...)
}

// Complete finalizes the chain and returns it. Further mutation fails.
func (r *Recorder) Complete() *Chain {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.chain.Completed() {
		r.chain.CompletedAt = time.Now()
	}
	return r.chain
}

// Chain returns the live chain. Callers must treat it as read-only until
// Complete has been called.
func (r *Recorder) Chain() *Chain {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chain
}

// Snapshot returns a deep copy of the chain safe to hand to callers.
func (r *Recorder) Snapshot() *Chain {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *r.chain
	cp.Steps = append([]Step(nil), r.chain.Steps...)
	cp.Branches = append([]Branch(nil), r.chain.Branches...)
	return &cp
}

// StepsByType returns all steps with the given type, in insertion order.
func (r *Recorder) StepsByType(stepType StepType) []Step {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Step
	for _, s := range r.chain.Steps {
		if s.Type == stepType {
			out = append(out, s)
		}
	}
	return out
}

// StepsForCycle returns all steps recorded during the given cycle.
func (r *Recorder) StepsForCycle(cycle int) []Step {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Step
	for _, s := range r.chain.Steps {
		if s.Cycle == cycle {
			out = append(out, s)
		}
	}
	return out
}

// RecentSteps returns the last n steps in insertion order.
func (r *Recorder) RecentSteps(n int) []Step {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 0 || len(r.chain.Steps) == 0 {
		return nil
	}
	if n > len(r.chain.Steps) {
		n = len(r.chain.Steps)
	}
	return append([]Step(nil), r.chain.Steps[len(r.chain.Steps)-n:]...)
}

// AverageConfidence returns the mean confidence across all steps, 0 when the
// chain is empty.
func (r *Recorder) AverageConfidence() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.chain.Steps) == 0 {
		return 0
	}
	var sum float64
	for _, s := range r.chain.Steps {
		sum += s.Confidence
	}
	return sum / float64(len(r.chain.Steps))
}

// ConfidenceTrend compares the mean confidence of the last three cycles
// against the mean of everything before them.
func (r *Recorder) ConfidenceTrend() TrendDirection {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.chain.CurrentCycle - 3
	var recentSum, priorSum float64
	var recentN, priorN int
	for _, s := range r.chain.Steps {
		if s.Cycle > cutoff {
			recentSum += s.Confidence
			recentN++
		} else {
			priorSum += s.Confidence
			priorN++
		}
	}
	if recentN == 0 || priorN == 0 {
		return TrendStable
	}

	delta := recentSum/float64(recentN) - priorSum/float64(priorN)
	switch {
	case delta > trendThreshold:
		return TrendImproving
	case delta < -trendThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}
