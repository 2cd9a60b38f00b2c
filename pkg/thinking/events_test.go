package thinking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObserverFuncsIgnoresNilCallbacks(t *testing.T) {
	var o ObserverFuncs

	// None of these may panic.
	o.OnStep(Step{})
	o.OnCycleComplete(IterationState{})
	o.OnStoppingDecision(StoppingDecision{})
}

func TestMultiObserverFansOut(t *testing.T) {
	counts := make([]int, 2)
	multi := MultiObserver{
		ObserverFuncs{Step: func(Step) { counts[0]++ }},
		ObserverFuncs{Step: func(Step) { counts[1]++ }},
	}

	multi.OnStep(Step{})
	multi.OnStep(Step{})
	multi.OnCycleComplete(IterationState{})
	multi.OnStoppingDecision(StoppingDecision{})

	assert.Equal(t, []int{2, 2}, counts)
}
