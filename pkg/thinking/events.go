package thinking

// Observer receives real-time notifications from the thinking loop. It is
// registered at orchestrator construction, so tests can subscribe without
// patching globals. Callbacks run synchronously on the loop goroutine and
// must return quickly.
type Observer interface {
	OnStep(step Step)
	OnCycleComplete(state IterationState)
	OnStoppingDecision(decision StoppingDecision)
}

// ObserverFuncs adapts plain functions to the Observer interface; nil fields
// are ignored.
type ObserverFuncs struct {
	Step             func(Step)
	CycleComplete    func(IterationState)
	StoppingDecision func(StoppingDecision)
}

func (o ObserverFuncs) OnStep(step Step) {
	if o.Step != nil {
		o.Step(step)
	}
}

func (o ObserverFuncs) OnCycleComplete(state IterationState) {
	if o.CycleComplete != nil {
		o.CycleComplete(state)
	}
}

func (o ObserverFuncs) OnStoppingDecision(decision StoppingDecision) {
	if o.StoppingDecision != nil {
		o.StoppingDecision(decision)
	}
}

// MultiObserver fans notifications out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) OnStep(step Step) {
	for _, o := range m {
		o.OnStep(step)
	}
}

func (m MultiObserver) OnCycleComplete(state IterationState) {
	for _, o := range m {
		o.OnCycleComplete(state)
	}
}

func (m MultiObserver) OnStoppingDecision(decision StoppingDecision) {
	for _, o := range m {
		o.OnStoppingDecision(decision)
	}
}

// nopObserver is the default when no observer is registered.
type nopObserver struct{}

func (nopObserver) OnStep(Step)                         {}
func (nopObserver) OnCycleComplete(IterationState)      {}
func (nopObserver) OnStoppingDecision(StoppingDecision) {}
