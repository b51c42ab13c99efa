package mutation

import "sync"

// State is a step of one mutation attempt.
type State int

const (
	Idle State = iota
	Validating
	InFlight
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case InFlight:
		return "in_flight"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Attempt records the states one mutation went through.
type Attempt struct {
	Name string
	Key  string

	mu     sync.Mutex
	states []State
}

func newAttempt(name, key string) *Attempt {
	return &Attempt{Name: name, Key: key, states: []State{Idle}}
}

func (a *Attempt) set(s State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.states = append(a.states, s)
}

// State returns the current state.
func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.states[len(a.states)-1]
}

// States returns every state in the order they were entered.
func (a *Attempt) States() []State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]State(nil), a.states...)
}

// Busy is true only while the backend call is pending.
func (a *Attempt) Busy() bool { return a.State() == InFlight }
