package watch

import (
	"sync"

	"pgprobe/pkg/types"
)

// Transition describes one observed outcome relative to the previous
// outcome for the same target.
type Transition struct {
	Target      string
	From        types.Status // Empty on the first observation
	To          types.Status
	Changed     bool
	Consecutive int // Rounds in a row with the current status
}

type targetState struct {
	status      types.Status
	consecutive int
}

// Tracker remembers the last status per target so the runner can log
// state changes instead of every round.
type Tracker struct {
	mu     sync.Mutex
	states map[string]*targetState
}

func NewTracker() *Tracker {
	return &Tracker{
		states: make(map[string]*targetState),
	}
}

func (t *Tracker) Observe(target string, status types.Status) Transition {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[target]
	if !ok {
		t.states[target] = &targetState{status: status, consecutive: 1}
		return Transition{Target: target, To: status, Changed: true, Consecutive: 1}
	}

	tr := Transition{Target: target, From: st.status, To: status}
	if st.status == status {
		st.consecutive++
	} else {
		tr.Changed = true
		st.status = status
		st.consecutive = 1
	}
	tr.Consecutive = st.consecutive
	return tr
}

// Current returns the last observed status for a target.
func (t *Tracker) Current(target string) (types.Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[target]
	if !ok {
		return "", false
	}
	return st.status, true
}
