package chatstate

import "sync"

// Store holds the current State and serializes transitions. The mutex is
// the single-writer guarantee: transitions land strictly in the order
// Apply is called, which is the order the triggering operations resolve.
type Store struct {
	mu       sync.RWMutex
	state    State
	onChange func(State)
}

// NewStore returns a store holding the empty initial state.
func NewStore() *Store {
	return &Store{state: NewState()}
}

// OnChange registers a callback invoked with a snapshot after every
// transition. At most one callback is kept; passing nil clears it.
func (st *Store) OnChange(fn func(State)) {
	st.mu.Lock()
	st.onChange = fn
	st.mu.Unlock()
}

// Apply runs one transition against the current state.
func (st *Store) Apply(transition func(State) State) {
	st.mu.Lock()
	st.state = transition(st.state)
	fn := st.onChange
	var snap State
	if fn != nil {
		snap = st.state.Clone()
	}
	st.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// Snapshot returns a deep copy of the current state.
func (st *Store) Snapshot() State {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.Clone()
}
