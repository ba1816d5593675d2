package session

import (
	"context"
	"sync"
)

// Memory is the default in-process state store. Abandoned sessions are kept
// indefinitely, matching the historical behavior; use Redis with a TTL if
// eviction is wanted.
type Memory struct {
	mu     sync.Mutex
	states map[int64]State
}

// NewMemory creates an empty in-memory state store.
func NewMemory() *Memory {
	return &Memory{states: make(map[int64]State)}
}

// Get returns the user's state, or an idle state when none exists.
func (m *Memory) Get(ctx context.Context, userID int64) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[userID]
	if !ok {
		return State{Step: StepIdle}, nil
	}
	return copyState(st), nil
}

// Put stores the user's state.
func (m *Memory) Put(ctx context.Context, userID int64, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[userID] = copyState(state)
	return nil
}

// Clear resets the user to idle.
func (m *Memory) Clear(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, userID)
	return nil
}

// copyState detaches the scratch map so callers cannot mutate stored state.
func copyState(st State) State {
	if st.Data == nil {
		return st
	}
	data := make(map[string]string, len(st.Data))
	for k, v := range st.Data {
		data[k] = v
	}
	st.Data = data
	return st
}
