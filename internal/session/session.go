// Package session holds per-user conversation state: the current flow step
// plus the scratch fields accumulated so far. State is owned by exactly one
// user and is never authoritative once an order exists.
package session

import "context"

// Step identifies where a user currently is in a flow.
type Step string

// Flow steps. At most one flow is active per user; the step disambiguates
// which scratch fields are meaningful.
const (
	StepIdle Step = "idle"

	StepOrderNumber  Step = "order:awaiting_number"
	StepOrderAddress Step = "order:awaiting_address"
	StepOrderTime    Step = "order:awaiting_time"
	StepOrderPayment Step = "order:awaiting_payment"

	StepAdminSize   Step = "admin:awaiting_size"
	StepAdminNumber Step = "admin:awaiting_number"
	StepAdminTitle  Step = "admin:awaiting_title"
	StepAdminPrice  Step = "admin:awaiting_price"
	StepAdminPhoto  Step = "admin:awaiting_photo"
)

// State is one user's conversation state.
type State struct {
	Step Step              `json:"step"`
	Data map[string]string `json:"data,omitempty"`
}

// Get returns a scratch value, or "" when unset.
func (s State) Get(key string) string {
	return s.Data[key]
}

// Set stores a scratch value, initializing the map if needed.
func (s *State) Set(key, value string) {
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
	s.Data[key] = value
}

// Store persists conversation state keyed by user id. Implementations must
// return an idle, empty state for users without one. Callers are expected to
// serialize access per user; the engine's dispatcher does that.
type Store interface {
	Get(ctx context.Context, userID int64) (State, error)
	Put(ctx context.Context, userID int64, state State) error
	Clear(ctx context.Context, userID int64) error
}
