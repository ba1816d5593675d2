package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a persisted state store, for deployments where conversations must
// survive process restarts. A TTL of 0 keeps sessions forever, matching the
// in-memory store.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis-backed state store.
func NewRedis(addr string, ttl time.Duration) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("cvetlicarna:session:%d", userID)
}

// Get returns the user's state, or an idle state when none exists.
func (r *Redis) Get(ctx context.Context, userID int64) (State, error) {
	raw, err := r.client.Get(ctx, sessionKey(userID)).Bytes()
	if err == redis.Nil {
		return State{Step: StepIdle}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("getting session: %w", err)
	}

	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("decoding session: %w", err)
	}
	return st, nil
}

// Put stores the user's state.
func (r *Redis) Put(ctx context.Context, userID int64, state State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

// Clear resets the user to idle.
func (r *Redis) Clear(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
