package authflow

import (
	"context"
	"errors"
	"sync"
	"time"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	states map[string]AuthFlowState
}

// NewInMemoryRepo creates a new in-memory auth flow state repository
func NewInMemoryRepo(ttl time.Duration) *InMemoryRepo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &InMemoryRepo{
		ttl:    ttl,
		now:    time.Now,
		states: make(map[string]AuthFlowState),
	}
}

// Upsert stores a copy of authState and drops expired entries.
func (r *InMemoryRepo) Upsert(_ context.Context, state string, authState *AuthFlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if authState == nil {
		return errors.New("authState cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for k, s := range r.states {
		if now.Sub(s.CreatedAt) > r.ttl {
			delete(r.states, k)
		}
	}
	r.states[state] = *authState
	return nil
}

func (r *InMemoryRepo) Take(_ context.Context, state string) (*AuthFlowState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.states[state]
	delete(r.states, state)
	if !ok || r.now().Sub(s.CreatedAt) > r.ttl {
		return nil, ErrNotFound
	}
	return &s, nil
}
