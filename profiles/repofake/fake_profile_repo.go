package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/learnpath/profiles"
)

var _ profiles.Repo = (*FakeProfileRepo)(nil)

// FakeProfileRepo is an in-memory profiles.Repo. GetErr and UpsertErr
// force failures; GetGate, when set, holds Get until closed.
type FakeProfileRepo struct {
	lock     sync.RWMutex
	profiles map[string]profiles.Profile

	GetErr    error
	GetGate   chan struct{}
	UpsertErr error
	GetCalls  int
}

func NewFakeProfileRepo() *FakeProfileRepo {
	return &FakeProfileRepo{profiles: make(map[string]profiles.Profile)}
}

// Put stores profile as is.
func (r *FakeProfileRepo) Put(profile profiles.Profile) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.profiles[profile.ID] = profile
}

// Calls reports how many times Get was called.
func (r *FakeProfileRepo) Calls() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.GetCalls
}

func (r *FakeProfileRepo) Get(ctx context.Context, id string) (*profiles.Profile, error) {
	r.lock.Lock()
	r.GetCalls++
	gate := r.GetGate
	r.lock.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	p, ok := r.profiles[id]
	if !ok {
		return nil, profiles.ErrNotFound
	}
	return &p, nil
}

func (r *FakeProfileRepo) Upsert(_ context.Context, id string, patch profiles.Patch) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.UpsertErr != nil {
		return r.UpsertErr
	}
	p, ok := r.profiles[id]
	if !ok {
		p = profiles.Profile{ID: id, Level: 1}
	}
	patch.Apply(&p, time.Now())
	r.profiles[id] = p
	return nil
}
