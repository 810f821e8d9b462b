// Package session owns the current user's auth state: the provider session,
// the identity derived from it and the application profile. Store is the
// only writer of that state; everything else reads snapshots or subscribes.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jrsteele09/learnpath/identity"
	"github.com/jrsteele09/learnpath/profiles"
	"github.com/rs/zerolog/log"
)

var (
	// ErrUnauthenticated is returned by operations that need a signed-in user.
	ErrUnauthenticated = errors.New("not signed in")
	// ErrSessionChanged means the user changed while an update was in flight.
	ErrSessionChanged = errors.New("session changed during update")
)

// Recorder receives store telemetry.
type Recorder interface {
	RecordTransition(status string)
	RecordProfileFetch(outcome string)
	RecordActionFailure(action string)
}

type nopRecorder struct{}

func (nopRecorder) RecordTransition(string)    {}
func (nopRecorder) RecordProfileFetch(string)  {}
func (nopRecorder) RecordActionFailure(string) {}

type Option func(*Store)

func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

type profileFetch struct {
	epoch      uint64
	identityID string
}

type snapshot struct {
	version uint64
	state   State
}

// Store is the session store. Create it with New, start it with Initialize
// and stop it with Dispose.
type Store struct {
	provider identity.Provider
	profiles profiles.Repo
	recorder Recorder
	now      func() time.Time

	// ctx scopes background work and is cancelled by Dispose.
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       State
	version     uint64 // bumped on every state change
	epoch       uint64 // profile fetch generation; stale results are dropped
	eventSeq    uint64 // provider events applied so far
	initialized bool
	disposed    bool
	unsubscribe identity.Unsubscribe
	listeners   map[uint64]func(State)
	nextID      uint64

	pubMu      sync.Mutex
	published  uint64
	lastStatus Status

	ready     chan struct{}
	readyOnce sync.Once
}

func New(provider identity.Provider, repo profiles.Repo, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		provider:   provider,
		profiles:   repo,
		recorder:   nopRecorder{},
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
		state:      State{Loading: true},
		listeners:  make(map[uint64]func(State)),
		lastStatus: StatusLoading,
		ready:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready is closed once the bootstrap started by Initialize has settled, or
// when the store is disposed.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Subscribe registers fn for every published snapshot. Snapshots arrive in
// order. fn runs on the publishing goroutine and must not call the store's
// mutating methods.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Initialize subscribes to the provider and restores the session in the
// background. Only the first call has any effect.
func (s *Store) Initialize() {
	s.mu.Lock()
	if s.initialized || s.disposed {
		s.mu.Unlock()
		return
	}
	s.initialized = true
	s.state = State{Loading: true}
	seq := s.eventSeq
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)

	unsubscribe := s.provider.OnAuthStateChange(s.handleAuthEvent)
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		unsubscribe()
		return
	}
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	go s.bootstrap(seq)
}

// bootstrap restores the provider's session. If an auth event was applied
// while the lookup was in flight, the event carries the fresher state and
// the lookup result is dropped.
func (s *Store) bootstrap(seq uint64) {
	defer s.markReady()

	session, err := s.provider.GetSession(s.ctx)

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	if s.eventSeq != seq {
		s.mu.Unlock()
		log.Debug().Msg("session lookup superseded by auth event")
		return
	}
	var fetch *profileFetch
	if err != nil {
		log.Err(err).Msg("failed to restore session, continuing signed out")
		s.recorder.RecordActionFailure("bootstrap")
		s.epoch++
		s.state = State{}
	} else {
		fetch = s.applySessionLocked(session, true)
	}
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)

	if fetch != nil {
		s.runFetch(s.ctx, *fetch)
	}
}

// handleAuthEvent applies a provider push notification. Applying the same
// session twice converges to the same state.
func (s *Store) handleAuthEvent(event identity.EventType, session *identity.Session) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.eventSeq++
	force := event == identity.EventUserUpdated ||
		(s.state.Profile == nil && !s.state.Loading)
	fetch := s.applySessionLocked(session, force)
	snap := s.changedLocked()
	s.mu.Unlock()

	log.Debug().Str("event", string(event)).Bool("signed_in", session != nil).Msg("applied auth event")
	s.publish(snap)
	if fetch != nil {
		go s.runFetch(s.ctx, *fetch)
	}
}

// applySessionLocked installs session and decides whether the profile must
// be (re)fetched. A new user always triggers a fetch; the same user only
// when force is set.
func (s *Store) applySessionLocked(session *identity.Session, force bool) *profileFetch {
	if session == nil {
		s.epoch++
		s.state = State{}
		return nil
	}

	user := session.User
	sameUser := s.state.Identity != nil && s.state.Identity.ID == user.ID
	s.state.Session = session
	s.state.Identity = &user
	if sameUser && !force {
		return nil
	}
	if !sameUser {
		s.state.Profile = nil
	}
	s.epoch++
	s.state.Loading = true
	return &profileFetch{epoch: s.epoch, identityID: user.ID}
}

// FetchProfile re-reads the profile for identityID and returns it, or nil
// when it does not exist or cannot be read. When identityID is the current
// user the store shows loading until the read resolves.
func (s *Store) FetchProfile(ctx context.Context, identityID string) *profiles.Profile {
	s.mu.Lock()
	if s.disposed || s.state.Identity == nil || s.state.Identity.ID != identityID {
		s.mu.Unlock()
		return s.loadProfile(ctx, identityID)
	}
	s.epoch++
	s.state.Loading = true
	fetch := profileFetch{epoch: s.epoch, identityID: identityID}
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)

	return s.runFetch(ctx, fetch)
}

// runFetch always ends with loading=false unless a newer fetch or a session
// change superseded it.
func (s *Store) runFetch(ctx context.Context, fetch profileFetch) *profiles.Profile {
	profile := s.loadProfile(ctx, fetch.identityID)

	s.mu.Lock()
	if s.disposed || fetch.epoch != s.epoch {
		s.mu.Unlock()
		return profile
	}
	s.state.Profile = profile
	s.state.Loading = false
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)
	return profile
}

func (s *Store) loadProfile(ctx context.Context, identityID string) *profiles.Profile {
	profile, err := s.profiles.Get(ctx, identityID)
	switch {
	case errors.Is(err, profiles.ErrNotFound):
		log.Debug().Str("identity_id", identityID).Msg("no profile yet")
		s.recorder.RecordProfileFetch("not_found")
		return nil
	case err != nil:
		log.Err(err).Str("identity_id", identityID).Msg("failed to fetch profile")
		s.recorder.RecordProfileFetch("error")
		return nil
	default:
		s.recorder.RecordProfileFetch("found")
		return profile
	}
}

// Dispose detaches the store from the provider. In-flight work that
// resolves afterwards is discarded.
func (s *Store) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.listeners = make(map[uint64]func(State))
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	s.cancel()
	s.markReady()
}

func (s *Store) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Store) changedLocked() snapshot {
	s.version++
	return snapshot{version: s.version, state: s.state}
}

// publish delivers snap unless a newer snapshot already went out.
func (s *Store) publish(snap snapshot) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if snap.version <= s.published {
		return
	}
	s.published = snap.version

	if status := snap.state.Status(); status != s.lastStatus {
		s.lastStatus = status
		s.recorder.RecordTransition(status.String())
	}

	s.mu.Lock()
	listeners := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap.state)
	}
}
