package session

import (
	"context"
	"time"

	"github.com/jrsteele09/learnpath/identity"
	"github.com/jrsteele09/learnpath/profiles"
	"github.com/rs/zerolog/log"
)

// The sign-in actions return provider errors to the caller for display.
// On success the resulting session is applied exactly as if the provider
// had pushed it, so providers that also emit SIGNED_IN converge to the same
// state.

func (s *Store) SignUp(ctx context.Context, req identity.SignUpRequest) (*identity.Session, error) {
	session, err := s.provider.SignUp(ctx, req)
	if err != nil {
		s.actionFailed("sign_up", err)
		return nil, err
	}
	if session != nil {
		s.handleAuthEvent(identity.EventSignedIn, session)
	}
	return session, nil
}

func (s *Store) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	session, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.actionFailed("sign_in", err)
		return nil, err
	}
	s.handleAuthEvent(identity.EventSignedIn, session)
	return session, nil
}

// SignInWithGoogle returns the URL to send the user to.
func (s *Store) SignInWithGoogle(ctx context.Context, redirectTo string) (string, error) {
	authURL, err := s.provider.SignInWithOAuth(ctx, "google", redirectTo)
	if err != nil {
		s.actionFailed("sign_in_google", err)
		return "", err
	}
	return authURL, nil
}

// CompleteOAuthSignIn finishes the flow started by SignInWithGoogle.
func (s *Store) CompleteOAuthSignIn(ctx context.Context, code, state string) (*identity.Session, error) {
	session, err := s.provider.ExchangeCodeForSession(ctx, code, state)
	if err != nil {
		s.actionFailed("oauth_callback", err)
		return nil, err
	}
	s.handleAuthEvent(identity.EventSignedIn, session)
	return session, nil
}

// SignOut clears local state and publishes it before contacting the
// provider. The remote error, if any, is returned but the store stays
// signed out regardless.
func (s *Store) SignOut(ctx context.Context) error {
	s.clearLocal()
	return s.signOutRemote(ctx)
}

// SignOutInBackground clears local state before returning and leaves the
// remote sign-out to a goroutine bounded by timeout and by Dispose. The
// channel receives the remote result.
func (s *Store) SignOutInBackground(timeout time.Duration) <-chan error {
	s.clearLocal()
	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, timeout)
		defer cancel()
		done <- s.signOutRemote(ctx)
	}()
	return done
}

func (s *Store) clearLocal() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.epoch++
	s.eventSeq++
	s.state = State{}
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)
}

func (s *Store) signOutRemote(ctx context.Context) error {
	if err := s.provider.SignOut(ctx); err != nil {
		s.actionFailed("sign_out", err)
		return err
	}
	return nil
}

func (s *Store) ResetPassword(ctx context.Context, email, redirectTo string) error {
	if err := s.provider.ResetPasswordForEmail(ctx, email, redirectTo); err != nil {
		s.actionFailed("reset_password", err)
		return err
	}
	return nil
}

// UpdateProfile writes patch for the current user and, once the write
// succeeds, merges it into the in-memory profile. It returns
// ErrUnauthenticated when nobody is signed in.
func (s *Store) UpdateProfile(ctx context.Context, patch profiles.Patch) (*profiles.Profile, error) {
	s.mu.Lock()
	current := s.state.Identity
	s.mu.Unlock()
	if current == nil {
		return nil, ErrUnauthenticated
	}

	if err := s.profiles.Upsert(ctx, current.ID, patch); err != nil {
		s.actionFailed("update_profile", err)
		return nil, err
	}

	s.mu.Lock()
	if s.disposed || s.state.Identity == nil || s.state.Identity.ID != current.ID {
		s.mu.Unlock()
		return nil, ErrSessionChanged
	}

	merged := profiles.Profile{ID: current.ID, Level: 1}
	if s.state.Profile != nil {
		merged = *s.state.Profile
	}
	patch.Apply(&merged, s.now())

	var fetch *profileFetch
	if s.state.Loading {
		// A read that started before this write may not see it; replace it.
		s.epoch++
		fetch = &profileFetch{epoch: s.epoch, identityID: current.ID}
	} else {
		s.state.Profile = &merged
	}
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)

	if fetch != nil {
		go s.runFetch(s.ctx, *fetch)
	}
	return &merged, nil
}

func (s *Store) actionFailed(action string, err error) {
	log.Warn().Err(err).Str("action", action).Msg("auth action failed")
	s.recorder.RecordActionFailure(action)
}
