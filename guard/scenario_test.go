package guard_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/learnpath/guard"
	"github.com/jrsteele09/learnpath/identity/providerfake"
	"github.com/jrsteele09/learnpath/profiles"
	"github.com/jrsteele09/learnpath/profiles/repofake"
	"github.com/jrsteele09/learnpath/session"
	"github.com/stretchr/testify/require"
)

type storeFixture struct {
	provider *providerfake.FakeProvider
	repo     *repofake.FakeProfileRepo
	store    *session.Store
}

func setupStoreFixture(t *testing.T) *storeFixture {
	t.Helper()
	f := &storeFixture{provider: providerfake.New(), repo: repofake.NewFakeProfileRepo()}
	f.store = session.New(f.provider, f.repo)
	t.Cleanup(f.store.Dispose)
	return f
}

func (f *storeFixture) start(t *testing.T) *guard.Guard {
	t.Helper()
	g := guard.New(f.store, routes, guard.WithTimeout(time.Minute))
	t.Cleanup(g.Dispose)
	f.store.Initialize()
	select {
	case <-f.store.Ready():
	case <-time.After(time.Second):
		t.Fatal("store did not settle")
	}
	return g
}

func TestScenarioOnboardedUserSeesPage(t *testing.T) {
	f := setupStoreFixture(t)
	f.provider.SetSession(providerfake.NewSession(*user))
	f.repo.Put(*onboarded)

	g := f.start(t)

	require.Equal(t, renderPage, g.Evaluate("/home"))
}

func TestScenarioNoSessionRedirectsToLogin(t *testing.T) {
	f := setupStoreFixture(t)

	g := f.start(t)

	require.Equal(t, redirectLogin, g.Evaluate("/home"))
}

func TestScenarioIncompleteProfileGoesToOnboarding(t *testing.T) {
	f := setupStoreFixture(t)
	f.provider.SetSession(providerfake.NewSession(*user))
	f.repo.Put(profiles.Profile{ID: user.ID})

	g := f.start(t)

	require.Equal(t, redirectOnboarding, g.Evaluate("/home"))
	require.Equal(t, renderPage, g.Evaluate("/onboarding"))
}

func TestScenarioSignOutRedirectsImmediately(t *testing.T) {
	f := setupStoreFixture(t)
	f.provider.SetSession(providerfake.NewSession(*user))
	f.repo.Put(*onboarded)
	g := f.start(t)
	require.Equal(t, renderPage, g.Evaluate("/home"))

	gate := make(chan struct{})
	f.provider.SignOutGate = gate
	done := make(chan error, 1)
	go func() { done <- f.store.SignOut(context.Background()) }()

	require.Eventually(t, func() bool { return f.provider.SignOutCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, redirectLogin, g.Evaluate("/home"))

	close(gate)
	require.NoError(t, <-done)
	require.Equal(t, redirectLogin, g.Evaluate("/home"))
}
