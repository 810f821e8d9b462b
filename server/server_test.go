package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/learnpath/guard"
	"github.com/jrsteele09/learnpath/identity"
	"github.com/jrsteele09/learnpath/identity/providerfake"
	"github.com/jrsteele09/learnpath/internal/config"
	"github.com/jrsteele09/learnpath/internal/metrics"
	"github.com/jrsteele09/learnpath/onboarding"
	"github.com/jrsteele09/learnpath/profiles"
	"github.com/jrsteele09/learnpath/profiles/repofake"
	"github.com/jrsteele09/learnpath/server"
	"github.com/jrsteele09/learnpath/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var ada = identity.Identity{ID: "user-ada", Email: "ada@example.com", DisplayName: "Ada", Provider: "email"}

type testConfig struct {
	config.Config
	rate int
}

func (testConfig) GetEnv() string     { return "TEST" }
func (testConfig) GetAppName() string { return "LearnPath" }
func (testConfig) GetBaseURL() string { return "http://learn.test" }
func (c testConfig) GetAuthRatePerMinute() int {
	return c.rate
}

type testFixture struct {
	provider *providerfake.FakeProvider
	repo     *repofake.FakeProfileRepo
	store    *session.Store
	guard    *guard.Guard
	server   *server.Server
}

type fixtureOption func(*testFixture)

// withSession starts the fixture signed in as id with profile, if any.
func withSession(id identity.Identity, profile *profiles.Profile) fixtureOption {
	return func(f *testFixture) {
		f.provider.SetSession(providerfake.NewSession(id))
		if profile != nil {
			f.repo.Put(*profile)
		}
	}
}

func setupTestFixture(t *testing.T, opts ...fixtureOption) *testFixture {
	t.Helper()
	f := &testFixture{provider: providerfake.New(), repo: repofake.NewFakeProfileRepo()}
	for _, opt := range opts {
		opt(f)
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	f.store = session.New(f.provider, f.repo, session.WithRecorder(collector))
	f.guard = guard.New(f.store, server.GuardRoutes(), guard.WithTimeout(time.Minute), guard.WithRecorder(collector))
	t.Cleanup(f.guard.Dispose)
	t.Cleanup(f.store.Dispose)

	f.store.Initialize()
	select {
	case <-f.store.Ready():
	case <-time.After(time.Second):
		t.Fatal("store did not settle")
	}

	srv, err := server.New(testConfig{Config: config.New(), rate: 5}, server.Deps{
		Store:    f.store,
		Guard:    f.guard,
		Metrics:  collector,
		Gatherer: reg,
	})
	require.NoError(t, err)
	f.server = srv
	return f
}

func (f *testFixture) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (f *testFixture) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *testFixture) settled(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !f.store.State().Loading && f.guard.Evaluate(server.RouteHome).Action != guard.ActionLoading
	}, time.Second, 5*time.Millisecond)
}

func requireRedirect(t *testing.T, rec *httptest.ResponseRecorder, path string) url.Values {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, path, loc.Path)
	return loc.Query()
}

func onboardedProfile(id string) *profiles.Profile {
	return &profiles.Profile{ID: id, LearningStyle: profiles.StyleKinesthetic, EvaluationCompleted: true, XP: 750, Level: 2, StreakDays: 4, LessonsCompleted: 12}
}

func allAnswers(option string) url.Values {
	form := url.Values{}
	for _, q := range onboarding.Questions {
		form.Set(q.ID, option)
	}
	return form
}

func TestGuardedPagesRedirectToLoginWhenSignedOut(t *testing.T) {
	f := setupTestFixture(t)

	for _, path := range []string{server.RouteHome, server.RouteProgress, server.RouteGoals, server.RouteJobs, server.RouteGuilds, server.RouteLearn, server.RouteOnboarding} {
		requireRedirect(t, f.get(path), server.RouteLogin)
	}
}

func TestLandingAndAuthPagesRender(t *testing.T) {
	f := setupTestFixture(t)

	for path, want := range map[string]string{
		server.RouteLanding:        "Learn the way you learn best",
		server.RouteLogin:          "Continue with Google",
		server.RouteSignup:         "Create your account",
		server.RouteForgotPassword: "Send reset link",
	} {
		rec := f.get(path)
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.Contains(t, rec.Body.String(), want, path)
		require.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
		require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	}
}

func TestLoginPageShowsErrorAndEmail(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.get(server.RouteLogin + "?error=Invalid+email+or+password&email=ada%40example.com")
	require.Contains(t, rec.Body.String(), "Invalid email or password")
	require.Contains(t, rec.Body.String(), `value="ada@example.com"`)
}

func TestLoginThenOnboardingThenHome(t *testing.T) {
	f := setupTestFixture(t)
	f.provider.AddUser("secret", ada)

	rec := f.post(server.RouteLogin, url.Values{"email": {ada.Email}, "password": {"secret"}})
	requireRedirect(t, rec, server.RouteHome)
	f.settled(t)

	requireRedirect(t, f.get(server.RouteHome), server.RouteOnboarding)
	rec = f.get(server.RouteOnboarding)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), onboarding.Questions[0].Prompt)

	requireRedirect(t, f.post(server.RouteOnboarding, allAnswers("c")), server.RouteHome)

	rec = f.get(server.RouteHome)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Welcome back, Ada")
	require.Contains(t, rec.Body.String(), "reading")

	stored, err := f.repo.Get(context.Background(), ada.ID)
	require.NoError(t, err)
	require.True(t, stored.Completed())
	require.Equal(t, profiles.StyleReading, stored.LearningStyle)
}

func TestLoginRejected(t *testing.T) {
	f := setupTestFixture(t)
	f.provider.AddUser("secret", ada)

	q := requireRedirect(t, f.post(server.RouteLogin, url.Values{"email": {ada.Email}, "password": {"wrong"}}), server.RouteLogin)
	require.Equal(t, "Invalid email or password", q.Get("error"))
	require.Equal(t, ada.Email, q.Get("email"))

	q = requireRedirect(t, f.post(server.RouteLogin, url.Values{"email": {ada.Email}}), server.RouteLogin)
	require.Equal(t, "Email and password are required", q.Get("error"))
	require.Equal(t, session.StatusUnauthenticated, f.store.State().Status())
}

func TestAuthPagesRedirectWhenSignedIn(t *testing.T) {
	f := setupTestFixture(t, withSession(ada, onboardedProfile(ada.ID)))

	requireRedirect(t, f.get(server.RouteLogin), server.RouteHome)
	requireRedirect(t, f.get(server.RouteSignup), server.RouteHome)
}

func TestIncompleteOnboardingIsRejected(t *testing.T) {
	f := setupTestFixture(t, withSession(ada, nil))

	form := allAnswers("a")
	form.Del(onboarding.Questions[1].ID)
	q := requireRedirect(t, f.post(server.RouteOnboarding, form), server.RouteOnboarding)
	require.Equal(t, "Please answer every question", q.Get("error"))
	require.Nil(t, f.store.State().Profile)
}

func TestOnboardingSaveFailure(t *testing.T) {
	f := setupTestFixture(t, withSession(ada, nil))
	f.repo.UpsertErr = context.DeadlineExceeded

	q := requireRedirect(t, f.post(server.RouteOnboarding, allAnswers("b")), server.RouteOnboarding)
	require.Equal(t, "Could not save your results, please try again", q.Get("error"))
}

func TestDashboardPagesRender(t *testing.T) {
	f := setupTestFixture(t, withSession(ada, onboardedProfile(ada.ID)))

	for path, want := range map[string]string{
		server.RouteHome:     "Welcome back, Ada",
		server.RouteProgress: "750 / 1000 XP",
		server.RouteGoals:    "Complete 10 lessons",
		server.RouteJobs:     "Junior Data Analyst",
		server.RouteGuilds:   "Night Owls",
		server.RouteLearn:    "Build a Web App",
	} {
		rec := f.get(path)
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.Contains(t, rec.Body.String(), want, path)
	}
}

func TestLoadingPageWhileProfileLoads(t *testing.T) {
	f := setupTestFixture(t)
	f.provider.AddUser("secret", ada)
	gate := make(chan struct{})
	f.repo.GetGate = gate
	defer close(gate)

	requireRedirect(t, f.post(server.RouteLogin, url.Values{"email": {ada.Email}, "password": {"secret"}}), server.RouteHome)

	rec := f.get(server.RouteHome)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Loading your dashboard")
	require.Contains(t, rec.Body.String(), `http-equiv="refresh"`)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestLogoutSignsOutEvenWhenRemoteFails(t *testing.T) {
	f := setupTestFixture(t, withSession(ada, onboardedProfile(ada.ID)))
	f.provider.SignOutErr = context.DeadlineExceeded

	q := requireRedirect(t, f.post(server.RouteLogout, nil), server.RouteLogin)
	require.Equal(t, "You have been signed out", q.Get("notice"))
	require.Equal(t, session.StatusUnauthenticated, f.store.State().Status())
	requireRedirect(t, f.get(server.RouteHome), server.RouteLogin)
}

func TestLogoutDoesNotWaitForRemoteSignOut(t *testing.T) {
	f := setupTestFixture(t, withSession(ada, onboardedProfile(ada.ID)))
	gate := make(chan struct{})
	f.provider.SignOutGate = gate

	responded := make(chan *httptest.ResponseRecorder, 1)
	go func() { responded <- f.post(server.RouteLogout, nil) }()

	var rec *httptest.ResponseRecorder
	select {
	case rec = <-responded:
	case <-time.After(time.Second):
		close(gate)
		t.Fatal("logout waited for the remote sign-out")
	}
	requireRedirect(t, rec, server.RouteLogin)
	require.Equal(t, session.StatusUnauthenticated, f.store.State().Status())
	require.Equal(t, http.StatusOK, f.get(server.RouteLogin).Code)

	close(gate)
	require.Eventually(t, func() bool { return f.provider.SignOutCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestSignup(t *testing.T) {
	f := setupTestFixture(t)

	q := requireRedirect(t, f.post(server.RouteSignup, url.Values{
		"email": {"new@example.com"}, "password": {"longenough"}, "confirm_password": {"different"},
	}), server.RouteSignup)
	require.Equal(t, "Passwords do not match", q.Get("error"))

	requireRedirect(t, f.post(server.RouteSignup, url.Values{
		"email": {"new@example.com"}, "password": {"longenough"}, "confirm_password": {"longenough"}, "display_name": {"New"},
	}), server.RouteOnboarding)
	f.settled(t)
	require.Equal(t, "new@example.com", f.store.State().Identity.Email)
}

func TestForgotPassword(t *testing.T) {
	f := setupTestFixture(t)

	q := requireRedirect(t, f.post(server.RouteForgotPassword, url.Values{"email": {ada.Email}}), server.RouteLogin)
	require.Contains(t, q.Get("notice"), ada.Email)
	require.Equal(t, []string{ada.Email}, f.provider.ResetCalls)

	f.provider.ResetErr = context.DeadlineExceeded
	q = requireRedirect(t, f.post(server.RouteForgotPassword, url.Values{"email": {ada.Email}}), server.RouteForgotPassword)
	require.NotEmpty(t, q.Get("error"))
}

func TestGoogleSignInRoundTrip(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.get(server.RouteAuthGoogle)
	require.Equal(t, http.StatusFound, rec.Code)
	authURL, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "google", authURL.Query().Get("provider"))
	state := authURL.Query().Get("state")

	requireRedirect(t, f.get(server.RouteCallback+"?code=abc&state="+state), server.RouteHome)
	f.settled(t)
	require.Equal(t, session.StatusAuthenticated, f.store.State().Status())

	q := requireRedirect(t, f.get(server.RouteCallback+"?code=abc&state="+state), server.RouteLogin)
	require.Equal(t, "Your sign in link expired, please try again", q.Get("error"))
}

func TestOAuthCallbackProviderError(t *testing.T) {
	f := setupTestFixture(t)

	q := requireRedirect(t, f.get(server.RouteCallback+"?error=access_denied&error_description=User+cancelled"), server.RouteLogin)
	require.Equal(t, "User cancelled", q.Get("error"))

	q = requireRedirect(t, f.get(server.RouteCallback), server.RouteLogin)
	require.Equal(t, "Missing code or state parameter", q.Get("error"))
}

func TestAuthFormsAreRateLimited(t *testing.T) {
	f := setupTestFixture(t)

	form := url.Values{"email": {ada.Email}, "password": {"wrong"}}
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusSeeOther, f.post(server.RouteLogin, form).Code)
	}
	rec := f.post(server.RouteLogin, form)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestOperationalEndpoints(t *testing.T) {
	f := setupTestFixture(t)
	f.get(server.RouteHome)

	rec := f.get(server.RouteHealth)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok unauthenticated", rec.Body.String())

	rec = f.get(server.RouteMetrics)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `learnpath_guard_decisions_total{action="redirect"}`)
	require.Contains(t, rec.Body.String(), "learnpath_http_requests_total")

	rec = f.get("/css/app.css")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/css")

	require.Equal(t, http.StatusNotFound, f.get("/css/missing.css").Code)
	require.Equal(t, http.StatusNotFound, f.get("/no/such/page").Code)
}
