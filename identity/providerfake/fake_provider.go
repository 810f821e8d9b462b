package providerfake

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/learnpath/identity"
)

var _ identity.Provider = (*FakeProvider)(nil)

// AccessToken mints an HS256 access token carrying id's claims.
func AccessToken(id identity.Identity, expiresAt time.Time) string {
	claims := identity.AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email:        id.Email,
		UserMetadata: map[string]any{"display_name": id.DisplayName},
		AppMetadata:  map[string]any{"provider": id.Provider},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("fake-provider"))
	if err != nil {
		panic(err)
	}
	return raw
}

// NewSession builds a one-hour session for id.
func NewSession(id identity.Identity) *identity.Session {
	exp := time.Now().Add(time.Hour)
	s, err := identity.NewSession(AccessToken(id, exp), "refresh-"+id.ID, "", "bearer", exp)
	if err != nil {
		panic(err)
	}
	return s
}

type fakeUser struct {
	password string
	identity identity.Identity
}

// FakeProvider is an in-memory identity.Provider. Gates, when set, hold the
// matching call until closed or until the call's context ends.
type FakeProvider struct {
	mu        sync.Mutex
	session   *identity.Session
	users     map[string]fakeUser
	listeners map[uint64]identity.Listener
	nextID    uint64
	states    map[string]string // oauth state -> email

	GetSessionErr  error
	GetSessionGate chan struct{}
	SignOutErr     error
	SignOutGate    chan struct{}
	ResetErr       error

	SignOutCalls int
	ResetCalls   []string
}

func New() *FakeProvider {
	return &FakeProvider{
		users:     make(map[string]fakeUser),
		listeners: make(map[uint64]identity.Listener),
		states:    make(map[string]string),
	}
}

// AddUser registers credentials accepted by SignInWithPassword.
func (f *FakeProvider) AddUser(password string, id identity.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id.Email] = fakeUser{password: password, identity: id}
}

// SetSession replaces the remote session without emitting an event.
func (f *FakeProvider) SetSession(s *identity.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = s
}

// Emit replaces the remote session and pushes event to every listener, the
// way a change in another tab or process would arrive.
func (f *FakeProvider) Emit(event identity.EventType, s *identity.Session) {
	f.SetSession(s)
	f.emit(event, s)
}

// Listeners reports how many listeners are attached.
func (f *FakeProvider) Listeners() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

// SignOutCount reports how many times SignOut was called.
func (f *FakeProvider) SignOutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.SignOutCalls
}

func (f *FakeProvider) emit(event identity.EventType, s *identity.Session) {
	f.mu.Lock()
	listeners := make([]identity.Listener, 0, len(f.listeners))
	for _, fn := range f.listeners {
		listeners = append(listeners, fn)
	}
	f.mu.Unlock()
	for _, fn := range listeners {
		fn(event, s)
	}
}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *FakeProvider) GetSession(ctx context.Context) (*identity.Session, error) {
	f.mu.Lock()
	gate := f.GetSessionGate
	f.mu.Unlock()
	if err := wait(ctx, gate); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetSessionErr != nil {
		return nil, f.GetSessionErr
	}
	return f.session, nil
}

func (f *FakeProvider) OnAuthStateChange(fn identity.Listener) identity.Unsubscribe {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *FakeProvider) SignUp(_ context.Context, req identity.SignUpRequest) (*identity.Session, error) {
	f.mu.Lock()
	if _, exists := f.users[req.Email]; exists {
		f.mu.Unlock()
		return nil, fmt.Errorf("user already registered")
	}
	id := identity.Identity{ID: uuid.NewString(), Email: req.Email, DisplayName: req.DisplayName, Provider: "email"}
	f.users[req.Email] = fakeUser{password: req.Password, identity: id}
	f.mu.Unlock()

	s := NewSession(id)
	f.Emit(identity.EventSignedIn, s)
	return s, nil
}

func (f *FakeProvider) SignInWithPassword(_ context.Context, email, password string) (*identity.Session, error) {
	f.mu.Lock()
	u, ok := f.users[email]
	f.mu.Unlock()
	if !ok || u.password != password {
		return nil, identity.ErrInvalidCredentials
	}
	s := NewSession(u.identity)
	f.Emit(identity.EventSignedIn, s)
	return s, nil
}

// SignInWithOAuth returns a URL whose state resolves to the email in
// redirectTo's "email" query parameter, or to a fixed Google user.
func (f *FakeProvider) SignInWithOAuth(_ context.Context, provider, redirectTo string) (string, error) {
	state := uuid.NewString()
	email := "oauth-user@example.com"
	if u, err := url.Parse(redirectTo); err == nil && u.Query().Get("email") != "" {
		email = u.Query().Get("email")
	}
	f.mu.Lock()
	f.states[state] = email
	f.mu.Unlock()
	return fmt.Sprintf("https://fake-idp.test/authorize?provider=%s&state=%s", url.QueryEscape(provider), state), nil
}

func (f *FakeProvider) ExchangeCodeForSession(_ context.Context, _ string, state string) (*identity.Session, error) {
	f.mu.Lock()
	email, ok := f.states[state]
	delete(f.states, state)
	u, known := f.users[email]
	f.mu.Unlock()
	if !ok {
		return nil, identity.ErrInvalidState
	}
	id := u.identity
	if !known {
		id = identity.Identity{ID: uuid.NewString(), Email: email, Provider: "google"}
	}
	s := NewSession(id)
	f.Emit(identity.EventSignedIn, s)
	return s, nil
}

func (f *FakeProvider) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.SignOutCalls++
	gate := f.SignOutGate
	f.mu.Unlock()
	if err := wait(ctx, gate); err != nil {
		return err
	}

	f.mu.Lock()
	err := f.SignOutErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.Emit(identity.EventSignedOut, nil)
	return nil
}

func (f *FakeProvider) ResetPasswordForEmail(_ context.Context, email, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ResetCalls = append(f.ResetCalls, email)
	return f.ResetErr
}
