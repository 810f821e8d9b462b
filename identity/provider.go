package identity

import "context"

// SignUpRequest holds the fields accepted by Provider.SignUp.
type SignUpRequest struct {
	Email       string
	Password    string
	DisplayName string
	RedirectTo  string // where the confirmation email should land
}

// Provider is the client side of the external identity provider.
// All methods may be slow or fail; none are assumed to be bounded.
type Provider interface {
	// GetSession returns the current session, or nil when signed out.
	GetSession(ctx context.Context) (*Session, error)

	// OnAuthStateChange registers a listener for pushed auth events.
	OnAuthStateChange(fn Listener) Unsubscribe

	// SignUp registers a user. A nil session with a nil error means the
	// provider requires email confirmation before the first sign-in.
	SignUp(ctx context.Context, req SignUpRequest) (*Session, error)

	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)

	// SignInWithOAuth returns the URL the user agent must visit to sign in
	// with the named external provider (e.g. "google").
	SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error)

	// ExchangeCodeForSession completes an OAuth sign-in started with
	// SignInWithOAuth.
	ExchangeCodeForSession(ctx context.Context, code, state string) (*Session, error)

	// SignOut drops the local session and revokes it remotely.
	SignOut(ctx context.Context) error

	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
}
