package identity

import (
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoSession          = errors.New("no session")
	ErrInvalidState       = errors.New("invalid or expired oauth state")
	ErrInvalidToken       = errors.New("invalid access token")
)

// Identity is the authenticated principal. It is derived from the claims
// carried by a Session's access token.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Provider    string `json:"provider,omitempty"` // "email", "google", ...
	// Providers lists every sign-in method linked to the account.
	Providers []string `json:"providers,omitempty"`
}

// Session is the credential bundle issued by the identity provider.
// Sessions are created, refreshed and persisted by the provider client only.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         Identity  `json:"user"`
}

// NewSession builds a Session and derives its Identity from the access token.
func NewSession(accessToken, refreshToken, idToken, tokenType string, expiresAt time.Time) (*Session, error) {
	user, exp, err := FromAccessToken(accessToken)
	if err != nil {
		return nil, err
	}
	if expiresAt.IsZero() {
		expiresAt = exp
	}
	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IDToken:      idToken,
		TokenType:    tokenType,
		ExpiresAt:    expiresAt,
		User:         user,
	}, nil
}

// Expired reports whether the access token expires within margin of now.
func (s *Session) Expired(now time.Time, margin time.Duration) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(margin).Before(s.ExpiresAt)
}

// EventType mirrors the auth events pushed by the identity provider.
type EventType string

const (
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
	// EventUserUpdated is a new session for the same user whose claims
	// changed, such as an edited email or display name.
	EventUserUpdated EventType = "USER_UPDATED"
)

// Listener receives provider auth events. session is nil for EventSignedOut.
type Listener func(event EventType, session *Session)

// Unsubscribe detaches a Listener. It is safe to call more than once.
type Unsubscribe func()
