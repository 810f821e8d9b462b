package config

import "time"

type OAuthConfig interface {
	GetCallbackPath() string
	GetScopes() []string
	GetRefreshMargin() time.Duration
	GetRefreshInterval() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetCallbackPath() string {
	return "/auth/callback"
}

func (OAuth) GetScopes() []string {
	return []string{"openid", "email", "profile"}
}

// GetRefreshMargin is how long before expiry a session is refreshed.
func (OAuth) GetRefreshMargin() time.Duration {
	return time.Minute
}

func (OAuth) GetRefreshInterval() time.Duration {
	return 30 * time.Second
}
