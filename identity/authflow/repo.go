// Package authflow keeps the per-attempt secrets of an OAuth authorization
// code flow (PKCE verifier and nonce) between the redirect to the provider
// and the callback.
package authflow

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL is how long a started flow may take to come back.
const DefaultTTL = 10 * time.Minute

// ErrNotFound means the state is unknown, already used or expired.
var ErrNotFound = errors.New("auth flow state not found")

type AuthFlowState struct {
	CodeVerifier string    `json:"code_verifier"`
	Nonce        string    `json:"nonce"`
	Provider     string    `json:"provider"`
	RedirectTo   string    `json:"redirect_to"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repo stores flow states keyed by the OAuth state parameter. Take is
// single use: a state can be redeemed once.
type Repo interface {
	Upsert(ctx context.Context, state string, authState *AuthFlowState) error
	Take(ctx context.Context, state string) (*AuthFlowState, error)
}
