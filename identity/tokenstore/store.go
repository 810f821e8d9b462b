// Package tokenstore persists the provider client's session.
package tokenstore

import (
	"context"

	"github.com/jrsteele09/learnpath/identity"
)

// Store holds at most one session.
type Store interface {
	// Load returns the stored session or nil when none is stored.
	Load(ctx context.Context) (*identity.Session, error)
	Save(ctx context.Context, session *identity.Session) error
	// Delete is idempotent.
	Delete(ctx context.Context) error
	// Watch calls fn whenever another writer changes the stored session.
	// It blocks until ctx is done.
	Watch(ctx context.Context, fn func()) error
}
