package tokenstore

import (
	"context"
	"sync"

	"github.com/jrsteele09/learnpath/identity"
)

var _ Store = (*Memory)(nil)

// Memory keeps the session in process memory. There are no other writers,
// so Watch never fires.
type Memory struct {
	mu      sync.RWMutex
	session *identity.Session
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) (*identity.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil, nil
	}
	s := *m.session
	return &s, nil
}

func (m *Memory) Save(_ context.Context, session *identity.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session == nil {
		m.session = nil
		return nil
	}
	s := *session
	m.session = &s
	return nil
}

func (m *Memory) Delete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

func (m *Memory) Watch(ctx context.Context, _ func()) error {
	<-ctx.Done()
	return nil
}
