package session

import (
	"github.com/jrsteele09/learnpath/identity"
	"github.com/jrsteele09/learnpath/profiles"
)

// Status is the externally observable auth status.
type Status int

const (
	StatusLoading Status = iota
	StatusUnauthenticated
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// State is a snapshot of the store. The pointed-to values are never mutated
// after publication, so snapshots may be shared freely.
type State struct {
	Session  *identity.Session
	Identity *identity.Identity
	Profile  *profiles.Profile // only meaningful when authenticated
	Loading  bool              // initial bootstrap or profile (re)fetch in progress
}

// Status collapses the snapshot into the loading / unauthenticated /
// authenticated union.
func (s State) Status() Status {
	switch {
	case s.Loading:
		return StatusLoading
	case s.Identity == nil:
		return StatusUnauthenticated
	default:
		return StatusAuthenticated
	}
}
