// Package guard decides what a protected navigation shows: the page, a
// bounded loading placeholder, or a redirect to login or onboarding.
package guard

import (
	"github.com/jrsteele09/learnpath/session"
)

type Action int

const (
	ActionRender Action = iota
	ActionLoading
	ActionRedirect
)

func (a Action) String() string {
	switch a {
	case ActionRender:
		return "render"
	case ActionLoading:
		return "loading"
	case ActionRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Routes names the destinations the guard redirects to.
type Routes struct {
	Login      string
	Onboarding string
	Home       string
}

// Decision is the outcome for one navigation. Location is set only for
// ActionRedirect.
type Decision struct {
	Action   Action
	Location string
}

func render() Decision            { return Decision{Action: ActionRender} }
func loading() Decision           { return Decision{Action: ActionLoading} }
func redirect(to string) Decision { return Decision{Action: ActionRedirect, Location: to} }

// Decide maps a session snapshot and the current location to a decision.
// timedOut reports whether the bounded wait has elapsed while loading.
func Decide(st session.State, location string, timedOut bool, routes Routes) Decision {
	switch {
	case st.Identity == nil:
		return redirect(routes.Login)
	case st.Loading && timedOut:
		return redirect(routes.Login)
	case st.Loading:
		return loading()
	case !st.Profile.Completed() && location != routes.Onboarding:
		return redirect(routes.Onboarding)
	default:
		return render()
	}
}
