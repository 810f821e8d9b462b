package server

import (
	"net/http"

	"github.com/jrsteele09/learnpath/guard"
	"github.com/jrsteele09/learnpath/session"
)

// RequireSession lets the route guard decide every request: the page,
// the loading placeholder, or a redirect to login or onboarding.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	guarded := s.guard.Middleware(s.LoadingHandler())
	return func(next http.HandlerFunc) http.HandlerFunc {
		return guarded(next).ServeHTTP
	}
}

// RedirectIfSignedIn sends an already signed-in user from the auth pages
// to home.
func (s *Server) RedirectIfSignedIn() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.store.State().Status() == session.StatusAuthenticated {
				redirectSuccess(w, r, RouteHome)
				return
			}
			next(w, r)
		}
	}
}

// sessionState returns the state the guard admitted the request with.
func sessionState(r *http.Request) session.State {
	st, _ := guard.StateFromContext(r.Context())
	return st
}

// LoadingHandler is shown while a signed-in user's profile loads. The page
// refreshes itself so the guard re-evaluates.
func (s *Server) LoadingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, "loading.html", PageData{Title: "Loading", RefreshTo: r.URL.RequestURI()})
	}
}
