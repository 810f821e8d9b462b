package server

import (
	"net/http"

	"github.com/jrsteele09/learnpath/identity"
	"github.com/jrsteele09/learnpath/onboarding"
	"github.com/jrsteele09/learnpath/profiles"
)

// PageData is the template model shared by every page.
type PageData struct {
	AppName   string
	RequestID string
	Title     string
	Active    string
	Error     string
	Notice    string
	Email     string
	RefreshTo string

	User    *identity.Identity
	Profile *profiles.Profile

	Questions []onboarding.Question
	Dashboard *Dashboard
}

// LandingHandler renders the public landing page
func (s *Server) LandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := s.store.State()
		s.render(w, r, http.StatusOK, "landing.html", PageData{Title: "Welcome", User: st.Identity})
	}
}

// HealthHandler reports liveness and the current session status.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok " + s.store.State().Status().String()))
	}
}

// NotFoundHandler handles 404 errors
func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "404 - Page not found", http.StatusNotFound)
	}
}
