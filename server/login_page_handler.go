package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/jrsteele09/learnpath/identity"
)

const remoteSignOutTimeout = 10 * time.Second

// LoginPageHandler displays the login page (GET /login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, "login.html", PageData{
			Title: "Sign in",
			Email: r.URL.Query().Get(emailParam),
		})
	}
}

// LoginSubmissionHandler processes the login form submission
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		email := r.FormValue("email")
		password := r.FormValue("password")
		if email == "" || password == "" {
			redirectWithError(w, r, RouteLogin, "Email and password are required", email)
			return
		}

		if _, err := s.store.SignIn(r.Context(), email, password); err != nil {
			msg := "Sign in failed, please try again"
			if errors.Is(err, identity.ErrInvalidCredentials) {
				msg = "Invalid email or password"
			}
			redirectWithError(w, r, RouteLogin, msg, email)
			return
		}

		// The guard decides between onboarding and home.
		redirectSuccess(w, r, RouteHome)
	}
}

// LogoutHandler clears the session locally and redirects at once. The
// remote revoke finishes in the background; the store logs its failures.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.store.SignOutInBackground(remoteSignOutTimeout)
		redirectWithNotice(w, r, RouteLogin, "You have been signed out")
	}
}
