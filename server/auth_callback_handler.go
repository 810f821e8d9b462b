package server

import (
	"errors"
	"net/http"

	"github.com/jrsteele09/learnpath/identity"
	"github.com/rs/zerolog/log"
)

// GoogleSignInHandler starts the Google OAuth flow.
func (s *Server) GoogleSignInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL, err := s.store.SignInWithGoogle(r.Context(), s.callbackURL())
		if err != nil {
			redirectWithError(w, r, RouteLogin, "Google sign in is unavailable right now", "")
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// OAuthCallbackHandler completes the OAuth flow started by
// GoogleSignInHandler.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// r.FormValue covers both query params and form_post bodies
		state := r.FormValue("state")
		code := r.FormValue("code")

		if errorParam := r.FormValue("error"); errorParam != "" {
			desc := r.FormValue("error_description")
			log.Warn().Str("error", errorParam).Str("description", desc).Msg("OAuth provider returned an error")
			if desc == "" {
				desc = "Sign in was cancelled"
			}
			redirectWithError(w, r, RouteLogin, desc, "")
			return
		}
		if code == "" || state == "" {
			redirectWithError(w, r, RouteLogin, "Missing code or state parameter", "")
			return
		}

		if _, err := s.store.CompleteOAuthSignIn(r.Context(), code, state); err != nil {
			msg := "Sign in failed, please try again"
			if errors.Is(err, identity.ErrInvalidState) {
				msg = "Your sign in link expired, please try again"
			}
			redirectWithError(w, r, RouteLogin, msg, "")
			return
		}
		redirectSuccess(w, r, RouteHome)
	}
}
