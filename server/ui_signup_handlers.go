package server

import (
	"errors"
	"net/http"

	"github.com/jrsteele09/learnpath/identity"
	"github.com/rs/zerolog/log"
)

// SignupGetHandler renders the signup page
func (s *Server) SignupGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, "signup.html", PageData{
			Title: "Create account",
			Email: r.URL.Query().Get(emailParam),
		})
	}
}

// SignupPostHandler handles registration form submission
func (s *Server) SignupPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		req := identity.SignUpRequest{
			Email:       r.FormValue("email"),
			Password:    r.FormValue("password"),
			DisplayName: r.FormValue("display_name"),
			RedirectTo:  s.config.GetBaseURL() + RouteLogin,
		}
		if req.Email == "" || req.Password == "" {
			redirectWithError(w, r, RouteSignup, "Email and password are required", req.Email)
			return
		}
		if req.Password != r.FormValue("confirm_password") {
			redirectWithError(w, r, RouteSignup, "Passwords do not match", req.Email)
			return
		}

		sess, err := s.store.SignUp(r.Context(), req)
		if err != nil {
			redirectWithError(w, r, RouteSignup, signUpMessage(err), req.Email)
			return
		}
		if sess == nil {
			redirectWithNotice(w, r, RouteLogin, "Check your email to confirm your account")
			return
		}
		redirectSuccess(w, r, RouteOnboarding)
	}
}

func signUpMessage(err error) string {
	var d interface{ UserMessage() string }
	if errors.As(err, &d) && d.UserMessage() != "" {
		return d.UserMessage()
	}
	return "Sign up failed, please try again"
}

// ForgotPasswordGetHandler renders the forgot-password page
func (s *Server) ForgotPasswordGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, "forgot_password.html", PageData{
			Title: "Reset password",
			Email: r.URL.Query().Get(emailParam),
		})
	}
}

// ForgotPasswordPostHandler asks the provider to email a reset link
func (s *Server) ForgotPasswordPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		email := r.FormValue("email")
		if email == "" {
			redirectWithError(w, r, RouteForgotPassword, "Email is required", "")
			return
		}

		if err := s.store.ResetPassword(r.Context(), email, s.config.GetBaseURL()+RouteLogin); err != nil {
			log.Err(err).Msg("ForgotPassword: reset request failed")
			redirectWithError(w, r, RouteForgotPassword, "Could not send the reset email, please try again", email)
			return
		}
		redirectWithNotice(w, r, RouteLogin, "If an account exists for "+email+", a reset link is on its way")
	}
}
