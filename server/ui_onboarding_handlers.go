package server

import (
	"errors"
	"net/http"

	"github.com/jrsteele09/learnpath/onboarding"
	"github.com/jrsteele09/learnpath/session"
)

// OnboardingGetHandler renders the learning-style questionnaire.
func (s *Server) OnboardingGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := sessionState(r)
		s.render(w, r, http.StatusOK, "onboarding.html", PageData{
			Title:     "Find your learning style",
			Active:    RouteOnboarding,
			User:      st.Identity,
			Profile:   st.Profile,
			Questions: onboarding.Questions,
		})
	}
}

// OnboardingPostHandler scores the answers and saves the result.
func (s *Server) OnboardingPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		answers := make(map[string]string, len(onboarding.Questions))
		for _, q := range onboarding.Questions {
			answers[q.ID] = r.FormValue(q.ID)
		}
		result, err := onboarding.Score(onboarding.Questions, answers)
		if err != nil {
			redirectWithError(w, r, RouteOnboarding, "Please answer every question", "")
			return
		}

		if _, err := s.store.UpdateProfile(r.Context(), result.Patch()); err != nil {
			if errors.Is(err, session.ErrUnauthenticated) || errors.Is(err, session.ErrSessionChanged) {
				redirectSuccess(w, r, RouteLogin)
				return
			}
			redirectWithError(w, r, RouteOnboarding, "Could not save your results, please try again", "")
			return
		}
		redirectSuccess(w, r, RouteHome)
	}
}
