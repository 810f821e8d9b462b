package server

import (
	"net/http"
)

// dashboardPage renders one of the guarded dashboard pages.
func (s *Server) dashboardPage(page, title, active string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := sessionState(r)
		s.render(w, r, http.StatusOK, page, PageData{
			Title:     title,
			Active:    active,
			User:      st.Identity,
			Profile:   st.Profile,
			Dashboard: buildDashboard(st.Profile),
		})
	}
}

func (s *Server) HomeHandler() http.HandlerFunc {
	return s.dashboardPage("home.html", "Home", RouteHome)
}

func (s *Server) ProgressHandler() http.HandlerFunc {
	return s.dashboardPage("progress.html", "Progress", RouteProgress)
}

func (s *Server) GoalsHandler() http.HandlerFunc {
	return s.dashboardPage("goals.html", "Goals", RouteGoals)
}

func (s *Server) JobsHandler() http.HandlerFunc {
	return s.dashboardPage("jobs.html", "Jobs", RouteJobs)
}

func (s *Server) GuildsHandler() http.HandlerFunc {
	return s.dashboardPage("guilds.html", "Guilds", RouteGuilds)
}

func (s *Server) LearnHandler() http.HandlerFunc {
	return s.dashboardPage("learn.html", "Learn", RouteLearn)
}
