package server

import (
	"net/http"

	"github.com/jrsteele09/learnpath/internal/metrics"
)

func (s *Server) initRoutes() {
	s.router.NotFound(ChainMiddleware(s.NotFoundHandler(), s.HTMLMiddleWare()...))

	s.RegisterRouteFunc(http.MethodGet, RouteLanding, ChainMiddleware(s.LandingHandler(), s.HTMLMiddleWare()...))

	// AUTH
	signedOut := s.HTMLMiddleWare(s.RedirectIfSignedIn())
	limited := s.HTMLMiddleWare(s.limiter.Middleware)
	s.RegisterRouteFunc(http.MethodGet, RouteLogin, ChainMiddleware(s.LoginPageHandler(), signedOut...))
	s.RegisterRouteFunc(http.MethodPost, RouteLogin, ChainMiddleware(s.LoginSubmissionHandler(), limited...))
	s.RegisterRouteFunc(http.MethodGet, RouteSignup, ChainMiddleware(s.SignupGetHandler(), signedOut...))
	s.RegisterRouteFunc(http.MethodPost, RouteSignup, ChainMiddleware(s.SignupPostHandler(), limited...))
	s.RegisterRouteFunc(http.MethodGet, RouteForgotPassword, ChainMiddleware(s.ForgotPasswordGetHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc(http.MethodPost, RouteForgotPassword, ChainMiddleware(s.ForgotPasswordPostHandler(), limited...))
	s.RegisterRouteFunc(http.MethodPost, RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc(http.MethodGet, RouteAuthGoogle, ChainMiddleware(s.GoogleSignInHandler(), limited...))
	s.RegisterRouteFunc(http.MethodGet, RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc(http.MethodPost, RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.HTMLMiddleWare()...)) // For form_post response mode

	// GUARDED
	guarded := s.HTMLMiddleWare(s.RequireSession())
	s.RegisterRouteFunc(http.MethodGet, RouteOnboarding, ChainMiddleware(s.OnboardingGetHandler(), guarded...))
	s.RegisterRouteFunc(http.MethodPost, RouteOnboarding, ChainMiddleware(s.OnboardingPostHandler(), guarded...))
	s.RegisterRouteFunc(http.MethodGet, RouteHome, ChainMiddleware(s.HomeHandler(), guarded...))
	s.RegisterRouteFunc(http.MethodGet, RouteProgress, ChainMiddleware(s.ProgressHandler(), guarded...))
	s.RegisterRouteFunc(http.MethodGet, RouteGoals, ChainMiddleware(s.GoalsHandler(), guarded...))
	s.RegisterRouteFunc(http.MethodGet, RouteJobs, ChainMiddleware(s.JobsHandler(), guarded...))
	s.RegisterRouteFunc(http.MethodGet, RouteGuilds, ChainMiddleware(s.GuildsHandler(), guarded...))
	s.RegisterRouteFunc(http.MethodGet, RouteLearn, ChainMiddleware(s.LearnHandler(), guarded...))

	// OPERATIONAL
	s.RegisterRouteFunc(http.MethodGet, RouteHealth, s.HealthHandler())
	if s.gatherer != nil {
		s.RegisterRouteHandler(http.MethodGet, RouteMetrics, metrics.Handler(s.gatherer))
	}

	s.RegisterRouteFunc(http.MethodGet, RouteStaticCSS, ChainMiddleware(s.serveCSSHandler(), s.HTMLMiddleWare(s.CacheMiddleware)...))
}
