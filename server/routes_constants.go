package server

import "github.com/jrsteele09/learnpath/guard"

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteLanding = "/"

	// Auth Routes
	RouteLogin          = "/login"
	RouteSignup         = "/signup"
	RouteForgotPassword = "/forgot-password"
	RouteLogout         = "/logout"
	RouteAuthGoogle     = "/auth/google"
	RouteCallback       = "/auth/callback"

	// Guarded Routes
	RouteOnboarding = "/onboarding"
	RouteHome       = "/home"
	RouteProgress   = "/progress"
	RouteGoals      = "/goals"
	RouteJobs       = "/jobs"
	RouteGuilds     = "/guilds"
	RouteLearn      = "/learn"

	// Operational Routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
)

// GuardRoutes are the destinations the route guard redirects to.
func GuardRoutes() guard.Routes {
	return guard.Routes{Login: RouteLogin, Onboarding: RouteOnboarding, Home: RouteHome}
}
