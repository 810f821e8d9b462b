package server

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/learnpath/guard"
	"github.com/jrsteele09/learnpath/internal/config"
	"github.com/jrsteele09/learnpath/internal/metrics"
	"github.com/jrsteele09/learnpath/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Deps are the collaborators the server renders and acts on.
type Deps struct {
	Store    *session.Store
	Guard    *guard.Guard
	Metrics  *metrics.Collector  // optional
	Gatherer prometheus.Gatherer // serves /metrics when set
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	router   chi.Router
	routes   []string
	config   config.Config
	store    *session.Store
	guard    *guard.Guard
	metrics  *metrics.Collector
	gatherer prometheus.Gatherer
	limiter  *RateLimiter
	pages    map[string]*template.Template
}

func New(config config.Config, deps Deps) (*Server, error) {
	if deps.Store == nil || deps.Guard == nil {
		return nil, fmt.Errorf("[Server New] store and guard are required")
	}

	pages, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	s := &Server{
		env:      config.GetEnv(),
		router:   chi.NewRouter(),
		config:   config,
		store:    deps.Store,
		guard:    deps.Guard,
		metrics:  deps.Metrics,
		gatherer: deps.Gatherer,
		limiter:  NewRateLimiter(config.GetAuthRatePerMinute()),
		pages:    pages,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(method, pattern string, handler http.Handler) {
	s.routes = append(s.routes, method+" "+pattern)
	s.router.Method(method, pattern, handler)
}

func (s *Server) RegisterRouteFunc(method, pattern string, handler http.HandlerFunc) {
	s.RegisterRouteHandler(method, pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		log.Debug().Msg(colourMethod(parts[0]) + " " + parts[1])
	}
}
