// Package metrics exposes session, guard and HTTP metrics for Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records learnpath metrics. It satisfies session.Recorder and
// guard.Recorder.
type Collector struct {
	transitions    *prometheus.CounterVec
	profileFetches *prometheus.CounterVec
	actionFailures *prometheus.CounterVec
	decisions      *prometheus.CounterVec
	guardTimeouts  prometheus.Counter
	httpRequests   *prometheus.CounterVec
	httpLatency    prometheus.Histogram
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "learnpath_session_transitions_total",
			Help: "Session status transitions by new status.",
		}, []string{"status"}),
		profileFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "learnpath_profile_fetches_total",
			Help: "Profile reads by outcome (found, not_found, error).",
		}, []string{"outcome"}),
		actionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "learnpath_auth_action_failures_total",
			Help: "Failed auth actions by action.",
		}, []string{"action"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "learnpath_guard_decisions_total",
			Help: "Route guard decisions by action.",
		}, []string{"action"}),
		guardTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "learnpath_guard_timeouts_total",
			Help: "Loading waits that hit the guard timeout.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "learnpath_http_requests_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "learnpath_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.transitions,
		c.profileFetches,
		c.actionFailures,
		c.decisions,
		c.guardTimeouts,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

func (c *Collector) RecordTransition(status string) {
	c.transitions.WithLabelValues(status).Inc()
}

func (c *Collector) RecordProfileFetch(outcome string) {
	c.profileFetches.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordActionFailure(action string) {
	c.actionFailures.WithLabelValues(action).Inc()
}

func (c *Collector) RecordDecision(action string) {
	c.decisions.WithLabelValues(action).Inc()
}

func (c *Collector) RecordTimeout() {
	c.guardTimeouts.Inc()
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	c.httpLatency.Observe(duration.Seconds())
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
