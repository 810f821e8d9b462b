package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/learnpath/guard"
	"github.com/jrsteele09/learnpath/internal/metrics"
	"github.com/jrsteele09/learnpath/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var (
	_ session.Recorder = (*metrics.Collector)(nil)
	_ guard.Recorder   = (*metrics.Collector)(nil)
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.RecordTransition("authenticated")
	c.RecordTransition("authenticated")
	c.RecordProfileFetch("not_found")
	c.RecordActionFailure("sign_in")
	c.RecordDecision("redirect")
	c.RecordTimeout()
	c.RecordHTTPRequest(http.StatusSeeOther, 20*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 7)
	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() != nil {
				values[mf.GetName()] += m.GetCounter().GetValue()
			}
		}
	}
	require.Equal(t, 2.0, values["learnpath_session_transitions_total"])
	require.Equal(t, 1.0, values["learnpath_guard_timeouts_total"])
	require.Equal(t, 1.0, values["learnpath_http_requests_total"])
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)
	c.RecordProfileFetch("found")

	w := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `learnpath_profile_fetches_total{outcome="found"} 1`)
}
