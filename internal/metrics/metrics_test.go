package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/proposalflow/internal/metrics"
)

func TestMetrics_Observe(t *testing.T) {
	m := metrics.New()

	m.ObserveTransition("general", "draft", "approved", "success", 20*time.Millisecond)
	m.ObserveTransition("general", "approved", "draft", "invalid_transition", time.Millisecond)
	m.ObserveDispatch("proposal.approved", "formalization", "published")
	m.ObserveDrift(2, 1)

	n, err := testutil.GatherAndCount(m.Registry(),
		"proposalflow_transitions_total",
		"proposalflow_event_dispatches_total",
		"proposalflow_status_drift_proposals",
	)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `proposalflow_transitions_total{context="general",from="draft",outcome="success",to="approved"} 1`)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.ObserveTransition("general", "draft", "approved", "success", time.Second)
		m.ObserveDispatch("proposal.approved", "formalization", "published")
		m.ObserveDrift(0, 0)
	})
}
