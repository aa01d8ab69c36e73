package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/attune/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveDecision(t *testing.T) {
	m := metrics.New()

	m.ObserveDecision("permit", "normal", 20*time.Millisecond)
	m.ObserveDecision("permit", "normal", 5*time.Millisecond)
	m.ObserveDecision("deny", "critical", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Decisions.WithLabelValues("permit", "normal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("deny", "critical")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.DecisionDuration))
}

func TestMetricsAreIsolatedPerInstance(t *testing.T) {
	a := metrics.New()
	b := metrics.New()

	a.ObserveAlert("coercion", "critical")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Alerts.WithLabelValues("coercion", "critical")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Alerts.WithLabelValues("coercion", "critical")))
}

func TestHandler_ExposesEngineMetrics(t *testing.T) {
	m := metrics.New()
	m.ObserveAlert("wellness", "medium")
	m.LedgerSize.Set(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `attune_alerts_total{level="medium",type="wellness"} 1`))
	assert.True(t, strings.Contains(body, "attune_alert_ledger_size 3"))
}
