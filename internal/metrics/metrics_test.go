package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestReconcileFinished_CountsByPathAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ReconcileFinished("signed_in", "fallback")
	c.ReconcileFinished("signed_in", "fallback")
	c.ReconcileFinished("logout", "cleared")

	mf := findFamily(t, reg, "desirius_session_reconciliations_total")
	require.Len(t, mf.GetMetric(), 2)
	for _, m := range mf.GetMetric() {
		switch labelValue(m, "path") {
		case "signed_in":
			assert.Equal(t, "fallback", labelValue(m, "outcome"))
			assert.Equal(t, float64(2), m.GetCounter().GetValue())
		case "logout":
			assert.Equal(t, "cleared", labelValue(m, "outcome"))
			assert.Equal(t, float64(1), m.GetCounter().GetValue())
		default:
			t.Errorf("unexpected path label %q", labelValue(m, "path"))
		}
	}
}

func TestFetchAttempt_ObservesLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.FetchAttempt("ok", 20*time.Millisecond)
	c.FetchAttempt("timeout", 5*time.Second)

	attempts := findFamily(t, reg, "desirius_profile_fetch_attempts_total")
	assert.Len(t, attempts.GetMetric(), 2)

	latency := findFamily(t, reg, "desirius_profile_fetch_latency_seconds")
	require.Len(t, latency.GetMetric(), 1)
	assert.Equal(t, uint64(2), latency.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestSessionsActive_SetsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SessionsActive(3)
	c.SessionsActive(1)

	mf := findFamily(t, reg, "desirius_sessions_active")
	assert.Equal(t, float64(1), mf.GetMetric()[0].GetGauge().GetValue())
}

func TestRegisterRoute_ServesMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ReconcileFinished("check", "verified")

	router := gin.New()
	RegisterRoute(router, reg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Result().Body)
	assert.Contains(t, string(body), `desirius_session_reconciliations_total{outcome="verified",path="check"} 1`)
}
