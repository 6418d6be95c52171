package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New("growth")

	m.ObserveRun("ok", 2*time.Second)
	m.ObserveRun("partial", time.Second)
	m.ObserveRun("ok", time.Second)
	m.TenantProcessed()
	m.SyncError("staff")
	m.TenantDay("t1", 4, 180.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.syncRuns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tenantsProcessed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tenantErrors.WithLabelValues("staff")))
	assert.Equal(t, 180.5, testutil.ToFloat64(m.estimatedLoss.WithLabelValues("t1")))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "growth_sync_runs_total")
	assert.Contains(t, w.Body.String(), `growth_open_slots{tenant_id="t1"} 4`)
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRun("failed", time.Second)
		m.TenantProcessed()
		m.SyncError("tenant")
		m.TenantDay("t1", 1, 1)
	})
}
