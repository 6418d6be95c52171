package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of the growth sync. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	syncRuns         *prometheus.CounterVec
	syncDuration     prometheus.Histogram
	tenantsProcessed prometheus.Counter
	tenantErrors     *prometheus.CounterVec
	openSlots        *prometheus.GaugeVec
	estimatedLoss    *prometheus.GaugeVec
}

// New creates the collectors under namespace and registers them on a fresh registry.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Growth sync runs by outcome.",
		}, []string{"result"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Wall time of full growth sync runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		tenantsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tenants_processed_total",
			Help:      "Tenants whose derived tables were refreshed.",
		}),
		tenantErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_errors_total",
			Help:      "Failures isolated during growth syncs, by stage.",
		}, []string{"stage"}),
		openSlots: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_slots",
			Help:      "Open slots of the current day per tenant.",
		}, []string{"tenant_id"}),
		estimatedLoss: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "estimated_loss",
			Help:      "Estimated lost revenue of the current day per tenant.",
		}, []string{"tenant_id"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.syncRuns, m.syncDuration, m.tenantsProcessed, m.tenantErrors, m.openSlots, m.estimatedLoss,
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records one full sync. result is "ok", "partial" or "failed".
func (m *Metrics) ObserveRun(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(result).Inc()
	m.syncDuration.Observe(d.Seconds())
}

func (m *Metrics) TenantProcessed() {
	if m == nil {
		return
	}
	m.tenantsProcessed.Inc()
}

// SyncError counts an isolated failure; stage is "tenant" or "staff".
func (m *Metrics) SyncError(stage string) {
	if m == nil {
		return
	}
	m.tenantErrors.WithLabelValues(stage).Inc()
}

// TenantDay publishes the current day's figures of a tenant.
func (m *Metrics) TenantDay(tenantID string, openSlots int, estimatedLoss float64) {
	if m == nil {
		return
	}
	m.openSlots.WithLabelValues(tenantID).Set(float64(openSlots))
	m.estimatedLoss.WithLabelValues(tenantID).Set(estimatedLoss)
}
