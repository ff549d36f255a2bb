package authz

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for authorization decisions.
type Metrics struct {
	decisions *prometheus.CounterVec
	syncs     prometheus.Counter
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the authz metrics against the provided registerer.
// When the registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Decision records the outcome of a guard check.
func (m *Metrics) Decision(kind string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	m.decisions.WithLabelValues(kind, outcome).Inc()
}

// SyncRecorded counts a session snapshot recomputation.
func (m *Metrics) SyncRecorded() {
	if m == nil {
		return
	}
	m.syncs.Inc()
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hostelcore_authz_decisions_total",
		Help: "Authorization guard decisions partitioned by check kind and outcome.",
	}, []string{"kind", "outcome"})
	syncs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hostelcore_authz_session_syncs_total",
		Help: "Effective authorization snapshots recomputed into sessions.",
	})
	registerer.MustRegister(decisions, syncs)
	return &Metrics{decisions: decisions, syncs: syncs}
}
