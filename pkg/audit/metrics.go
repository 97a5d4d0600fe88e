package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the monitor's counters.
type Metrics struct {
	inspected prometheus.Counter
	findings  *prometheus.CounterVec
	dropped   prometheus.Counter
}

// NewMetrics registers the audit counters with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		inspected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tenantguard",
			Subsystem: "audit",
			Name:      "operations_inspected_total",
			Help:      "Data-access operations inspected by the scope monitor.",
		}),
		findings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenantguard",
			Subsystem: "audit",
			Name:      "findings_total",
			Help:      "Isolation findings emitted, by reason.",
		}, []string{"reason"}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tenantguard",
			Subsystem: "audit",
			Name:      "dropped_findings_total",
			Help:      "Findings dropped because the async writer buffer was full.",
		}),
	}
}

func (m *Metrics) incInspected() {
	if m != nil {
		m.inspected.Inc()
	}
}

func (m *Metrics) incFinding(reason Reason) {
	if m != nil {
		m.findings.WithLabelValues(string(reason)).Inc()
	}
}

func (m *Metrics) incDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}
