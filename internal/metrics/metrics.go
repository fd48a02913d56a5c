package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the dual-backend repositories.
type Metrics struct {
	DurableErrorsTotal  *prometheus.CounterVec
	FallbackReadsTotal  *prometheus.CounterVec
	FallbackWritesTotal *prometheus.CounterVec
	RequestsTotal       *prometheus.CounterVec
}

// New creates and registers the repository metrics on reg. Tests pass a fresh
// prometheus.NewRegistry so parallel constructions do not collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DurableErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "repository",
			Name:      "durable_errors_total",
			Help:      "Durable store failures that triggered the fallback path",
		}, []string{"kind", "op"}),
		FallbackReadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "repository",
			Name:      "fallback_reads_total",
			Help:      "Reads served from the in-process fallback store",
		}, []string{"kind", "op"}),
		FallbackWritesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "repository",
			Name:      "fallback_writes_total",
			Help:      "Writes landed in the in-process fallback store",
		}, []string{"kind", "op"}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "repository",
			Name:      "requests_total",
			Help:      "Repository operations by kind and op",
		}, []string{"kind", "op"}),
	}
}

// The repositories treat a nil *Metrics as "metrics disabled"; these helpers
// keep the call sites unconditional.

func (m *Metrics) DurableError(kind, op string) {
	if m == nil {
		return
	}
	m.DurableErrorsTotal.WithLabelValues(kind, op).Inc()
}

func (m *Metrics) FallbackRead(kind, op string) {
	if m == nil {
		return
	}
	m.FallbackReadsTotal.WithLabelValues(kind, op).Inc()
}

func (m *Metrics) FallbackWrite(kind, op string) {
	if m == nil {
		return
	}
	m.FallbackWritesTotal.WithLabelValues(kind, op).Inc()
}

func (m *Metrics) Request(kind, op string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(kind, op).Inc()
}
