package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// SweepMetrics tracks the overdue/expired document sweeper.
type SweepMetrics struct {
	documentsMarked *prometheus.CounterVec
	sweepErrors     prometheus.Counter
}

var (
	sweepOnce    sync.Once
	sweepMetrics *SweepMetrics
)

// Sweep returns the process-wide sweeper metrics.
func Sweep() *SweepMetrics {
	sweepOnce.Do(func() {
		sweepMetrics = newSweepMetrics(prometheus.DefaultRegisterer)
	})
	return sweepMetrics
}

func newSweepMetrics(registerer prometheus.Registerer) *SweepMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &SweepMetrics{
		documentsMarked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invozo_sweep_documents_marked_total",
			Help: "Documents transitioned by the date sweeper.",
		}, []string{"kind", "status"}),
		sweepErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invozo_sweep_errors_total",
			Help: "Sweep batches that failed.",
		}),
	}
	registerer.MustRegister(m.documentsMarked, m.sweepErrors)
	return m
}

// MarkDocument records one automatic status transition.
func (m *SweepMetrics) MarkDocument(kind, status string) {
	if m == nil {
		return
	}
	m.documentsMarked.WithLabelValues(kind, status).Inc()
}

// MarkError records a failed sweep batch.
func (m *SweepMetrics) MarkError() {
	if m == nil {
		return
	}
	m.sweepErrors.Inc()
}
