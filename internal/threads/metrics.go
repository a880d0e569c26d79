package threads

import "github.com/prometheus/client_golang/prometheus"

// Metrics exports per-queue counters. A nil *Metrics records nothing.
type Metrics struct {
	submittedTotal *prometheus.CounterVec
	completedTotal *prometheus.CounterVec
	cancelledTotal *prometheus.CounterVec
	panicsTotal    *prometheus.CounterVec
	queueDepth     *prometheus.GaugeVec
}

// NewMetrics creates the queue metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sqldb",
			Subsystem: "queue",
			Name:      "submitted_total",
			Help:      "Units of work submitted to a worker queue.",
		}, []string{"queue"}),
		completedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sqldb",
			Subsystem: "queue",
			Name:      "completed_total",
			Help:      "Units of work that ran to completion, including panics.",
		}, []string{"queue"}),
		cancelledTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sqldb",
			Subsystem: "queue",
			Name:      "cancelled_total",
			Help:      "Units of work withdrawn before they started.",
		}, []string{"queue"}),
		panicsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sqldb",
			Subsystem: "queue",
			Name:      "panics_total",
			Help:      "Units of work that panicked on the worker goroutine.",
		}, []string{"queue"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sqldb",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Units of work waiting to run.",
		}, []string{"queue"}),
	}

	reg.MustRegister(
		m.submittedTotal,
		m.completedTotal,
		m.cancelledTotal,
		m.panicsTotal,
		m.queueDepth,
	)
	return m
}

func (m *Metrics) submitted(queue string, depth int) {
	if m == nil {
		return
	}
	m.submittedTotal.WithLabelValues(queue).Inc()
	m.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

func (m *Metrics) depth(queue string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

func (m *Metrics) completed(queue string) {
	if m == nil {
		return
	}
	m.completedTotal.WithLabelValues(queue).Inc()
}

func (m *Metrics) cancelled(queue string) {
	if m == nil {
		return
	}
	m.cancelledTotal.WithLabelValues(queue).Inc()
}

func (m *Metrics) panicked(queue string) {
	if m == nil {
		return
	}
	m.panicsTotal.WithLabelValues(queue).Inc()
}
