package metrics

import "github.com/prometheus/client_golang/prometheus"

// TurnMetrics exposes counters/histograms for turn execution.
type TurnMetrics struct {
	turnsStarted prometheus.Counter
	turnsTotal   *prometheus.CounterVec
	turnLatency  prometheus.Histogram
	keepalives   prometheus.Counter
}

// Turn outcome labels.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

func NewTurnMetrics(reg prometheus.Registerer) *TurnMetrics {
	m := &TurnMetrics{
		turnsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "omvyx",
			Subsystem: "dialogue",
			Name:      "turns_started_total",
			Help:      "Turn executions dispatched, including later cancelled ones",
		}),
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "omvyx",
			Subsystem: "dialogue",
			Name:      "turns_total",
			Help:      "Turn executions by outcome",
		}, []string{"outcome"}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "omvyx",
			Subsystem: "dialogue",
			Name:      "turn_latency_seconds",
			Help:      "Latency of completed turn executions",
			Buckets:   prometheus.DefBuckets,
		}),
		keepalives: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "omvyx",
			Subsystem: "transport",
			Name:      "keepalives_total",
			Help:      "Keepalive events echoed",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsStarted, m.turnsTotal, m.turnLatency, m.keepalives)
	return m
}

func (m *TurnMetrics) ObserveTurnStarted() {
	if m == nil {
		return
	}
	m.turnsStarted.Inc()
}

func (m *TurnMetrics) ObserveTurn(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeCompleted {
		m.turnLatency.Observe(seconds)
	}
}

func (m *TurnMetrics) ObserveKeepalive() {
	if m == nil {
		return
	}
	m.keepalives.Inc()
}
