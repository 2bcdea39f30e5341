package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestTurnMetricsObserve(t *testing.T) {
	m := NewTurnMetrics(prometheus.NewRegistry())
	m.ObserveTurnStarted()
	m.ObserveTurn(OutcomeCompleted, 0.25)
	m.ObserveTurn(OutcomeCancelled, 0.1)
	m.ObserveTurn(OutcomeFailed, 0.1)
	m.ObserveKeepalive()
}

func TestTurnMetricsDefaultRegistry(t *testing.T) {
	m := NewTurnMetrics(nil)
	m.ObserveTurn(OutcomeCompleted, 0.5)
}

func TestTurnMetricsNilSafe(t *testing.T) {
	var m *TurnMetrics
	m.ObserveTurnStarted()
	m.ObserveTurn(OutcomeCompleted, 0.1)
	m.ObserveKeepalive()
}
