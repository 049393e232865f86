package trigger

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeMatched    = "matched"
	outcomeSticky     = "sticky"
	outcomeHardReset  = "hard_reset"
	outcomeExpired    = "session_expired"
	outcomeNoMatch    = "no_match"
	outcomeStoreError = "store_error"
)

// Metrics counts trigger decisions by outcome.
type Metrics struct {
	decisions *prometheus.CounterVec
}

// NewMetrics creates and registers the decision counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatvine",
			Subsystem: "trigger",
			Name:      "decisions_total",
			Help:      "Trigger routing decisions by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.decisions)
	return m
}

func (e *Engine) count(outcome string) {
	if e.metrics == nil {
		return
	}
	e.metrics.decisions.WithLabelValues(outcome).Inc()
}
