package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Settlement outcome labels.
const (
	OutcomeSettled  = "settled"
	OutcomeDeferred = "deferred"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// SettlementMetrics tracks stake settlement outcomes and the circulating pool.
type SettlementMetrics struct {
	outcomes  *prometheus.CounterVec
	remaining prometheus.Gauge
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stake_settlements_total",
		Help: "Stake settlement attempts by outcome.",
	}, []string{"outcome"})
	remaining := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "supply_circulating_remaining",
		Help: "Tokens left in the user circulating allocation.",
	})
	reg.MustRegister(outcomes, remaining)
	return &SettlementMetrics{outcomes: outcomes, remaining: remaining}
}

// IncOutcome increments the counter for the given settlement outcome.
func (s *SettlementMetrics) IncOutcome(outcome string) {
	if s == nil || s.outcomes == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	s.outcomes.WithLabelValues(outcome).Inc()
}

// SetCirculatingRemaining publishes the latest remaining counter.
func (s *SettlementMetrics) SetCirculatingRemaining(v decimal.Decimal) {
	if s == nil || s.remaining == nil {
		return
	}
	s.remaining.Set(v.InexactFloat64())
}
