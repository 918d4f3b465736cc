package resilience

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

// Outcomes of a guarded outbound call
const (
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeRejected = "rejected"
)

var (
	outboundCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_outbound_calls_total",
		Help: "Outbound calls through a circuit breaker by target and outcome",
	}, []string{"target", "outcome"})

	outboundCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_outbound_call_duration_seconds",
		Help:    "Latency of outbound calls that reached the target",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"target"})

	outboundBreakerOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "storefront_outbound_breaker_open",
		Help: "1 while the breaker for a target rejects calls, 0.5 half-open, 0 closed",
	}, []string{"target"})

	outboundBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_outbound_breaker_transitions_total",
		Help: "Breaker state transitions by target and new state",
	}, []string{"target", "state"})
)

// targetMetrics holds the series of one outbound target
type targetMetrics struct {
	target   string
	success  prometheus.Counter
	failure  prometheus.Counter
	rejected prometheus.Counter
	latency  prometheus.Observer
	state    prometheus.Gauge
}

func newTargetMetrics(target string) *targetMetrics {
	m := &targetMetrics{
		target:   target,
		success:  outboundCallsTotal.WithLabelValues(target, outcomeSuccess),
		failure:  outboundCallsTotal.WithLabelValues(target, outcomeFailure),
		rejected: outboundCallsTotal.WithLabelValues(target, outcomeRejected),
		latency:  outboundCallDuration.WithLabelValues(target),
		state:    outboundBreakerOpen.WithLabelValues(target),
	}
	m.state.Set(stateValue(gobreaker.StateClosed))
	return m
}

func (m *targetMetrics) observe(start time.Time, err error) {
	m.latency.Observe(time.Since(start).Seconds())
	if err != nil {
		m.failure.Inc()
		return
	}
	m.success.Inc()
}

func (m *targetMetrics) transition(to gobreaker.State) {
	m.state.Set(stateValue(to))
	outboundBreakerTrips.WithLabelValues(m.target, to.String()).Inc()
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 0.5
	default:
		return 0
	}
}
