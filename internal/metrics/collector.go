package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector owns every metric the retry machinery emits. A nil
// *Collector is a valid no-op receiver so callers can leave metrics
// unwired.
type Collector struct {
	executionsTotal    *prometheus.CounterVec
	attemptsTotal      *prometheus.CounterVec
	retriesTotal       *prometheus.CounterVec
	executionDuration  *prometheus.HistogramVec
	breakerTransitions *prometheus.CounterVec
	breakerState       *prometheus.GaugeVec
	tokensReserved     *prometheus.CounterVec
	escalationsTotal   *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector registers the metric families under the given namespace
// on the default registry.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.executionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Total number of task executions by final status",
		},
		[]string{"persona", "level", "status"},
	)

	c.attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Total number of task attempts",
		},
		[]string{"persona", "level"},
	)

	c.retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total number of retries by error category",
		},
		[]string{"persona", "level", "category"},
	)

	c.executionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Task execution duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"persona", "level"},
	)

	c.breakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Total number of circuit breaker state transitions",
		},
		[]string{"persona", "from", "to"},
	)

	c.breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Current circuit breaker state (0=Closed, 1=Open, 2=HalfOpen)",
		},
		[]string{"persona"},
	)

	c.tokensReserved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_reserved_total",
			Help:      "Total number of tokens reserved against persona budgets",
		},
		[]string{"persona"},
	)

	c.escalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Total number of failure reports handed to the escalation sink",
		},
		[]string{"persona"},
	)

	c.logger.Debug("metrics registered", zap.String("namespace", namespace))
	return c
}

// RecordExecution counts a finished execution and its duration.
func (c *Collector) RecordExecution(persona, level, status string, seconds float64) {
	if c == nil {
		return
	}
	c.executionsTotal.WithLabelValues(persona, level, status).Inc()
	c.executionDuration.WithLabelValues(persona, level).Observe(seconds)
}

// RecordAttempt counts one task attempt.
func (c *Collector) RecordAttempt(persona, level string) {
	if c == nil {
		return
	}
	c.attemptsTotal.WithLabelValues(persona, level).Inc()
}

// RecordRetry counts a retry decision by category.
func (c *Collector) RecordRetry(persona, level, category string) {
	if c == nil {
		return
	}
	c.retriesTotal.WithLabelValues(persona, level, category).Inc()
}

// RecordBreakerTransition counts a breaker state change and updates the
// state gauge.
func (c *Collector) RecordBreakerTransition(persona, from, to string, toValue float64) {
	if c == nil {
		return
	}
	c.breakerTransitions.WithLabelValues(persona, from, to).Inc()
	c.breakerState.WithLabelValues(persona).Set(toValue)
}

// RecordTokensReserved counts tokens committed against a budget.
func (c *Collector) RecordTokensReserved(persona string, tokens uint64) {
	if c == nil {
		return
	}
	c.tokensReserved.WithLabelValues(persona).Add(float64(tokens))
}

// RecordEscalation counts a failure report handed to the sink.
func (c *Collector) RecordEscalation(persona string) {
	if c == nil {
		return
	}
	c.escalationsTotal.WithLabelValues(persona).Inc()
}
