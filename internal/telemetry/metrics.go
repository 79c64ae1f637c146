package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/servactory/internal/engine"
)

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	// Namespace is the Prometheus namespace (default: "servactory").
	Namespace string

	// Registerer receives the collectors. If nil, a new registry is created.
	Registerer prometheus.Registerer

	// DurationBuckets defines the buckets of the duration histogram.
	// If nil, prometheus.DefBuckets is used.
	DurationBuckets []float64
}

// Metrics counts service invocations.
type Metrics struct {
	calls    *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	now      func() time.Time
}

// NewMetrics creates the collectors and registers them.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if cfg.Namespace == "" {
		cfg.Namespace = "servactory"
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.NewRegistry()
	}
	if cfg.DurationBuckets == nil {
		cfg.DurationBuckets = prometheus.DefBuckets
	}

	m := &Metrics{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "calls_total",
				Help:      "Total number of service calls by outcome",
			},
			[]string{"service", "outcome"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "failures_total",
				Help:      "Total number of expected failures by failure type",
			},
			[]string{"service", "type"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "call_duration_seconds",
				Help:      "Duration of service calls in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"service", "outcome"},
		),
		now: time.Now,
	}

	for _, c := range []prometheus.Collector{m.calls, m.failures, m.duration} {
		if err := cfg.Registerer.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// Observer returns the observer that records each call, including calls
// rejected by input validation.
func (m *Metrics) Observer() engine.Observer {
	return func(c *engine.Context, next func() error) error {
		start := m.now()
		err := next()

		result, typ := classify(err)
		m.calls.WithLabelValues(c.Service(), result).Inc()
		m.duration.WithLabelValues(c.Service(), result).Observe(m.now().Sub(start).Seconds())
		if result == OutcomeFailure {
			m.failures.WithLabelValues(c.Service(), typ).Inc()
		}
		return err
	}
}
