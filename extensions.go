package servactory

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/servactory/internal/store"
	"github.com/roach88/servactory/internal/telemetry"
)

// SQLiteJournal is the SQLite-backed Journal.
type SQLiteJournal = store.Journal

// JournalEntry is one recorded invocation of a SQLiteJournal.
type JournalEntry = store.Entry

// OpenJournal opens or creates a SQLite journal at path.
func OpenJournal(path string) (*SQLiteJournal, error) { return store.Open(path) }

// Metrics counts invocations in Prometheus.
type Metrics = telemetry.Metrics

// MetricsConfig configures NewMetrics.
type MetricsConfig = telemetry.MetricsConfig

// NewMetrics creates and registers the invocation collectors. Pass
// Metrics.Observer() to WithObservers or Builder.Observe.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) { return telemetry.NewMetrics(cfg) }

// Tracing returns an observer that wraps each invocation in an
// OpenTelemetry span. A nil provider uses the global one.
func Tracing(tp trace.TracerProvider) Observer { return telemetry.Tracing(tp) }
