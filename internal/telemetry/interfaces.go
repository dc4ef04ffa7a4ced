// Package telemetry holds the narrow logging and metrics interfaces the
// engine and transport depend on, so they never import a concrete logger.
package telemetry

import (
	"log"

	"goldrush/server/logging"
)

// Logger is the operational text log used for startup, shutdown and
// transport failures. Gameplay events go through logging.Publisher instead.
type Logger interface {
	Printf(format string, args ...any)
}

type LoggerFunc func(format string, args ...any)

func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a standard library logger. A nil logger discards output.
func WrapLogger(logger *log.Logger) Logger {
	return &loggerAdapter{logger: logger}
}

type loggerAdapter struct {
	logger *log.Logger
}

func (l *loggerAdapter) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

// StandardLogger exposes the wrapped logger, used as the logging router's
// fallback writer.
func (l *loggerAdapter) StandardLogger() *log.Logger {
	if l == nil {
		return nil
	}
	return l.logger
}

// Metrics is the counter surface shared by the engine, the registry and the
// match queue.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// WrapMetrics adapts logging.Metrics into the Metrics interface.
func WrapMetrics(metrics *logging.Metrics) Metrics {
	return &metricsAdapter{metrics: metrics}
}

type metricsAdapter struct {
	metrics *logging.Metrics
}

func (m *metricsAdapter) Add(key string, delta uint64) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.TelemetryAdd(key, delta)
}

func (m *metricsAdapter) Store(key string, value uint64) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.TelemetryStore(key, value)
}

// NopMetrics discards every update.
func NopMetrics() Metrics { return nopMetrics{} }

type nopMetrics struct{}

func (nopMetrics) Add(string, uint64)   {}
func (nopMetrics) Store(string, uint64) {}

// Counter names shared across packages.
const (
	MetricConnectionsOpen   = "connections_open"
	MetricConnectionsTotal  = "connections_total"
	MetricMessagesIn        = "messages_in_total"
	MetricMessagesRejected  = "messages_rejected_total"
	MetricMessagesOut       = "messages_out_total"
	MetricSendDropped       = "messages_send_dropped_total"
	MetricLobbies           = "lobbies_open"
	MetricLobbiesCreated    = "lobbies_created_total"
	MetricLobbiesReaped     = "lobbies_reaped_total"
	MetricMatchesStarted    = "matches_started_total"
	MetricMatchesFinished   = "matches_finished_total"
	MetricMatchesRecorded   = "matches_recorded_total"
	MetricMatchRecordErrors = "match_record_errors_total"
	MetricMatchQueueDropped = "match_queue_dropped_total"
	MetricUpdatesPublished  = "updates_published_total"
	MetricUpdatesSkipped    = "updates_unchanged_total"
	MetricUpdateBytes       = "update_bytes_total"
	MetricTickMillis        = "tick_duration_millis"
	MetricTickOverruns      = "tick_overruns_total"
)
