package server

import (
	"sync/atomic"
	"time"

	"goldrush/server/internal/telemetry"
)

// telemetryCounters tracks the publisher and tick loop. Values are mirrored
// into the shared metrics so /diagnostics can show them next to transport
// counters.
type telemetryCounters struct {
	metrics telemetry.Metrics

	bytesSent          atomic.Uint64
	updatesPublished   atomic.Uint64
	updatesSkipped     atomic.Uint64
	tickDurationMillis atomic.Int64
	tickOverruns       atomic.Uint64
	overrunStreak      atomic.Uint64
}

type telemetrySnapshot struct {
	BytesSent        uint64 `json:"bytesSent"`
	UpdatesPublished uint64 `json:"updatesPublished"`
	UpdatesSkipped   uint64 `json:"updatesSkipped"`
	TickDuration     int64  `json:"tickDurationMillis"`
	TickOverruns     uint64 `json:"tickOverruns"`
}

func newTelemetryCounters(metrics telemetry.Metrics) *telemetryCounters {
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &telemetryCounters{metrics: metrics}
}

// RecordUpdate counts one changed snapshot fanned out to recipients.
func (t *telemetryCounters) RecordUpdate(bytes, recipients int) {
	if bytes < 0 || recipients < 0 {
		return
	}
	total := uint64(bytes) * uint64(recipients)
	t.bytesSent.Add(total)
	t.updatesPublished.Add(1)
	t.metrics.Add(telemetry.MetricUpdateBytes, total)
	t.metrics.Add(telemetry.MetricUpdatesPublished, 1)
}

func (t *telemetryCounters) RecordUnchanged() {
	t.updatesSkipped.Add(1)
	t.metrics.Add(telemetry.MetricUpdatesSkipped, 1)
}

// RecordTickDuration stores the last tick duration and reports whether it
// overran its budget, along with the current overrun streak.
func (t *telemetryCounters) RecordTickDuration(duration, budget time.Duration) (bool, uint64) {
	millis := duration.Milliseconds()
	if millis < 0 {
		millis = 0
	}
	t.tickDurationMillis.Store(millis)
	t.metrics.Store(telemetry.MetricTickMillis, uint64(millis))
	if budget <= 0 || float64(duration) <= float64(budget)*tickOverrunRatio {
		t.overrunStreak.Store(0)
		return false, 0
	}
	t.tickOverruns.Add(1)
	t.metrics.Add(telemetry.MetricTickOverruns, 1)
	return true, t.overrunStreak.Add(1)
}

func (t *telemetryCounters) Snapshot() telemetrySnapshot {
	return telemetrySnapshot{
		BytesSent:        t.bytesSent.Load(),
		UpdatesPublished: t.updatesPublished.Load(),
		UpdatesSkipped:   t.updatesSkipped.Load(),
		TickDuration:     t.tickDurationMillis.Load(),
		TickOverruns:     t.tickOverruns.Load(),
	}
}
