package matches

import (
	"context"
	"fmt"
	"sync"
	"time"

	"goldrush/server/internal/telemetry"
	"goldrush/server/logging"
	loggingmatch "goldrush/server/logging/match"
)

// QueueConfig tunes a Queue.
type QueueConfig struct {
	// Size bounds the backlog; RecordMatch fails fast once it is reached.
	Size int
	// Timeout bounds a single write to the underlying Recorder.
	Timeout   time.Duration
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
}

// DefaultQueueConfig returns a 64 entry queue with a five second write timeout.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{Size: 64, Timeout: 5 * time.Second}
}

// Queue decouples the simulation tick from storage latency. It implements
// Recorder itself so the engine does not know whether writes are queued.
type Queue struct {
	next      Recorder
	items     chan Summary
	timeout   time.Duration
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewQueue starts the worker goroutine. Call Close to drain and stop it.
func NewQueue(next Recorder, cfg QueueConfig) *Queue {
	defaults := DefaultQueueConfig()
	if cfg.Size <= 0 {
		cfg.Size = defaults.Size
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.LoggerFunc(nil)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NopMetrics()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	q := &Queue{
		next:      next,
		items:     make(chan Summary, cfg.Size),
		timeout:   cfg.Timeout,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		publisher: cfg.Publisher,
		done:      make(chan struct{}),
	}
	go q.run()
	return q
}

// RecordMatch enqueues the summary without blocking.
func (q *Queue) RecordMatch(_ context.Context, summary Summary) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.items <- summary:
		return nil
	default:
		q.metrics.Add(telemetry.MetricMatchQueueDropped, 1)
		q.logger.Printf("match queue full, dropping game %d from lobby %s", summary.GameID, summary.LobbyCode)
		return ErrQueueFull
	}
}

// Close stops accepting summaries and waits for the backlog to drain.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.items)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain match queue: %w", ctx.Err())
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for summary := range q.items {
		q.write(summary)
	}
}

func (q *Queue) write(summary Summary) {
	if q.next == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if err := q.next.RecordMatch(ctx, summary); err != nil {
		q.metrics.Add(telemetry.MetricMatchRecordErrors, 1)
		q.logger.Printf("record match %d: %v", summary.GameID, err)
		loggingmatch.RecordFailed(ctx, q.publisher, summary.LobbyCode, loggingmatch.RecordFailedPayload{
			GameID: summary.GameID,
			Error:  err.Error(),
		})
		return
	}
	q.metrics.Add(telemetry.MetricMatchesRecorded, 1)
}
