package telemetry

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"goldrush/server/logging"
)

func TestWrapLogger(t *testing.T) {
	t.Run("nil logger", func(t *testing.T) {
		logger := WrapLogger(nil)
		logger.Printf("ignored %d", 42)
	})

	t.Run("forwards to logger", func(t *testing.T) {
		var buf bytes.Buffer
		base := log.New(&buf, "", 0)
		logger := WrapLogger(base)
		logger.Printf("hello %s", "world")
		assert.Equal(t, "hello world\n", buf.String())

		provider, ok := logger.(interface{ StandardLogger() *log.Logger })
		assert.True(t, ok)
		assert.Same(t, base, provider.StandardLogger())
	})
}

func TestWrapMetrics(t *testing.T) {
	metrics := logging.Metrics{}
	adapter := WrapMetrics(&metrics)

	adapter.Add(MetricMessagesIn, 2)
	adapter.Store(MetricMessagesIn, 5)
	adapter.Add(MetricMessagesIn, 3)

	assert.Equal(t, uint64(8), metrics.Snapshot()[MetricMessagesIn])

	var nilAdapter Metrics = WrapMetrics(nil)
	nilAdapter.Add("ignored", 1)
	nilAdapter.Store("ignored", 1)
	NopMetrics().Add("ignored", 1)
}
