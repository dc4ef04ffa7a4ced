package registry

import (
	"context"
	"encoding/json"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldrush/server/internal/net/proto"
	"goldrush/server/internal/telemetry"
	"goldrush/server/logging"
	loggingnetwork "goldrush/server/logging/network"
)

type capturedEvents struct {
	mu     sync.Mutex
	events []logging.Event
}

func (c *capturedEvents) publisher() logging.Publisher {
	return logging.PublisherFunc(func(_ context.Context, event logging.Event) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.events = append(c.events, event)
	})
}

func (c *capturedEvents) ofType(t logging.EventType) []logging.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []logging.Event
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func sequenceIDs(ids ...string) func() string {
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func drain(t *testing.T, c *Client) []map[string]any {
	t.Helper()
	var out []map[string]any
	for {
		select {
		case data := <-c.Outgoing():
			var body map[string]any
			require.NoError(t, json.Unmarshal(data, &body))
			out = append(out, body)
		default:
			return out
		}
	}
}

func TestShortIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^C[0-9A-F]{5}$`)
	for i := 0; i < 100; i++ {
		assert.Regexp(t, pattern, shortID())
	}
}

func TestRegisterAnnouncesArrival(t *testing.T) {
	r := New(Config{NewID: sequenceIDs("CAAAAA", "CBBBBB")})

	first := r.Register("10.0.0.1:1000")
	assert.Equal(t, "CAAAAA", first.ID())
	msgs := drain(t, first)
	require.Len(t, msgs, 1)
	assert.Equal(t, proto.TypeWelcome, msgs[0]["type"])
	assert.Equal(t, "CAAAAA", msgs[0]["id"])
	assert.Equal(t, 1.0, msgs[0]["totalClients"])

	second := r.Register("10.0.0.2:1000")
	welcome := drain(t, second)
	require.Len(t, welcome, 1)
	assert.Equal(t, proto.TypeWelcome, welcome[0]["type"])
	assert.Equal(t, 2.0, welcome[0]["totalClients"])

	announced := drain(t, first)
	require.Len(t, announced, 1)
	assert.Equal(t, proto.TypeNewClient, announced[0]["type"])
	assert.Equal(t, "CBBBBB", announced[0]["id"])
	assert.Equal(t, 2.0, announced[0]["totalClients"])
	assert.Equal(t, 2, r.Count())
}

func TestRegisterRetriesTakenIDs(t *testing.T) {
	r := New(Config{NewID: sequenceIDs("CAAAAA", "CAAAAA", "CAAAAA", "CCCCCC")})
	a := r.Register("")
	b := r.Register("")
	assert.Equal(t, "CAAAAA", a.ID())
	assert.Equal(t, "CCCCCC", b.ID())
}

func TestUnregisterAnnouncesDeparture(t *testing.T) {
	events := &capturedEvents{}
	r := New(Config{NewID: sequenceIDs("CAAAAA", "CBBBBB"), Publisher: events.publisher()})
	a := r.Register("")
	b := r.Register("")
	drain(t, a)
	drain(t, b)

	require.True(t, r.Unregister("CBBBBB", "read error"))
	assert.False(t, r.Unregister("CBBBBB", "again"))
	assert.False(t, r.Has("CBBBBB"))

	select {
	case <-b.Done():
	default:
		t.Fatal("removed client should be closed")
	}

	msgs := drain(t, a)
	require.Len(t, msgs, 1)
	assert.Equal(t, proto.TypeClientDisconnected, msgs[0]["type"])
	assert.Equal(t, "CBBBBB", msgs[0]["id"])
	assert.Equal(t, 1.0, msgs[0]["totalClients"])

	closed := events.ofType(loggingnetwork.EventConnectionClosed)
	require.Len(t, closed, 1)
	assert.Equal(t, "CBBBBB", closed[0].Actor.ID)
	assert.Len(t, events.ofType(loggingnetwork.EventConnectionOpened), 2)
}

func TestSendDropsWhenQueueFull(t *testing.T) {
	metrics := &logging.Metrics{}
	events := &capturedEvents{}
	r := New(Config{
		QueueSize: 2,
		NewID:     sequenceIDs("CAAAAA"),
		Metrics:   telemetry.WrapMetrics(metrics),
		Publisher: events.publisher(),
	})
	c := r.Register("")
	// The welcome already holds one slot.
	r.Send(c.ID(), []byte(`{"type":"countdown","timeLeft":3}`))
	r.Send(c.ID(), []byte(`{"type":"countdown","timeLeft":2}`))

	msgs := drain(t, c)
	require.Len(t, msgs, 2)
	assert.Equal(t, 3.0, msgs[1]["timeLeft"])

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot[telemetry.MetricSendDropped])
	assert.Equal(t, uint64(2), snapshot[telemetry.MetricMessagesOut])
	dropped := events.ofType(loggingnetwork.EventSendDropped)
	require.Len(t, dropped, 1)
	assert.Equal(t, loggingnetwork.SendDroppedPayload{MessageType: proto.TypeCountdown}, dropped[0].Payload)
}

func TestSendIgnoresUnknownAndClosedClients(t *testing.T) {
	metrics := &logging.Metrics{}
	r := New(Config{NewID: sequenceIDs("CAAAAA"), Metrics: telemetry.WrapMetrics(metrics)})
	r.Send("CZZZZZ", []byte(`{}`))

	c := r.Register("")
	drain(t, c)
	r.Unregister(c.ID(), "")
	r.deliver(c, []byte(`{}`))
	assert.Zero(t, metrics.Snapshot()[telemetry.MetricSendDropped])
	assert.Empty(t, drain(t, c))
}

func TestBroadcastSkipsExcluded(t *testing.T) {
	r := New(Config{NewID: sequenceIDs("CAAAAA", "CBBBBB", "CCCCCC")})
	clients := []*Client{r.Register(""), r.Register(""), r.Register("")}
	for _, c := range clients {
		drain(t, c)
	}

	r.Broadcast([]byte(`{"type":"gameStarted"}`), "CBBBBB")
	assert.Len(t, drain(t, clients[0]), 1)
	assert.Empty(t, drain(t, clients[1]))
	assert.Len(t, drain(t, clients[2]), 1)
	assert.ElementsMatch(t, []string{"CAAAAA", "CBBBBB", "CCCCCC"}, r.IDs())
}
