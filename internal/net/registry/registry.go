// Package registry tracks live connections by id. It owns each connection's
// bounded outbound queue and announces arrivals and departures to every
// client; it knows nothing about lobbies.
package registry

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"goldrush/server/internal/net/proto"
	"goldrush/server/internal/telemetry"
	"goldrush/server/logging"
	loggingnetwork "goldrush/server/logging/network"
)

const (
	DefaultQueueSize = 64

	idPrefix    = "C"
	idHexLength = 5
)

// Config tunes a Registry. Zero values select defaults.
type Config struct {
	// QueueSize bounds each connection's outbound queue.
	QueueSize int
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
	// NewID overrides id generation in tests.
	NewID func() string
}

// Client is one registered connection. Outgoing yields queued messages until
// the client is removed, after which Done is closed.
type Client struct {
	id         string
	remoteAddr string
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
}

func (c *Client) ID() string { return c.id }

func (c *Client) RemoteAddr() string { return c.remoteAddr }

func (c *Client) Outgoing() <-chan []byte { return c.send }

func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// enqueue never blocks; it reports false when the queue is full or the
// client is gone.
func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Registry tracks live connections and their outbound queues. It is safe
// for concurrent use.
type Registry struct {
	cfg       Config
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher
	newID     func() string

	mu      sync.RWMutex
	clients map[string]*Client
}

// New returns an empty registry.
func New(cfg Config) *Registry {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	r := &Registry{
		cfg:       cfg,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		publisher: cfg.Publisher,
		newID:     cfg.NewID,
		clients:   make(map[string]*Client),
	}
	if r.logger == nil {
		r.logger = telemetry.LoggerFunc(nil)
	}
	if r.metrics == nil {
		r.metrics = telemetry.NopMetrics()
	}
	if r.publisher == nil {
		r.publisher = logging.NopPublisher()
	}
	if r.newID == nil {
		r.newID = shortID
	}
	return r
}

// shortID is "C" followed by the first five hex digits of a random UUID.
func shortID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return idPrefix + strings.ToUpper(raw[:idHexLength])
}

// Register allocates an unused id for a new connection, queues its welcome
// and tells every other client about it.
func (r *Registry) Register(remoteAddr string) *Client {
	r.mu.Lock()
	id := r.newID()
	for {
		if _, taken := r.clients[id]; !taken {
			break
		}
		id = r.newID()
	}
	c := &Client{
		id:         id,
		remoteAddr: remoteAddr,
		send:       make(chan []byte, r.cfg.QueueSize),
		done:       make(chan struct{}),
	}
	r.clients[id] = c
	total := len(r.clients)
	r.mu.Unlock()

	r.metrics.Add(telemetry.MetricConnectionsTotal, 1)
	r.metrics.Store(telemetry.MetricConnectionsOpen, uint64(total))
	loggingnetwork.ConnectionOpened(context.Background(), r.publisher, id, loggingnetwork.ConnectionPayload{
		RemoteAddr:   remoteAddr,
		TotalClients: total,
	})

	r.sendMessage(id, proto.NewWelcome(id, total))
	r.broadcastMessage(proto.NewClientJoined(id, total), id)
	return c
}

// Unregister removes a connection and tells the remaining clients. It
// reports false when id was not registered.
func (r *Registry) Unregister(id, reason string) bool {
	r.mu.Lock()
	c, ok := r.clients[id]
	if ok {
		delete(r.clients, id)
	}
	total := len(r.clients)
	r.mu.Unlock()
	if !ok {
		return false
	}
	c.close()

	r.metrics.Store(telemetry.MetricConnectionsOpen, uint64(total))
	loggingnetwork.ConnectionClosed(context.Background(), r.publisher, id, loggingnetwork.ConnectionPayload{
		RemoteAddr:   c.remoteAddr,
		TotalClients: total,
		Reason:       reason,
	})
	r.broadcastMessage(proto.NewClientDisconnected(id, total), "")
	return true
}

// Send queues already encoded bytes for one connection. Unknown ids are
// ignored and a full queue drops the message.
func (r *Registry) Send(id string, data []byte) {
	r.mu.RLock()
	c, ok := r.clients[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	r.deliver(c, data)
}

// Broadcast queues data for every connection except the one named.
func (r *Registry) Broadcast(data []byte, except string) {
	r.mu.RLock()
	targets := make([]*Client, 0, len(r.clients))
	for id, c := range r.clients {
		if id != except {
			targets = append(targets, c)
		}
	}
	r.mu.RUnlock()
	for _, c := range targets {
		r.deliver(c, data)
	}
}

func (r *Registry) deliver(c *Client, data []byte) {
	if c.enqueue(data) {
		r.metrics.Add(telemetry.MetricMessagesOut, 1)
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	r.metrics.Add(telemetry.MetricSendDropped, 1)
	loggingnetwork.SendDropped(context.Background(), r.publisher, c.id, loggingnetwork.SendDroppedPayload{
		MessageType: messageType(data),
	})
}

func (r *Registry) sendMessage(id string, msg any) {
	data, err := proto.Encode(msg)
	if err != nil {
		r.logger.Printf("encode %T: %v", msg, err)
		return
	}
	r.Send(id, data)
}

func (r *Registry) broadcastMessage(msg any, except string) {
	data, err := proto.Encode(msg)
	if err != nil {
		r.logger.Printf("encode %T: %v", msg, err)
		return
	}
	r.Broadcast(data, except)
}

// Count reports the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[id]
	return ok
}

// IDs lists the registered connections in no particular order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	return ids
}

// messageType peeks at the "type" field for drop logging.
func messageType(data []byte) string {
	t, err := proto.PeekType(data)
	if err != nil {
		return ""
	}
	return t
}
