// Package ws serves the websocket endpoint: one read loop and one write pump
// per connection, with inbound rate limiting.
package ws

import (
	"errors"
	nethttp "net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"goldrush/server/internal/net/intake"
	"goldrush/server/internal/net/registry"
	"goldrush/server/internal/telemetry"
)

const (
	DefaultWriteTimeout    = 10 * time.Second
	DefaultPongWait        = 60 * time.Second
	DefaultMaxMessageBytes = 4096
	DefaultRateLimit       = 60
	DefaultRateBurst       = 120
)

// HandlerConfig tunes websocket sessions. Zero values select defaults.
type HandlerConfig struct {
	Logger telemetry.Logger
	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration
	// PongWait is how long a connection may stay silent. Pings go out at
	// nine tenths of it.
	PongWait        time.Duration
	MaxMessageBytes int64
	// RateLimit is the sustained inbound messages per second per connection;
	// messages beyond RateBurst are dropped.
	RateLimit float64
	RateBurst int
}

func (c HandlerConfig) normalized() HandlerConfig {
	if c.Logger == nil {
		c.Logger = telemetry.LoggerFunc(nil)
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.PongWait <= 0 {
		c.PongWait = DefaultPongWait
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if c.RateLimit <= 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.RateBurst <= 0 {
		c.RateBurst = DefaultRateBurst
	}
	return c
}

// Handler upgrades HTTP requests and runs one session per connection.
type Handler struct {
	registry   *registry.Registry
	dispatcher *intake.Dispatcher
	logger     telemetry.Logger
	cfg        HandlerConfig
	upgrader   websocket.Upgrader
}

// NewHandler wires sessions to the registry and the dispatcher.
func NewHandler(reg *registry.Registry, dispatcher *intake.Dispatcher, cfg HandlerConfig) *Handler {
	cfg = cfg.normalized()
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}
	return &Handler{
		registry:   reg,
		dispatcher: dispatcher,
		logger:     cfg.Logger,
		cfg:        cfg,
		upgrader:   upgrader,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	client := h.registry.Register(r.RemoteAddr)
	go h.writePump(conn, client)

	reason := h.readLoop(conn, client)
	h.dispatcher.Disconnected(client.ID())
	h.registry.Unregister(client.ID(), reason)
	conn.Close()
}

// readLoop feeds inbound frames to the dispatcher until the connection
// fails. It returns the reason the connection ended.
func (h *Handler) readLoop(conn *websocket.Conn, client *registry.Client) string {
	id := client.ID()
	limiter := rate.NewLimiter(rate.Limit(h.cfg.RateLimit), h.cfg.RateBurst)

	conn.SetReadLimit(h.cfg.MaxMessageBytes)
	conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				h.logger.Printf("read from %s: %v", id, err)
			}
			return closeReason(err)
		}
		conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))

		if !limiter.Allow() {
			h.dispatcher.Reject(id, len(payload), "rate limited")
			continue
		}
		// Decode failures are already counted and published by the
		// dispatcher; the connection stays open.
		_ = h.dispatcher.HandleMessage(id, payload)
	}
}

// writePump drains the client's queue onto the socket and keeps it alive
// with pings. It closes the socket on the first failed write so the read
// loop unblocks.
func (h *Handler) writePump(conn *websocket.Conn, client *registry.Client) {
	ticker := time.NewTicker(h.cfg.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-client.Done():
			deadline := time.Now().Add(h.cfg.WriteTimeout)
			conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return
		case data := <-client.Outgoing():
			conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Printf("write to %s: %v", client.ID(), err)
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(h.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func closeReason(err error) string {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		if closeErr.Text != "" {
			return closeErr.Text
		}
		return "close " + strconv.Itoa(closeErr.Code)
	}
	return err.Error()
}
