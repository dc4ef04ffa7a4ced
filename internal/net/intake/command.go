// Package intake turns raw client payloads into engine calls.
package intake

import (
	"context"
	"errors"
	"fmt"

	"goldrush/server/internal/net/proto"
	"goldrush/server/internal/telemetry"
	"goldrush/server/logging"
	loggingnetwork "goldrush/server/logging/network"
)

// Engine is the slice of the game engine the dispatcher drives.
type Engine interface {
	CreateLobby(creator string) string
	JoinAsPlayer(code, id string) bool
	JoinAsSpectator(code, id string) bool
	ApplyMovement(id string, dx, dy float64, state string)
	ApplyAttack(id, facing string)
	Leave(id string)
}

// Sender delivers an encoded reply to one connection.
type Sender interface {
	Send(id string, data []byte)
}

// Config holds the dispatcher's optional observability hooks.
type Config struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
}

// Dispatcher decodes inbound payloads and routes them to the engine.
type Dispatcher struct {
	engine    Engine
	out       Sender
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher
}

// NewDispatcher returns a dispatcher that replies through out.
func NewDispatcher(engine Engine, out Sender, cfg Config) *Dispatcher {
	d := &Dispatcher{
		engine:    engine,
		out:       out,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		publisher: cfg.Publisher,
	}
	if d.logger == nil {
		d.logger = telemetry.LoggerFunc(nil)
	}
	if d.metrics == nil {
		d.metrics = telemetry.NopMetrics()
	}
	if d.publisher == nil {
		d.publisher = logging.NopPublisher()
	}
	return d
}

// HandleMessage decodes one inbound payload and applies it. A payload that
// does not decode is dropped and the decode error returned for the caller's
// information; the connection stays open.
func (d *Dispatcher) HandleMessage(id string, payload []byte) error {
	d.metrics.Add(telemetry.MetricMessagesIn, 1)
	action, err := proto.Decode(payload)
	if err != nil {
		d.Reject(id, len(payload), rejectReason(err))
		return err
	}
	d.Dispatch(id, action)
	return nil
}

// Reject records a dropped inbound message.
func (d *Dispatcher) Reject(id string, size int, reason string) {
	d.metrics.Add(telemetry.MetricMessagesRejected, 1)
	loggingnetwork.MessageRejected(context.Background(), d.publisher, id, loggingnetwork.RejectedPayload{
		Reason: reason,
		Bytes:  size,
	})
}

// Dispatch routes a decoded action to the engine.
func (d *Dispatcher) Dispatch(id string, action proto.Action) {
	switch a := action.(type) {
	case proto.CreateLobby:
		code := d.engine.CreateLobby(id)
		d.reply(id, proto.NewLobbyCreated(code))
	case proto.JoinLobby:
		d.engine.JoinAsPlayer(a.LobbyID, id)
	case proto.SpectateLobby:
		d.engine.JoinAsSpectator(a.LobbyID, id)
	case proto.Move:
		d.engine.ApplyMovement(id, a.DX, a.DY, a.State)
	case proto.Attack:
		d.engine.ApplyAttack(id, a.Facing)
	default:
		d.logger.Printf("no handler for action %T from %s", action, id)
	}
}

// Disconnected removes a closed connection from its lobby.
func (d *Dispatcher) Disconnected(id string) {
	d.engine.Leave(id)
}

func (d *Dispatcher) reply(id string, msg any) {
	data, err := proto.Encode(msg)
	if err != nil {
		d.logger.Printf("encode %T for %s: %v", msg, id, err)
		return
	}
	d.out.Send(id, data)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, proto.ErrUnknownType):
		return "unknown type"
	case errors.Is(err, proto.ErrMissingField):
		return "missing field"
	case errors.Is(err, proto.ErrOutOfRange):
		return "out of range"
	default:
		return fmt.Sprintf("malformed: %v", err)
	}
}
