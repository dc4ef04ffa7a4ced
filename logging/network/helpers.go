package network

import (
	"context"

	"goldrush/server/logging"
)

const (
	EventConnectionOpened logging.EventType = "network.connection_opened"
	EventConnectionClosed logging.EventType = "network.connection_closed"
	// EventMessageRejected is emitted when an inbound message fails to decode
	// or is dropped by the rate limiter.
	EventMessageRejected logging.EventType = "network.message_rejected"
	// EventSendDropped is emitted when a connection's outbound queue is full.
	EventSendDropped logging.EventType = "network.send_dropped"
)

type ConnectionPayload struct {
	RemoteAddr   string `json:"remoteAddr,omitempty"`
	TotalClients int    `json:"totalClients"`
	Reason       string `json:"reason,omitempty"`
}

type RejectedPayload struct {
	Reason string `json:"reason"`
	Bytes  int    `json:"bytes"`
}

type SendDroppedPayload struct {
	MessageType string `json:"messageType,omitempty"`
}

func ConnectionOpened(ctx context.Context, pub logging.Publisher, conn string, payload ConnectionPayload) {
	publish(ctx, pub, logging.SeverityInfo, EventConnectionOpened, conn, payload)
}

func ConnectionClosed(ctx context.Context, pub logging.Publisher, conn string, payload ConnectionPayload) {
	publish(ctx, pub, logging.SeverityInfo, EventConnectionClosed, conn, payload)
}

func MessageRejected(ctx context.Context, pub logging.Publisher, conn string, payload RejectedPayload) {
	publish(ctx, pub, logging.SeverityDebug, EventMessageRejected, conn, payload)
}

func SendDropped(ctx context.Context, pub logging.Publisher, conn string, payload SendDroppedPayload) {
	publish(ctx, pub, logging.SeverityWarn, EventSendDropped, conn, payload)
}

func publish(ctx context.Context, pub logging.Publisher, severity logging.Severity, eventType logging.EventType, conn string, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Actor:    logging.EntityRef{ID: conn, Kind: logging.EntityKindConnection},
		Severity: severity,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}
