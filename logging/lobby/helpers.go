package lobby

import (
	"context"

	"goldrush/server/logging"
)

const (
	// EventCreated is emitted when a new lobby code is allocated.
	EventCreated logging.EventType = "lobby.created"
	// EventPlayerJoined is emitted when a connection takes a team slot.
	EventPlayerJoined logging.EventType = "lobby.player_joined"
	// EventSpectatorJoined is emitted when a connection starts watching a lobby.
	EventSpectatorJoined logging.EventType = "lobby.spectator_joined"
	// EventMemberLeft is emitted when a player or spectator leaves a lobby.
	EventMemberLeft logging.EventType = "lobby.member_left"
	// EventJoinRejected is emitted when a join request cannot be honoured.
	EventJoinRejected logging.EventType = "lobby.join_rejected"
	// EventReaped is emitted when an empty lobby is removed.
	EventReaped logging.EventType = "lobby.reaped"
)

type CreatedPayload struct {
	Creator string `json:"creator"`
}

type PlayerJoinedPayload struct {
	Team    string `json:"team"`
	Players int    `json:"players"`
}

type MemberLeftPayload struct {
	Role        string `json:"role"`
	DroppedGold bool   `json:"droppedGold,omitempty"`
}

type JoinRejectedPayload struct {
	Reason string `json:"reason"`
}

type ReapedPayload struct {
	IdleSeconds float64 `json:"idleSeconds"`
}

func Created(ctx context.Context, pub logging.Publisher, code string, payload CreatedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventCreated,
		Lobby:    code,
		Actor:    logging.LobbyRef(code),
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

func PlayerJoined(ctx context.Context, pub logging.Publisher, code string, player string, payload PlayerJoinedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventPlayerJoined,
		Lobby:    code,
		Actor:    logging.PlayerRef(player),
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

func SpectatorJoined(ctx context.Context, pub logging.Publisher, code string, spectator string) {
	publish(ctx, pub, logging.Event{
		Type:     EventSpectatorJoined,
		Lobby:    code,
		Actor:    logging.EntityRef{ID: spectator, Kind: logging.EntityKindSpectator},
		Severity: logging.SeverityInfo,
	})
}

func MemberLeft(ctx context.Context, pub logging.Publisher, code string, member string, payload MemberLeftPayload) {
	kind := logging.EntityKindPlayer
	if payload.Role == "spectator" {
		kind = logging.EntityKindSpectator
	}
	publish(ctx, pub, logging.Event{
		Type:     EventMemberLeft,
		Lobby:    code,
		Actor:    logging.EntityRef{ID: member, Kind: kind},
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// JoinRejected is a debug event: rejected joins are routine (full lobby,
// stale code) and are answered with silence on the wire.
func JoinRejected(ctx context.Context, pub logging.Publisher, code string, conn string, payload JoinRejectedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventJoinRejected,
		Lobby:    code,
		Actor:    logging.EntityRef{ID: conn, Kind: logging.EntityKindConnection},
		Severity: logging.SeverityDebug,
		Payload:  payload,
	})
}

func Reaped(ctx context.Context, pub logging.Publisher, code string, payload ReapedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventReaped,
		Lobby:    code,
		Actor:    logging.LobbyRef(code),
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	event.Category = logging.CategoryLobby
	pub.Publish(ctx, event)
}
