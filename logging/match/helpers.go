package match

import (
	"context"

	"goldrush/server/logging"
)

const (
	EventCountdownStarted logging.EventType = "match.countdown_started"
	EventCountdownStalled logging.EventType = "match.countdown_stalled"
	EventStarted          logging.EventType = "match.started"
	EventGoldDelivered    logging.EventType = "match.gold_delivered"
	EventEnded            logging.EventType = "match.ended"
	// EventRecordFailed is emitted when a finished match could not be persisted.
	EventRecordFailed logging.EventType = "match.record_failed"
)

type CountdownPayload struct {
	Players        int     `json:"players"`
	SecondsLeft    float64 `json:"secondsLeft"`
	FastStartArmed bool    `json:"fastStartArmed,omitempty"`
}

type StartedPayload struct {
	Players    int `json:"players"`
	Spectators int `json:"spectators"`
}

type EndedPayload struct {
	Winner          string  `json:"winner"`
	Team            string  `json:"team"`
	DurationSeconds float64 `json:"durationSeconds"`
}

type RecordFailedPayload struct {
	GameID int64  `json:"gameId"`
	Error  string `json:"error"`
}

func CountdownStarted(ctx context.Context, pub logging.Publisher, tick uint64, code string, payload CountdownPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventCountdownStarted,
		Tick:     tick,
		Lobby:    code,
		Actor:    logging.LobbyRef(code),
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

func CountdownStalled(ctx context.Context, pub logging.Publisher, tick uint64, code string, payload CountdownPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventCountdownStalled,
		Tick:     tick,
		Lobby:    code,
		Actor:    logging.LobbyRef(code),
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

func Started(ctx context.Context, pub logging.Publisher, tick uint64, code string, payload StartedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventStarted,
		Tick:     tick,
		Lobby:    code,
		Actor:    logging.LobbyRef(code),
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// GoldDelivered records the winning move, before the lobby resets.
func GoldDelivered(ctx context.Context, pub logging.Publisher, tick uint64, code string, player string, team string) {
	publish(ctx, pub, logging.Event{
		Type:     EventGoldDelivered,
		Tick:     tick,
		Lobby:    code,
		Actor:    logging.PlayerRef(player),
		Severity: logging.SeverityInfo,
		Payload:  map[string]string{"team": team},
	})
}

func Ended(ctx context.Context, pub logging.Publisher, tick uint64, code string, payload EndedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventEnded,
		Tick:     tick,
		Lobby:    code,
		Actor:    logging.LobbyRef(code),
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

func RecordFailed(ctx context.Context, pub logging.Publisher, code string, payload RecordFailedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventRecordFailed,
		Lobby:    code,
		Actor:    logging.LobbyRef(code),
		Severity: logging.SeverityError,
		Payload:  payload,
	})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	event.Category = logging.CategoryMatch
	pub.Publish(ctx, event)
}
