package simulation

import (
	"context"

	"goldrush/server/logging"
)

// EventTickOverrun is emitted when one simulation tick takes longer than its
// interval.
const EventTickOverrun logging.EventType = "simulation.tick_overrun"

type TickOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
	Streak         uint64  `json:"streak"`
	Lobbies        int     `json:"lobbies"`
}

func TickOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickOverrunPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickOverrun,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindServer},
		Severity: logging.SeverityWarn,
		Category: logging.CategorySystem,
		Payload:  payload,
	})
}
