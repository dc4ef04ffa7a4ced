package combat

import (
	"context"

	"goldrush/server/logging"
)

const (
	// EventAttack is emitted for every accepted attack, hit or miss.
	EventAttack logging.EventType = "combat.attack"
	// EventHit is emitted once per victim struck by an attack.
	EventHit logging.EventType = "combat.hit"
)

type AttackPayload struct {
	Facing string `json:"facing"`
	Team   string `json:"team"`
	Hits   int    `json:"hits"`
}

type HitPayload struct {
	Facing      string `json:"facing"`
	DroppedGold bool   `json:"droppedGold,omitempty"`
}

// Attack publishes a summary of one swing.
func Attack(ctx context.Context, pub logging.Publisher, tick uint64, code string, attacker string, payload AttackPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventAttack,
		Tick:     tick,
		Lobby:    code,
		Actor:    logging.PlayerRef(attacker),
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

// Hit publishes a hit on a single victim.
func Hit(ctx context.Context, pub logging.Publisher, tick uint64, code string, attacker string, victim string, payload HitPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventHit,
		Tick:     tick,
		Lobby:    code,
		Actor:    logging.PlayerRef(attacker),
		Targets:  []logging.EntityRef{logging.PlayerRef(victim)},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}
