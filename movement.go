package server

import (
	"math"

	"goldrush/server/internal/matches"
	"goldrush/server/internal/net/proto"
)

// ApplyMovement moves a player one step in direction (dx, dy). It is ignored
// unless the player's lobby is running. The step is checked for, in order:
// picking up the gold, delivering it to the player's own tower, and the
// destination being passable. A blocked step changes nothing and answers the
// mover with a collision message.
func (e *Engine) ApplyMovement(id string, dx, dy float64, state string) {
	if !finite(dx) || !finite(dy) {
		return
	}
	dx = clampUnit(dx)
	dy = clampUnit(dy)

	l := e.memberLobby(id)
	if l == nil {
		return
	}

	var out outbox
	var summary *matches.Summary
	l.mu.Lock()
	p, ok := l.players[id]
	if ok && l.phase == PhaseRunning {
		summary = e.moveLocked(l, p, dx, dy, state, &out)
	}
	l.mu.Unlock()

	e.flush(&out)
	if summary != nil {
		e.record(*summary)
	}
}

func (e *Engine) moveLocked(l *Lobby, p *playerState, dx, dy float64, state string, out *outbox) *matches.Summary {
	speed := e.cfg.MoveSpeed
	if p.hasGold {
		speed *= e.cfg.CarrySpeedFactor
	}
	nx := p.x + dx*speed
	ny := p.y + dy*speed

	pickup := !p.hasGold && e.withinPickup(l.gold, nx, ny)
	carrying := p.hasGold || pickup

	if carrying {
		if c, ok := e.tiles.TileAt(nx, ny); ok {
			if owner, ok := l.towerOwner(c.Key()); ok && owner == p.team {
				summary := e.endMatchLocked(l, p, e.now(), out)
				return &summary
			}
		}
	}

	if !e.tiles.IsPassable(nx, ny) {
		out.send(p.id, proto.NewCollision(collisionMessage))
		return nil
	}

	p.x = nx
	p.y = ny
	if state != "" {
		p.state = state
	}
	if pickup {
		p.hasGold = true
		l.gold = nil
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

func floorDiv(v, size float64) float64 {
	if size <= 0 {
		return 0
	}
	return math.Floor(v / size)
}
