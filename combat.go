package server

import (
	"context"

	"goldrush/server/internal/net/proto"
	"goldrush/server/internal/tilemap"
	loggingcombat "goldrush/server/logging/combat"
)

// ApplyAttack swings in the facing direction. The attacker must be in a
// running lobby, not already attacking and not carrying the gold. Opposing
// players inside the hit area are respawned; a victim carrying the gold
// hands it to the attacker.
func (e *Engine) ApplyAttack(id, facing string) {
	along, across, ok := facingAxes(facing)
	if !ok {
		return
	}
	l := e.memberLobby(id)
	if l == nil {
		return
	}

	var out outbox
	defer e.flush(&out)
	l.mu.Lock()
	defer l.mu.Unlock()

	attacker, ok := l.players[id]
	if !ok || l.phase != PhaseRunning || attacker.attacking() || attacker.hasGold {
		return
	}

	recipients := l.recipients()
	out.broadcast(recipients, proto.NewPerformAttack(id, facing, string(attacker.team)))
	attacker.attackLeft = e.cfg.AttackDuration

	origin := e.tileOf(attacker.x, attacker.y)
	hits := 0
	for _, victim := range l.orderedPlayers() {
		if victim.team == attacker.team {
			continue
		}
		t := e.tileOf(victim.x, victim.y)
		rel := tilemap.Coord{X: t.X - origin.X, Y: t.Y - origin.Y}
		forward := rel.X*along.X + rel.Y*along.Y
		sideways := rel.X*across.X + rel.Y*across.Y
		if forward < 0 || forward > e.cfg.AttackReach || abs(sideways) > e.cfg.AttackHalfWidth {
			continue
		}

		hits++
		out.broadcast(recipients, proto.NewPlayerHit(id, victim.id))
		dropped := victim.hasGold
		if dropped {
			attacker.hasGold = true
		}
		x, y := e.spawnPoint(e.cfg.SpawnArea)
		victim.reset(x, y)
		loggingcombat.Hit(context.Background(), e.publisher, e.tick.Load(), l.code, id, victim.id, loggingcombat.HitPayload{
			Facing:      facing,
			DroppedGold: dropped,
		})
	}
	loggingcombat.Attack(context.Background(), e.publisher, e.tick.Load(), l.code, id, loggingcombat.AttackPayload{
		Facing: facing,
		Team:   string(attacker.team),
		Hits:   hits,
	})
}

// facingAxes returns unit tile vectors along and across a facing. Tile Y
// grows upward, so TOP is +Y.
func facingAxes(facing string) (along, across tilemap.Coord, ok bool) {
	switch facing {
	case FacingTop:
		return tilemap.Coord{Y: 1}, tilemap.Coord{X: 1}, true
	case FacingBottom:
		return tilemap.Coord{Y: -1}, tilemap.Coord{X: 1}, true
	case FacingRight:
		return tilemap.Coord{X: 1}, tilemap.Coord{Y: 1}, true
	case FacingLeft:
		return tilemap.Coord{X: -1}, tilemap.Coord{Y: 1}, true
	default:
		return tilemap.Coord{}, tilemap.Coord{}, false
	}
}

// tileOf converts a position to a tile even when it lies off the grid, so
// attack geometry works without a map.
func (e *Engine) tileOf(x, y float64) tilemap.Coord {
	size := e.tiles.TileSize()
	return tilemap.Coord{X: int(floorDiv(x, size)), Y: int(floorDiv(y, size))}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
