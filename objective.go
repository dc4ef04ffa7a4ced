package server

import (
	"math"

	"goldrush/server/internal/net/proto"
)

const goldObjectType = "gold"

// withinPickup reports whether (x, y) is close enough to collect the gold.
func (e *Engine) withinPickup(g *goldToken, x, y float64) bool {
	if g == nil {
		return false
	}
	return math.Hypot(g.x-x, g.y-y) <= e.cfg.PickupRadius
}

func (l *Lobby) goldSnapshot() []proto.GoldState {
	if l.gold == nil {
		return []proto.GoldState{}
	}
	return []proto.GoldState{{
		Type:     goldObjectType,
		Position: proto.Position{X: l.gold.x, Y: l.gold.y},
	}}
}
