package server

import (
	"time"

	"goldrush/server/internal/net/proto"
)

type playerState struct {
	id      string
	team    Team
	x       float64
	y       float64
	state   string
	hasGold bool
	// attackLeft counts down the attacking substate; zero means idle.
	attackLeft time.Duration
}

func (p *playerState) attacking() bool {
	return p.attackLeft > 0
}

func (p *playerState) position() proto.Position {
	return proto.Position{X: p.x, Y: p.y}
}

func (p *playerState) snapshot() proto.PlayerState {
	return proto.PlayerState{
		ID:        p.id,
		Position:  p.position(),
		State:     p.state,
		Team:      string(p.team),
		HasGold:   p.hasGold,
		Attacking: p.attacking(),
	}
}

// reset puts a player back to its between-matches state at the given spawn.
func (p *playerState) reset(x, y float64) {
	p.x = x
	p.y = y
	p.state = StateIdle
	p.hasGold = false
	p.attackLeft = 0
}
