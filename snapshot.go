package server

import (
	"bytes"

	"goldrush/server/internal/net/proto"
)

// stateLocked builds the visible state of a lobby. Players are ordered by
// team then id and spectators by id so equal states encode to equal bytes.
func (l *Lobby) stateLocked() proto.GameState {
	players := l.orderedPlayers()
	state := proto.GameState{
		Phase:       string(l.phase),
		Players:     make([]proto.PlayerState, 0, len(players)),
		Gold:        l.goldSnapshot(),
		Projectiles: []proto.ProjectileState{},
		Spectators:  l.orderedSpectators(),
	}
	for _, p := range players {
		state.Players = append(state.Players, p.snapshot())
	}
	return state
}

// publishLocked queues an update for every member when the encoded state
// differs from the last one sent.
func (e *Engine) publishLocked(l *Lobby, out *outbox) {
	data, err := proto.Encode(proto.NewUpdate(l.stateLocked()))
	if err != nil {
		e.logger.Printf("encode state for lobby %s: %v", l.code, err)
		return
	}
	if bytes.Equal(data, l.lastSnapshot) {
		e.telemetry.RecordUnchanged()
		return
	}
	l.lastSnapshot = data
	recipients := l.recipients()
	out.sendRaw(recipients, data)
	e.telemetry.RecordUpdate(len(data), len(recipients))
}

// Snapshot returns the current visible state of a lobby.
func (e *Engine) Snapshot(code string) (proto.GameState, bool) {
	e.mu.RLock()
	l, ok := e.lobbies[code]
	e.mu.RUnlock()
	if !ok {
		return proto.GameState{}, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stateLocked(), true
}
