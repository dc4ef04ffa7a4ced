package server

import (
	"sort"
	"sync"
	"time"

	"goldrush/server/internal/tilemap"
)

// Phase is the externally visible match phase of a lobby.
type Phase string

const (
	PhaseLobby            Phase = "lobby"
	PhaseCountdown        Phase = "countdown"
	PhaseCountdownStalled Phase = "countdown_stalled"
	PhaseRunning          Phase = "running"
)

// goldToken is the single objective of a lobby while it lies in the world.
type goldToken struct {
	x float64
	y float64
}

// Lobby is one match room. Every field is guarded by mu.
type Lobby struct {
	mu   sync.Mutex
	code string

	teams      [teamCount]*teamState
	players    map[string]*playerState
	spectators map[string]struct{}
	// gold is nil while a player carries it.
	gold *goldToken

	phase         Phase
	countdownLeft time.Duration
	// announced is the last whole-second value broadcast for the countdown.
	announced int
	startedAt time.Time

	lastSnapshot []byte
	// emptySince is set while the lobby has no members at all.
	emptySince time.Time
}

func newLobby(code string, towers map[int][]tilemap.Coord, now time.Time) *Lobby {
	l := &Lobby{
		code:       code,
		players:    make(map[string]*playerState),
		spectators: make(map[string]struct{}),
		phase:      PhaseLobby,
		emptySince: now,
		announced:  -1,
	}
	for i := range l.teams {
		l.teams[i] = newTeamState()
	}
	for row, coords := range towers {
		team, ok := teamForTowerRow(row)
		if !ok {
			continue
		}
		state := l.teams[teamIndex(team)]
		for _, c := range coords {
			state.towers[c.Key()] = struct{}{}
		}
	}
	return l
}

// Code returns the six digit lobby code.
func (l *Lobby) Code() string {
	return l.code
}

func (l *Lobby) playerCount() int {
	return len(l.players)
}

func (l *Lobby) empty() bool {
	return len(l.players) == 0 && len(l.spectators) == 0
}

// seatTeam picks the least populated team, ties broken by iteration order.
func (l *Lobby) seatTeam() Team {
	best := 0
	for i := 1; i < teamCount; i++ {
		if len(l.teams[i].members) < len(l.teams[best].members) {
			best = i
		}
	}
	return teamOrder[best]
}

func (l *Lobby) addPlayer(p *playerState) {
	l.players[p.id] = p
	l.teams[teamIndex(p.team)].members[p.id] = struct{}{}
	l.emptySince = time.Time{}
}

func (l *Lobby) addSpectator(id string) {
	l.spectators[id] = struct{}{}
	l.emptySince = time.Time{}
}

// removeMember drops id from every team and from the spectator set. It
// returns the removed player, or nil when id was not seated.
func (l *Lobby) removeMember(id string, now time.Time) *playerState {
	p := l.players[id]
	delete(l.players, id)
	for _, team := range l.teams {
		delete(team.members, id)
	}
	delete(l.spectators, id)
	if l.empty() && l.emptySince.IsZero() {
		l.emptySince = now
	}
	return p
}

// orderedPlayers returns players sorted by team order, then id.
func (l *Lobby) orderedPlayers() []*playerState {
	out := make([]*playerState, 0, len(l.players))
	for _, team := range teamOrder {
		ids := sortedKeys(l.teams[teamIndex(team)].members)
		for _, id := range ids {
			if p, ok := l.players[id]; ok {
				out = append(out, p)
			}
		}
	}
	return out
}

func (l *Lobby) orderedSpectators() []string {
	return sortedKeys(l.spectators)
}

// recipients lists every player and spectator.
func (l *Lobby) recipients() []string {
	ids := make([]string, 0, len(l.players)+len(l.spectators))
	for _, p := range l.orderedPlayers() {
		ids = append(ids, p.id)
	}
	return append(ids, l.orderedSpectators()...)
}

// towerOwner reports which team's tower covers the tile key.
func (l *Lobby) towerOwner(key string) (Team, bool) {
	for i, team := range l.teams {
		if _, ok := team.towers[key]; ok {
			return teamOrder[i], true
		}
	}
	return "", false
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
