// Package server is the authoritative game engine: it owns every lobby,
// applies player actions, advances match phases on a fixed tick and
// publishes changed lobby state to the members of each lobby.
package server

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"goldrush/server/internal/matches"
	"goldrush/server/internal/net/proto"
	"goldrush/server/internal/telemetry"
	"goldrush/server/internal/tilemap"
	"goldrush/server/logging"
	logginglobby "goldrush/server/logging/lobby"
)

// Outbound delivers an encoded message to one connection. It must not block.
type Outbound interface {
	Send(id string, data []byte)
}

// OutboundFunc adapts a function to Outbound.
type OutboundFunc func(id string, data []byte)

func (f OutboundFunc) Send(id string, data []byte) {
	if f != nil {
		f(id, data)
	}
}

// Deps are the engine's collaborators. Only Out is required.
type Deps struct {
	Map       *tilemap.Map
	Out       Outbound
	Recorder  matches.Recorder
	Publisher logging.Publisher
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	// Now defaults to time.Now. Tests drive time through Advance instead.
	Now  func() time.Time
	Rand *rand.Rand
}

// Engine is the lobby store. mu guards the lobby map and the member index;
// each lobby guards its own state. Locks are taken engine first, then lobby,
// and messages produced while locked are sent after unlocking.
type Engine struct {
	cfg       Config
	tiles     *tilemap.Map
	out       Outbound
	recorder  matches.Recorder
	publisher logging.Publisher
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	now       func() time.Time
	rng       *lockedRand
	telemetry *telemetryCounters

	mu      sync.RWMutex
	lobbies map[string]*Lobby
	// members maps a connection id to the lobby it plays in or watches.
	members map[string]*Lobby

	tick        atomic.Uint64
	lastAdvance time.Time
	advanceMu   sync.Mutex
}

// NewEngine builds an engine with no lobbies. Missing optional deps fall
// back to no-op implementations.
func NewEngine(cfg Config, deps Deps) *Engine {
	e := &Engine{
		cfg:       cfg.Normalized(),
		tiles:     deps.Map,
		out:       deps.Out,
		recorder:  deps.Recorder,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		now:       deps.Now,
		rng:       newLockedRand(deps.Rand),
		lobbies:   make(map[string]*Lobby),
		members:   make(map[string]*Lobby),
	}
	if e.out == nil {
		e.out = OutboundFunc(nil)
	}
	if e.publisher == nil {
		e.publisher = logging.NopPublisher()
	}
	if e.logger == nil {
		e.logger = telemetry.LoggerFunc(nil)
	}
	if e.metrics == nil {
		e.metrics = telemetry.NopMetrics()
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.telemetry = newTelemetryCounters(e.metrics)
	return e
}

// Config returns the normalized tuning in use.
func (e *Engine) Config() Config {
	return e.cfg
}

// CreateLobby allocates a fresh lobby with an unused code and returns it.
func (e *Engine) CreateLobby(creator string) string {
	now := e.now()
	e.mu.Lock()
	code := ""
	for {
		code = strconv.Itoa(e.rng.lobbyCode())
		if _, taken := e.lobbies[code]; !taken {
			break
		}
	}
	l := newLobby(code, e.tiles.Towers(), now)
	gx, gy := e.spawnPoint(e.cfg.GoldArea)
	l.gold = &goldToken{x: gx, y: gy}
	e.lobbies[code] = l
	count := len(e.lobbies)
	e.mu.Unlock()

	e.metrics.Add(telemetry.MetricLobbiesCreated, 1)
	e.metrics.Store(telemetry.MetricLobbies, uint64(count))
	logginglobby.Created(context.Background(), e.publisher, code, logginglobby.CreatedPayload{Creator: creator})
	return code
}

// JoinAsPlayer seats id in the lobby on the least populated team. Missing
// lobbies and full lobbies are ignored. A connection already in a lobby
// leaves it first.
func (e *Engine) JoinAsPlayer(code, id string) bool {
	var out outbox
	defer e.flush(&out)

	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.lobbies[code]
	if !ok {
		logginglobby.JoinRejected(context.Background(), e.publisher, code, id, logginglobby.JoinRejectedPayload{Reason: "unknown lobby"})
		return false
	}

	l.mu.Lock()
	_, seatedHere := l.players[id]
	full := l.playerCount() >= e.cfg.MaxPlayers && !seatedHere
	l.mu.Unlock()
	if full {
		logginglobby.JoinRejected(context.Background(), e.publisher, code, id, logginglobby.JoinRejectedPayload{Reason: "lobby full"})
		return false
	}

	e.leaveLocked(id, &out)

	l.mu.Lock()
	defer l.mu.Unlock()
	x, y := e.spawnPoint(e.cfg.SpawnArea)
	p := &playerState{id: id, team: l.seatTeam(), x: x, y: y, state: StateIdle}
	l.addPlayer(p)
	e.members[id] = l

	out.send(id, proto.NewJoinedLobby(code, p.position(), p.state, string(p.team), p.hasGold))
	logginglobby.PlayerJoined(context.Background(), e.publisher, code, id, logginglobby.PlayerJoinedPayload{
		Team:    string(p.team),
		Players: l.playerCount(),
	})
	e.evaluatePhaseLocked(l, &out)
	return true
}

// JoinAsSpectator adds id to the lobby's spectators.
func (e *Engine) JoinAsSpectator(code, id string) bool {
	var out outbox
	defer e.flush(&out)

	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.lobbies[code]
	if !ok {
		logginglobby.JoinRejected(context.Background(), e.publisher, code, id, logginglobby.JoinRejectedPayload{Reason: "unknown lobby"})
		return false
	}

	e.leaveLocked(id, &out)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.addSpectator(id)
	e.members[id] = l
	out.send(id, proto.NewJoinedAsSpectator(code))
	logginglobby.SpectatorJoined(context.Background(), e.publisher, code, id)
	return true
}

// Leave removes id from whatever lobby it is in. Unknown ids are ignored.
func (e *Engine) Leave(id string) {
	var out outbox
	defer e.flush(&out)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.leaveLocked(id, &out)
}

// leaveLocked requires e.mu held for writing.
func (e *Engine) leaveLocked(id string, out *outbox) {
	l, ok := e.members[id]
	if !ok {
		return
	}
	delete(e.members, id)

	l.mu.Lock()
	defer l.mu.Unlock()
	_, wasSpectator := l.spectators[id]
	p := l.removeMember(id, e.now())
	payload := logginglobby.MemberLeftPayload{Role: "player"}
	if p == nil && wasSpectator {
		payload.Role = "spectator"
	}
	if p != nil && p.hasGold {
		l.gold = &goldToken{x: p.x, y: p.y}
		payload.DroppedGold = true
	}
	logginglobby.MemberLeft(context.Background(), e.publisher, l.code, id, payload)
	if p != nil {
		e.evaluatePhaseLocked(l, out)
	}
}

// TowerOwner reports the team whose tower covers the world position in the
// given lobby.
func (e *Engine) TowerOwner(code string, x, y float64) (Team, bool) {
	e.mu.RLock()
	l, ok := e.lobbies[code]
	e.mu.RUnlock()
	if !ok {
		return "", false
	}
	c, ok := e.tiles.TileAt(x, y)
	if !ok {
		return "", false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.towerOwner(c.Key())
}

// LobbyOf returns the code of the lobby id belongs to.
func (e *Engine) LobbyOf(id string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	l, ok := e.members[id]
	if !ok {
		return "", false
	}
	return l.code, true
}

// memberLobby resolves the lobby for an action. The caller must lock the
// lobby and re-check membership since the index may change in between.
func (e *Engine) memberLobby(id string) *Lobby {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.members[id]
}

// spawnPoint draws a point in area, retrying until it lands on a passable
// tile. The last candidate is kept when every attempt is blocked.
func (e *Engine) spawnPoint(area Rect) (float64, float64) {
	x, y := e.rng.pointIn(area)
	for attempt := 1; attempt < e.cfg.SpawnRetries && !e.tiles.IsPassable(x, y); attempt++ {
		x, y = e.rng.pointIn(area)
	}
	return x, y
}

// LobbyDiagnostics is a read-only view of one lobby for /diagnostics.
type LobbyDiagnostics struct {
	Code          string   `json:"code"`
	Phase         Phase    `json:"phase"`
	Players       []string `json:"players"`
	Spectators    []string `json:"spectators"`
	GoldCarried   bool     `json:"goldCarried"`
	CountdownLeft float64  `json:"countdownLeftSeconds,omitempty"`
}

// Diagnostics is the engine view served on /diagnostics.
type Diagnostics struct {
	Tick      uint64             `json:"tick"`
	TickRate  int                `json:"tickRate"`
	Lobbies   []LobbyDiagnostics `json:"lobbies"`
	Telemetry telemetrySnapshot  `json:"telemetry"`
}

// Diagnostics snapshots every lobby, ordered by code.
func (e *Engine) Diagnostics() Diagnostics {
	e.mu.RLock()
	codes := make(map[string]struct{}, len(e.lobbies))
	lobbies := make(map[string]*Lobby, len(e.lobbies))
	for code, l := range e.lobbies {
		codes[code] = struct{}{}
		lobbies[code] = l
	}
	e.mu.RUnlock()

	diag := Diagnostics{
		Tick:      e.tick.Load(),
		TickRate:  e.cfg.TickRate,
		Lobbies:   make([]LobbyDiagnostics, 0, len(lobbies)),
		Telemetry: e.telemetry.Snapshot(),
	}
	for _, code := range sortedKeys(codes) {
		l := lobbies[code]
		l.mu.Lock()
		entry := LobbyDiagnostics{
			Code:        l.code,
			Phase:       l.phase,
			Spectators:  l.orderedSpectators(),
			GoldCarried: l.gold == nil,
		}
		for _, p := range l.orderedPlayers() {
			entry.Players = append(entry.Players, p.id)
		}
		if l.phase == PhaseCountdown || l.phase == PhaseCountdownStalled {
			entry.CountdownLeft = l.countdownLeft.Seconds()
		}
		l.mu.Unlock()
		diag.Lobbies = append(diag.Lobbies, entry)
	}
	return diag
}

// outbox collects messages produced under a lock.
type outbox struct {
	items []outMessage
}

type outMessage struct {
	to  []string
	msg any
	raw []byte
}

func (o *outbox) send(id string, msg any) {
	o.items = append(o.items, outMessage{to: []string{id}, msg: msg})
}

func (o *outbox) broadcast(ids []string, msg any) {
	if len(ids) == 0 {
		return
	}
	o.items = append(o.items, outMessage{to: ids, msg: msg})
}

// sendRaw queues already encoded bytes.
func (o *outbox) sendRaw(ids []string, data []byte) {
	if len(ids) == 0 {
		return
	}
	o.items = append(o.items, outMessage{to: ids, raw: data})
}

// flush encodes each message once and hands it to every recipient. It must
// be called with no engine or lobby lock held.
func (e *Engine) flush(o *outbox) {
	for _, item := range o.items {
		data := item.raw
		if data == nil {
			encoded, err := proto.Encode(item.msg)
			if err != nil {
				e.logger.Printf("encode %T: %v", item.msg, err)
				continue
			}
			data = encoded
		}
		for _, id := range item.to {
			e.out.Send(id, data)
		}
	}
	o.items = nil
}
