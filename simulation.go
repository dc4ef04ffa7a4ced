package server

import (
	"context"
	"time"

	"goldrush/server/internal/telemetry"
	logginglobby "goldrush/server/logging/lobby"
	loggingsim "goldrush/server/logging/simulation"
)

// RunSimulation drives the fixed-rate tick loop until stop closes. Tick work
// is synchronous, so a slow tick delays the next one rather than overlapping.
func (e *Engine) RunSimulation(stop <-chan struct{}) {
	interval := e.cfg.TickInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			start := time.Now()
			lobbies := e.Advance(now)
			duration := time.Since(start)
			if overrun, streak := e.telemetry.RecordTickDuration(duration, interval); overrun {
				loggingsim.TickOverrun(context.Background(), e.publisher, e.tick.Load(), loggingsim.TickOverrunPayload{
					DurationMillis: duration.Milliseconds(),
					BudgetMillis:   interval.Milliseconds(),
					Ratio:          float64(duration) / float64(interval),
					Streak:         streak,
					Lobbies:        lobbies,
				})
			}
		}
	}
}

// Advance runs one tick at now: attack timers and countdowns move forward
// by the time since the previous tick, changed lobby state is published and
// idle lobbies are reaped. It returns the number of lobbies processed.
func (e *Engine) Advance(now time.Time) int {
	e.advanceMu.Lock()
	dt := e.cfg.TickInterval()
	if !e.lastAdvance.IsZero() {
		if elapsed := now.Sub(e.lastAdvance); elapsed > 0 {
			dt = elapsed
		}
	}
	e.lastAdvance = now
	e.advanceMu.Unlock()
	e.tick.Add(1)

	e.mu.RLock()
	lobbies := make([]*Lobby, 0, len(e.lobbies))
	for _, l := range e.lobbies {
		lobbies = append(lobbies, l)
	}
	e.mu.RUnlock()

	var idle []*Lobby
	for _, l := range lobbies {
		var out outbox
		l.mu.Lock()
		for _, p := range l.players {
			if p.attackLeft > 0 {
				p.attackLeft = max(p.attackLeft-dt, 0)
			}
		}
		e.advanceCountdownLocked(l, dt, now, &out)
		e.publishLocked(l, &out)
		if e.idleLocked(l, now) {
			idle = append(idle, l)
		}
		l.mu.Unlock()
		e.flush(&out)
	}

	if len(idle) > 0 {
		e.reap(idle, now)
	}
	return len(lobbies)
}

func (e *Engine) idleLocked(l *Lobby, now time.Time) bool {
	ttl := e.cfg.LobbyIdleTTL
	if ttl <= 0 || !l.empty() || l.emptySince.IsZero() {
		return false
	}
	return now.Sub(l.emptySince) >= ttl
}

// reap removes lobbies that are still idle once the engine lock is held.
func (e *Engine) reap(candidates []*Lobby, now time.Time) {
	type reaped struct {
		code string
		idle time.Duration
	}
	var removed []reaped

	e.mu.Lock()
	for _, l := range candidates {
		if e.lobbies[l.code] != l {
			continue
		}
		l.mu.Lock()
		if e.idleLocked(l, now) {
			delete(e.lobbies, l.code)
			removed = append(removed, reaped{code: l.code, idle: now.Sub(l.emptySince)})
		}
		l.mu.Unlock()
	}
	count := len(e.lobbies)
	e.mu.Unlock()

	if len(removed) == 0 {
		return
	}
	e.metrics.Add(telemetry.MetricLobbiesReaped, uint64(len(removed)))
	e.metrics.Store(telemetry.MetricLobbies, uint64(count))
	for _, r := range removed {
		logginglobby.Reaped(context.Background(), e.publisher, r.code, logginglobby.ReapedPayload{IdleSeconds: r.idle.Seconds()})
	}
}

// LobbyCount reports how many lobbies exist.
func (e *Engine) LobbyCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.lobbies)
}

// HasLobby reports whether code names a live lobby.
func (e *Engine) HasLobby(code string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.lobbies[code]
	return ok
}
