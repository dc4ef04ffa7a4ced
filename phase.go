package server

import (
	"context"
	"math"
	"time"

	"goldrush/server/internal/matches"
	"goldrush/server/internal/net/proto"
	"goldrush/server/internal/telemetry"
	loggingmatch "goldrush/server/logging/match"
)

// evaluatePhaseLocked re-checks match start eligibility after the seated
// player count changed. Requires l.mu.
func (e *Engine) evaluatePhaseLocked(l *Lobby, out *outbox) {
	count := l.playerCount()
	enough := count >= e.cfg.MinPlayers

	switch l.phase {
	case PhaseLobby:
		if !enough {
			return
		}
		l.phase = PhaseCountdown
		l.countdownLeft = e.cfg.CountdownDuration
		e.applyFastStartLocked(l)
		e.announceCountdownLocked(l, out, true)
		loggingmatch.CountdownStarted(context.Background(), e.publisher, e.tick.Load(), l.code, e.countdownPayload(l))
	case PhaseCountdown:
		if !enough {
			l.phase = PhaseCountdownStalled
			l.countdownLeft = e.cfg.CountdownDuration
			e.announceCountdownLocked(l, out, true)
			loggingmatch.CountdownStalled(context.Background(), e.publisher, e.tick.Load(), l.code, e.countdownPayload(l))
			return
		}
		if e.applyFastStartLocked(l) {
			e.announceCountdownLocked(l, out, false)
		}
	case PhaseCountdownStalled:
		if !enough {
			return
		}
		l.phase = PhaseCountdown
		e.applyFastStartLocked(l)
		e.announceCountdownLocked(l, out, true)
		loggingmatch.CountdownStarted(context.Background(), e.publisher, e.tick.Load(), l.code, e.countdownPayload(l))
	case PhaseRunning:
		// A running match continues until the gold is delivered, even when
		// players drop below the start threshold.
	}
}

// applyFastStartLocked shortens an active countdown once the lobby reaches
// the fast-start threshold. It reports whether the remaining time changed.
func (e *Engine) applyFastStartLocked(l *Lobby) bool {
	threshold := e.cfg.FastStartPlayers
	if threshold <= 0 || l.phase != PhaseCountdown || l.playerCount() < threshold {
		return false
	}
	if l.countdownLeft <= e.cfg.FastStartDuration {
		return false
	}
	l.countdownLeft = e.cfg.FastStartDuration
	return true
}

// advanceCountdownLocked moves an active countdown forward by dt and starts
// the match when it runs out.
func (e *Engine) advanceCountdownLocked(l *Lobby, dt time.Duration, now time.Time, out *outbox) {
	if l.phase != PhaseCountdown {
		return
	}
	l.countdownLeft -= dt
	if l.countdownLeft > 0 {
		e.announceCountdownLocked(l, out, false)
		return
	}
	l.countdownLeft = 0
	l.announced = -1
	l.phase = PhaseRunning
	l.startedAt = now
	out.broadcast(l.recipients(), proto.NewGameStarted())
	e.metrics.Add(telemetry.MetricMatchesStarted, 1)
	loggingmatch.Started(context.Background(), e.publisher, e.tick.Load(), l.code, loggingmatch.StartedPayload{
		Players:    l.playerCount(),
		Spectators: len(l.spectators),
	})
}

// announceCountdownLocked broadcasts the whole seconds left when the value
// differs from the last announcement, or always when force is set.
func (e *Engine) announceCountdownLocked(l *Lobby, out *outbox, force bool) {
	secs := countdownSeconds(l.countdownLeft)
	if !force && secs == l.announced {
		return
	}
	l.announced = secs
	out.broadcast(l.recipients(), proto.NewCountdown(secs))
}

// countdownSeconds rounds up so a countdown reads 30, 29, ... 1.
func countdownSeconds(left time.Duration) int {
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

func (e *Engine) countdownPayload(l *Lobby) loggingmatch.CountdownPayload {
	return loggingmatch.CountdownPayload{
		Players:        l.playerCount(),
		SecondsLeft:    l.countdownLeft.Seconds(),
		FastStartArmed: e.cfg.FastStartPlayers > 0 && l.playerCount() >= e.cfg.FastStartPlayers,
	}
}

// endMatchLocked handles a delivered gold: announce the winner, build the
// match summary, reset the lobby to the pre-match phase and re-evaluate
// whether a new countdown starts right away. The summary is returned so it
// can be recorded after the lobby lock is released.
func (e *Engine) endMatchLocked(l *Lobby, winner *playerState, now time.Time, out *outbox) matches.Summary {
	team := string(winner.team)
	out.broadcast(l.recipients(), proto.NewGameOver(winner.id, team))

	summary := matches.Summary{
		GameID:       e.rng.gameID(),
		LobbyCode:    l.code,
		PlayedAt:     now,
		Outcome:      matches.OutcomeFinished,
		TotalPlayers: l.playerCount(),
		Spectators:   len(l.spectators),
		WinningTeam:  team,
		Winner:       winner.id,
	}
	if !l.startedAt.IsZero() {
		summary.Duration = now.Sub(l.startedAt)
	}
	loggingmatch.GoldDelivered(context.Background(), e.publisher, e.tick.Load(), l.code, winner.id, team)
	loggingmatch.Ended(context.Background(), e.publisher, e.tick.Load(), l.code, loggingmatch.EndedPayload{
		Winner:          winner.id,
		Team:            team,
		DurationSeconds: summary.Duration.Seconds(),
	})
	e.metrics.Add(telemetry.MetricMatchesFinished, 1)

	for _, p := range l.orderedPlayers() {
		x, y := e.spawnPoint(e.cfg.SpawnArea)
		p.reset(x, y)
	}
	gx, gy := e.spawnPoint(e.cfg.GoldArea)
	l.gold = &goldToken{x: gx, y: gy}
	l.phase = PhaseLobby
	l.countdownLeft = 0
	l.announced = -1
	l.startedAt = time.Time{}
	e.evaluatePhaseLocked(l, out)
	return summary
}

// record hands a summary to the recorder. Must be called unlocked.
func (e *Engine) record(summary matches.Summary) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordMatch(context.Background(), summary); err != nil {
		e.logger.Printf("record match %d for lobby %s: %v", summary.GameID, summary.LobbyCode, err)
	}
}
