package server

import "time"

const (
	defaultTickRate          = 20
	defaultCountdown         = 30 * time.Second
	defaultMinPlayers        = 2
	defaultMaxPlayers        = 4
	defaultFastStartDuration = 5 * time.Second
	defaultMoveSpeed         = 4.0
	defaultCarrySpeedFactor  = 0.6
	defaultPickupRadius      = 48.0
	defaultAttackDuration    = 500 * time.Millisecond
	defaultAttackReach       = 1
	defaultAttackHalfWidth   = 1
	defaultSpawnRetries      = 32
	defaultLobbyIdleTTL      = 10 * time.Minute

	lobbyCodeMin  = 100000
	lobbyCodeSpan = 900000

	// tickOverrunRatio is how far past its interval a tick must run before
	// it is reported.
	tickOverrunRatio = 1.0

	collisionMessage = "Collision detected"
)

// Movement states as they appear on the wire.
const (
	StateIdle  = "IDLE"
	StateUp    = "UP"
	StateDown  = "DOWN"
	StateLeft  = "LEFT"
	StateRight = "RIGHT"
)

// Attack directions.
const (
	FacingTop    = "TOP"
	FacingBottom = "BOTTOM"
	FacingLeft   = "LEFT"
	FacingRight  = "RIGHT"
)
