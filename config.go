package server

import "time"

// Rect is an axis-aligned rectangle in world units, bounds inclusive.
type Rect struct {
	MinX float64 `yaml:"minX" json:"minX"`
	MinY float64 `yaml:"minY" json:"minY"`
	MaxX float64 `yaml:"maxX" json:"maxX"`
	MaxY float64 `yaml:"maxY" json:"maxY"`
}

func (r Rect) valid() bool {
	return r.MaxX >= r.MinX && r.MaxY >= r.MinY
}

// Config holds the gameplay tuning. The zero value of any field means "use
// the default"; call Normalized before use.
type Config struct {
	TickRate          int           `yaml:"tickRate" json:"tickRate"`
	CountdownDuration time.Duration `yaml:"countdownDuration" json:"countdownDuration"`
	MinPlayers        int           `yaml:"minPlayers" json:"minPlayers"`
	MaxPlayers        int           `yaml:"maxPlayers" json:"maxPlayers"`
	// FastStartPlayers collapses a running countdown to FastStartDuration once
	// this many players are seated. Zero disables it.
	FastStartPlayers  int           `yaml:"fastStartPlayers" json:"fastStartPlayers"`
	FastStartDuration time.Duration `yaml:"fastStartDuration" json:"fastStartDuration"`

	MoveSpeed        float64 `yaml:"moveSpeed" json:"moveSpeed"`
	CarrySpeedFactor float64 `yaml:"carrySpeedFactor" json:"carrySpeedFactor"`
	PickupRadius     float64 `yaml:"pickupRadius" json:"pickupRadius"`

	AttackDuration  time.Duration `yaml:"attackDuration" json:"attackDuration"`
	AttackReach     int           `yaml:"attackReach" json:"attackReach"`
	AttackHalfWidth int           `yaml:"attackHalfWidth" json:"attackHalfWidth"`

	SpawnArea    Rect `yaml:"spawnArea" json:"spawnArea"`
	GoldArea     Rect `yaml:"goldArea" json:"goldArea"`
	SpawnRetries int  `yaml:"spawnRetries" json:"spawnRetries"`

	// LobbyIdleTTL removes lobbies that have had no members for this long.
	// Negative disables reaping.
	LobbyIdleTTL time.Duration `yaml:"lobbyIdleTTL" json:"lobbyIdleTTL"`
}

// DefaultConfig returns the stock tuning: a 2048x2048 world with players
// spawning in the centre quarter and the gold anywhere inside a 128 unit
// margin.
func DefaultConfig() Config {
	return Config{
		TickRate:          defaultTickRate,
		CountdownDuration: defaultCountdown,
		MinPlayers:        defaultMinPlayers,
		MaxPlayers:        defaultMaxPlayers,
		FastStartDuration: defaultFastStartDuration,
		MoveSpeed:         defaultMoveSpeed,
		CarrySpeedFactor:  defaultCarrySpeedFactor,
		PickupRadius:      defaultPickupRadius,
		AttackDuration:    defaultAttackDuration,
		AttackReach:       defaultAttackReach,
		AttackHalfWidth:   defaultAttackHalfWidth,
		SpawnArea:         Rect{MinX: 768, MinY: 768, MaxX: 1280, MaxY: 1280},
		GoldArea:          Rect{MinX: 128, MinY: 128, MaxX: 1920, MaxY: 1920},
		SpawnRetries:      defaultSpawnRetries,
		LobbyIdleTTL:      defaultLobbyIdleTTL,
	}
}

// Normalized fills unset or out-of-range fields from DefaultConfig.
func (c Config) Normalized() Config {
	d := DefaultConfig()
	if c.TickRate <= 0 {
		c.TickRate = d.TickRate
	}
	if c.CountdownDuration <= 0 {
		c.CountdownDuration = d.CountdownDuration
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = d.MaxPlayers
	}
	if c.MinPlayers <= 0 {
		c.MinPlayers = d.MinPlayers
	}
	if c.MinPlayers > c.MaxPlayers {
		c.MinPlayers = c.MaxPlayers
	}
	if c.FastStartPlayers < 0 || c.FastStartPlayers > c.MaxPlayers {
		c.FastStartPlayers = 0
	}
	if c.FastStartDuration <= 0 {
		c.FastStartDuration = d.FastStartDuration
	}
	if c.MoveSpeed <= 0 {
		c.MoveSpeed = d.MoveSpeed
	}
	if c.CarrySpeedFactor <= 0 {
		c.CarrySpeedFactor = d.CarrySpeedFactor
	}
	if c.PickupRadius <= 0 {
		c.PickupRadius = d.PickupRadius
	}
	if c.AttackDuration <= 0 {
		c.AttackDuration = d.AttackDuration
	}
	if c.AttackReach <= 0 {
		c.AttackReach = d.AttackReach
	}
	if c.AttackHalfWidth < 0 {
		c.AttackHalfWidth = d.AttackHalfWidth
	}
	if c.SpawnArea == (Rect{}) || !c.SpawnArea.valid() {
		c.SpawnArea = d.SpawnArea
	}
	if c.GoldArea == (Rect{}) || !c.GoldArea.valid() {
		c.GoldArea = d.GoldArea
	}
	if c.SpawnRetries <= 0 {
		c.SpawnRetries = d.SpawnRetries
	}
	if c.LobbyIdleTTL == 0 {
		c.LobbyIdleTTL = d.LobbyIdleTTL
	}
	return c
}

// TickInterval is the simulation period.
func (c Config) TickInterval() time.Duration {
	rate := c.TickRate
	if rate <= 0 {
		rate = defaultTickRate
	}
	return time.Second / time.Duration(rate)
}
