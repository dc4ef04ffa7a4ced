package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	server "goldrush/server"
	"goldrush/server/logging"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "assets/level.json", cfg.MapPath)
	assert.Empty(t, cfg.DBPath)
	assert.Equal(t, []string{"console"}, cfg.LogSinks)
	assert.Equal(t, 60.0, cfg.RateLimit)
	assert.Equal(t, 120, cfg.RateBurst)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.EnablePprof)
	assert.Equal(t, server.DefaultConfig(), cfg.Game)
}

func TestLoadFromEnvironment(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"GOLDRUSH_ADDR":          "127.0.0.1:9000",
		"GOLDRUSH_DB_PATH":       "/var/lib/goldrush/matches.db",
		"GOLDRUSH_LOG_SINKS":     " Console, json ,",
		"GOLDRUSH_LOG_LEVEL":     "debug",
		"GOLDRUSH_RATE_LIMIT":    "12.5",
		"GOLDRUSH_ENABLE_PPROF":  "true",
		"GOLDRUSH_SEND_QUEUE":    "8",
		"GOLDRUSH_LOG_JSON_PATH": "/tmp/events.ndjson",
	})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "/var/lib/goldrush/matches.db", cfg.DBPath)
	assert.Equal(t, []string{"console", "json"}, cfg.LogSinks)
	assert.Equal(t, 12.5, cfg.RateLimit)
	assert.True(t, cfg.EnablePprof)
	assert.Equal(t, 8, cfg.SendQueue)

	lc := cfg.Logging()
	assert.True(t, lc.HasSink("json"))
	assert.Equal(t, logging.SeverityDebug, lc.MinimumSeverity)
	assert.Equal(t, "/tmp/events.ndjson", lc.JSON.FilePath)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := LoadFrom(map[string]string{"GOLDRUSH_RATE_BURST": "lots"})
	assert.Error(t, err)

	_, err = LoadFrom(map[string]string{"GOLDRUSH_LOG_LEVEL": "chatty"})
	assert.Error(t, err)
}

func TestTuningFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tickRate: 30
countdownDuration: 10s
fastStartPlayers: 4
moveSpeed: 6
spawnArea:
  minX: 100
  minY: 100
  maxX: 200
  maxY: 200
lobbyIdleTTL: -1s
`), 0o644))

	cfg, err := LoadFrom(map[string]string{"GOLDRUSH_TUNING_PATH": path})
	require.NoError(t, err)

	game := cfg.Game
	assert.Equal(t, 30, game.TickRate)
	assert.Equal(t, 10*time.Second, game.CountdownDuration)
	assert.Equal(t, 4, game.FastStartPlayers)
	assert.Equal(t, 6.0, game.MoveSpeed)
	assert.Equal(t, server.Rect{MinX: 100, MinY: 100, MaxX: 200, MaxY: 200}, game.SpawnArea)
	assert.Equal(t, -time.Second, game.LobbyIdleTTL)
	// Untouched keys keep their defaults.
	assert.Equal(t, server.DefaultConfig().GoldArea, game.GoldArea)
	assert.Equal(t, server.DefaultConfig().PickupRadius, game.PickupRadius)
}

func TestParseTuning(t *testing.T) {
	base := server.DefaultConfig()

	cfg, err := ParseTuning(nil, base)
	require.NoError(t, err)
	assert.Equal(t, base, cfg)

	_, err = ParseTuning([]byte("tickrate: 5\n"), base)
	assert.Error(t, err, "unknown keys are rejected")

	_, err = LoadTuning(filepath.Join(t.TempDir(), "missing.yaml"), base)
	assert.Error(t, err)
}
