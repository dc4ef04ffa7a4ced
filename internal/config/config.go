// Package config reads process settings from the environment and gameplay
// tuning from an optional YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	server "goldrush/server"
	"goldrush/server/logging"
)

// Config is the process configuration. Game holds the gameplay tuning after
// the tuning file, if any, was applied over the defaults.
type Config struct {
	Addr       string `env:"GOLDRUSH_ADDR" envDefault:":8080"`
	MapPath    string `env:"GOLDRUSH_MAP_PATH" envDefault:"assets/level.json"`
	ClientDir  string `env:"GOLDRUSH_CLIENT_DIR"`
	TuningPath string `env:"GOLDRUSH_TUNING_PATH"`
	// DBPath selects the SQLite match store. Empty keeps history in memory.
	DBPath string `env:"GOLDRUSH_DB_PATH"`

	LogSinks    []string `env:"GOLDRUSH_LOG_SINKS" envSeparator:"," envDefault:"console"`
	LogJSONPath string   `env:"GOLDRUSH_LOG_JSON_PATH" envDefault:"logs/events.ndjson"`
	LogLevel    string   `env:"GOLDRUSH_LOG_LEVEL" envDefault:"info"`

	RateLimit  float64 `env:"GOLDRUSH_RATE_LIMIT" envDefault:"60"`
	RateBurst  int     `env:"GOLDRUSH_RATE_BURST" envDefault:"120"`
	SendQueue  int     `env:"GOLDRUSH_SEND_QUEUE" envDefault:"64"`
	MatchQueue int     `env:"GOLDRUSH_MATCH_QUEUE" envDefault:"64"`

	EnablePprof     bool          `env:"GOLDRUSH_ENABLE_PPROF"`
	ShutdownTimeout time.Duration `env:"GOLDRUSH_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Game server.Config
}

// Load reads the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the given variables instead of the process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogSinks = cleanList(cfg.LogSinks)
	if _, err := logging.ParseSeverity(cfg.LogLevel); err != nil {
		return Config{}, fmt.Errorf("GOLDRUSH_LOG_LEVEL: %w", err)
	}

	game := server.DefaultConfig()
	if cfg.TuningPath != "" {
		tuned, err := LoadTuning(cfg.TuningPath, game)
		if err != nil {
			return Config{}, err
		}
		game = tuned
	}
	cfg.Game = game.Normalized()
	return cfg, nil
}

// Logging translates the log settings into a router config.
func (c Config) Logging() logging.Config {
	lc := logging.DefaultConfig()
	if len(c.LogSinks) > 0 {
		lc.EnabledSinks = append([]string(nil), c.LogSinks...)
	}
	lc.JSON.FilePath = c.LogJSONPath
	if severity, err := logging.ParseSeverity(c.LogLevel); err == nil {
		lc.MinimumSeverity = severity
	}
	return lc
}

// LoadTuning applies a YAML tuning file over base. Keys the file omits keep
// their base value; unknown keys are an error.
func LoadTuning(path string, base server.Config) (server.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return server.Config{}, fmt.Errorf("read tuning file: %w", err)
	}
	cfg, err := ParseTuning(data, base)
	if err != nil {
		return server.Config{}, fmt.Errorf("tuning file %s: %w", path, err)
	}
	return cfg, nil
}

// ParseTuning applies YAML tuning data over base.
func ParseTuning(data []byte, base server.Config) (server.Config, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	cfg := base
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return server.Config{}, err
	}
	return cfg, nil
}

func cleanList(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
