package net

import (
	"encoding/json"
	nethttp "net/http"
	"strconv"
	"time"

	server "goldrush/server"
	"goldrush/server/internal/matches"
	"goldrush/server/internal/observability"
	"goldrush/server/internal/telemetry"
	"goldrush/server/logging"
)

const (
	defaultMatchLimit = 20
	maxMatchLimit     = 200
)

// RouterStats is implemented by logging.Router.
type RouterStats interface {
	Stats() logging.RouterStats
}

// HTTPHandlerConfig lists the collaborators served by the HTTP mux. Nil
// fields switch their endpoint off or to a 503.
type HTTPHandlerConfig struct {
	// ClientDir serves static client files from / when set.
	ClientDir string
	// WebSocket handles /ws.
	WebSocket nethttp.Handler
	// Connections reports the number of open websocket connections.
	Connections   func() int
	Matches       matches.Lister
	Metrics       *logging.Metrics
	Logging       RouterStats
	Logger        telemetry.Logger
	Observability observability.Config
}

// NewHTTPHandler builds the server mux.
func NewHTTPHandler(engine *server.Engine, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status      string               `json:"status"`
			ServerTime  int64                `json:"serverTime"`
			Connections int                  `json:"connections"`
			Engine      server.Diagnostics   `json:"engine"`
			Metrics     map[string]uint64    `json:"metrics"`
			Logging     *logging.RouterStats `json:"logging,omitempty"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Engine:     engine.Diagnostics(),
			Metrics:    cfg.Metrics.Snapshot(),
		}
		if cfg.Connections != nil {
			payload.Connections = cfg.Connections()
		}
		if cfg.Logging != nil {
			stats := cfg.Logging.Stats()
			payload.Logging = &stats
		}
		writeJSON(w, logger, payload)
	})

	mux.HandleFunc("/matches", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		if cfg.Matches == nil {
			httpError(w, "match history unavailable", nethttp.StatusServiceUnavailable)
			return
		}
		limit := defaultMatchLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			value, err := strconv.Atoi(raw)
			if err != nil || value <= 0 {
				httpError(w, "invalid limit", nethttp.StatusBadRequest)
				return
			}
			limit = min(value, maxMatchLimit)
		}
		recent, err := cfg.Matches.RecentMatches(r.Context(), limit)
		if err != nil {
			logger.Printf("list matches: %v", err)
			httpError(w, "failed to list matches", nethttp.StatusInternalServerError)
			return
		}
		if recent == nil {
			recent = []matches.Summary{}
		}
		writeJSON(w, logger, struct {
			Matches []matches.Summary `json:"matches"`
		}{Matches: recent})
	})

	if cfg.WebSocket != nil {
		mux.Handle("/ws", cfg.WebSocket)
	}

	cfg.Observability.Mount(mux)

	if cfg.ClientDir != "" {
		mux.Handle("/", nethttp.FileServer(nethttp.Dir(cfg.ClientDir)))
	}

	return mux
}

func writeJSON(w nethttp.ResponseWriter, logger telemetry.Logger, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("encode response: %v", err)
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, message string, status int) {
	nethttp.Error(w, message, status)
}
