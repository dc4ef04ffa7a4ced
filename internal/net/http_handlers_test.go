package net

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	server "goldrush/server"
	"goldrush/server/internal/matches"
	"goldrush/server/internal/observability"
	"goldrush/server/logging"
)

type fixedStats logging.RouterStats

func (s fixedStats) Stats() logging.RouterStats { return logging.RouterStats(s) }

type failingLister struct{}

func (failingLister) RecentMatches(context.Context, int) ([]matches.Summary, error) {
	return nil, errors.New("disk on fire")
}

func newEngine() *server.Engine {
	return server.NewEngine(server.DefaultConfig(), server.Deps{})
}

func serve(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestHealth(t *testing.T) {
	resp := serve(t, NewHTTPHandler(newEngine(), HTTPHandlerConfig{}), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ok", resp.Body.String())
}

func TestDiagnosticsReportsEngineAndMetrics(t *testing.T) {
	engine := newEngine()
	code := engine.CreateLobby("CAAAAA")
	require.True(t, engine.JoinAsPlayer(code, "CAAAAA"))

	metrics := &logging.Metrics{}
	metrics.TelemetryAdd("connections_total", 3)
	handler := NewHTTPHandler(engine, HTTPHandlerConfig{
		Connections: func() int { return 2 },
		Metrics:     metrics,
		Logging:     fixedStats{EventsTotal: 9, DroppedTotal: 1},
	})

	resp := serve(t, handler, http.MethodGet, "/diagnostics")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))

	var payload struct {
		Status      string              `json:"status"`
		Connections int                 `json:"connections"`
		Engine      server.Diagnostics  `json:"engine"`
		Metrics     map[string]uint64   `json:"metrics"`
		Logging     logging.RouterStats `json:"logging"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload.Status)
	assert.Equal(t, 2, payload.Connections)
	assert.Equal(t, 20, payload.Engine.TickRate)
	require.Len(t, payload.Engine.Lobbies, 1)
	assert.Equal(t, code, payload.Engine.Lobbies[0].Code)
	assert.Equal(t, []string{"CAAAAA"}, payload.Engine.Lobbies[0].Players)
	assert.Equal(t, uint64(3), payload.Metrics["connections_total"])
	assert.Equal(t, uint64(9), payload.Logging.EventsTotal)
}

func TestMatchesListsNewestFirst(t *testing.T) {
	store := matches.NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordMatch(context.Background(), matches.Summary{
			GameID:   int64(i + 1),
			PlayedAt: base.Add(time.Duration(i) * time.Minute),
			Outcome:  matches.OutcomeFinished,
		}))
	}
	handler := NewHTTPHandler(newEngine(), HTTPHandlerConfig{Matches: store})

	resp := serve(t, handler, http.MethodGet, "/matches?limit=2")
	require.Equal(t, http.StatusOK, resp.Code)
	var payload struct {
		Matches []matches.Summary `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	require.Len(t, payload.Matches, 2)
	assert.Equal(t, int64(3), payload.Matches[0].GameID)
	assert.Equal(t, int64(2), payload.Matches[1].GameID)
}

func TestMatchesErrors(t *testing.T) {
	engine := newEngine()

	resp := serve(t, NewHTTPHandler(engine, HTTPHandlerConfig{}), http.MethodGet, "/matches")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	withStore := NewHTTPHandler(engine, HTTPHandlerConfig{Matches: matches.NewMemoryStore()})
	assert.Equal(t, http.StatusBadRequest, serve(t, withStore, http.MethodGet, "/matches?limit=abc").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, withStore, http.MethodGet, "/matches?limit=0").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(t, withStore, http.MethodPost, "/matches").Code)

	empty := serve(t, withStore, http.MethodGet, "/matches")
	require.Equal(t, http.StatusOK, empty.Code)
	assert.JSONEq(t, `{"matches":[]}`, empty.Body.String())

	failing := NewHTTPHandler(engine, HTTPHandlerConfig{Matches: failingLister{}})
	assert.Equal(t, http.StatusInternalServerError, serve(t, failing, http.MethodGet, "/matches").Code)
}

func TestWebSocketAndPprofMounting(t *testing.T) {
	engine := newEngine()
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	plain := NewHTTPHandler(engine, HTTPHandlerConfig{WebSocket: ws})
	assert.Equal(t, http.StatusTeapot, serve(t, plain, http.MethodGet, "/ws").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, plain, http.MethodGet, "/debug/pprof/").Code)

	profiled := NewHTTPHandler(engine, HTTPHandlerConfig{Observability: observability.Config{EnablePprof: true}})
	assert.Equal(t, http.StatusOK, serve(t, profiled, http.MethodGet, "/debug/pprof/").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, profiled, http.MethodGet, "/ws").Code)
}
