// Package matches records the outcome of finished matches. Recording is
// fire-and-forget from the engine's point of view: summaries go through a
// bounded Queue and a single worker hands them to a Recorder.
package matches

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// OutcomeFinished is the only outcome code the server produces today: the
// gold was delivered to a tower.
const OutcomeFinished = "finished"

var (
	// ErrQueueFull is returned by Queue.RecordMatch when the backlog is full.
	ErrQueueFull = errors.New("matches: queue full")
	// ErrClosed is returned once the queue has been closed.
	ErrClosed = errors.New("matches: queue closed")
)

// Summary is one finished match.
type Summary struct {
	GameID       int64         `json:"gameId"`
	LobbyCode    string        `json:"lobbyCode"`
	PlayedAt     time.Time     `json:"playedAt"`
	Outcome      string        `json:"outcome"`
	TotalPlayers int           `json:"totalPlayers"`
	Spectators   int           `json:"spectators"`
	WinningTeam  string        `json:"winningTeam"`
	Winner       string        `json:"winner"`
	Duration     time.Duration `json:"durationNanos"`
}

// Recorder persists a summary.
type Recorder interface {
	RecordMatch(ctx context.Context, summary Summary) error
}

// Lister returns the most recent summaries, newest first.
type Lister interface {
	RecentMatches(ctx context.Context, limit int) ([]Summary, error)
}

// MemoryStore keeps summaries in process. It backs the server when no
// database path is configured.
type MemoryStore struct {
	mu      sync.Mutex
	matches []Summary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) RecordMatch(ctx context.Context, summary Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches = append(s.matches, summary)
	return nil
}

func (s *MemoryStore) RecentMatches(ctx context.Context, limit int) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := append([]Summary(nil), s.matches...)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PlayedAt.After(out[j].PlayedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
