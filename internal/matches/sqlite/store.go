// Package sqlite stores match summaries in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"goldrush/server/internal/matches"
	"goldrush/server/internal/matches/sqlite/migrations"
)

// ErrDuplicateGame is returned when a game id was already recorded.
var ErrDuplicateGame = errors.New("sqlite: game already recorded")

// Store implements matches.Recorder and matches.Lister.
type Store struct {
	db *sql.DB
}

var (
	_ matches.Recorder = (*Store)(nil)
	_ matches.Lister   = (*Store)(nil)
)

// Open opens (creating if needed) the database at path and applies the
// embedded migrations. ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) RecordMatch(ctx context.Context, summary matches.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if summary.GameID <= 0 {
		return fmt.Errorf("game id must be positive")
	}
	playedAt := summary.PlayedAt
	if playedAt.IsZero() {
		playedAt = time.Now()
	}
	outcome := summary.Outcome
	if outcome == "" {
		outcome = matches.OutcomeFinished
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO matches (
		   game_id, lobby_code, played_at, outcome, total_players,
		   spectators, winning_team, winner, duration_ms
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.GameID,
		summary.LobbyCode,
		playedAt.UTC().UnixMilli(),
		outcome,
		summary.TotalPlayers,
		summary.Spectators,
		summary.WinningTeam,
		summary.Winner,
		summary.Duration.Milliseconds(),
	)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("game %d: %w", summary.GameID, ErrDuplicateGame)
		}
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

func (s *Store) RecentMatches(ctx context.Context, limit int) ([]matches.Summary, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT game_id, lobby_code, played_at, outcome, total_players,
		        spectators, winning_team, winner, duration_ms
		   FROM matches
		  ORDER BY played_at DESC, game_id DESC
		  LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var out []matches.Summary
	for rows.Next() {
		var (
			summary    matches.Summary
			playedAt   int64
			durationMS int64
		)
		if err := rows.Scan(
			&summary.GameID,
			&summary.LobbyCode,
			&playedAt,
			&summary.Outcome,
			&summary.TotalPlayers,
			&summary.Spectators,
			&summary.WinningTeam,
			&summary.Winner,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		summary.PlayedAt = time.UnixMilli(playedAt).UTC()
		summary.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return out, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
