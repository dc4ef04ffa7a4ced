package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldrush/server/internal/matches"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "matches.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestRecordAndListMatches(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, team := range []string{"blue", "red", "yellow"} {
		require.NoError(t, store.RecordMatch(ctx, matches.Summary{
			GameID:       int64(100 + i),
			LobbyCode:    "123456",
			PlayedAt:     base.Add(time.Duration(i) * time.Minute),
			TotalPlayers: 4,
			Spectators:   i,
			WinningTeam:  team,
			Winner:       "CAAAAA",
			Duration:     90 * time.Second,
		}))
	}

	recent, err := store.RecentMatches(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(102), recent[0].GameID)
	assert.Equal(t, "yellow", recent[0].WinningTeam)
	assert.Equal(t, matches.OutcomeFinished, recent[0].Outcome)
	assert.Equal(t, base.Add(2*time.Minute), recent[0].PlayedAt)
	assert.Equal(t, 90*time.Second, recent[0].Duration)
	assert.Equal(t, int64(101), recent[1].GameID)
}

func TestRecordMatchRejectsDuplicates(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	summary := matches.Summary{GameID: 7, LobbyCode: "654321", WinningTeam: "purple"}

	require.NoError(t, store.RecordMatch(ctx, summary))
	err := store.RecordMatch(ctx, summary)
	assert.ErrorIs(t, err, ErrDuplicateGame)
}

func TestRecordMatchValidatesGameID(t *testing.T) {
	store := openTempStore(t)
	assert.Error(t, store.RecordMatch(context.Background(), matches.Summary{}))
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matches.db")
	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.RecordMatch(context.Background(), matches.Summary{GameID: 1, WinningTeam: "blue"}))
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()
	recent, err := second.RecentMatches(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestInMemoryStore(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.RecordMatch(context.Background(), matches.Summary{GameID: 3, WinningTeam: "red"}))
	recent, err := store.RecentMatches(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestUpSection(t *testing.T) {
	assert.Equal(t, "\nCREATE x;\n", upSection("-- +migrate Up\nCREATE x;\n-- +migrate Down\nDROP x;"))
	assert.Equal(t, "CREATE y;", upSection("CREATE y;"))
}
