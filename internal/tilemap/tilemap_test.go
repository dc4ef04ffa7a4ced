package tilemap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLevel = `{
  "levels": [{
    "layers": [
      {"name": "grass", "tilesWidth": 64, "tilesHeight": 64, "tileMap": [
        [1, 1, 1, 1],
        [1, 1, 1, 1],
        [1, 1, 1, 1]
      ]},
      {"name": "water0", "tilesWidth": 64, "tilesHeight": 64, "tileMap": [
        [-1, -1, -1, 0],
        [-1, -1, -1, -1],
        [-1, -1, -1, -1]
      ]},
      {"name": "towers", "tilesWidth": 64, "tilesHeight": 64, "tileMap": [
        [-1, -1, -1, -1],
        [-1, -1, -1, -1],
        [0, -1, -1, 9]
      ]}
    ]
  }]
}`

func TestParseDimensions(t *testing.T) {
	m, err := Parse([]byte(sampleLevel))
	require.NoError(t, err)

	cols, rows := m.Size()
	assert.Equal(t, 4, cols)
	assert.Equal(t, 3, rows)
	assert.Equal(t, 64.0, m.TileSize())
	width, height := m.Bounds()
	assert.Equal(t, 256.0, width)
	assert.Equal(t, 192.0, height)
	assert.Equal(t, []string{"grass", "towers", "water0"}, m.LayerNames())
}

func TestParseRejectsEmptyFile(t *testing.T) {
	_, err := Parse([]byte(`{"levels": []}`))
	assert.ErrorIs(t, err, ErrNoLevels)

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestIsPassable(t *testing.T) {
	m, err := Parse([]byte(sampleLevel))
	require.NoError(t, err)

	cases := []struct {
		name string
		x, y float64
		want bool
	}{
		{"grass", 70, 10, true},
		{"own tower cell", 10, 10, false},
		{"other tower cell", 200, 10, false},
		{"water on the top row", 200, 150, false},
		{"grass below water", 200, 100, true},
		{"past the right edge", 300, 10, false},
		{"past the top edge", 10, 200, false},
		{"negative", -1, 5, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, m.IsPassable(tc.x, tc.y))
		})
	}
}

func TestNilMapFailsOpen(t *testing.T) {
	var m *Map
	assert.True(t, m.IsPassable(-500, 1e9))
	assert.Empty(t, m.Towers())
	assert.Equal(t, DefaultTileSize, m.TileSize())
}

func TestTowers(t *testing.T) {
	m, err := Parse([]byte(sampleLevel))
	require.NoError(t, err)

	towers := m.Towers()
	assert.Equal(t, []Coord{{X: 0, Y: 0}}, towers[0])
	assert.Equal(t, []Coord{{X: 3, Y: 0}}, towers[1])
	assert.Len(t, towers, 2)

	assert.Equal(t, Cell{Kind: KindTower, Tower: 1}, m.CellAt(Coord{X: 3, Y: 0}))
	assert.Equal(t, Cell{Kind: KindWater, Tower: -1}, m.CellAt(Coord{X: 3, Y: 2}))
	assert.Equal(t, "3,0", Coord{X: 3, Y: 0}.Key())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "level.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleLevel), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.True(t, m.IsPassable(70, 10))

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestShippedLevel(t *testing.T) {
	m, err := Load(filepath.Join("..", "..", "assets", "level.json"))
	require.NoError(t, err)

	cols, rows := m.Size()
	assert.Equal(t, 32, cols)
	assert.Equal(t, 32, rows)
	assert.False(t, m.IsPassable(10, 10), "border is water")

	// Players spawn in the centre of the world; every spawn cell is walkable.
	for x := 768.0; x <= 1280; x += 64 {
		for y := 768.0; y <= 1280; y += 64 {
			assert.True(t, m.IsPassable(x, y), "spawn cell %v,%v", x, y)
		}
	}

	towers := m.Towers()
	require.Len(t, towers, 4)
	for row, coords := range towers {
		assert.Len(t, coords, 4, "tower row %d", row)
	}
	assert.Contains(t, towers[0], Coord{X: 3, Y: 3})
}
