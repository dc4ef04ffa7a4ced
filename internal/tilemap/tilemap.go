// Package tilemap loads the static level file and answers per-cell questions
// about it: is a world position walkable, and which tower owns a cell.
//
// The level file stores rows top-down while world Y grows upward, so row 0 of
// a layer's tileMap is the top edge of the world.
package tilemap

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
)

const (
	// DefaultTileSize is used when a layer does not declare its tile width.
	DefaultTileSize = 64.0
	// EmptyTile marks an unused cell in a layer.
	EmptyTile = -1

	LayerWater  = "water0"
	LayerFoam   = "water1"
	LayerTowers = "towers"

	// towerFramesPerRow is the width of the tower sprite sheet. A tower cell's
	// value divided by it yields the sheet row, one row per team colour.
	towerFramesPerRow = 8
	towerRows         = 4
)

// ErrNoLevels is returned when a level file contains no levels.
var ErrNoLevels = errors.New("tilemap: no levels")

// Kind classifies a single cell.
type Kind int

const (
	KindPassable Kind = iota
	KindWater
	KindTower
)

func (k Kind) String() string {
	switch k {
	case KindPassable:
		return "passable"
	case KindWater:
		return "water"
	case KindTower:
		return "tower"
	default:
		return "unknown"
	}
}

// Cell is the classification of one tile. Tower is the sprite-sheet row of a
// tower cell (0..3) and -1 for everything else.
type Cell struct {
	Kind  Kind
	Tower int
}

// Coord addresses a tile; Y counts up from the bottom row.
type Coord struct {
	X int
	Y int
}

// Key renders the coordinate as "x,y".
func (c Coord) Key() string {
	return strconv.Itoa(c.X) + "," + strconv.Itoa(c.Y)
}

// Layer mirrors one entry of a level's layer list.
type Layer struct {
	Name       string  `json:"name"`
	TileWidth  int     `json:"tilesWidth"`
	TileHeight int     `json:"tilesHeight"`
	Tiles      [][]int `json:"tileMap"`
}

type level struct {
	Layers []Layer `json:"layers"`
}

type file struct {
	Levels []level `json:"levels"`
}

// Map is an immutable, read-only view of the first level of a level file.
type Map struct {
	tileSize float64
	cols     int
	rows     int
	layers   map[string]Layer
}

// Load reads and parses a level file from disk.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level file: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse level file %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a level file.
func Parse(data []byte) (*Map, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Levels) == 0 {
		return nil, ErrNoLevels
	}
	return New(f.Levels[0].Layers), nil
}

// New builds a map from already decoded layers. The grid size is the largest
// layer; the tile size comes from the first layer that declares one.
func New(layers []Layer) *Map {
	m := &Map{
		tileSize: DefaultTileSize,
		layers:   make(map[string]Layer, len(layers)),
	}
	sized := false
	for _, layer := range layers {
		if !sized && layer.TileWidth > 0 {
			m.tileSize = float64(layer.TileWidth)
			sized = true
		}
		if len(layer.Tiles) > m.rows {
			m.rows = len(layer.Tiles)
		}
		for _, row := range layer.Tiles {
			if len(row) > m.cols {
				m.cols = len(row)
			}
		}
		m.layers[layer.Name] = layer
	}
	return m
}

// TileSize reports the edge length of a tile in world units.
func (m *Map) TileSize() float64 {
	if m == nil {
		return DefaultTileSize
	}
	return m.tileSize
}

// Size reports the grid dimensions in tiles.
func (m *Map) Size() (cols, rows int) {
	if m == nil {
		return 0, 0
	}
	return m.cols, m.rows
}

// Bounds reports the world extent in world units.
func (m *Map) Bounds() (width, height float64) {
	if m == nil {
		return 0, 0
	}
	return float64(m.cols) * m.tileSize, float64(m.rows) * m.tileSize
}

// LayerNames lists the loaded layers in name order.
func (m *Map) LayerNames() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.layers))
	for name := range m.layers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TileAt converts a world position to a tile coordinate. ok is false when the
// position lies outside the grid.
func (m *Map) TileAt(x, y float64) (Coord, bool) {
	size := m.TileSize()
	if math.IsNaN(x) || math.IsNaN(y) || x < 0 || y < 0 {
		return Coord{}, false
	}
	c := Coord{X: int(math.Floor(x / size)), Y: int(math.Floor(y / size))}
	if m == nil {
		return c, true
	}
	if c.X >= m.cols || c.Y >= m.rows {
		return c, false
	}
	return c, true
}

// Value returns the raw tile value of a layer at a bottom-up coordinate.
func (m *Map) Value(layer string, c Coord) int {
	if m == nil {
		return EmptyTile
	}
	l, ok := m.layers[layer]
	if !ok {
		return EmptyTile
	}
	row := len(l.Tiles) - 1 - c.Y
	if row < 0 || row >= len(l.Tiles) {
		return EmptyTile
	}
	if c.X < 0 || c.X >= len(l.Tiles[row]) {
		return EmptyTile
	}
	return l.Tiles[row][c.X]
}

// CellAt classifies a tile. Towers win over water when both are set.
func (m *Map) CellAt(c Coord) Cell {
	if v := m.Value(LayerTowers, c); v != EmptyTile {
		return Cell{Kind: KindTower, Tower: towerIndex(v)}
	}
	if m.Value(LayerWater, c) != EmptyTile || m.Value(LayerFoam, c) != EmptyTile {
		return Cell{Kind: KindWater, Tower: -1}
	}
	return Cell{Kind: KindPassable, Tower: -1}
}

// IsPassable reports whether a world position may be occupied. Positions off
// the grid are blocked. A nil map allows everything so the server keeps
// running when the level file could not be loaded.
func (m *Map) IsPassable(x, y float64) bool {
	if m == nil {
		return true
	}
	c, ok := m.TileAt(x, y)
	if !ok {
		return false
	}
	return m.CellAt(c).Kind == KindPassable
}

// Towers groups tower tiles by sprite-sheet row.
func (m *Map) Towers() map[int][]Coord {
	towers := make(map[int][]Coord)
	if m == nil {
		return towers
	}
	l, ok := m.layers[LayerTowers]
	if !ok {
		return towers
	}
	for row, values := range l.Tiles {
		y := len(l.Tiles) - 1 - row
		for x, v := range values {
			if v == EmptyTile {
				continue
			}
			idx := towerIndex(v)
			if idx < 0 {
				continue
			}
			towers[idx] = append(towers[idx], Coord{X: x, Y: y})
		}
	}
	return towers
}

func towerIndex(value int) int {
	if value < 0 {
		return -1
	}
	row := value / towerFramesPerRow
	if row >= towerRows {
		return -1
	}
	return row
}
