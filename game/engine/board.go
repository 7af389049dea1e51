package engine

import (
	"encoding/json"
	"fmt"
)

// RandomSource supplies the randomness used to shuffle tiles.
// *math/rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
}

// Board is a fixed-size grid of tiles stored in row-major order
type Board struct {
	rows  int
	cols  int
	tiles []Tile
}

// NewBoard builds a freshly paired and shuffled board. Pair i uses
// symbols[i % len(symbols)], so small alphabets repeat across pairs.
func NewBoard(rows, cols int, symbols []Symbol, rng RandomSource) (*Board, error) {
	if rows <= 0 || cols <= 0 {
		return nil, ErrEmptyBoard
	}
	if (rows*cols)%2 != 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrOddCellCount, rows, cols)
	}
	if len(symbols) == 0 {
		return nil, ErrEmptyAlphabet
	}
	for _, s := range symbols {
		if s == EmptySymbol {
			return nil, ErrSentinelSymbol
		}
	}
	if rng == nil {
		return nil, ErrNilRandomSource
	}

	total := rows * cols
	faces := make([]Symbol, 0, total)
	for i := 0; i < total/2; i++ {
		s := symbols[i%len(symbols)]
		faces = append(faces, s, s)
	}
	shuffleSymbols(faces, rng)

	b := &Board{rows: rows, cols: cols, tiles: make([]Tile, total)}
	for i, s := range faces {
		b.tiles[i] = Tile{Symbol: s}
	}
	return b, nil
}

// NewBoardFromLayout builds a board from a fixed symbol grid. The grid must
// have an even cell count. EmptySymbol cells start cleared; every other symbol
// must appear an even number of times.
func NewBoardFromLayout(grid [][]Symbol) (*Board, error) {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return nil, ErrEmptyBoard
	}

	rows, cols := len(grid), len(grid[0])
	b := &Board{rows: rows, cols: cols, tiles: make([]Tile, 0, rows*cols)}
	counts := make(map[Symbol]int)

	for r, row := range grid {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrRaggedLayout, r, len(row), cols)
		}
		for _, s := range row {
			if s == EmptySymbol {
				b.tiles = append(b.tiles, Tile{Symbol: s, Cleared: true})
				continue
			}
			counts[s]++
			b.tiles = append(b.tiles, Tile{Symbol: s})
		}
	}
	if (rows*cols)%2 != 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrOddCellCount, rows, cols)
	}

	for s, n := range counts {
		if n%2 != 0 {
			return nil, fmt.Errorf("%w: %q appears %d times", ErrUnpairedSymbol, s, n)
		}
	}
	return b, nil
}

// shuffleSymbols is a Fisher-Yates shuffle driven by rng
func shuffleSymbols(s []Symbol, rng RandomSource) {
	for i := len(s) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// Rows returns the number of rows
func (b *Board) Rows() int { return b.rows }

// Cols returns the number of columns
func (b *Board) Cols() int { return b.cols }

// InBounds reports whether c lies on the grid
func (b *Board) InBounds(c Coord) bool {
	return c.Row >= 0 && c.Row < b.rows && c.Col >= 0 && c.Col < b.cols
}

func (b *Board) index(c Coord) int {
	return c.Row*b.cols + c.Col
}

// IsTraversable reports whether a path may pass through c: the tile is
// cleared or is the empty sentinel. Out-of-bounds cells are never traversable.
func (b *Board) IsTraversable(c Coord) bool {
	if !b.InBounds(c) {
		return false
	}
	t := b.tiles[b.index(c)]
	return t.Cleared || t.Symbol == EmptySymbol
}

// TileAt returns the tile at c
func (b *Board) TileAt(c Coord) (Tile, error) {
	if !b.InBounds(c) {
		return Tile{}, b.outOfRange(c)
	}
	return b.tiles[b.index(c)], nil
}

// SetCleared sets the cleared flag of the tile at c
func (b *Board) SetCleared(c Coord, cleared bool) error {
	if !b.InBounds(c) {
		return b.outOfRange(c)
	}
	b.tiles[b.index(c)].Cleared = cleared
	return nil
}

// AllCleared reports the win condition: every tile is cleared
func (b *Board) AllCleared() bool {
	for _, t := range b.tiles {
		if !t.Cleared {
			return false
		}
	}
	return true
}

// Remaining counts tiles still in play
func (b *Board) Remaining() int {
	n := 0
	for _, t := range b.tiles {
		if !t.Cleared {
			n++
		}
	}
	return n
}

// ActiveCoords lists the coordinates of tiles still in play, row-major
func (b *Board) ActiveCoords() []Coord {
	coords := make([]Coord, 0, len(b.tiles))
	for i, t := range b.tiles {
		if !t.Cleared {
			coords = append(coords, Coord{Row: i / b.cols, Col: i % b.cols})
		}
	}
	return coords
}

// Clone returns a deep copy of the board
func (b *Board) Clone() *Board {
	tiles := make([]Tile, len(b.tiles))
	copy(tiles, b.tiles)
	return &Board{rows: b.rows, cols: b.cols, tiles: tiles}
}

// Grid returns a row-by-row copy of the tiles
func (b *Board) Grid() [][]Tile {
	grid := make([][]Tile, b.rows)
	for r := range grid {
		grid[r] = make([]Tile, b.cols)
		copy(grid[r], b.tiles[r*b.cols:(r+1)*b.cols])
	}
	return grid
}

// reshuffle redistributes the symbols of the active tiles over the same
// active cells and returns the result as a new board.
func (b *Board) reshuffle(rng RandomSource) *Board {
	active := b.ActiveCoords()
	faces := make([]Symbol, len(active))
	for i, c := range active {
		faces[i] = b.tiles[b.index(c)].Symbol
	}
	shuffleSymbols(faces, rng)

	next := b.Clone()
	for i, c := range active {
		next.tiles[next.index(c)].Symbol = faces[i]
	}
	return next
}

func (b *Board) outOfRange(c Coord) error {
	return &OutOfRangeError{Coord: c, Rows: b.rows, Cols: b.cols}
}

type boardJSON struct {
	Rows int      `json:"rows"`
	Cols int      `json:"cols"`
	Grid [][]Tile `json:"grid"`
}

// MarshalJSON encodes the board as {"rows","cols","grid"}
func (b *Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(boardJSON{Rows: b.rows, Cols: b.cols, Grid: b.Grid()})
}

// UnmarshalJSON decodes the form produced by MarshalJSON
func (b *Board) UnmarshalJSON(data []byte) error {
	var raw boardJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Grid) != raw.Rows {
		return fmt.Errorf("board: grid has %d rows, header says %d", len(raw.Grid), raw.Rows)
	}

	tiles := make([]Tile, 0, raw.Rows*raw.Cols)
	for r, row := range raw.Grid {
		if len(row) != raw.Cols {
			return fmt.Errorf("%w: row %d has %d cells, want %d", ErrRaggedLayout, r, len(row), raw.Cols)
		}
		tiles = append(tiles, row...)
	}

	b.rows, b.cols, b.tiles = raw.Rows, raw.Cols, tiles
	return nil
}
