package engine

import (
	"fmt"
	"sort"
)

// Path is an ordered run of 4-adjacent cells from a source tile to a destination tile
type Path []Coord

// Turns counts the direction changes along the path
func (p Path) Turns() int {
	turns := 0
	for i := 2; i < len(p); i++ {
		prev := stepDirection(p[i-2], p[i-1])
		next := stepDirection(p[i-1], p[i])
		if prev != next {
			turns++
		}
	}
	return turns
}

// Reverse returns the path walked from the other end
func (p Path) Reverse() Path {
	out := make(Path, len(p))
	for i, c := range p {
		out[len(p)-1-i] = c
	}
	return out
}

// Validate checks the path against board as a connection between its endpoints:
// adjacency, turn cap, and that every intermediate cell is traversable.
func (p Path) Validate(board *Board, maxTurns int) error {
	if len(p) < 2 {
		return fmt.Errorf("path must have at least 2 cells, got %d", len(p))
	}
	for i, c := range p {
		if !board.InBounds(c) {
			return board.outOfRange(c)
		}
		if i > 0 && stepDirection(p[i-1], c) < 0 {
			return fmt.Errorf("cells %s and %s are not adjacent", p[i-1], c)
		}
		if i > 0 && i < len(p)-1 && !board.IsTraversable(c) {
			return fmt.Errorf("intermediate cell %s is not cleared", c)
		}
	}
	if turns := p.Turns(); turns > maxTurns {
		return fmt.Errorf("path has %d turns, limit is %d", turns, maxTurns)
	}
	return nil
}

// stepDirection returns the direction from a to an adjacent b, or -1
func stepDirection(a, b Coord) Direction {
	for _, d := range Directions {
		if a.Step(d) == b {
			return d
		}
	}
	return -1
}

// pathNode is one search state: the cell, how it was entered, and at what turn cost
type pathNode struct {
	at     Coord
	dir    Direction
	turns  int
	parent int
}

// FindConnectingPath searches for a path from a to b whose intermediate cells are
// all traversable and which bends at most maxTurns times. The two endpoints are
// passable regardless of their cleared flag; the board itself is never written.
//
// The frontier is bucketed by turn count, so the returned path has the fewest
// turns of any legal path. Callers should only rely on it being legal.
func FindConnectingPath(board *Board, a, b Coord, maxTurns int) (Path, bool) {
	if board == nil || a == b || maxTurns < 0 {
		return nil, false
	}
	if !board.InBounds(a) || !board.InBounds(b) {
		return nil, false
	}

	// Endpoint override: b counts as open for this search only. a is the origin
	// and is never re-entered.
	passable := func(c Coord) bool {
		return c != a && (c == b || board.IsTraversable(c))
	}

	best := make([]int, board.rows*board.cols*int(numDirections))
	for i := range best {
		best[i] = -1
	}
	stateKey := func(c Coord, d Direction) int {
		return board.index(c)*int(numDirections) + int(d)
	}

	nodes := make([]pathNode, 0, 4*board.rows*board.cols)
	buckets := make([][]int, maxTurns+1)
	push := func(n pathNode) {
		best[stateKey(n.at, n.dir)] = n.turns
		nodes = append(nodes, n)
		buckets[n.turns] = append(buckets[n.turns], len(nodes)-1)
	}

	for _, d := range Directions {
		next := a.Step(d)
		if board.InBounds(next) && passable(next) {
			push(pathNode{at: next, dir: d, turns: 0, parent: -1})
		}
	}

	for turns := 0; turns <= maxTurns; turns++ {
		for i := 0; i < len(buckets[turns]); i++ {
			idx := buckets[turns][i]
			cur := nodes[idx]
			if best[stateKey(cur.at, cur.dir)] < cur.turns {
				continue // superseded by a cheaper visit
			}
			if cur.at == b {
				return tracePath(nodes, idx, a), true
			}

			for _, d := range Directions {
				if d == cur.dir.Opposite() {
					continue
				}
				newTurns := cur.turns
				if d != cur.dir {
					newTurns++
				}
				if newTurns > maxTurns {
					continue
				}
				next := cur.at.Step(d)
				if !board.InBounds(next) || !passable(next) {
					continue
				}
				if seen := best[stateKey(next, d)]; seen != -1 && seen <= newTurns {
					continue
				}
				push(pathNode{at: next, dir: d, turns: newTurns, parent: idx})
			}
		}
	}

	return nil, false
}

func tracePath(nodes []pathNode, idx int, origin Coord) Path {
	var reversed Path
	for i := idx; i != -1; i = nodes[i].parent {
		reversed = append(reversed, nodes[i].at)
	}
	reversed = append(reversed, origin)
	return reversed.Reverse()
}

// CanConnect applies the selection preconditions and then searches for a path.
// It returns ErrSymbolMismatch or ErrNoPath for the two ordinary rejections, and
// *OutOfRangeError or *InvalidSelectionError for caller mistakes.
func CanConnect(board *Board, a, b Coord, rules Rules) (Path, error) {
	ta, err := board.TileAt(a)
	if err != nil {
		return nil, err
	}
	tb, err := board.TileAt(b)
	if err != nil {
		return nil, err
	}
	if a == b {
		return nil, &InvalidSelectionError{Coord: a, Reason: "same tile selected twice"}
	}
	if ta.Cleared {
		return nil, &InvalidSelectionError{Coord: a, Reason: "tile already cleared"}
	}
	if tb.Cleared {
		return nil, &InvalidSelectionError{Coord: b, Reason: "tile already cleared"}
	}
	if ta.Symbol != tb.Symbol {
		return nil, ErrSymbolMismatch
	}

	path, ok := FindConnectingPath(board, a, b, rules.MaxTurns)
	if !ok {
		return nil, ErrNoPath
	}
	return path, nil
}

// FindAvailableMatch returns the first connectable pair of active tiles, scanning
// symbols in sorted order and positions row-major.
func FindAvailableMatch(board *Board, rules Rules) (Coord, Coord, Path, bool) {
	bySymbol := make(map[Symbol][]Coord)
	for _, c := range board.ActiveCoords() {
		t := board.tiles[board.index(c)]
		if t.Symbol == EmptySymbol {
			continue
		}
		bySymbol[t.Symbol] = append(bySymbol[t.Symbol], c)
	}

	symbols := make([]Symbol, 0, len(bySymbol))
	for s := range bySymbol {
		symbols = append(symbols, s)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })

	for _, s := range symbols {
		coords := bySymbol[s]
		for i := 0; i < len(coords); i++ {
			for j := i + 1; j < len(coords); j++ {
				if path, ok := FindConnectingPath(board, coords[i], coords[j], rules.MaxTurns); ok {
					return coords[i], coords[j], path, true
				}
			}
		}
	}
	return Coord{}, Coord{}, nil, false
}
