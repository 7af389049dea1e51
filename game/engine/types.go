package engine

import "fmt"

// Symbol identifies a tile face. Two tiles match iff their symbols are equal.
type Symbol string

const (
	// EmptySymbol marks a permanently open cell. It is always traversable.
	EmptySymbol Symbol = "EMPTY"

	// Validation constants
	MinGridSize     = 1
	MaxGridSize     = 30
	MaxTurnsLimit   = 4
	MaxBulkMatches  = 50
	DefaultMaxTurns = 2
	DefaultReward   = 10
)

// DefaultSymbols is the reference alphabet used when a config names none.
var DefaultSymbols = []Symbol{"🐶", "🐱", "🐭", "🐹", "🐰", "🦊", "🐻", "🐼"}

// Coord is a 0-indexed grid position
type Coord struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Step returns the neighbouring coordinate in direction d
func (c Coord) Step(d Direction) Coord {
	delta := directionDeltas[d]
	return Coord{Row: c.Row + delta.Row, Col: c.Col + delta.Col}
}

// Tile is the content of one grid cell
type Tile struct {
	Symbol  Symbol `json:"symbol"`
	Cleared bool   `json:"cleared"`
}

// Direction of travel between two adjacent cells
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
	numDirections
)

var directionDeltas = [numDirections]Coord{
	Up:    {Row: -1, Col: 0},
	Down:  {Row: 1, Col: 0},
	Left:  {Row: 0, Col: -1},
	Right: {Row: 0, Col: 1},
}

// Directions lists the four axis-aligned directions in search order
var Directions = []Direction{Up, Down, Left, Right}

// Opposite returns the reverse direction
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	default:
		return Left
	}
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// Rules are the tunable constants of a game
type Rules struct {
	MaxTurns    int `json:"max_turns" yaml:"max_turns"`
	MatchReward int `json:"match_reward" yaml:"match_reward"`
}

// DefaultRules returns the reference rules: at most two turns, ten points per pair
func DefaultRules() Rules {
	return Rules{MaxTurns: DefaultMaxTurns, MatchReward: DefaultReward}
}

// Match outcome codes
const (
	ReasonMatched          = "matched"
	ReasonSymbolMismatch   = "symbol_mismatch"
	ReasonNoPath           = "no_path"
	ReasonSelected         = "selected"
	ReasonInvalidSelection = "invalid_selection"
)

// MatchResult describes the outcome of evaluating a candidate pair
type MatchResult struct {
	Success    bool   `json:"success"`
	Reason     string `json:"reason"`
	From       Coord  `json:"from"`
	To         Coord  `json:"to"`
	Path       Path   `json:"path,omitempty"`
	Turns      int    `json:"turns"`
	ScoreDelta int    `json:"score_delta"`
	Victory    bool   `json:"victory,omitempty"`
	Stuck      bool   `json:"stuck,omitempty"`
	Pending    *Coord `json:"pending,omitempty"` // Set when a first tile was selected
}

// GameState represents the complete game state
type GameState struct {
	Board      *Board  `json:"board"`
	Score      int     `json:"score"`
	Selection  []Coord `json:"selection"`
	Message    string  `json:"message"`
	Victory    bool    `json:"victory"`
	Stuck      bool    `json:"stuck"` // No connectable pair left but tiles remain
	RoundID    string  `json:"round_id"`
	ConfigName string  `json:"config_name"`
	Rules      Rules   `json:"rules"`
	Shuffles   int     `json:"shuffles"`

	MatchHistory []MatchHistoryEntry `json:"match_history"`
	TotalMatches int                 `json:"total_matches"`

	// CurrentMatches tracks only the attempts since the last reset. MatchHistory stays cumulative.
	CurrentMatches      []MatchHistoryEntry `json:"current_matches"`
	CurrentMatchesCount int                 `json:"current_matches_count"`
}

// MatchHistoryEntry represents a single evaluated pair in the game history
type MatchHistoryEntry struct {
	From        Coord  `json:"from"`
	To          Coord  `json:"to"`
	Symbol      Symbol `json:"symbol"`
	Path        Path   `json:"path,omitempty"`
	Success     bool   `json:"success"`
	Reason      string `json:"reason"`
	Score       int    `json:"score"`
	Timestamp   int64  `json:"timestamp"`
	MatchNumber int    `json:"match_number"`
}
