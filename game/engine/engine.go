package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	Reset() (*GameState, error)
	Shuffle() (*GameState, error)
	IsVictory() bool
	IsStuck() bool
	GetScore() int
	GetRemainingTiles() int

	// Selection and matching
	Select(c Coord) (*MatchResult, error)
	Match(a, b Coord) (*MatchResult, error)
	GetSelection() []Coord
	ClearSelection()
	Hint() (*MatchResult, error)

	// Configuration
	GetConfig() *GameConfig
	SetConfig(config *GameConfig) error

	// History
	GetMatchHistory() []MatchHistoryEntry
	GetLastMatch() *MatchHistoryEntry
}

// GameEngine implements the Engine interface. It owns one board and is not
// safe for concurrent use; callers serialize access per session.
type GameEngine struct {
	state  *GameState
	config *GameConfig
	rng    RandomSource
}

// NewEngine creates a new game engine with the provided configuration. A nil rng
// is replaced by a source seeded from config.Seed, or the wall clock when that is zero.
func NewEngine(config *GameConfig, rng RandomSource) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	ApplyDefaults(config)

	if rng == nil {
		rng = newSeededSource(config.Seed)
	}

	e := &GameEngine{config: config, rng: rng}
	state, err := e.newState()
	if err != nil {
		return nil, err
	}
	e.state = state
	return e, nil
}

// NewEngineWithDefaults creates a new game engine for the reference 8x8 board
func NewEngineWithDefaults() *GameEngine {
	e, err := NewEngine(DefaultGameConfig(), nil)
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return e
}

func newSeededSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// newState builds a fresh round from the config
func (e *GameEngine) newState() (*GameState, error) {
	board, err := BuildBoard(e.config, e.rng)
	if err != nil {
		return nil, fmt.Errorf("failed to build board: %w", err)
	}

	state := &GameState{
		Board:          board,
		Selection:      []Coord{},
		Message:        e.config.Messages.Welcome,
		RoundID:        uuid.NewString(),
		ConfigName:     e.config.Name,
		Rules:          e.config.Rules,
		MatchHistory:   []MatchHistoryEntry{},
		CurrentMatches: []MatchHistoryEntry{},
	}
	state.Victory = board.AllCleared()
	state.Stuck = !state.Victory && !hasAvailableMatch(board, e.config.Rules)
	if state.Stuck {
		state.Message = e.config.Messages.Stuck
	}
	return state, nil
}

func hasAvailableMatch(board *Board, rules Rules) bool {
	_, _, _, ok := FindAvailableMatch(board, rules)
	return ok
}

// GetState returns the current game state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// Reset starts a new round: a new board, zero score, empty selection.
// Cumulative history survives; the current-round history does not.
func (e *GameEngine) Reset() (*GameState, error) {
	prevHistory := e.state.MatchHistory
	prevTotal := e.state.TotalMatches

	state, err := e.newState()
	if err != nil {
		return nil, err
	}

	state.MatchHistory = prevHistory
	state.TotalMatches = prevTotal
	e.state = state
	return e.state, nil
}

// Shuffle redistributes the remaining tiles over the cells still in play and swaps
// in the result as a new board. Score and history are kept.
func (e *GameEngine) Shuffle() (*GameState, error) {
	if e.state.Victory {
		return nil, ErrBoardCleared
	}

	e.state.Board = e.state.Board.reshuffle(e.rng)
	e.state.RoundID = uuid.NewString()
	e.state.Selection = []Coord{}
	e.state.Shuffles++
	e.state.Stuck = !hasAvailableMatch(e.state.Board, e.config.Rules)
	e.state.Message = e.config.Messages.Shuffled
	if e.state.Stuck {
		e.state.Message = e.config.Messages.Stuck
	}
	return e.state, nil
}

// IsVictory returns whether every tile has been cleared
func (e *GameEngine) IsVictory() bool {
	return e.state.Victory
}

// IsStuck returns whether tiles remain but no pair can be linked
func (e *GameEngine) IsStuck() bool {
	return e.state.Stuck
}

// GetScore returns the current score
func (e *GameEngine) GetScore() int {
	return e.state.Score
}

// GetRemainingTiles returns the number of tiles still in play
func (e *GameEngine) GetRemainingTiles() int {
	return e.state.Board.Remaining()
}

// GetSelection returns the pending selection
func (e *GameEngine) GetSelection() []Coord {
	return e.state.Selection
}

// ClearSelection drops any pending selection
func (e *GameEngine) ClearSelection() {
	e.state.Selection = []Coord{}
}

// Select registers a click on c. The first click of a pair is stored; the second
// evaluates the pair with Match and clears the selection whatever the outcome.
func (e *GameEngine) Select(c Coord) (*MatchResult, error) {
	tile, err := e.state.Board.TileAt(c)
	if err != nil {
		return nil, err
	}
	if tile.Cleared {
		return nil, e.invalid(c, "tile already cleared")
	}

	switch len(e.state.Selection) {
	case 0:
		e.state.Selection = []Coord{c}
		e.state.Message = e.config.Messages.Selected
		pending := c
		return &MatchResult{Reason: ReasonSelected, From: c, Pending: &pending}, nil
	case 1:
		first := e.state.Selection[0]
		if first == c {
			return nil, e.invalid(c, "same tile selected twice")
		}
		e.state.Selection = []Coord{}
		return e.Match(first, c)
	default:
		return nil, e.invalid(c, "two tiles already pending")
	}
}

func (e *GameEngine) invalid(c Coord, reason string) error {
	e.state.Message = e.config.Messages.InvalidSelection
	return &InvalidSelectionError{Coord: c, Reason: reason}
}

// Match evaluates the pair (a, b). A legal link clears both tiles and adds the
// match reward. Symbol mismatch and a missing link are ordinary rejections
// reported through MatchResult.Reason; caller mistakes are returned as errors.
func (e *GameEngine) Match(a, b Coord) (*MatchResult, error) {
	if e.state.Victory {
		return nil, &InvalidSelectionError{Coord: a, Reason: ErrBoardCleared.Error()}
	}

	e.state.Selection = []Coord{}
	board := e.state.Board
	symbol := e.symbolAt(a)
	result := &MatchResult{From: a, To: b}

	path, err := CanConnect(board, a, b, e.config.Rules)
	switch {
	case err == nil:
	case errors.Is(err, ErrSymbolMismatch):
		result.Reason = ReasonSymbolMismatch
		e.state.Message = e.config.Messages.Mismatch
		e.addToHistory(result, symbol)
		return result, nil
	case errors.Is(err, ErrNoPath):
		result.Reason = ReasonNoPath
		e.state.Message = e.config.Messages.NoPath
		e.addToHistory(result, symbol)
		return result, nil
	default:
		if IsInvalidSelection(err) {
			e.state.Message = e.config.Messages.InvalidSelection
		}
		return nil, err
	}

	if err := board.SetCleared(a, true); err != nil {
		return nil, err
	}
	if err := board.SetCleared(b, true); err != nil {
		return nil, err
	}

	e.state.Score += e.config.Rules.MatchReward
	result.Success = true
	result.Reason = ReasonMatched
	result.Path = path
	result.Turns = path.Turns()
	result.ScoreDelta = e.config.Rules.MatchReward
	e.state.Message = fmt.Sprintf(e.config.Messages.Matched, e.state.Score)

	if board.AllCleared() {
		e.state.Victory = true
		result.Victory = true
		e.state.Message = fmt.Sprintf(e.config.Messages.Victory, e.state.Score)
	} else if !hasAvailableMatch(board, e.config.Rules) {
		e.state.Stuck = true
		result.Stuck = true
		e.state.Message = e.config.Messages.Stuck
	}

	e.addToHistory(result, symbol)
	return result, nil
}

func (e *GameEngine) symbolAt(c Coord) Symbol {
	t, err := e.state.Board.TileAt(c)
	if err != nil {
		return ""
	}
	return t.Symbol
}

// Hint returns a connectable pair without changing the board
func (e *GameEngine) Hint() (*MatchResult, error) {
	a, b, path, ok := FindAvailableMatch(e.state.Board, e.config.Rules)
	if !ok {
		return nil, ErrNoAvailableMatch
	}
	return &MatchResult{
		Success: true,
		Reason:  ReasonMatched,
		From:    a,
		To:      b,
		Path:    path,
		Turns:   path.Turns(),
	}, nil
}

// GetConfig returns the current game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// SetConfig sets a new game configuration and resets the game
func (e *GameEngine) SetConfig(config *GameConfig) error {
	if err := ValidateGameConfig(config); err != nil {
		return err
	}
	ApplyDefaults(config)

	prev := e.config
	e.config = config
	state, err := e.newState()
	if err != nil {
		e.config = prev
		return err
	}
	e.state = state
	return nil
}

// GetMatchHistory returns the complete match history
func (e *GameEngine) GetMatchHistory() []MatchHistoryEntry {
	return e.state.MatchHistory
}

// GetLastMatch returns a copy of the last evaluated pair, or nil if none
func (e *GameEngine) GetLastMatch() *MatchHistoryEntry {
	if len(e.state.MatchHistory) == 0 {
		return nil
	}
	last := e.state.MatchHistory[len(e.state.MatchHistory)-1]
	last.Path = append(Path(nil), last.Path...)
	return &last
}

// BulkMatch evaluates pairs in order and stops at the first error or on victory
func (e *GameEngine) BulkMatch(pairs [][2]Coord) ([]*MatchResult, error) {
	results := make([]*MatchResult, 0, len(pairs))
	for _, p := range pairs {
		if e.IsVictory() {
			break
		}
		res, err := e.Match(p[0], p[1])
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *GameEngine) addToHistory(result *MatchResult, symbol Symbol) {
	entry := MatchHistoryEntry{
		From:        result.From,
		To:          result.To,
		Symbol:      symbol,
		Path:        result.Path,
		Success:     result.Success,
		Reason:      result.Reason,
		Score:       e.state.Score,
		Timestamp:   time.Now().Unix(),
		MatchNumber: e.state.TotalMatches + 1,
	}
	e.state.MatchHistory = append(e.state.MatchHistory, entry)
	e.state.TotalMatches++

	e.state.CurrentMatches = append(e.state.CurrentMatches, entry)
	e.state.CurrentMatchesCount++
}
