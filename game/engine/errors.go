package engine

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBoard       = errors.New("board must have at least one cell")
	ErrOddCellCount     = errors.New("board cell count must be even")
	ErrEmptyAlphabet    = errors.New("symbol alphabet is empty")
	ErrSentinelSymbol   = errors.New("symbol alphabet contains the empty sentinel")
	ErrUnpairedSymbol   = errors.New("symbol appears an odd number of times")
	ErrRaggedLayout     = errors.New("layout rows have different lengths")
	ErrNilRandomSource  = errors.New("random source is required")
	ErrSymbolMismatch   = errors.New("tile symbols do not match")
	ErrNoPath           = errors.New("no connecting path within the turn limit")
	ErrNoAvailableMatch = errors.New("no connectable pair on the board")
	ErrBoardCleared     = errors.New("board already cleared")
)

// OutOfRangeError reports a coordinate outside the grid. It signals a caller bug.
type OutOfRangeError struct {
	Coord Coord
	Rows  int
	Cols  int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("coordinate %s is outside the %dx%d grid", e.Coord, e.Rows, e.Cols)
}

// InvalidSelectionError reports a selection the caller should ignore or flag to the player.
type InvalidSelectionError struct {
	Coord  Coord
	Reason string
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("invalid selection at %s: %s", e.Coord, e.Reason)
}

// IsOutOfRange reports whether err is an *OutOfRangeError
func IsOutOfRange(err error) bool {
	var target *OutOfRangeError
	return errors.As(err, &target)
}

// IsInvalidSelection reports whether err is an *InvalidSelectionError
func IsInvalidSelection(err error) bool {
	var target *InvalidSelectionError
	return errors.As(err, &target)
}
