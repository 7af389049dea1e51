// Command validate provides a small CLI that validates board preset files
// (.json, .yaml, .yml) in the ../configs directory. It checks:
//   - File syntax and required fields
//   - Grid dimensions, pairing and the reserved EMPTY symbol
//   - Duplicate entries in the symbol alphabet
//   - Rules bounds and message placeholders
//   - Playability: the opening board has at least one connectable pair, and
//     fixed layouts are checked with a greedy clear
package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/mcp-training/tilelink/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateConfig loads and validates a single preset file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	format := "JSON"
	if ext == ".yaml" || ext == ".yml" {
		format = "YAML"
	}

	config, err := engine.DecodeGameConfig(ext, data)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid %s: %v", format, err))
		return result
	}

	if err := engine.ValidateGameConfig(config); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, strings.TrimPrefix(err.Error(), "config validation: "))
	}

	seen := make(map[engine.Symbol]bool)
	for _, s := range config.Symbols {
		if seen[s] {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Duplicate symbol %q in symbols", s))
		}
		seen[s] = true
	}

	if !result.Valid {
		return result
	}

	playability := validatePlayability(config)
	if !playability.Valid {
		result.Valid = false
	}
	result.Errors = append(result.Errors, playability.Errors...)

	if result.Valid {
		kind := "random deal"
		if len(config.Layout) > 0 {
			kind = "fixed layout"
		}
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", config.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Grid: %dx%d (%s)", config.Rows, config.Cols, kind))
		if len(config.Layout) == 0 {
			symbols := len(config.Symbols)
			if symbols == 0 {
				symbols = len(engine.DefaultSymbols)
			}
			result.Errors = append(result.Errors, fmt.Sprintf("✓ Symbols: %d", symbols))
		}
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Rules: max %d turns, %d points per pair",
			config.Rules.MaxTurns, config.Rules.MatchReward))
	}

	return result
}

// validatePlayability deals the opening board and requires at least one
// connectable pair. Fixed layouts are also played greedily to report whether
// they clear without a shuffle.
func validatePlayability(config *engine.GameConfig) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	seed := config.Seed
	if seed == 0 {
		seed = 1
	}
	board, err := engine.BuildBoard(config, rand.New(rand.NewSource(seed)))
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot build board: %v", err))
		return result
	}

	moves := openingMoves(board, config.Rules.MaxTurns)
	if moves == 0 {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Dead deal: no connectable pair on the opening board (seed %d)", seed))
		return result
	}
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Opening moves: %d (seed %d)", moves, seed))

	if len(config.Layout) > 0 {
		left := greedyClear(board, config.Rules)
		if left == 0 {
			result.Errors = append(result.Errors, "✓ Greedy play clears the layout")
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("⚠ Greedy play gets stuck with %d tiles left", left))
		}
	}

	return result
}

// openingMoves counts pairs of identical active tiles linkable within maxTurns
func openingMoves(board *engine.Board, maxTurns int) int {
	bySymbol := make(map[engine.Symbol][]engine.Coord)
	for _, c := range board.ActiveCoords() {
		t, _ := board.TileAt(c)
		bySymbol[t.Symbol] = append(bySymbol[t.Symbol], c)
	}

	moves := 0
	for _, coords := range bySymbol {
		for i := 0; i < len(coords); i++ {
			for j := i + 1; j < len(coords); j++ {
				if _, ok := engine.FindConnectingPath(board, coords[i], coords[j], maxTurns); ok {
					moves++
				}
			}
		}
	}
	return moves
}

// greedyClear removes the first available pair until none is left and returns
// the number of tiles remaining. It works on a copy of board.
func greedyClear(board *engine.Board, rules engine.Rules) int {
	b := board.Clone()
	for {
		a, c, _, ok := engine.FindAvailableMatch(b, rules)
		if !ok {
			return b.Remaining()
		}
		b.SetCleared(a, true)
		b.SetCleared(c, true)
	}
}

// presetFiles lists the preset files in dir in name order
func presetFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	return files, nil
}

// main scans ../configs for preset files and validates each one, printing a
// concise report and exiting with non-zero status if any are invalid.
func main() {
	configDir := "../configs"
	files, err := presetFiles(configDir)
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}
