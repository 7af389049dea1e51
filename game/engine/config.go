package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LayoutEmptyToken marks an EmptySymbol cell in a config layout row
const LayoutEmptyToken = "."

// GameConfig represents a board preset loaded from JSON or YAML
type GameConfig struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Rows        int      `json:"rows" yaml:"rows"`
	Cols        int      `json:"cols" yaml:"cols"`
	Symbols     []Symbol `json:"symbols,omitempty" yaml:"symbols,omitempty"`
	// Layout optionally fixes the board. Each row holds space-separated symbols;
	// "." is an open cell. When set, Symbols is ignored and boards are not shuffled.
	Layout []string `json:"layout,omitempty" yaml:"layout,omitempty"`
	Rules  Rules    `json:"rules" yaml:"rules"`
	// Seed makes every new board of a session reproducible. Zero means wall clock.
	Seed     int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
	Messages struct {
		Welcome          string `json:"welcome" yaml:"welcome"`
		Selected         string `json:"selected" yaml:"selected"`
		Matched          string `json:"matched" yaml:"matched"`
		Mismatch         string `json:"mismatch" yaml:"mismatch"`
		NoPath           string `json:"no_path" yaml:"no_path"`
		InvalidSelection string `json:"invalid_selection" yaml:"invalid_selection"`
		Victory          string `json:"victory" yaml:"victory"`
		Stuck            string `json:"stuck" yaml:"stuck"`
		Shuffled         string `json:"shuffled" yaml:"shuffled"`
	} `json:"messages" yaml:"messages"`
}

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}

	if config.Rows < MinGridSize || config.Rows > MaxGridSize {
		return fmt.Errorf("config validation: rows must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.Rows)
	}
	if config.Cols < MinGridSize || config.Cols > MaxGridSize {
		return fmt.Errorf("config validation: cols must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.Cols)
	}

	if config.Rules.MaxTurns < 0 || config.Rules.MaxTurns > MaxTurnsLimit {
		return fmt.Errorf("config validation: rules.max_turns must be between 0 and %d, got %d", MaxTurnsLimit, config.Rules.MaxTurns)
	}
	if config.Rules.MatchReward < 0 {
		return fmt.Errorf("config validation: rules.match_reward must not be negative, got %d", config.Rules.MatchReward)
	}

	if len(config.Layout) > 0 {
		grid, err := ParseLayout(config.Layout)
		if err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
		if len(grid) != config.Rows {
			return fmt.Errorf("config validation: layout must have %d rows to match rows, got %d", config.Rows, len(grid))
		}
		for i, row := range grid {
			if len(row) != config.Cols {
				return fmt.Errorf("config validation: layout row %d must have %d cells to match cols, got %d", i+1, config.Cols, len(row))
			}
		}
		if _, err := NewBoardFromLayout(grid); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
	} else {
		if (config.Rows*config.Cols)%2 != 0 {
			return fmt.Errorf("config validation: rows*cols must be even, got %dx%d", config.Rows, config.Cols)
		}
		for i, s := range config.Symbols {
			if s == "" {
				return fmt.Errorf("config validation: symbols[%d] is empty", i)
			}
			if s == EmptySymbol {
				return fmt.Errorf("config validation: symbols[%d] is the reserved %q sentinel", i, EmptySymbol)
			}
		}
	}

	if config.Messages.Victory != "" && !strings.Contains(config.Messages.Victory, "%d") {
		return fmt.Errorf("config validation: messages.victory must contain %%d for score")
	}
	if config.Messages.Matched != "" && !strings.Contains(config.Messages.Matched, "%d") {
		return fmt.Errorf("config validation: messages.matched must contain %%d for score")
	}

	return nil
}

// ParseLayout splits layout rows into symbol grids
func ParseLayout(layout []string) ([][]Symbol, error) {
	grid := make([][]Symbol, 0, len(layout))
	for i, line := range layout {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return nil, fmt.Errorf("layout row %d is empty", i+1)
		}
		row := make([]Symbol, len(fields))
		for j, f := range fields {
			if f == LayoutEmptyToken || f == string(EmptySymbol) {
				row[j] = EmptySymbol
				continue
			}
			row[j] = Symbol(f)
		}
		grid = append(grid, row)
	}
	return grid, nil
}

// BuildBoard creates a new board for config, shuffled with rng unless the config fixes a layout
func BuildBoard(config *GameConfig, rng RandomSource) (*Board, error) {
	if len(config.Layout) > 0 {
		grid, err := ParseLayout(config.Layout)
		if err != nil {
			return nil, err
		}
		return NewBoardFromLayout(grid)
	}

	symbols := config.Symbols
	if len(symbols) == 0 {
		symbols = DefaultSymbols
	}
	return NewBoard(config.Rows, config.Cols, symbols, rng)
}

// LoadGameConfig loads a game configuration from a JSON or YAML file
func LoadGameConfig(filename string) (*GameConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := DecodeGameConfig(filepath.Ext(filename), data)
	if err != nil {
		return nil, err
	}

	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// DecodeGameConfig parses data according to the file extension (.json, .yaml, .yml)
// and fills unset rules and messages with defaults.
func DecodeGameConfig(ext string, data []byte) (*GameConfig, error) {
	var config GameConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse json config: %w", err)
		}
	}
	ApplyDefaults(&config)
	return &config, nil
}

// ApplyDefaults fills zero-valued rules and empty messages in place
func ApplyDefaults(config *GameConfig) {
	if config.Rules == (Rules{}) {
		config.Rules = DefaultRules()
	}
	m := &config.Messages
	if m.Welcome == "" {
		m.Welcome = "Match pairs of identical tiles. A link may bend at most twice."
	}
	if m.Selected == "" {
		m.Selected = "Tile selected. Pick its partner."
	}
	if m.Matched == "" {
		m.Matched = "Match! Score: %d"
	}
	if m.Mismatch == "" {
		m.Mismatch = "Those tiles are not the same."
	}
	if m.NoPath == "" {
		m.NoPath = "No link with few enough turns connects those tiles."
	}
	if m.InvalidSelection == "" {
		m.InvalidSelection = "That selection is not allowed."
	}
	if m.Victory == "" {
		m.Victory = "Board cleared! Final score: %d"
	}
	if m.Stuck == "" {
		m.Stuck = "No more links are possible. Shuffle the board."
	}
	if m.Shuffled == "" {
		m.Shuffled = "Remaining tiles shuffled."
	}
}

// DefaultGameConfig returns the reference 8x8 board with the reference rules
func DefaultGameConfig() *GameConfig {
	config := &GameConfig{
		Name:        "classic",
		Description: "8x8 board with eight animal tiles, links may bend twice",
		Rows:        8,
		Cols:        8,
		Symbols:     append([]Symbol(nil), DefaultSymbols...),
		Rules:       DefaultRules(),
	}
	ApplyDefaults(config)
	return config
}
