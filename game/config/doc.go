// Package config loads, caches and saves Tile Link board presets.
//
// Presets live in a directory as .json, .yaml or .yml files. Each one names a
// board size, an optional symbol alphabet or fixed layout, the match rules
// and the player-facing messages:
//
//	name: compact
//	description: 6x6 warm-up board
//	rows: 6
//	cols: 6
//	symbols: [🍎, 🍌, 🍇, 🍓]
//	rules:
//	  max_turns: 2
//	  match_reward: 10
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("compact")
//	defaultConfig := manager.GetDefault()
//	presets, err := manager.ListConfigs()
//
// The default preset is classic when present, then the first preset found,
// then the built-in 8x8 board.
package config
