// Package engine provides the core game logic for the Tile Link puzzle.
//
// The engine package implements the game mechanics including:
//   - Board construction from a paired, shuffled symbol alphabet or a fixed layout
//   - Turn-limited path search between two tiles
//   - Two-click selection, scoring and the win condition
//   - Stuck detection, hints and reshuffling of the remaining tiles
//   - Configuration loading and validation
//
// Core Types:
//
// Board holds the grid of tiles and answers traversability queries.
// FindConnectingPath decides whether two tiles can be linked by a path that
// crosses only cleared cells and bends at most Rules.MaxTurns times.
// The Engine interface defines the session-level contract, implemented by
// GameEngine, which owns one Board and the score for one player.
//
// Usage:
//
//	config, err := engine.LoadGameConfig("configs/classic.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config, rand.New(rand.NewSource(42)))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine.Select(engine.Coord{Row: 0, Col: 0})
//	result, err := gameEngine.Select(engine.Coord{Row: 0, Col: 3})
//
// Game Rules:
//
// Every symbol on a fresh board appears an even number of times. Two tiles with
// the same symbol are removed when a link of at most three straight segments
// joins them through empty cells. Each pair scores Rules.MatchReward points and
// the game is won when the board is empty.
package engine
