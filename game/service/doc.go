// Package service provides the business logic layer for Tile Link.
//
// GameService sits between the transports (REST, WebSocket, MCP) and the game
// engine. It resolves sessions, serializes engine calls with a mutex, wraps
// engine results with the resulting state, and turns them into GameEvents a
// UI can react to (a match event carries the connecting path for drawing).
//
// Core Interfaces:
//
// GameService is the main service interface.
// SessionManager stores sessions; ConfigManager loads board presets.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Two clicks make a pair
//	gameService.Select(ctx, info.ID, engine.Coord{Row: 0, Col: 0})
//	result, err := gameService.Select(ctx, info.ID, engine.Coord{Row: 0, Col: 3})
//
// Errors:
//
// Unknown sessions and presets wrap ErrSessionNotFound and ErrConfigNotFound.
// Engine errors (*engine.OutOfRangeError, *engine.InvalidSelectionError) pass
// through unchanged so transports can map them to status codes.
package service
