// Package session provides in-memory session management for Tile Link.
//
// Manager stores one service.Session per player game. Each session owns its
// own engine.GameEngine, so boards, scores and selections never leak between
// sessions.
//
// Session Identifiers:
//
// Generated IDs are 4 hex characters drawn from crypto/rand. Callers may also
// pick their own ID; lookups are case-insensitive.
//
// Concurrency:
//
// The manager guards its map with a sync.RWMutex. It does not serialize
// calls into an engine; the service layer does that.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Prune sessions idle for more than a day
//	removed := manager.CleanupExpiredSessions(24 * time.Hour)
//
// Sessions are not persisted. A restart starts with an empty manager.
package session
