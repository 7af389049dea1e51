// Package websocket pushes Tile Link game updates to browsers watching a session.
//
// A central Hub owns every connection. Clients join a session with
// /ws?session=<id> and only receive messages for that session. The hub's
// Run loop is the single goroutine touching the client registry. Broadcasts
// are encoded by the caller, queued on a buffered channel and dropped with a
// log line if the queue is full, so game handlers never block on slow sockets.
//
// Outgoing messages are JSON objects:
//
//	{"session_id": "abc1", "event": "state_update", "game_state": {...}}
//	{"session_id": "abc1", "event": "match", "data": {"from":..., "to":..., "path": [...], "turns": 1}}
//	{"session_id": "abc1", "event": "victory", "game_state": {...}}
//	{"session_id": "abc1", "event": "stuck", "game_state": {...}}
//
// The match path lets a UI draw the connecting line before the tiles vanish.
// Clients do not send game actions over the socket; reads only keep the
// connection alive.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
package websocket
