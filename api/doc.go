// Package api provides the HTTP REST API for Tile Link.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session ({"config_id": "classic"})
//   - GET /api/sessions - List sessions (?sort=created|accessed|score|remaining&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current board, score and selection
//   - POST /api/sessions/{id}/select - Click a tile ({"row": 0, "col": 1})
//   - POST /api/sessions/{id}/match - Try a pair ({"from": {...}, "to": {...}})
//   - POST /api/sessions/{id}/bulk-match - Try pairs in order ({"pairs": [[from, to], ...], "reset": false})
//   - GET /api/sessions/{id}/hint - A connectable pair with its path
//   - POST /api/sessions/{id}/shuffle - Redistribute the remaining tiles
//   - POST /api/sessions/{id}/reset - Start a new board
//   - GET /api/sessions/{id}/history - Paginated match history (?page=1&limit=20&order=desc)
//
// Configuration:
//   - GET /api/configs - List board presets
//   - POST /api/configs - Save a preset
//   - GET /api/configs/{name} - Get a preset
//
// Other:
//   - GET /api/health - Liveness
//   - GET /ws?session={id} - WebSocket updates for one session
//
// Errors are returned as {"error": "..."}. Unknown sessions and presets map
// to 404, out-of-range coordinates and malformed bodies to 400, illegal
// selections (cleared tile, same tile twice, finished board) to 409.
//
// A rejected pair (different symbols, or no link within the turn limit) is
// not an error: it is a 200 response whose result carries success=false and
// a reason code.
//
// Every state change is broadcast to the session's WebSocket clients.
package api
