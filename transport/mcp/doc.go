// Package mcp exposes Tile Link to AI agents over the Model Context Protocol.
//
// Client is a thin proxy: every tool handler calls the REST API and renders
// the JSON response as text an agent can read. The same tool set is served
// over HTTP at /mcp and over stdio.
//
// Tools:
//   - create_session, get_session, list_sessions: session management
//   - game_state: board grid with row/column indices, score and selection
//   - select_tile: two-click interface
//   - match_tiles, bulk_match: direct pair attempts
//   - hint: a connectable pair with its path
//   - shuffle_board, reset_game: board replacement
//   - match_history: paginated evaluated pairs
//   - list_configs: board presets
//   - game_instructions: rules and strategy notes
//   - describe_cell: one cell plus the identical tiles it can reach now
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
