package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mcp-training/tilelink/game/engine"
	"github.com/wricardo/mcp-training/tilelink/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Tile Link",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Tile Link - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Clear the board by removing pairs of identical tiles. Two tiles can be removed
only if a path of at most max_turns direction changes (default 2) links them
through cleared cells or the open ring around the board.

AVAILABLE TOOLS:
- create_session / get_session / list_sessions: manage game sessions
- game_state: board, score and selection
- select_tile: click one tile (two clicks on a matching pair remove it)
- match_tiles: try a pair directly - requires intent explanation
- bulk_match: try many pairs in order - requires intent explanation
- hint: ask for a connectable pair
- shuffle_board: redistribute remaining tiles when stuck
- reset_game: start a new board
- match_history: view evaluated pairs
- list_configs: available board presets
- game_instructions: complete rules
- describe_cell: inspect one cell and its reachable partners

NOTE: The 'intent' parameter on match tools serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionIDProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func intProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional board preset",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Preset to use, see list_configs (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"sort": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"created", "accessed", "score", "remaining"},
					"description": "Sort key (default accessed)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Sort order (default desc)",
				},
				"limit": intProp("Maximum sessions to return"),
			},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProp(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board, score and selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProp(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "select_tile",
		Description: "Select a tile. The second selection is matched against the first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProp(),
				"row":        intProp("Row of the tile (0-based)"),
				"col":        intProp("Column of the tile (0-based)"),
			},
			Required: []string{"session_id", "row", "col"},
		},
	}, c.handleSelectTile)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "match_tiles",
		Description: "Try to remove a pair of tiles in one call",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProp(),
				"from_row":   intProp("Row of the first tile"),
				"from_col":   intProp("Column of the first tile"),
				"to_row":     intProp("Row of the second tile"),
				"to_col":     intProp("Column of the second tile"),
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of why these tiles should connect (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "from_row", "from_col", "to_row", "to_col"},
		},
	}, c.handleMatchTiles)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_match",
		Description: fmt.Sprintf("Try several pairs in order, stopping at the first error or on victory (max %d pairs)", engine.MaxBulkMatches),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProp(),
				"pairs": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type":     "array",
						"items":    map[string]interface{}{"type": "integer"},
						"minItems": 4,
						"maxItems": 4,
					},
					"description": "Pairs as [from_row, from_col, to_row, to_col]",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the plan behind these pairs (serves as a rubber duck to help explain your reasoning)",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Start a new board before matching",
				},
			},
			Required: []string{"session_id", "pairs"},
		},
	}, c.handleBulkMatch)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "hint",
		Description: "Find a connectable pair without playing it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProp(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleHint)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "shuffle_board",
		Description: "Redistribute the remaining tiles over their current cells",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProp(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleShuffle)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Start a new board with score 0",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProp(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "match_history",
		Description: "Get the evaluated pairs of a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProp(),
				"page":       intProp("Page number"),
				"limit":      intProp("Items per page"),
				"order": map[string]interface{}{
					"type": "string",
					"enum": []string{"asc", "desc"},
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMatchHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available board presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get complete game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe one cell: its symbol, whether it is cleared, and which identical tiles it can currently connect to",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProp(),
				"row":        intProp("Row of the cell (0-based)"),
				"col":        intProp("Column of the cell (0-based)"),
			},
			Required: []string{"session_id", "row", "col"},
		},
	}, c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	endpoint := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// intArg reads an integer argument. JSON numbers arrive as float64.
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

func coordArgs(args map[string]interface{}, rowKey, colKey string) (engine.Coord, error) {
	row, ok := intArg(args, rowKey)
	if !ok {
		return engine.Coord{}, fmt.Errorf("%s is required", rowKey)
	}
	col, ok := intArg(args, colKey)
	if !ok {
		return engine.Coord{}, fmt.Errorf("%s is required", colKey)
	}
	return engine.Coord{Row: row, Col: col}, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s", session.ID, session.ConfigName, formatGameState(session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	query := url.Values{}
	if sort, _ := args["sort"].(string); sort != "" {
		query.Set("sort", sort)
	}
	if order, _ := args["order"].(string); order != "" {
		query.Set("order", order)
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", strconv.Itoa(limit))
	}

	path := "/api/sessions"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Active Sessions (%d):\n\n", response.Count))
	for _, s := range response.Sessions {
		score, remaining := 0, 0
		if s.GameState != nil {
			score = s.GameState.Score
			if s.GameState.Board != nil {
				remaining = s.GameState.Board.Remaining()
			}
		}
		b.WriteString(fmt.Sprintf("- %s (Config: %s, Score: %d, Remaining: %d, Created: %s)\n",
			s.ID, s.ConfigName, score, remaining, s.CreatedAt.Format("15:04:05")))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleSelectTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	coord, err := coordArgs(args, "row", "col")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.MatchResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/select"), coord, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMatchResult(&result)), nil
}

func (c *Client) handleMatchTiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_, _ = args["intent"].(string)

	from, err := coordArgs(args, "from_row", "from_col")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := coordArgs(args, "to_row", "to_col")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]interface{}{
		"from": from,
		"to":   to,
	}

	var result service.MatchResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/match"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMatchResult(&result)), nil
}

// parsePairs converts [[r1,c1,r2,c2], ...] tool input into coordinate pairs
func parsePairs(raw []interface{}) ([][2]engine.Coord, error) {
	pairs := make([][2]engine.Coord, 0, len(raw))
	for i, item := range raw {
		nums, ok := item.([]interface{})
		if !ok || len(nums) != 4 {
			return nil, fmt.Errorf("pair %d must be [from_row, from_col, to_row, to_col]", i+1)
		}
		var v [4]int
		for j, n := range nums {
			f, ok := n.(float64)
			if !ok {
				return nil, fmt.Errorf("pair %d: value %d is not a number", i+1, j+1)
			}
			v[j] = int(f)
		}
		pairs = append(pairs, [2]engine.Coord{
			{Row: v[0], Col: v[1]},
			{Row: v[2], Col: v[3]},
		})
	}
	return pairs, nil
}

func (c *Client) handleBulkMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	pairsRaw, _ := args["pairs"].([]interface{})
	reset, _ := args["reset"].(bool)

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_, _ = args["intent"].(string)

	pairs, err := parsePairs(pairsRaw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]interface{}{
		"pairs": pairs,
		"reset": reset,
	}

	var result service.BulkMatchResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/bulk-match"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBulkMatchResult(sessionID, &result)), nil
}

func (c *Client) handleHint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var hint service.HintResult
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/hint"), nil, &hint); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !hint.Available {
		return mcp.NewToolResultText(fmt.Sprintf("No hint: %s", hint.Message)), nil
	}
	result := fmt.Sprintf("Hint: %s %s ↔ %s (%d turns)\nPath: %s\n",
		hint.Symbol, hint.From, hint.To, hint.Turns, formatPath(hint.Path))
	return mcp.NewToolResultText(result), nil
}

// boardResponse is the body of the shuffle and reset endpoints
type boardResponse struct {
	Message string            `json:"message"`
	State   *engine.GameState `json:"state"`
}

func (c *Client) handleShuffle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response boardResponse
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/shuffle"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response boardResponse
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleMatchHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	query := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		query.Set("page", strconv.Itoa(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", strconv.Itoa(limit))
	}
	if order, _ := args["order"].(string); order != "" {
		query.Set("order", order)
	}

	path := sessionPath(sessionID, "/history")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		layout := "random"
		if config.FixedLayout {
			layout = "fixed layout"
		}
		b.WriteString(fmt.Sprintf("• %s (config_id: %s)\n  %s\n  Grid: %dx%d, Max turns: %d, Reward: %d, %s\n\n",
			config.Name, config.ConfigID, config.Description,
			config.Rows, config.Cols, config.MaxTurns, config.MatchReward, layout))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `🀄 Tile Link - Complete Instructions

GAME OBJECTIVE:
Clear every tile from the board. Tiles are removed in pairs of identical symbols.

LINK RULE:
• Two tiles with the same symbol can be removed if a path links them
• The path moves up, down, left or right, one cell at a time
• It may only pass through cleared cells, open "." cells, or the ring just outside the board
• It may change direction at most max_turns times (2 by default: an L or a U/Z shape)
• The two tiles themselves are the endpoints; every cell between them must be open

BOARD LEGEND:
• Symbols - tiles still in play
• .       - cleared or open cell (the path can cross it)
• Rows and columns are numbered from 0, coordinates are written (row,col)

SCORING:
• Each removed pair adds the preset's match reward (10 by default)
• Failed attempts cost nothing but are recorded in the history

VICTORY CONDITIONS:
- The last pair is removed and the board is empty
- Game displays "🎉 VICTORY!" exactly once, on that final match

STUCK BOARDS:
- Tiles remain but no identical pair can be linked
- Game displays "⚠️ STUCK"; use shuffle_board to redistribute the remaining tiles
- Shuffling keeps your score and the cleared cells

🤖 AI AGENTS - SUCCESS STRATEGIES:

1. **Read the board row by row**: the grid display prints row numbers on the left
   and column numbers on top. Double-check coordinates before matching.
2. **Work from the edges**: tiles on the outer rows and columns can always route
   through the ring around the board.
3. **Count turns**: a straight line is 0 turns, an L is 1, a U or Z is 2.
4. **Use hint when unsure**: it returns a legal pair with its path.
5. **Batch with bulk_match**: pairs are evaluated in order, so earlier removals
   open paths for later pairs.

TOOLS:
- select_tile: two-click interface (select, then select the partner)
- match_tiles: direct pair attempt
- bulk_match: up to 50 pairs per call, stops at the first error or on victory
- describe_cell: shows a tile and which identical tiles it can reach now

SESSION MANAGEMENT:
- Multiple game sessions can run simultaneously
- Each session has its own board, score and history

Good luck clearing the board! ✨`

	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	coord, err := coordArgs(args, "row", "col")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(describeCell(&state, coord)), nil
}

// describeCell reports a cell's content and, for a live tile, every identical
// tile it can reach on the current board.
func describeCell(state *engine.GameState, c engine.Coord) string {
	board := state.Board
	if board == nil {
		return "No board available"
	}

	tile, err := board.TileAt(c)
	if err != nil {
		return fmt.Sprintf("Coordinates %s are out of bounds. Board is %dx%d (rows 0-%d, cols 0-%d)",
			c, board.Rows(), board.Cols(), board.Rows()-1, board.Cols()-1)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Cell at %s:\n━━━━━━━━━━━━━━━━━━━━━━━━\n", c))

	switch {
	case tile.Symbol == engine.EmptySymbol:
		b.WriteString("Content: open cell\nTraversable: true\n")
		return b.String()
	case tile.Cleared:
		b.WriteString(fmt.Sprintf("Content: cleared (was %s)\nTraversable: true\n", tile.Symbol))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("Content: %s\nTraversable: false\n", tile.Symbol))
	for _, sel := range state.Selection {
		if sel == c {
			b.WriteString("Selected: yes\n")
		}
	}

	var partners, reachable []string
	for _, other := range board.ActiveCoords() {
		if other == c {
			continue
		}
		t, _ := board.TileAt(other)
		if t.Symbol != tile.Symbol {
			continue
		}
		partners = append(partners, other.String())
		if path, ok := engine.FindConnectingPath(board, c, other, state.Rules.MaxTurns); ok {
			reachable = append(reachable, fmt.Sprintf("%s (%d turns)", other, path.Turns()))
		}
	}

	b.WriteString(fmt.Sprintf("Identical tiles: %s\n", joinOrNone(partners)))
	b.WriteString(fmt.Sprintf("Connectable now: %s\n", joinOrNone(reachable)))
	return b.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

// formatBoard renders the grid with row and column indices; open cells print as "."
func formatBoard(board *engine.Board) string {
	if board == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("    ")
	for col := 0; col < board.Cols(); col++ {
		b.WriteString(fmt.Sprintf("%-3d", col))
	}
	b.WriteString("\n")

	for row := 0; row < board.Rows(); row++ {
		b.WriteString(fmt.Sprintf("%2d  ", row))
		for col := 0; col < board.Cols(); col++ {
			tile, _ := board.TileAt(engine.Coord{Row: row, Col: col})
			cell := string(tile.Symbol)
			if tile.Cleared || tile.Symbol == engine.EmptySymbol {
				cell = "."
			}
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", max(1, 3-len([]rune(cell)))))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var result strings.Builder

	remaining := 0
	rows, cols := 0, 0
	if state.Board != nil {
		remaining = state.Board.Remaining()
		rows, cols = state.Board.Rows(), state.Board.Cols()
	}

	result.WriteString(fmt.Sprintf("Board: %dx%d | Score: %d | Remaining: %d | Max turns: %d | Shuffles: %d\n\n",
		rows, cols, state.Score, remaining, state.Rules.MaxTurns, state.Shuffles))

	result.WriteString(formatBoard(state.Board))

	if len(state.Selection) > 0 {
		sel := make([]string, len(state.Selection))
		for i, c := range state.Selection {
			sel[i] = c.String()
		}
		result.WriteString(fmt.Sprintf("\nSelected: %s\n", strings.Join(sel, ", ")))
	}

	switch {
	case state.Victory:
		result.WriteString("\n🎉 VICTORY!")
	case state.Stuck:
		result.WriteString("\n⚠️ STUCK: no pair can be linked, use shuffle_board")
	}

	if state.Message != "" {
		result.WriteString(fmt.Sprintf("\nMessage: %s", state.Message))
	}

	return result.String()
}

func formatPath(path engine.Path) string {
	if len(path) == 0 {
		return "-"
	}
	parts := make([]string, len(path))
	for i, c := range path {
		parts[i] = c.String()
	}
	return strings.Join(parts, " → ")
}

func formatMatchResult(result *service.MatchResult) string {
	var b strings.Builder

	if result.MatchResult != nil {
		r := result.MatchResult
		switch {
		case r.Pending != nil:
			b.WriteString(fmt.Sprintf("✓ Selected %s\n", r.Pending))
		case r.Success:
			b.WriteString(fmt.Sprintf("✓ Matched %s ↔ %s (+%d, %d turns)\n", r.From, r.To, r.ScoreDelta, r.Turns))
			b.WriteString(fmt.Sprintf("Path: %s\n", formatPath(r.Path)))
		default:
			b.WriteString(fmt.Sprintf("✗ No match %s ↔ %s: %s\n", r.From, r.To, r.Reason))
		}
	}

	if len(result.Events) > 0 {
		b.WriteString("Events:\n")
		for _, event := range result.Events {
			b.WriteString(fmt.Sprintf("- %s: %s\n", event.Type, event.Message))
		}
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatBulkMatchResult(sessionID string, result *service.BulkMatchResult) string {
	var b strings.Builder

	configName := ""
	if result.GameState != nil {
		configName = result.GameState.ConfigName
	}
	b.WriteString(fmt.Sprintf("Session: %s • Config: %s\n", sessionID, configName))

	b.WriteString(fmt.Sprintf("Evaluated %d/%d pairs, matched %d (+%d)\n",
		result.PairsEvaluated, result.RequestedPairs, result.PairsMatched, result.ScoreDelta))
	if result.Truncated {
		b.WriteString(fmt.Sprintf("Truncated to the first %d pairs\n", result.Limit))
	}
	if result.StoppedReason != "" {
		b.WriteString(fmt.Sprintf("Stopped: %s\n", result.StoppedReason))
	}
	if result.Error != "" {
		b.WriteString(fmt.Sprintf("Error: %s\n", result.Error))
	}

	if len(result.Results) > 0 {
		b.WriteString("\nPairs (this call):\n")
		for i, r := range result.Results {
			status := "✗ " + r.Reason
			if r.Success {
				status = fmt.Sprintf("✓ %d turns", r.Turns)
			}
			b.WriteString(fmt.Sprintf("%d. %s ↔ %s %s\n", i+1, r.From, r.To, status))
		}
	}

	if len(result.Events) > 0 {
		b.WriteString("\nEvents:\n")
		for _, event := range result.Events {
			b.WriteString(fmt.Sprintf("- %s: %s\n", event.Type, event.Message))
		}
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Match History (Page %d/%d) • Total (cumulative): %d\n\n",
		history.Page, history.TotalPages, history.TotalMatches))

	for _, m := range history.Matches {
		status := "✓"
		if !m.Success {
			status = "✗ " + m.Reason
		}
		b.WriteString(fmt.Sprintf("%d. %s %s ↔ %s %s [Score: %d]\n",
			m.MatchNumber, m.Symbol, m.From, m.To, status, m.Score))
	}

	if len(history.Matches) == 0 {
		b.WriteString("(no matches yet)\n")
	}
	return b.String()
}
