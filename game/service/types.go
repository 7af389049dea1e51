package service

import (
	"time"

	"github.com/wricardo/mcp-training/tilelink/game/engine"
)

// Event types emitted by game operations
const (
	EventSelect   = "select"
	EventMatch    = "match"
	EventMismatch = "mismatch"
	EventNoPath   = "no_path"
	EventVictory  = "victory"
	EventStuck    = "stuck"
	EventShuffle  = "shuffle"
	EventReset    = "reset"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// ListSessionsOptions controls ordering and size of a session listing
type ListSessionsOptions struct {
	Sort  string `json:"sort"`  // "created" (default), "accessed", "score" or "remaining"
	Order string `json:"order"` // "asc" or "desc" (default)
	Limit int    `json:"limit"` // 0 means no limit
}

// MatchResult wraps an engine result with the state after the operation
type MatchResult struct {
	*engine.MatchResult
	GameState *engine.GameState `json:"game_state"`
	Message   string            `json:"message"`
	Events    []GameEvent       `json:"events,omitempty"`
}

// BulkMatchResult contains the result of several pair evaluations in one call
type BulkMatchResult struct {
	RequestedPairs int                   `json:"requested_pairs"`
	PairsEvaluated int                   `json:"pairs_evaluated"`
	PairsMatched   int                   `json:"pairs_matched"`
	Truncated      bool                  `json:"truncated,omitempty"`
	Limit          int                   `json:"limit,omitempty"`
	Results        []*engine.MatchResult `json:"results"`
	StoppedReason  string                `json:"stopped_reason,omitempty"` // victory|stuck|error
	Error          string                `json:"error,omitempty"`
	ScoreDelta     int                   `json:"score_delta"`
	GameState      *engine.GameState     `json:"game_state"`
	Events         []GameEvent           `json:"events"`
	Message        string                `json:"message,omitempty"`
}

// HintResult names a connectable pair without playing it
type HintResult struct {
	Available bool          `json:"available"`
	From      engine.Coord  `json:"from"`
	To        engine.Coord  `json:"to"`
	Symbol    engine.Symbol `json:"symbol,omitempty"`
	Path      engine.Path   `json:"path,omitempty"`
	Turns     int           `json:"turns"`
	Message   string        `json:"message"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string        `json:"type"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	From      *engine.Coord `json:"from,omitempty"`
	To        *engine.Coord `json:"to,omitempty"`
	Path      engine.Path   `json:"path,omitempty"`
}

// HistoryOptions configures match history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated match history
type HistoryResponse struct {
	Matches      []engine.MatchHistoryEntry `json:"matches"`
	TotalMatches int                        `json:"total_matches"`
	Page         int                        `json:"page"`
	PageSize     int                        `json:"page_size"`
	TotalPages   int                        `json:"total_pages"`
	HasNext      bool                       `json:"has_next"`
	HasPrevious  bool                       `json:"has_previous"`
}

// ConfigInfo provides information about a board preset
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
	MaxTurns    int    `json:"max_turns"`
	MatchReward int    `json:"match_reward"`
	FixedLayout bool   `json:"fixed_layout"`
}
