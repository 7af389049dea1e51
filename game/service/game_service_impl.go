package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/tilelink/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// sessionInfo reads the access time through the manager, which owns it
func (s *gameServiceImpl) sessionInfo(sess *Session, configID string) *SessionInfo {
	lastAccessed, err := s.sessions.LastAccessed(sess.ID)
	if err != nil {
		lastAccessed = sess.CreatedAt
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: lastAccessed,
		GameState:      sess.Engine.GetState(),
		GameConfig:     sess.Config,
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("%w: '%s'. Available configs: %v", ErrConfigNotFound, configName, configIDs)
				}
				return nil, fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Each session gets its own copy so engine defaults never leak into the cache
	own := *config
	session, err := s.sessions.Create("", &own)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}

	return s.sessionInfo(session, configID), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	return s.sessionInfo(session, s.getConfigID(session.Config.Name)), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))

	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess, s.getConfigID(sess.Config.Name)))
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

// Select registers a click on one tile of a session's board
func (s *gameServiceImpl) Select(ctx context.Context, sessionID string, c engine.Coord) (*MatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	res, err := sess.Engine.Select(c)
	if err != nil {
		return nil, err
	}
	return s.wrapResult(sess, res), nil
}

// Match evaluates a pair of tiles directly, bypassing the pending selection
func (s *gameServiceImpl) Match(ctx context.Context, sessionID string, from, to engine.Coord) (*MatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	res, err := sess.Engine.Match(from, to)
	if err != nil {
		return nil, err
	}
	return s.wrapResult(sess, res), nil
}

func (s *gameServiceImpl) wrapResult(sess *Session, res *engine.MatchResult) *MatchResult {
	state := sess.Engine.GetState()
	return &MatchResult{
		MatchResult: res,
		GameState:   state,
		Message:     state.Message,
		Events:      eventsFor(res, state.Message),
	}
}

// BulkMatch evaluates pairs in order. It stops on victory or on the first
// caller error, which is reported in the result rather than returned.
func (s *gameServiceImpl) BulkMatch(ctx context.Context, sessionID string, pairs [][2]engine.Coord, reset bool) (*BulkMatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	result := &BulkMatchResult{
		RequestedPairs: len(pairs),
		Results:        []*engine.MatchResult{},
		Events:         make([]GameEvent, 0),
	}

	if reset {
		if _, err := sess.Engine.Reset(); err != nil {
			return nil, fmt.Errorf("failed to reset game: %w", err)
		}
		result.Events = append(result.Events, GameEvent{
			Type:      EventReset,
			Message:   "Game reset with a new board",
			Timestamp: time.Now(),
		})
	}

	// Limit pairs to prevent abuse
	if len(pairs) > engine.MaxBulkMatches {
		result.Truncated = true
		result.Limit = engine.MaxBulkMatches
		pairs = pairs[:engine.MaxBulkMatches]
	}

	startScore := sess.Engine.GetScore()
	results, matchErr := sess.Engine.BulkMatch(pairs)
	result.Results = append(result.Results, results...)
	result.PairsEvaluated = len(results)

	for _, res := range results {
		if res.Success {
			result.PairsMatched++
		}
		result.Events = append(result.Events, eventsFor(res, "")...)
	}

	state := sess.Engine.GetState()
	switch {
	case matchErr != nil:
		result.StoppedReason = "error"
		result.Error = matchErr.Error()
	case state.Victory && result.PairsEvaluated < len(pairs):
		result.StoppedReason = "victory"
	case state.Stuck:
		result.StoppedReason = "stuck"
	}

	result.ScoreDelta = state.Score - startScore
	result.GameState = state
	result.Message = state.Message
	return result, nil
}

// Hint finds a connectable pair without playing it
func (s *gameServiceImpl) Hint(ctx context.Context, sessionID string) (*HintResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	res, err := sess.Engine.Hint()
	if errors.Is(err, engine.ErrNoAvailableMatch) {
		msg := "No connectable pair left. Shuffle the board."
		if sess.Engine.IsVictory() {
			msg = "Board already cleared."
		}
		return &HintResult{Available: false, Message: msg}, nil
	}
	if err != nil {
		return nil, err
	}

	tile, _ := sess.Engine.GetState().Board.TileAt(res.From)
	return &HintResult{
		Available: true,
		From:      res.From,
		To:        res.To,
		Symbol:    tile.Symbol,
		Path:      res.Path,
		Turns:     res.Turns,
		Message:   fmt.Sprintf("Try %s with %s", res.From, res.To),
	}, nil
}

// Shuffle redistributes the remaining tiles of a session's board
func (s *gameServiceImpl) Shuffle(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	return sess.Engine.Shuffle()
}

// Reset starts a new round on a fresh board
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	return sess.Engine.Reset()
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	return sess.Engine.GetState(), nil
}

// GetMatchHistory returns paginated match history
func (s *gameServiceImpl) GetMatchHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetMatchHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var matches []engine.MatchHistoryEntry
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			matches = append(matches, history[i])
		}
	} else if start < total {
		matches = history[start:end]
	}

	if matches == nil {
		matches = []engine.MatchHistoryEntry{}
	}

	return &HistoryResponse{
		Matches:      matches,
		TotalMatches: total,
		Page:         opts.Page,
		PageSize:     opts.Limit,
		TotalPages:   totalPages,
		HasNext:      opts.Page < totalPages,
		HasPrevious:  opts.Page > 1,
	}, nil
}

// ListConfigs returns available board presets
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific board preset
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a board preset to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// eventsFor translates one engine result into the events a UI reacts to
func eventsFor(res *engine.MatchResult, message string) []GameEvent {
	now := time.Now()
	from, to := res.From, res.To

	switch res.Reason {
	case engine.ReasonSelected:
		return []GameEvent{{Type: EventSelect, Message: message, Timestamp: now, From: &from}}
	case engine.ReasonSymbolMismatch:
		return []GameEvent{{Type: EventMismatch, Message: message, Timestamp: now, From: &from, To: &to}}
	case engine.ReasonNoPath:
		return []GameEvent{{Type: EventNoPath, Message: message, Timestamp: now, From: &from, To: &to}}
	}

	if !res.Success {
		return nil
	}

	events := []GameEvent{{
		Type:      EventMatch,
		Message:   fmt.Sprintf("Matched %s with %s in %d turns", from, to, res.Turns),
		Timestamp: now,
		From:      &from,
		To:        &to,
		Path:      res.Path,
	}}
	if res.Victory {
		events = append(events, GameEvent{Type: EventVictory, Message: "Board cleared!", Timestamp: now})
	} else if res.Stuck {
		events = append(events, GameEvent{Type: EventStuck, Message: "No more links are possible", Timestamp: now})
	}
	return events
}

// SortSessions orders sessions in place and applies the limit
func SortSessions(sessions []*SessionInfo, opts ListSessionsOptions) []*SessionInfo {
	key := func(si *SessionInfo) int64 {
		switch opts.Sort {
		case "created":
			return si.CreatedAt.UnixNano()
		case "score":
			if si.GameState != nil {
				return int64(si.GameState.Score)
			}
		case "remaining":
			if si.GameState != nil && si.GameState.Board != nil {
				return int64(si.GameState.Board.Remaining())
			}
		default:
			return si.LastAccessedAt.UnixNano()
		}
		return 0
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		if opts.Order == "asc" {
			return key(sessions[i]) < key(sessions[j])
		}
		return key(sessions[i]) > key(sessions[j])
	})

	if opts.Limit > 0 && opts.Limit < len(sessions) {
		sessions = sessions[:opts.Limit]
	}
	return sessions
}
