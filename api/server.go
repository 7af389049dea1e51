package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/wricardo/mcp-training/tilelink/game/config"
	"github.com/wricardo/mcp-training/tilelink/game/engine"
	"github.com/wricardo/mcp-training/tilelink/game/service"
	"github.com/wricardo/mcp-training/tilelink/transport/websocket"
)

// ServiceName identifies this API in health responses
const ServiceName = "tilelink"

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil when no WebSocket
// clients need updates.
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/select", s.handleSelect).Methods("POST")
	api.HandleFunc("/sessions/{id}/match", s.handleMatch).Methods("POST")
	api.HandleFunc("/sessions/{id}/bulk-match", s.handleBulkMatch).Methods("POST")
	api.HandleFunc("/sessions/{id}/hint", s.handleHint).Methods("GET")
	api.HandleFunc("/sessions/{id}/shuffle", s.handleShuffle).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Routes lists the registered endpoints as "METHOD /path" in registration
// order. Routes without a method restriction are reported as ANY.
func (s *Server) Routes() []string {
	var routes []string
	s.router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		if route.GetHandler() == nil {
			return nil
		}
		path, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"ANY"}
		}
		for _, m := range methods {
			routes = append(routes, m+" "+path)
		}
		return nil
	})
	return routes
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service and engine errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrConfigNotFound):
		return http.StatusNotFound
	case engine.IsOutOfRange(err), errors.Is(err, config.ErrInvalidConfig):
		return http.StatusBadRequest
	case engine.IsInvalidSelection(err), errors.Is(err, engine.ErrBoardCleared):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

// broadcastState pushes the new state to the session's WebSocket clients
func (s *Server) broadcastState(sessionID string, state *engine.GameState) {
	if s.hub != nil && state != nil {
		s.hub.BroadcastToSession(sessionID, state)
	}
}

// broadcastMatch announces a successful match with its path
func (s *Server) broadcastMatch(sessionID string, res *engine.MatchResult, state *engine.GameState) {
	if s.hub == nil || res == nil || !res.Success || state == nil || state.Board == nil {
		return
	}
	tile, _ := state.Board.TileAt(res.From)
	s.hub.BroadcastMatch(sessionID, res, tile.Symbol, state)
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID   string `json:"config_id,omitempty"`
		ConfigName string `json:"config_name,omitempty"` // Deprecated, use config_id
	}

	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	configID := req.ConfigID
	if configID == "" && req.ConfigName != "" {
		configID = req.ConfigName
	}

	session, err := s.service.CreateSession(r.Context(), configID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	fmt.Printf("[SESSION] created id=%s config=%s\n", session.ID, session.ConfigName)
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	total := len(sessions)

	query := r.URL.Query()
	opts := service.ListSessionsOptions{
		Sort:  query.Get("sort"),
		Order: query.Get("order"),
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if opts.Sort == "" {
		opts.Sort = "accessed"
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	sessions = service.SortSessions(sessions, opts)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     opts.Sort,
		"order":    opts.Order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.GetGameState(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Row *int `json:"row"`
		Col *int `json:"col"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Row == nil || req.Col == nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: row and col are required")
		return
	}
	c := engine.Coord{Row: *req.Row, Col: *req.Col}

	result, err := s.service.Select(r.Context(), sessionID, c)
	if err != nil {
		fmt.Printf("[SELECT] session=%s at=%s error=%v\n", sessionID, c, err)
		respondServiceError(w, err)
		return
	}

	s.broadcastMatch(sessionID, result.MatchResult, result.GameState)
	s.broadcastState(sessionID, result.GameState)

	fmt.Printf("[SELECT] session=%s at=%s reason=%s score=%d\n",
		sessionID, c, result.Reason, result.GameState.Score)

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		From *engine.Coord `json:"from"`
		To   *engine.Coord `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.From == nil || req.To == nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: from and to are required")
		return
	}

	result, err := s.service.Match(r.Context(), sessionID, *req.From, *req.To)
	if err != nil {
		fmt.Printf("[MATCH] session=%s %s->%s error=%v\n", sessionID, req.From, req.To, err)
		respondServiceError(w, err)
		return
	}

	s.broadcastMatch(sessionID, result.MatchResult, result.GameState)
	s.broadcastState(sessionID, result.GameState)

	status := "FAIL"
	if result.Success {
		status = "OK"
	}
	fmt.Printf("[MATCH] session=%s %s->%s turns=%d reason=%s status=%s score=%d\n",
		sessionID, req.From, req.To, result.Turns, result.Reason, status, result.GameState.Score)

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleBulkMatch(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Pairs [][2]engine.Coord `json:"pairs"`
		Reset bool              `json:"reset,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.BulkMatch(r.Context(), sessionID, req.Pairs, req.Reset)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	for _, res := range result.Results {
		s.broadcastMatch(sessionID, res, result.GameState)
	}
	s.broadcastState(sessionID, result.GameState)

	stop := result.StoppedReason
	if stop == "" {
		stop = "-"
	}
	remaining := 0
	if result.GameState != nil && result.GameState.Board != nil {
		remaining = result.GameState.Board.Remaining()
	}
	fmt.Printf("[BULK] session=%s eval=%d/%d matched=%d stop=%s remaining=%d scoreΔ=%d\n",
		sessionID, result.PairsEvaluated, result.RequestedPairs, result.PairsMatched, stop, remaining, result.ScoreDelta)

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	hint, err := s.service.Hint(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, hint)
}

func (s *Server) handleShuffle(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Shuffle(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcastState(sessionID, state)
	if s.hub != nil && state.Stuck {
		s.hub.BroadcastEvent(sessionID, websocket.EventStuck, nil)
	}
	fmt.Printf("[SHUFFLE] session=%s shuffles=%d stuck=%v\n", sessionID, state.Shuffles, state.Stuck)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Board shuffled",
		"state":   state,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcastState(sessionID, state)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Game reset successfully",
		"state":   state,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetMatchHistory(r.Context(), sessionID, opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configName := mux.Vars(r)["name"]

	cfg, err := s.service.LoadConfig(r.Context(), configName)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var gameConfig engine.GameConfig

	if err := json.NewDecoder(r.Body).Decode(&gameConfig); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if gameConfig.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}
	if strings.ContainsAny(gameConfig.Name, `/\`) {
		respondError(w, http.StatusBadRequest, "Config name must not contain path separators")
		return
	}

	if err := s.service.SaveConfig(r.Context(), gameConfig.Name, &gameConfig); err != nil {
		respondError(w, statusFor(err), fmt.Sprintf("Failed to save config: %v", err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": gameConfig.Name,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	if s.hub == nil {
		http.Error(w, "WebSocket not available", http.StatusServiceUnavailable)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count := 0
	if sessions, err := s.service.ListSessions(r.Context()); err == nil {
		count = len(sessions)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"service":  ServiceName,
		"sessions": count,
	})
}
