package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/wricardo/mcp-training/tilelink/game/config"
	"github.com/wricardo/mcp-training/tilelink/game/engine"
	"github.com/wricardo/mcp-training/tilelink/game/service"
	"github.com/wricardo/mcp-training/tilelink/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, configName string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Game Operations
	SelectFunc    func(ctx context.Context, sessionID string, c engine.Coord) (*service.MatchResult, error)
	MatchFunc     func(ctx context.Context, sessionID string, from, to engine.Coord) (*service.MatchResult, error)
	BulkMatchFunc func(ctx context.Context, sessionID string, pairs [][2]engine.Coord, reset bool) (*service.BulkMatchResult, error)
	HintFunc      func(ctx context.Context, sessionID string) (*service.HintResult, error)
	ShuffleFunc   func(ctx context.Context, sessionID string) (*engine.GameState, error)
	ResetFunc     func(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameStateFunc    func(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMatchHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)

	// Configuration
	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfigFunc  func(ctx context.Context, configName string, config *engine.GameConfig) error
}

// testState returns a 2x4 state: "A B B A" over "C . . C"
func testState() *engine.GameState {
	e := engine.EmptySymbol
	board, _ := engine.NewBoardFromLayout([][]engine.Symbol{
		{"A", "B", "B", "A"},
		{"C", e, e, "C"},
	})
	return &engine.GameState{
		Board:      board,
		Selection:  []engine.Coord{},
		ConfigName: "test",
		Rules:      engine.DefaultRules(),
	}
}

// Session Management
func (m *MockGameService) CreateSession(ctx context.Context, configName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configName)
	}
	return &service.SessionInfo{
		ID:         "test-session",
		ConfigName: configName,
		CreatedAt:  time.Now(),
		GameState:  testState(),
	}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{
		ID:         sessionID,
		ConfigName: "test-config",
		CreatedAt:  time.Now(),
		GameState:  testState(),
	}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

// Game Operations
func (m *MockGameService) Select(ctx context.Context, sessionID string, c engine.Coord) (*service.MatchResult, error) {
	if m.SelectFunc != nil {
		return m.SelectFunc(ctx, sessionID, c)
	}
	pending := c
	state := testState()
	state.Selection = []engine.Coord{c}
	return &service.MatchResult{
		MatchResult: &engine.MatchResult{Reason: engine.ReasonSelected, From: c, Pending: &pending},
		GameState:   state,
	}, nil
}

func (m *MockGameService) Match(ctx context.Context, sessionID string, from, to engine.Coord) (*service.MatchResult, error) {
	if m.MatchFunc != nil {
		return m.MatchFunc(ctx, sessionID, from, to)
	}
	return &service.MatchResult{
		MatchResult: &engine.MatchResult{Reason: engine.ReasonNoPath, From: from, To: to},
		GameState:   testState(),
	}, nil
}

func (m *MockGameService) BulkMatch(ctx context.Context, sessionID string, pairs [][2]engine.Coord, reset bool) (*service.BulkMatchResult, error) {
	if m.BulkMatchFunc != nil {
		return m.BulkMatchFunc(ctx, sessionID, pairs, reset)
	}
	return &service.BulkMatchResult{
		RequestedPairs: len(pairs),
		Results:        []*engine.MatchResult{},
		GameState:      testState(),
	}, nil
}

func (m *MockGameService) Hint(ctx context.Context, sessionID string) (*service.HintResult, error) {
	if m.HintFunc != nil {
		return m.HintFunc(ctx, sessionID)
	}
	return &service.HintResult{Available: false, Message: "No connectable pair left"}, nil
}

func (m *MockGameService) Shuffle(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.ShuffleFunc != nil {
		return m.ShuffleFunc(ctx, sessionID)
	}
	state := testState()
	state.Shuffles = 1
	return state, nil
}

func (m *MockGameService) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return testState(), nil
}

// Game State
func (m *MockGameService) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, sessionID)
	}
	return testState(), nil
}

func (m *MockGameService) GetMatchHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetMatchHistoryFunc != nil {
		return m.GetMatchHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{
		Matches:      []engine.MatchHistoryEntry{},
		TotalMatches: 0,
		Page:         opts.Page,
		PageSize:     opts.Limit,
		TotalPages:   1,
	}, nil
}

// Configuration
func (m *MockGameService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockGameService) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configName)
	}
	return &engine.GameConfig{
		Name:        configName,
		Description: "Test config",
		Rows:        2,
		Cols:        4,
	}, nil
}

func (m *MockGameService) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configName, config)
	}
	return nil
}

// Test helpers
func setupTestServer(mockService *MockGameService) *Server {
	hub := websocket.NewHub()
	go hub.Run()
	return NewServer(mockService, hub)
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	var resp map[string]string
	parseResponse(t, w, &resp)
	return resp["error"]
}

type handlerTest struct {
	name           string
	method         string
	path           string
	body           interface{}
	setupMock      func(*testing.T, *MockGameService)
	expectedStatus int
	validateResp   func(*testing.T, *httptest.ResponseRecorder)
}

func runHandlerTests(t *testing.T, tests []handlerTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(t, mockService)
			}

			server := setupTestServer(mockService)
			w := httptest.NewRecorder()
			req := makeRequest(tt.method, tt.path, tt.body)

			server.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d (body: %s)", tt.expectedStatus, w.Code, w.Body.String())
			}

			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

var (
	errNoSession = fmt.Errorf("%w: nope", service.ErrSessionNotFound)
	errNoConfig  = fmt.Errorf("%w: 'huge'", service.ErrConfigNotFound)
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"session not found", errNoSession, http.StatusNotFound},
		{"config not found", errNoConfig, http.StatusNotFound},
		{"out of range", &engine.OutOfRangeError{Coord: engine.Coord{Row: 9, Col: 9}, Rows: 2, Cols: 4}, http.StatusBadRequest},
		{"invalid config", fmt.Errorf("%w: rows must be positive", config.ErrInvalidConfig), http.StatusBadRequest},
		{"invalid selection", &engine.InvalidSelectionError{Coord: engine.Coord{}, Reason: "tile already cleared"}, http.StatusConflict},
		{"board cleared", engine.ErrBoardCleared, http.StatusConflict},
		{"anything else", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	runHandlerTests(t, []handlerTest{
		{
			name:   "Create session with default config",
			method: "POST",
			path:   "/api/sessions",
			setupMock: func(t *testing.T, m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "" {
						t.Errorf("Expected empty config name, got %s", configName)
					}
					return &service.SessionInfo{ID: "sess-123", ConfigName: "default", CreatedAt: time.Now()}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "sess-123" {
					t.Errorf("Expected session ID sess-123, got %s", resp.ID)
				}
			},
		},
		{
			name:   "Create session with config_id",
			method: "POST",
			path:   "/api/sessions",
			body:   map[string]string{"config_id": "classic"},
			setupMock: func(t *testing.T, m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "classic" {
						t.Errorf("Expected config name 'classic', got %s", configName)
					}
					return &service.SessionInfo{ID: "sess-456", ConfigName: configName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:   "Legacy config_name is accepted",
			method: "POST",
			path:   "/api/sessions",
			body:   map[string]string{"config_name": "small"},
			setupMock: func(t *testing.T, m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "small" {
						t.Errorf("Expected config name 'small', got %s", configName)
					}
					return &service.SessionInfo{ID: "sess-789", ConfigName: configName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:   "Unknown config",
			method: "POST",
			path:   "/api/sessions",
			body:   map[string]string{"config_id": "huge"},
			setupMock: func(t *testing.T, m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, errNoConfig
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "Handle service error",
			method: "POST",
			path:   "/api/sessions",
			setupMock: func(t *testing.T, m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				if msg := errorMessage(t, w); msg != "service error" {
					t.Errorf("Expected error message 'service error', got %s", msg)
				}
			},
		},
	})
}

func TestListSessions(t *testing.T) {
	base := time.Now()
	sessions := func() []*service.SessionInfo {
		low, high := testState(), testState()
		low.Score, high.Score = 10, 50
		return []*service.SessionInfo{
			{ID: "a", CreatedAt: base, LastAccessedAt: base.Add(2 * time.Minute), GameState: low},
			{ID: "b", CreatedAt: base.Add(time.Minute), LastAccessedAt: base, GameState: high},
			{ID: "c", CreatedAt: base.Add(2 * time.Minute), LastAccessedAt: base.Add(time.Minute), GameState: testState()},
		}
	}

	ids := func(t *testing.T, w *httptest.ResponseRecorder) ([]string, int) {
		var resp struct {
			Count    int                    `json:"count"`
			Total    int                    `json:"total"`
			Sessions []*service.SessionInfo `json:"sessions"`
		}
		parseResponse(t, w, &resp)
		out := make([]string, len(resp.Sessions))
		for i, s := range resp.Sessions {
			out[i] = s.ID
		}
		if resp.Count != len(resp.Sessions) {
			t.Errorf("count %d does not match %d sessions", resp.Count, len(resp.Sessions))
		}
		return out, resp.Total
	}

	mock := func(t *testing.T, m *MockGameService) {
		m.ListSessionsFunc = func(ctx context.Context) ([]*service.SessionInfo, error) {
			return sessions(), nil
		}
	}

	runHandlerTests(t, []handlerTest{
		{
			name:           "Default order is most recently accessed first",
			method:         "GET",
			path:           "/api/sessions",
			setupMock:      mock,
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				got, total := ids(t, w)
				if strings.Join(got, ",") != "a,c,b" {
					t.Errorf("Expected order a,c,b, got %v", got)
				}
				if total != 3 {
					t.Errorf("Expected total 3, got %d", total)
				}
			},
		},
		{
			name:           "Sort by score with limit",
			method:         "GET",
			path:           "/api/sessions?sort=score&limit=1",
			setupMock:      mock,
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				got, total := ids(t, w)
				if len(got) != 1 || got[0] != "b" {
					t.Errorf("Expected [b], got %v", got)
				}
				if total != 3 {
					t.Errorf("Expected total 3, got %d", total)
				}
			},
		},
		{
			name:           "Created ascending",
			method:         "GET",
			path:           "/api/sessions?sort=created&order=asc",
			setupMock:      mock,
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				got, _ := ids(t, w)
				if strings.Join(got, ",") != "a,b,c" {
					t.Errorf("Expected order a,b,c, got %v", got)
				}
			},
		},
	})
}

func TestGetSession(t *testing.T) {
	runHandlerTests(t, []handlerTest{
		{
			name:           "Existing session",
			method:         "GET",
			path:           "/api/sessions/abc1",
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "abc1" {
					t.Errorf("Expected ID abc1, got %s", resp.ID)
				}
				if resp.GameState == nil || resp.GameState.Board.Remaining() != 6 {
					t.Error("Expected game state with 6 remaining tiles")
				}
			},
		},
		{
			name:   "Unknown session",
			method: "GET",
			path:   "/api/sessions/nope",
			setupMock: func(t *testing.T, m *MockGameService) {
				m.GetSessionFunc = func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
					return nil, errNoSession
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	})
}

func TestDeleteSession(t *testing.T) {
	runHandlerTests(t, []handlerTest{
		{
			name:           "Delete existing session",
			method:         "DELETE",
			path:           "/api/sessions/abc1",
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["message"] != "Session abc1 deleted" {
					t.Errorf("Unexpected message %q", resp["message"])
				}
			},
		},
		{
			name:   "Delete unknown session",
			method: "DELETE",
			path:   "/api/sessions/nope",
			setupMock: func(t *testing.T, m *MockGameService) {
				m.DeleteSessionFunc = func(ctx context.Context, sessionID string) error {
					return errNoSession
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	})
}

// Game Operation Tests

func TestSelect(t *testing.T) {
	runHandlerTests(t, []handlerTest{
		{
			name:   "First click is pending",
			method: "POST",
			path:   "/api/sessions/abc1/select",
			body:   map[string]int{"row": 0, "col": 1},
			setupMock: func(t *testing.T, m *MockGameService) {
				m.SelectFunc = nil
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.MatchResult
				parseResponse(t, w, &resp)
				if resp.MatchResult == nil || resp.Reason != engine.ReasonSelected {
					t.Fatalf("Expected reason %q, got %+v", engine.ReasonSelected, resp.MatchResult)
				}
				if resp.Pending == nil || *resp.Pending != (engine.Coord{Row: 0, Col: 1}) {
					t.Errorf("Expected pending (0,1), got %v", resp.Pending)
				}
			},
		},
		{
			name:   "Row zero is accepted",
			method: "POST",
			path:   "/api/sessions/abc1/select",
			body:   map[string]int{"row": 0, "col": 0},
			setupMock: func(t *testing.T, m *MockGameService) {
				m.SelectFunc = func(ctx context.Context, sessionID string, c engine.Coord) (*service.MatchResult, error) {
					if c != (engine.Coord{}) {
						t.Errorf("Expected (0,0), got %v", c)
					}
					return &service.MatchResult{MatchResult: &engine.MatchResult{Reason: engine.ReasonSelected}, GameState: testState()}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Missing column",
			method:         "POST",
			path:           "/api/sessions/abc1/select",
			body:           map[string]int{"row": 1},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "Out of range",
			method: "POST",
			path:   "/api/sessions/abc1/select",
			body:   map[string]int{"row": 9, "col": 0},
			setupMock: func(t *testing.T, m *MockGameService) {
				m.SelectFunc = func(ctx context.Context, sessionID string, c engine.Coord) (*service.MatchResult, error) {
					return nil, &engine.OutOfRangeError{Coord: c, Rows: 2, Cols: 4}
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "Cleared tile",
			method: "POST",
			path:   "/api/sessions/abc1/select",
			body:   map[string]int{"row": 1, "col": 1},
			setupMock: func(t *testing.T, m *MockGameService) {
				m.SelectFunc = func(ctx context.Context, sessionID string, c engine.Coord) (*service.MatchResult, error) {
					return nil, &engine.InvalidSelectionError{Coord: c, Reason: "tile already cleared"}
				}
			},
			expectedStatus: http.StatusConflict,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				if msg := errorMessage(t, w); !strings.Contains(msg, "tile already cleared") {
					t.Errorf("Expected reason in error, got %q", msg)
				}
			},
		},
		{
			name:   "Unknown session",
			method: "POST",
			path:   "/api/sessions/nope/select",
			body:   map[string]int{"row": 0, "col": 0},
			setupMock: func(t *testing.T, m *MockGameService) {
				m.SelectFunc = func(ctx context.Context, sessionID string, c engine.Coord) (*service.MatchResult, error) {
					return nil, errNoSession
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	})
}

func TestMatch(t *testing.T) {
	from, to := engine.Coord{Row: 1, Col: 0}, engine.Coord{Row: 1, Col: 3}

	runHandlerTests(t, []handlerTest{
		{
			name:   "Successful match",
			method: "POST",
			path:   "/api/sessions/abc1/match",
			body:   map[string]engine.Coord{"from": from, "to": to},
			setupMock: func(t *testing.T, m *MockGameService) {
				m.MatchFunc = func(ctx context.Context, sessionID string, a, b engine.Coord) (*service.MatchResult, error) {
					if a != from || b != to {
						t.Errorf("Expected %v-%v, got %v-%v", from, to, a, b)
					}
					state := testState()
					state.Score = 10
					return &service.MatchResult{
						MatchResult: &engine.MatchResult{
							Success:    true,
							Reason:     engine.ReasonMatched,
							From:       a,
							To:         b,
							Path:       engine.Path{a, {Row: 1, Col: 1}, {Row: 1, Col: 2}, b},
							ScoreDelta: 10,
						},
						GameState: state,
					}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.MatchResult
				parseResponse(t, w, &resp)
				if !resp.Success || len(resp.Path) != 4 || resp.ScoreDelta != 10 {
					t.Errorf("Unexpected result %+v", resp.MatchResult)
				}
			},
		},
		{
			name:           "Rejected pair is not an error",
			method:         "POST",
			path:           "/api/sessions/abc1/match",
			body:           map[string]engine.Coord{"from": {Row: 0, Col: 0}, "to": {Row: 0, Col: 3}},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.MatchResult
				parseResponse(t, w, &resp)
				if resp.Success || resp.Reason != engine.ReasonNoPath {
					t.Errorf("Expected no_path rejection, got %+v", resp.MatchResult)
				}
			},
		},
		{
			name:           "Missing to",
			method:         "POST",
			path:           "/api/sessions/abc1/match",
			body:           map[string]engine.Coord{"from": from},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "Board already cleared",
			method: "POST",
			path:   "/api/sessions/abc1/match",
			body:   map[string]engine.Coord{"from": from, "to": to},
			setupMock: func(t *testing.T, m *MockGameService) {
				m.MatchFunc = func(ctx context.Context, sessionID string, a, b engine.Coord) (*service.MatchResult, error) {
					return nil, &engine.InvalidSelectionError{Coord: a, Reason: engine.ErrBoardCleared.Error()}
				}
			},
			expectedStatus: http.StatusConflict,
		},
	})
}

func TestBulkMatch(t *testing.T) {
	runHandlerTests(t, []handlerTest{
		{
			name:   "Pairs and reset are forwarded",
			method: "POST",
			path:   "/api/sessions/abc1/bulk-match",
			body: map[string]interface{}{
				"pairs": [][2]engine.Coord{
					{{Row: 0, Col: 1}, {Row: 0, Col: 2}},
					{{Row: 1, Col: 0}, {Row: 1, Col: 3}},
				},
				"reset": true,
			},
			setupMock: func(t *testing.T, m *MockGameService) {
				m.BulkMatchFunc = func(ctx context.Context, sessionID string, pairs [][2]engine.Coord, reset bool) (*service.BulkMatchResult, error) {
					if len(pairs) != 2 || !reset {
						t.Errorf("Expected 2 pairs with reset, got %d reset=%v", len(pairs), reset)
					}
					if pairs[1][1] != (engine.Coord{Row: 1, Col: 3}) {
						t.Errorf("Unexpected second pair %v", pairs[1])
					}
					results := []*engine.MatchResult{
						{Success: true, Reason: engine.ReasonMatched, From: pairs[0][0], To: pairs[0][1], Path: engine.Path{pairs[0][0], pairs[0][1]}},
						{Success: true, Reason: engine.ReasonMatched, From: pairs[1][0], To: pairs[1][1], Path: engine.Path{pairs[1][0], pairs[1][1]}},
					}
					return &service.BulkMatchResult{
						RequestedPairs: 2,
						PairsEvaluated: 2,
						PairsMatched:   2,
						Results:        results,
						ScoreDelta:     20,
						GameState:      testState(),
					}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.BulkMatchResult
				parseResponse(t, w, &resp)
				if resp.PairsMatched != 2 || resp.ScoreDelta != 20 {
					t.Errorf("Unexpected result %+v", resp)
				}
			},
		},
		{
			name:           "Invalid body",
			method:         "POST",
			path:           "/api/sessions/abc1/bulk-match",
			body:           "not an object",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "Unknown session",
			method: "POST",
			path:   "/api/sessions/nope/bulk-match",
			body:   map[string]interface{}{"pairs": [][2]engine.Coord{}},
			setupMock: func(t *testing.T, m *MockGameService) {
				m.BulkMatchFunc = func(ctx context.Context, sessionID string, pairs [][2]engine.Coord, reset bool) (*service.BulkMatchResult, error) {
					return nil, errNoSession
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	})
}

func TestHint(t *testing.T) {
	runHandlerTests(t, []handlerTest{
		{
			name:   "Available pair",
			method: "GET",
			path:   "/api/sessions/abc1/hint",
			setupMock: func(t *testing.T, m *MockGameService) {
				m.HintFunc = func(ctx context.Context, sessionID string) (*service.HintResult, error) {
					return &service.HintResult{
						Available: true,
						From:      engine.Coord{Row: 0, Col: 1},
						To:        engine.Coord{Row: 0, Col: 2},
						Symbol:    "B",
						Path:      engine.Path{{Row: 0, Col: 1}, {Row: 0, Col: 2}},
					}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.HintResult
				parseResponse(t, w, &resp)
				if !resp.Available || resp.Symbol != "B" || len(resp.Path) != 2 {
					t.Errorf("Unexpected hint %+v", resp)
				}
			},
		},
		{
			name:           "Stuck board",
			method:         "GET",
			path:           "/api/sessions/abc1/hint",
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.HintResult
				parseResponse(t, w, &resp)
				if resp.Available {
					t.Error("Expected no hint")
				}
			},
		},
	})
}

func TestShuffleAndReset(t *testing.T) {
	boardResp := func(wantMessage string, wantShuffles int) func(*testing.T, *httptest.ResponseRecorder) {
		return func(t *testing.T, w *httptest.ResponseRecorder) {
			var resp struct {
				Message string            `json:"message"`
				State   *engine.GameState `json:"state"`
			}
			parseResponse(t, w, &resp)
			if resp.Message != wantMessage {
				t.Errorf("Expected message %q, got %q", wantMessage, resp.Message)
			}
			if resp.State == nil || resp.State.Shuffles != wantShuffles {
				t.Errorf("Expected state with %d shuffles, got %+v", wantShuffles, resp.State)
			}
		}
	}

	runHandlerTests(t, []handlerTest{
		{
			name:           "Shuffle",
			method:         "POST",
			path:           "/api/sessions/abc1/shuffle",
			expectedStatus: http.StatusOK,
			validateResp:   boardResp("Board shuffled", 1),
		},
		{
			name:   "Shuffle a cleared board",
			method: "POST",
			path:   "/api/sessions/abc1/shuffle",
			setupMock: func(t *testing.T, m *MockGameService) {
				m.ShuffleFunc = func(ctx context.Context, sessionID string) (*engine.GameState, error) {
					return nil, engine.ErrBoardCleared
				}
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "Reset",
			method:         "POST",
			path:           "/api/sessions/abc1/reset",
			expectedStatus: http.StatusOK,
			validateResp:   boardResp("Game reset successfully", 0),
		},
		{
			name:   "Reset unknown session",
			method: "POST",
			path:   "/api/sessions/nope/reset",
			setupMock: func(t *testing.T, m *MockGameService) {
				m.ResetFunc = func(ctx context.Context, sessionID string) (*engine.GameState, error) {
					return nil, errNoSession
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	})
}

func TestGetHistory(t *testing.T) {
	expectOpts := func(want service.HistoryOptions) func(*testing.T, *MockGameService) {
		return func(t *testing.T, m *MockGameService) {
			m.GetMatchHistoryFunc = func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
				if opts != want {
					t.Errorf("Expected options %+v, got %+v", want, opts)
				}
				return &service.HistoryResponse{Page: opts.Page, PageSize: opts.Limit, TotalPages: 1}, nil
			}
		}
	}

	runHandlerTests(t, []handlerTest{
		{
			name:           "Defaults",
			method:         "GET",
			path:           "/api/sessions/abc1/history",
			setupMock:      expectOpts(service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Explicit paging",
			method:         "GET",
			path:           "/api/sessions/abc1/history?page=3&limit=5&order=asc",
			setupMock:      expectOpts(service.HistoryOptions{Page: 3, Limit: 5, Order: "asc"}),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Invalid values fall back to defaults",
			method:         "GET",
			path:           "/api/sessions/abc1/history?page=-1&limit=abc&order=sideways",
			setupMock:      expectOpts(service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}),
			expectedStatus: http.StatusOK,
		},
		{
			name:   "Unknown session",
			method: "GET",
			path:   "/api/sessions/nope/history",
			setupMock: func(t *testing.T, m *MockGameService) {
				m.GetMatchHistoryFunc = func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					return nil, errNoSession
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	})
}

func TestGetGameState(t *testing.T) {
	runHandlerTests(t, []handlerTest{
		{
			name:           "Current state",
			method:         "GET",
			path:           "/api/sessions/abc1/state",
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp engine.GameState
				parseResponse(t, w, &resp)
				if resp.Board == nil || resp.Board.Rows() != 2 || resp.Board.Cols() != 4 {
					t.Fatalf("Expected 2x4 board, got %+v", resp.Board)
				}
				tile, _ := resp.Board.TileAt(engine.Coord{Row: 1, Col: 1})
				if !tile.Cleared || tile.Symbol != engine.EmptySymbol {
					t.Errorf("Expected open cell at (1,1), got %+v", tile)
				}
			},
		},
		{
			name:   "Unknown session",
			method: "GET",
			path:   "/api/sessions/nope/state",
			setupMock: func(t *testing.T, m *MockGameService) {
				m.GetGameStateFunc = func(ctx context.Context, sessionID string) (*engine.GameState, error) {
					return nil, errNoSession
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	})
}

// Configuration Tests

func TestListConfigs(t *testing.T) {
	runHandlerTests(t, []handlerTest{
		{
			name:   "List presets",
			method: "GET",
			path:   "/api/configs",
			setupMock: func(t *testing.T, m *MockGameService) {
				m.ListConfigsFunc = func(ctx context.Context) ([]*service.ConfigInfo, error) {
					return []*service.ConfigInfo{
						{ConfigID: "classic", Name: "Classic", Rows: 8, Cols: 8, MaxTurns: 2, MatchReward: 10},
						{ConfigID: "ring", Name: "Ring", Rows: 4, Cols: 4, FixedLayout: true},
					}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp []service.ConfigInfo
				parseResponse(t, w, &resp)
				if len(resp) != 2 || resp[0].ConfigID != "classic" || !resp[1].FixedLayout {
					t.Errorf("Unexpected configs %+v", resp)
				}
			},
		},
		{
			name:   "Service error",
			method: "GET",
			path:   "/api/configs",
			setupMock: func(t *testing.T, m *MockGameService) {
				m.ListConfigsFunc = func(ctx context.Context) ([]*service.ConfigInfo, error) {
					return nil, fmt.Errorf("failed to read config directory")
				}
			},
			expectedStatus: http.StatusInternalServerError,
		},
	})
}

func TestGetConfig(t *testing.T) {
	runHandlerTests(t, []handlerTest{
		{
			name:           "Existing preset",
			method:         "GET",
			path:           "/api/configs/classic",
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp engine.GameConfig
				parseResponse(t, w, &resp)
				if resp.Name != "classic" {
					t.Errorf("Expected name classic, got %s", resp.Name)
				}
			},
		},
		{
			name:   "Unknown preset",
			method: "GET",
			path:   "/api/configs/huge",
			setupMock: func(t *testing.T, m *MockGameService) {
				m.LoadConfigFunc = func(ctx context.Context, configName string) (*engine.GameConfig, error) {
					return nil, errNoConfig
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	})
}

func TestCreateConfig(t *testing.T) {
	valid := map[string]interface{}{
		"name":   "tiny",
		"rows":   2,
		"cols":   2,
		"layout": []string{"A B", "B A"},
	}

	runHandlerTests(t, []handlerTest{
		{
			name:   "Save preset",
			method: "POST",
			path:   "/api/configs",
			body:   valid,
			setupMock: func(t *testing.T, m *MockGameService) {
				m.SaveConfigFunc = func(ctx context.Context, configName string, cfg *engine.GameConfig) error {
					if configName != "tiny" || len(cfg.Layout) != 2 {
						t.Errorf("Unexpected config %s %+v", configName, cfg)
					}
					return nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["config_id"] != "tiny" {
					t.Errorf("Expected config_id tiny, got %s", resp["config_id"])
				}
			},
		},
		{
			name:           "Missing name",
			method:         "POST",
			path:           "/api/configs",
			body:           map[string]int{"rows": 2, "cols": 2},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Path separator in name",
			method:         "POST",
			path:           "/api/configs",
			body:           map[string]interface{}{"name": "../evil", "rows": 2, "cols": 2},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "Invalid preset",
			method: "POST",
			path:   "/api/configs",
			body:   valid,
			setupMock: func(t *testing.T, m *MockGameService) {
				m.SaveConfigFunc = func(ctx context.Context, configName string, cfg *engine.GameConfig) error {
					return fmt.Errorf("%w: odd cell count", config.ErrInvalidConfig)
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
	})
}

func TestHealth(t *testing.T) {
	runHandlerTests(t, []handlerTest{
		{
			name:   "Healthy",
			method: "GET",
			path:   "/api/health",
			setupMock: func(t *testing.T, m *MockGameService) {
				m.ListSessionsFunc = func(ctx context.Context) ([]*service.SessionInfo, error) {
					return []*service.SessionInfo{{ID: "a"}, {ID: "b"}}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp struct {
					Status   string `json:"status"`
					Service  string `json:"service"`
					Sessions int    `json:"sessions"`
				}
				parseResponse(t, w, &resp)
				if resp.Status != "healthy" || resp.Service != ServiceName || resp.Sessions != 2 {
					t.Errorf("Unexpected health %+v", resp)
				}
			},
		},
	})
}

func TestRoutes(t *testing.T) {
	server := NewServer(&MockGameService{}, nil)
	routes := server.Routes()

	for _, want := range []string{
		"GET /api/health",
		"POST /api/sessions",
		"POST /api/sessions/{id}/select",
		"POST /api/sessions/{id}/match",
		"GET /api/sessions/{id}/hint",
		"GET /api/configs/{name}",
		"ANY /ws",
	} {
		found := false
		for _, r := range routes {
			if r == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected route %q in %v", want, routes)
		}
	}

	if routes[0] != "GET /api/health" {
		t.Errorf("Expected routes in registration order, first is %q", routes[0])
	}
	for _, r := range routes {
		if r == "ANY /api" {
			t.Error("Subrouter prefix should not be listed as a route")
		}
	}
}

func TestWebSocket(t *testing.T) {
	tests := []struct {
		name           string
		queryParams    string
		setupMock      func(*MockGameService)
		expectedStatus int
	}{
		{
			name:           "Missing session parameter",
			queryParams:    "",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Invalid session",
			queryParams: "?session=invalid",
			setupMock: func(m *MockGameService) {
				m.GetSessionFunc = func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
					return nil, errNoSession
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(mockService)
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/ws"+tt.queryParams, nil)

			server.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestMatchIsBroadcastToWebSocketClients(t *testing.T) {
	from, to := engine.Coord{Row: 1, Col: 0}, engine.Coord{Row: 1, Col: 3}
	mockService := &MockGameService{
		MatchFunc: func(ctx context.Context, sessionID string, a, b engine.Coord) (*service.MatchResult, error) {
			state := testState()
			state.Score = 10
			return &service.MatchResult{
				MatchResult: &engine.MatchResult{
					Success: true,
					Reason:  engine.ReasonMatched,
					From:    a,
					To:      b,
					Path:    engine.Path{a, {Row: 1, Col: 1}, {Row: 1, Col: 2}, b},
				},
				GameState: state,
			}, nil
		},
	}

	httpServer := httptest.NewServer(setupTestServer(mockService))
	defer httpServer.Close()

	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws?session=abc1"
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	// Give the hub time to register the client
	time.Sleep(50 * time.Millisecond)

	body, _ := json.Marshal(map[string]engine.Coord{"from": from, "to": to})
	resp, err := http.Post(httpServer.URL+"/api/sessions/abc1/match", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST match failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var events []string
	for i := 0; i < 2; i++ {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read WebSocket message %d: %v", i, err)
		}
		var message websocket.Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		events = append(events, message.Event)
	}

	if events[0] != websocket.EventMatch || events[1] != websocket.EventStateUpdate {
		t.Errorf("Expected [match state_update], got %v", events)
	}
}
