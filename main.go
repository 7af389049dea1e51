// Command tilelink serves Tile Link games.
//
//	tilelink [flags]            REST under /api, WebSocket at /ws, MCP over HTTP at /mcp
//	tilelink [flags] stdio-mcp  MCP over stdin/stdout, backed by a running tilelink
//	                            API at -api-url or by an internal one on a loopback port
//
// Settings can also come from the environment or a .env file: CONFIG_DIR,
// TILELINK_API_URL, NGROK_ENABLED, NGROK_AUTHTOKEN and NGROK_DOMAIN.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mcp-training/tilelink/api"
	"github.com/wricardo/mcp-training/tilelink/game/config"
	"github.com/wricardo/mcp-training/tilelink/game/engine"
	"github.com/wricardo/mcp-training/tilelink/game/service"
	"github.com/wricardo/mcp-training/tilelink/game/session"
	"github.com/wricardo/mcp-training/tilelink/transport/mcp"
	"github.com/wricardo/mcp-training/tilelink/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Tile Link Server"
)

const (
	modeServer = "server"
	modeStdio  = "stdio-mcp"

	defaultAPIURL      = "http://localhost:8080"
	cleanupInterval    = time.Hour
	shutdownTimeout    = 10 * time.Second
	healthCheckTimeout = 2 * time.Second
)

// options is the resolved startup configuration
type options struct {
	Host       string
	Port       int
	ConfigDir  string
	Debug      bool
	SessionTTL time.Duration
	APIURL     string
	Ngrok      ngrokOptions
}

type ngrokOptions struct {
	Enabled   bool
	AuthToken string
	Domain    string
}

func (o *options) addr() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// envOr returns the first non-empty environment value among keys, or def
func envOr(getenv func(string) string, def string, keys ...string) string {
	for _, k := range keys {
		if v := getenv(k); v != "" {
			return v
		}
	}
	return def
}

// parseArgs resolves flags over environment defaults and returns the mode
func parseArgs(args []string, getenv func(string) string) (*options, string, error) {
	opts := &options{}
	fs := flag.NewFlagSet(AppName, flag.ContinueOnError)

	fs.StringVar(&opts.Host, "host", "localhost", "HTTP server host")
	fs.IntVar(&opts.Port, "port", 8080, "HTTP server port")
	fs.StringVar(&opts.ConfigDir, "config-dir", envOr(getenv, "configs", "CONFIG_DIR"), "Directory containing board presets")
	fs.BoolVar(&opts.Debug, "debug", false, "Log file and line of each message")
	fs.DurationVar(&opts.SessionTTL, "session-ttl", 24*time.Hour, "Remove sessions idle for longer than this")
	fs.StringVar(&opts.APIURL, "api-url", envOr(getenv, defaultAPIURL, "TILELINK_API_URL"), "API checked by stdio-mcp before starting an internal one")
	showVersion := fs.Bool("version", false, "Show version information")

	ngrokEnv := envOr(getenv, "", "NGROK_ENABLED")
	fs.BoolVar(&opts.Ngrok.Enabled, "ngrok", ngrokEnv == "true" || ngrokEnv == "1", "Expose the server through an ngrok tunnel")
	fs.StringVar(&opts.Ngrok.AuthToken, "ngrok-auth", envOr(getenv, "", "NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"), "Ngrok auth token")
	fs.StringVar(&opts.Ngrok.Domain, "ngrok-domain", envOr(getenv, "", "NGROK_DOMAIN"), "Custom ngrok domain (optional)")

	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(out, "Usage: tilelink [OPTIONS] [server|stdio-mcp]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}
	if *showVersion {
		return opts, "version", nil
	}

	mode := modeServer
	if fs.NArg() > 0 {
		mode = fs.Arg(0)
	}
	switch mode {
	case "server", "http":
		mode = modeServer
	case "stdio-mcp", "mcp-stdio", "mcp":
		mode = modeStdio
	default:
		return nil, "", fmt.Errorf("unknown mode %q, want server or stdio-mcp", mode)
	}

	if opts.SessionTTL <= 0 {
		return nil, "", fmt.Errorf("-session-ttl must be positive, got %v", opts.SessionTTL)
	}
	return opts, mode, nil
}

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment variables from .env file")
	} else if !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	opts, mode, err := parseArgs(os.Args[1:], os.Getenv)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal(err)
	}
	if mode == "version" {
		fmt.Printf("%s v%s\n", AppName, Version)
		return
	}

	log.SetFlags(log.LstdFlags)
	if opts.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Starting %s v%s (mode: %s)", AppName, Version, mode)

	gameService, err := initializeServices(ctx, opts)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	if mode == modeStdio {
		err = runStdioMCP(ctx, opts, gameService)
	} else {
		err = runHTTPServer(ctx, opts, gameService)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// initializeServices wires presets, in-memory sessions and the game service,
// and prunes idle sessions until ctx ends.
func initializeServices(ctx context.Context, opts *options) (service.GameService, error) {
	configManager, err := config.NewManager(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	log.Printf("Default board preset: %s", describePreset(configManager.GetDefault()))

	sessionManager := session.NewManager()
	go sessionCleanupRoutine(ctx, sessionManager, cleanupInterval, opts.SessionTTL)

	return service.NewGameService(sessionManager, configManager), nil
}

// describePreset summarizes a preset for the startup log
func describePreset(cfg *engine.GameConfig) string {
	rules := cfg.Rules
	if rules == (engine.Rules{}) {
		rules = engine.DefaultRules()
	}

	board := fmt.Sprintf("%dx%d", cfg.Rows, cfg.Cols)
	if len(cfg.Layout) > 0 {
		board += " fixed layout"
	} else {
		symbols := len(cfg.Symbols)
		if symbols == 0 {
			symbols = len(engine.DefaultSymbols)
		}
		board += fmt.Sprintf(", %d symbols", symbols)
	}
	return fmt.Sprintf("%s (%s, max %d turns, %d points per pair)", cfg.Name, board, rules.MaxTurns, rules.MatchReward)
}

func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, every, maxAge time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
				log.Printf("Cleaned up %d idle sessions (%d active)", removed, manager.Count())
			}
		}
	}
}

// newHandler mounts the REST and WebSocket API at the root and MCP at /mcp
func newHandler(apiServer http.Handler, mcpServer *server.MCPServer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", apiServer)
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		defer r.Body.Close()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}

		response := mcpServer.HandleMessage(r.Context(), body)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			log.Printf("Failed to write MCP response: %v", err)
		}
	})
	return mux
}

// logRoutes prints every endpoint reachable under base
func logRoutes(base string, routes []string) {
	for _, r := range routes {
		method, path, _ := strings.Cut(r, " ")
		log.Printf("  %-6s %s%s", method, base, path)
	}
	log.Printf("  %-6s %s/mcp", http.MethodPost, base)
}

// runHTTPServer serves until ctx is cancelled, then shuts down gracefully
func runHTTPServer(ctx context.Context, opts *options, gameService service.GameService) error {
	hub := websocket.NewHub()
	go hub.Run()

	apiServer := api.NewServer(gameService, hub)
	addr := opts.addr()
	base := "http://" + addr
	handler := newHandler(apiServer, mcp.NewClient(base).GetMCPServer())

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("HTTP server listening on %s", addr)
		logRoutes(base, apiServer.Routes())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if opts.Ngrok.Enabled {
		g.Go(func() error {
			serveNgrok(ctx, handler, opts.Ngrok, apiServer.Routes())
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	log.Println("Server stopped")
	return err
}

// serveNgrok exposes handler through a tunnel until ctx ends. Tunnel failures
// are logged and leave the local server running.
func serveNgrok(ctx context.Context, handler http.Handler, opts ngrokOptions, routes []string) {
	if opts.AuthToken == "" {
		log.Println("WARNING: ngrok enabled but no auth token (use -ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	endpoint := ngrokConfig.HTTPEndpoint()
	if opts.Domain != "" {
		endpoint = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.Domain))
	}

	tun, err := ngrok.Listen(ctx, endpoint, ngrok.WithAuthtoken(opts.AuthToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	go func() {
		<-ctx.Done()
		tun.Close()
	}()

	log.Printf("Ngrok tunnel established: %s", tun.URL())
	logRoutes(tun.URL(), routes)

	if err := http.Serve(tun, handler); err != nil && ctx.Err() == nil {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// apiAvailable reports whether a tilelink API answers its health check at baseURL
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	var health struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}
	if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&health) != nil {
		return false
	}
	return health.Status == "healthy" && health.Service == api.ServiceName
}

// startInternalAPI serves the REST API on a loopback port and returns its
// base URL and a shutdown func.
func startInternalAPI(gameService service.GameService) (string, func(), error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to listen on loopback: %w", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	httpServer := &http.Server{Handler: api.NewServer(gameService, hub)}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Internal HTTP server error: %v", err)
		}
	}()

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		httpServer.Shutdown(ctx)
	}
	return "http://" + listener.Addr().String(), shutdown, nil
}

// runStdioMCP serves MCP over stdin/stdout. Tools call the tilelink API at
// opts.APIURL when one answers there, otherwise an internal one.
func runStdioMCP(ctx context.Context, opts *options, gameService service.GameService) error {
	baseURL := opts.APIURL
	if apiAvailable(ctx, baseURL) {
		log.Printf("Using tilelink API at %s", baseURL)
	} else {
		internalURL, shutdown, err := startInternalAPI(gameService)
		if err != nil {
			return err
		}
		defer shutdown()
		log.Printf("No tilelink API at %s, serving an internal one at %s", baseURL, internalURL)
		baseURL = internalURL
	}

	log.Printf("MCP stdio server ready (API %s)", baseURL)
	if err := server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer()); err != nil {
		return fmt.Errorf("mcp stdio server: %w", err)
	}
	return nil
}
