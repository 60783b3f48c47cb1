// Package server exposes the console state as a JSON API plus an SSE event
// stream, and serves the embedded browser UI.
package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"sovdscope/internal/cache"
	"sovdscope/internal/config"
	"sovdscope/internal/console"
	"sovdscope/internal/database"
	"sovdscope/internal/embeds"
	"sovdscope/internal/logging"
	"sovdscope/internal/realtime"
	"sovdscope/internal/version"
)

// Server is the HTTP layer over the console.
type Server struct {
	cfg     *config.Config
	console *console.Console
	store   *database.Store
	metrics *realtime.Metrics
	sse     *SSEManager
	vitals  *cache.Cache[map[string]interface{}]
	index   *template.Template
	httpSrv *http.Server
}

// New wires the console to the HTTP layer. The store and metrics may be nil.
func New(cfg *config.Config, store *database.Store, metrics *realtime.Metrics) (*Server, error) {
	sse := NewSSEManager()

	c := console.New(cfg, store, &sseNotifier{sse: sse})
	c.SetEventSink(func(event string, payload interface{}) {
		sse.Broadcast(event, payload)
	})

	index, err := embeds.ParseTemplate("templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse index template: %w", err)
	}

	return &Server{
		cfg:     cfg,
		console: c,
		store:   store,
		metrics: metrics,
		sse:     sse,
		vitals:  cache.New[map[string]interface{}](5 * time.Second),
		index:   index,
	}, nil
}

// Console returns the state container, for background jobs that act on it.
func (s *Server) Console() *console.Console {
	return s.console
}

// Routes builds the request mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	staticFS, err := embeds.StaticFS()
	if err == nil {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	} else {
		logging.Error("Failed to mount static files: %v", err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /api/v1/events", s.sse)

	mux.HandleFunc("GET /api/v1/connection", s.handleConnectionState)
	mux.HandleFunc("POST /api/v1/connection", s.handleConnect)
	mux.HandleFunc("DELETE /api/v1/connection", s.handleDisconnect)
	mux.HandleFunc("GET /api/v1/connection/history", s.handleConnectionHistory)

	mux.HandleFunc("GET /api/v1/tree", s.handleTree)
	mux.HandleFunc("POST /api/v1/tree/children", s.handleLoadChildren)
	mux.HandleFunc("POST /api/v1/tree/expand", s.handleExpand)
	mux.HandleFunc("POST /api/v1/tree/refresh", s.handleRefresh)

	mux.HandleFunc("GET /api/v1/selection", s.handleSelection)
	mux.HandleFunc("POST /api/v1/selection", s.handleSelect)

	mux.HandleFunc("POST /api/v1/operations/invoke", s.handleInvoke)
	mux.HandleFunc("GET /api/v1/executions", s.handleExecutions)
	mux.HandleFunc("POST /api/v1/executions/{id}/refresh", s.handleRefreshExecution)
	mux.HandleFunc("DELETE /api/v1/executions/{id}", s.handleCancelExecution)
	mux.HandleFunc("PUT /api/v1/executions/auto-refresh", s.handleAutoRefresh)

	mux.HandleFunc("GET /api/v1/parameters", s.handleParameters)
	mux.HandleFunc("PUT /api/v1/parameters", s.handleSetParameter)
	mux.HandleFunc("POST /api/v1/parameters/reset", s.handleResetParameters)

	mux.HandleFunc("GET /api/v1/faults", s.handleFaults)
	mux.HandleFunc("DELETE /api/v1/faults", s.handleClearFaults)

	mux.HandleFunc("PUT /api/v1/data", s.handlePublish)

	mux.HandleFunc("GET /api/v1/system/vitals", s.handleVitals)
	mux.HandleFunc("GET /api/v1/system/history", s.handleSystemHistory)

	mux.HandleFunc("GET /api/v1/version", s.handleVersion)
	mux.HandleFunc("GET /api/v1/profiles", s.handleProfiles)

	return mux
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	addr := s.cfg.ListenAddr
	if addr == "" {
		addr = ":8090"
	}

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.Info("Console listening on %s", addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and disconnects from the SOVD server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.console.Disconnect()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Version string
	}{
		Version: version.Get().Version,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.index.ExecuteTemplate(w, "index.html", data); err != nil {
		logging.Error("Failed to render index: %v", err)
	}
}

// sseNotifier forwards user-facing notifications to connected browsers and
// mirrors them into the log.
type sseNotifier struct {
	sse *SSEManager
}

func (n *sseNotifier) Notify(level console.NotifyLevel, message string) {
	switch level {
	case console.LevelError:
		logging.Error("%s", message)
	case console.LevelWarning:
		logging.Warning("%s", message)
	default:
		logging.Info("%s", message)
	}
	n.sse.Broadcast("notification", map[string]interface{}{
		"level":   level,
		"message": message,
	})
}
