// Package server provides the HTTP API: the throw log, settings, the
// physics world and a live event stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mjolnir/internal/physics"
	"github.com/ayusman/mjolnir/internal/server/api"
	"github.com/ayusman/mjolnir/internal/store"
)

// BodySource lists the bodies of the physics world.
type BodySource interface {
	Bodies() []physics.Body
}

// Status reports the state of the tracking pipeline.
type Status interface {
	IsEnabled() bool
	Frames() int
}

// Config holds the server configuration. Every dependency is optional;
// routes for missing ones are not registered.
type Config struct {
	StaticDir string
	Store     *store.Store
	Bodies    BodySource
	Settings  api.Applier
	Status    Status
	Hub       *Hub
	Logger    *zap.Logger
}

// Server represents the HTTP server.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	logger *zap.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		logger: logger,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/kinds", s.handleKinds)

	if s.config.Store != nil {
		throws := api.NewThrowHandler(s.config.Store)
		s.mux.Handle("/api/throws", throws)
		s.mux.Handle("/api/throws/", throws)

		settings := api.NewSettingsHandler(s.config.Store, s.config.Settings)
		s.mux.Handle("/api/settings", settings)
		s.mux.Handle("/api/settings/", settings)
	}

	if s.config.Bodies != nil {
		s.mux.HandleFunc("/api/bodies", s.handleBodies)
	}

	if s.config.Hub != nil {
		s.mux.Handle("/api/events", s.config.Hub)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Status != nil {
		response["tracking"] = s.config.Status.IsEnabled()
		response["frames"] = s.config.Status.Frames()
	}

	writeJSON(w, response)
}

// handleKinds handles GET requests to /api/kinds.
func (s *Server) handleKinds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	kinds := make([]physics.Kind, 0)
	for _, name := range physics.Kinds() {
		k, _ := physics.LookupKind(name)
		kinds = append(kinds, k)
	}
	writeJSON(w, map[string]interface{}{"kinds": kinds})
}

// handleBodies handles GET requests to /api/bodies.
func (s *Server) handleBodies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]interface{}{"bodies": s.config.Bodies.Bodies()})
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		if s.config.Hub != nil {
			s.config.Hub.Close()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
