// File: internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/degenlabs/rollfeed/internal/config"
	"github.com/degenlabs/rollfeed/internal/connection"
	"github.com/degenlabs/rollfeed/internal/feed"
	"github.com/degenlabs/rollfeed/internal/metrics"
	"github.com/degenlabs/rollfeed/internal/models"
	"github.com/degenlabs/rollfeed/internal/rolls"
	"github.com/degenlabs/rollfeed/pkg/utils"
)

// HTTPServer serves the roll feed over JSON and a minimal HTML page
type HTTPServer struct {
	config         *config.ServerConfig
	appVersion     string
	server         *http.Server
	router         *mux.Router
	feed           *feed.Feed
	tracker        *rolls.RollTracker
	manager        connection.Manager
	metricsManager *metrics.Manager
	logger         *logrus.Logger
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(
	cfg *config.ServerConfig,
	appVersion string,
	fd *feed.Feed,
	tracker *rolls.RollTracker,
	manager connection.Manager,
	metricsManager *metrics.Manager,
) (*HTTPServer, error) {

	server := &HTTPServer{
		config:         cfg,
		appVersion:     appVersion,
		feed:           fd,
		tracker:        tracker,
		manager:        manager,
		metricsManager: metricsManager,
		logger:         utils.GetLogger(),
	}

	server.setupRouter()

	server.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return server, nil
}

// setupRouter sets up the HTTP routes
func (s *HTTPServer) setupRouter() {
	s.router = mux.NewRouter()

	// Middleware
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
	if s.metricsManager != nil {
		s.router.Use(s.metricsMiddleware)
	}

	// API routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	if s.config.EnableHealth {
		api.HandleFunc("/health", s.healthHandler).Methods("GET")
		api.HandleFunc("/health/detailed", s.detailedHealthHandler).Methods("GET")
	}

	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.Handler())
		api.HandleFunc("/stats", s.statsHandler).Methods("GET")
	}

	// Roll endpoints
	api.HandleFunc("/rolls", s.listRollsHandler).Methods("GET")
	api.HandleFunc("/rolls/{hash}", s.getRollHandler).Methods("GET")

	// Tracker endpoints
	api.HandleFunc("/tracker/status", s.trackerStatusHandler).Methods("GET")
	api.HandleFunc("/tracker/start", s.startTrackerHandler).Methods("POST")
	api.HandleFunc("/tracker/stop", s.stopTrackerHandler).Methods("POST")

	// HTML feed page
	s.router.HandleFunc("/", s.indexHandler).Methods("GET")
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.Info("Starting HTTP server",
		"address", s.server.Addr,
		"metrics_enabled", s.config.EnableMetrics)

	// Update system and component metrics so they appear on first scrape
	if s.metricsManager != nil {
		s.metricsManager.UpdateSystemMetrics()
		s.metricsManager.ObserveFeed(s.feed.Len(), s.tracker.IsRunning(), s.manager.IsConnected())

		go s.systemMetricsUpdater()
	}

	errChan := make(chan error, 1)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
			errChan <- err
		}
	}()

	// Give the server a moment to start and catch immediate binding errors
	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// systemMetricsUpdater updates system metrics periodically
func (s *HTTPServer) systemMetricsUpdater() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.metricsManager.UpdateSystemMetrics()
		s.metricsManager.ObserveFeed(s.feed.Len(), s.tracker.IsRunning(), s.manager.IsConnected())
	}
}

// Stop stops the HTTP server
func (s *HTTPServer) Stop() error {
	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// Middleware

// loggingMiddleware logs HTTP requests
func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
			"remote_ip", r.RemoteAddr)
	})
}

// corsMiddleware handles CORS
func (s *HTTPServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Health Handlers

// healthHandler returns basic health status
func (s *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":          "healthy",
		"timestamp":       time.Now().UTC().Format(time.RFC3339Nano),
		"version":         s.appVersion,
		"metrics_enabled": s.config.EnableMetrics,
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// detailedHealthHandler returns detailed health status
func (s *HTTPServer) detailedHealthHandler(w http.ResponseWriter, r *http.Request) {
	tracker := s.tracker.HealthCheck(r.Context())

	status := "healthy"
	code := http.StatusOK
	if !tracker.Healthy {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	health := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now(),
		"version":   s.appVersion,
		"components": map[string]interface{}{
			"tracker":    tracker,
			"connection": s.manager.Stats(),
		},
	}

	s.writeJSON(w, code, health)
}

// statsHandler returns application statistics
func (s *HTTPServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"timestamp":       time.Now(),
		"feed":            s.feed.GetStats(),
		"tracker":         s.tracker.GetStats(),
		"connection":      s.manager.Stats(),
		"metrics_enabled": s.config.EnableMetrics,
	}

	s.writeJSON(w, http.StatusOK, stats)
}

// Roll Handlers

// listRollsHandler lists recent rolls, newest first
func (s *HTTPServer) listRollsHandler(w http.ResponseWriter, r *http.Request) {
	filter := &models.RollFilter{}

	if gameStr := r.URL.Query().Get("game"); gameStr != "" {
		game := models.GameType(gameStr)
		if !game.Valid() {
			s.writeError(w, http.StatusBadRequest, "Unknown game type", nil)
			return
		}
		filter.Game = &game
	}

	if playerStr := r.URL.Query().Get("player"); playerStr != "" {
		if !utils.IsValidAddress(playerStr) {
			s.writeError(w, http.StatusBadRequest, "Invalid player address", nil)
			return
		}
		player := utils.NormalizeAddress(playerStr)
		filter.Player = &player
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			s.writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		filter.Limit = limit
	}

	found := s.feed.Query(filter)

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"rolls": found,
		"total": len(found),
	})
}

// getRollHandler gets a specific roll by transaction hash
func (s *HTTPServer) getRollHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	hash := vars["hash"]

	roll := s.feed.Get(hash)
	if roll == nil {
		s.writeError(w, http.StatusNotFound, "Roll not found", nil)
		return
	}

	s.writeJSON(w, http.StatusOK, roll)
}

// Tracker Handlers

// trackerStatusHandler gets tracker status
func (s *HTTPServer) trackerStatusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"running":   s.tracker.IsRunning(),
		"stats":     s.tracker.GetStats(),
		"timestamp": time.Now(),
	}

	s.writeJSON(w, http.StatusOK, status)
}

// startTrackerHandler starts the tracker
func (s *HTTPServer) startTrackerHandler(w http.ResponseWriter, r *http.Request) {
	if s.tracker.IsRunning() {
		s.writeError(w, http.StatusConflict, "Tracker is already running", nil)
		return
	}

	if err := s.tracker.Start(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to start tracker", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Tracker started successfully",
	})
}

// stopTrackerHandler stops the tracker
func (s *HTTPServer) stopTrackerHandler(w http.ResponseWriter, r *http.Request) {
	if !s.tracker.IsRunning() {
		s.writeError(w, http.StatusConflict, "Tracker is not running", nil)
		return
	}

	if err := s.tracker.Stop(); err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to stop tracker", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Tracker stopped successfully",
	})
}

// Utility Methods

// writeJSON writes a JSON response
func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}

// writeError writes an error response
func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string, err error) {
	errorResponse := map[string]interface{}{
		"error":     message,
		"status":    status,
		"timestamp": time.Now(),
	}

	if err != nil {
		errorResponse["details"] = err.Error()
		s.logger.Error("HTTP error",
			"status", status,
			"message", message,
			"error", err)
	}

	s.writeJSON(w, status, errorResponse)
}
