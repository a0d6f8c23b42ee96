// Package httpserver serves health, metrics and run progress over HTTP for
// the duration of an ingest run.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/helixir/bibliographic-ingest/internal/database"
	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/tracker"
)

// HealthChecker reports the health of the repository database.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// RunReporter exposes the progress of the running ingest.
type RunReporter interface {
	Snapshot() tracker.Progress
}

// OutcomeCounter exposes outcome counts of the running ingest.
type OutcomeCounter interface {
	Counts() map[domain.Category]int
}

// Server is the HTTP status server.
type Server struct {
	router      chi.Router
	httpServer  *http.Server
	health      HealthChecker
	run         RunReporter
	outcomes    OutcomeCounter
	metricsPath string
	sseInterval time.Duration
	logger      zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// MetricsPath is where Prometheus metrics are served; empty disables them.
	MetricsPath string
}

// NewServer creates the status server. run and outcomes may be nil before a
// run has opened its tracker and recorder.
func NewServer(cfg Config, health HealthChecker, run RunReporter, outcomes OutcomeCounter, logger zerolog.Logger) *Server {
	s := &Server{
		health:      health,
		run:         run,
		outcomes:    outcomes,
		metricsPath: cfg.MetricsPath,
		sseInterval: sseQueryInterval,
		logger:      logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)
	if s.metricsPath != "" {
		r.Handle(s.metricsPath, promhttp.Handler())
	}

	r.Route("/api/v1/run", func(r chi.Router) {
		r.With(jsonContentTypeMiddleware).Get("/", s.getRun)
		r.Get("/progress", s.streamProgress)
	})

	return r
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler reports liveness. The process is alive whenever it answers.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports readiness, which requires a healthy database.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "database": "not_configured"})
		return
	}
	health := s.health.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}

// getRun handles GET /api/v1/run.
func (s *Server) getRun(w http.ResponseWriter, _ *http.Request) {
	if s.run == nil {
		writeError(w, http.StatusNotFound, "no run in progress")
		return
	}
	writeJSON(w, http.StatusOK, s.runToResponse(s.run.Snapshot()))
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
