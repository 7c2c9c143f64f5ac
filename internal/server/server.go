// Package server provides the HTTP server and routing for the estimation service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/qpricing/internal/modules/estimation"
	estimationhandlers "github.com/aristath/qpricing/internal/modules/estimation/handlers"
	"github.com/aristath/qpricing/internal/modules/history"
)

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Estimator estimation.Estimator
	Runs      history.RunLister // nil leaves /api/runs unregistered
	Journal   HealthCheck       // reported by /health when set
	Port      int
	DevMode   bool
	Version   string
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	estimator estimation.Estimator
	runs      history.RunLister
	journal   HealthCheck
	port      int
	version   string
	stats     StatsFunc
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		estimator: cfg.Estimator,
		runs:      cfg.Runs,
		journal:   cfg.Journal,
		port:      cfg.Port,
		version:   version,
		stats:     hostStats,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	// Estimation of a 10-qubit grid at 12 evaluation qubits stays well under a minute
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 65 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		estimationHandler := estimationhandlers.NewHandler(s.estimator, s.log)
		estimationHandler.RegisterRoutes(r)

		if s.runs != nil {
			history.NewRunHandlers(s.runs, s.log).RegisterRoutes(r)
		}
	})
}

// Router exposes the configured router (used by tests and embedding callers)
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().
		Int("port", s.port).
		Str("backend", s.estimator.Name()).
		Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
