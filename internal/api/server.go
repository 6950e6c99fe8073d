// Package api provides the HTTP API server for the placement engine.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mnemolabs/placement-engine/internal/api/handlers"
	"github.com/mnemolabs/placement-engine/internal/api/health"
	"github.com/mnemolabs/placement-engine/internal/api/middleware"
	"github.com/mnemolabs/placement-engine/internal/engine"
	"github.com/mnemolabs/placement-engine/internal/metrics"
	"github.com/mnemolabs/placement-engine/internal/store"
	"github.com/mnemolabs/placement-engine/pkg/config"
)

// Version is the current version of the API server.
// This should be set at build time using ldflags.
var Version = "dev"

// Server represents the HTTP API server.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	store         store.Store
	engine        *engine.Engine
	metrics       *metrics.Metrics
	config        *config.Config
	logger        *slog.Logger
	healthChecker *health.Checker
}

// NewServer creates a new API server with the given dependencies. The pinger
// is usually the Postgres store; it is separate from store.Store so tests can
// run against mocks without a database.
func NewServer(cfg *config.Config, st store.Store, eng *engine.Engine, m *metrics.Metrics, pinger health.Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:   st,
		engine:  eng,
		metrics: m,
		config:  cfg,
		logger:  logger,
	}

	s.healthChecker = health.NewChecker(pinger, Version)
	s.setupRouter()
	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Health and metrics endpoints
	r.Get("/health", s.healthChecker.Handler())
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Placement routes (stateful path)
		placementHandler := handlers.NewPlacementHandler(s.store, s.engine, s.logger)
		r.Route("/placement", func(r chi.Router) {
			r.Post("/requests", placementHandler.Create)
			r.Get("/requests", placementHandler.List)
			r.Get("/requests/{requestID}", placementHandler.Get)
		})

		// Quote route (stateless path, never persists)
		quoteHandler := handlers.NewQuoteHandler(s.store, s.engine, s.logger)
		r.Post("/public/placement/quote", quoteHandler.Create)

		// Node directory routes
		nodeHandler := handlers.NewNodeHandler(s.store, s.logger)
		r.Route("/nodes", func(r chi.Router) {
			r.Get("/", nodeHandler.List)
			r.Post("/register", nodeHandler.Register)
			r.Route("/{nodeID}", func(r chi.Router) {
				r.Get("/", nodeHandler.Get)
				r.Post("/telemetry", nodeHandler.ReportTelemetry)
				r.Get("/telemetry", nodeHandler.ListTelemetry)
			})
		})

		// Model profile routes
		profileHandler := handlers.NewProfileHandler(s.store, s.logger)
		r.Route("/model-profiles", func(r chi.Router) {
			r.Post("/", profileHandler.Create)
			r.Get("/", profileHandler.List)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", profileHandler.Get)
				r.Patch("/", profileHandler.Update)
				r.Delete("/", profileHandler.Delete)
			})
		})
	})

	s.router = r
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.APIHost, s.config.APIPort)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
