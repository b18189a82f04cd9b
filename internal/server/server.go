package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"quarterly-status/internal/core"
	"quarterly-status/internal/server/handlers"
)

// Server hosts the routes of every enabled feature
type Server struct {
	config   *core.Config
	logger   *core.Logger
	registry *core.Registry
	router   chi.Router
	server   *http.Server
}

// New creates a server over an already populated registry
func New(config *core.Config, logger *core.Logger, registry *core.Registry) *Server {
	return &Server{
		config:   config,
		logger:   logger,
		registry: registry,
	}
}

// Init initializes every enabled feature and builds the router
func (s *Server) Init(ctx context.Context) error {
	if err := s.registry.InitAll(ctx); err != nil {
		return fmt.Errorf("failed to initialize features: %w", err)
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

func (s *Server) setupRoutes() {
	system := handlers.NewSystemHandler(s.logger)

	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(requestLogger(s.logger))
	mux.Use(corsMiddleware(s.config.CORS.AllowedOrigins))
	mux.Use(recoverer(s.logger))

	mux.NotFound(system.NotFoundHandler)
	mux.MethodNotAllowed(system.NotFoundHandler)

	mux.Get("/health", system.HealthCheckHandler)

	for _, route := range s.registry.GetAllRoutes() {
		for _, method := range route.Methods {
			mux.Method(method, route.Path, route.Handler)
		}
	}

	s.router = mux
}

// Handler returns the router. Init must have been called.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start launches feature background work and serves HTTP until shutdown
func (s *Server) Start(ctx context.Context) error {
	if s.server == nil {
		return errors.New("server not initialized")
	}

	if err := s.registry.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start features: %w", err)
	}

	s.logger.Info("Starting server", "host", s.config.Server.Host, "port", s.config.Server.Port)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then shuts every feature down
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var httpErr error
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			httpErr = fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}

	if err := s.registry.ShutdownAll(ctx); err != nil {
		s.logger.Error("Failed to shutdown features", "error", err)
	}

	return httpErr
}
