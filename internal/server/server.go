package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/parityguard/internal/common"
	"github.com/ternarybob/parityguard/internal/handlers"
)

// Handlers bundles every request handler the router dispatches to.
type Handlers struct {
	Jobs   *handlers.JobHandler
	Runs   *handlers.RunHandler
	System *handlers.SystemHandler
}

// Server manages the HTTP server and routes.
type Server struct {
	config   *common.Config
	logger   arbor.ILogger
	handlers *Handlers
	router   *http.ServeMux
	server   *http.Server
}

// New creates a new HTTP server wired to the given handlers.
func New(config *common.Config, logger arbor.ILogger, h *Handlers) *Server {
	s := &Server{config: config, logger: logger, handlers: h}

	s.router = s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(s.router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.logger.Info().Str("address", addr).Msg("HTTP server starting")
	s.logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", s.config.Server.Host, s.config.Server.Port)).
		Msg("REST API ready")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
