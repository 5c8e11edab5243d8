// Package core provides the API chassis for the RallyPoint token API.
// It creates a chi router compatible with both standard HTTP (for local dev)
// and AWS Lambda Proxy Integration (via chiadapter). It enforces cross-cutting
// concerns -- security, logging, and error handling -- before requests reach
// domain-specific handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rallypoint/internal/config"
)

// Server encapsulates the token API's dependencies, allowing for easy
// injection during testing and distinct configuration per environment.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator

	// HealthProbes are checked by GET /health. Optional.
	HealthProbes []HealthProbe

	// V1RouteRegistrars register domain handler routes under /v1. Populated
	// by the application entry point to avoid import cycles between core
	// and handler packages.
	V1RouteRegistrars []func(chi.Router)

	// Closers run in order during Shutdown (db pools etc.).
	Closers []func()

	router *chi.Mux
}

// NewServer initializes dependencies and prepares the server for route
// mounting. The caller mounts routes via MountRoutes after construction;
// the separation lets tests customize route registration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router. Used by
// http.ListenAndServe (local) and chiadapter.New (Lambda).
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown performs a graceful termination of server resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	for _, closer := range s.Closers {
		closer()
	}

	s.Logger.Info("server shutdown complete")
	return nil
}
