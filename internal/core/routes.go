package core

import (
	"time"

	"github.com/go-chi/chi/v5"
)

// defaultRequestTimeout is the soft timeout applied to request contexts.
// Set to Lambda timeout minus 1 second in production.
const defaultRequestTimeout = 29 * time.Second

// MountRoutes defines the top-level routing hierarchy: the global middleware
// chain, the /v1 group, and the public health check.
func (s *Server) MountRoutes() {
	s.registerGlobalMiddleware()

	s.router.Route("/v1", s.mountV1)

	s.router.Get("/health", s.HandleHealth)
}

// registerGlobalMiddleware applies middleware in strict order.
//
// Ordering rationale:
//  1. Recoverer       - outermost, catches all panics.
//  2. ContextTimeout  - soft deadline before the Lambda hard timeout.
//  3. RequestID       - correlation ID for logs and traces.
//  4. SecurityHeaders - present on every response, including errors.
//  5. RequestLogger   - structured request logging.
//  6. APIKeyAuth      - rejects unauthenticated callers before any handler.
func (s *Server) registerGlobalMiddleware() {
	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(defaultRequestTimeout))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(s.SecurityHeadersMiddleware)
	s.router.Use(RequestLogger(s.Logger))
	s.router.Use(s.APIKeyAuthMiddleware)
}

// mountV1 registers all v1 endpoints via the registrars populated by the
// application entry point. The indirection avoids import cycles between
// core and handler packages.
func (s *Server) mountV1(r chi.Router) {
	for _, registrar := range s.V1RouteRegistrars {
		registrar(r)
	}
}
