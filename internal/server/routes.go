package server

import (
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rootlab/rootlab/internal/observability"
	"github.com/rootlab/rootlab/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	health := s.deps.Health
	if health != nil {
		s.router.Get("/health", health.HealthHandler)
		s.router.Get("/health/live", health.LivenessHandler)
		s.router.Get("/health/ready", health.ReadinessHandler)
		s.router.Get("/health/startup", health.StartupHandler)
	} else {
		for _, path := range []string{"/health", "/health/live", "/health/ready", "/health/startup"} {
			s.router.Get(path, handlers.Unavailable)
		}
	}

	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/metrics", MetricsHandler)

	lessons := &handlers.LessonHandlers{
		Generator:    s.deps.Generator,
		History:      s.deps.History,
		Parser:       s.deps.Parser,
		HistoryLimit: s.deps.HistoryLimit,
		DefaultLevel: s.deps.DefaultLevel,
	}
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/chat", lessons.Chat)
		r.Post("/parse", lessons.Parse)
		r.Post("/lessons", lessons.Create)
		r.Get("/lessons", lessons.List)
		r.Get("/lessons/{id}", lessons.Get)
		r.Delete("/lessons/{id}", lessons.Delete)
	})

	s.registerAdminEndpoint()
}

// registerAdminEndpoint registers the admin signal endpoint when an admin
// token is configured.
func (s *Server) registerAdminEndpoint() {
	logger := observability.ServerLogger
	if s.deps.AdminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no admin token set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.deps.AdminToken,
		RateLimit: 10, // requests per minute
		RateBurst: 5,
		Manager:   nil, // global manager
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
