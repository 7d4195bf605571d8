package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(middleware.RequestSize(maxRequestBodySize))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/parameters", func(r chi.Router) {
			r.Get("/", s.handleListParameters)
			r.Get("/{name}", s.handleGetParameter)
			r.Put("/{name}", s.handleSetParameter)
			r.Post("/{name}/reset", s.handleResetParameter)
		})

		r.Route("/host", func(r chi.Router) {
			r.Get("/", s.handleListHostSlots)

			r.Route("/{idx}", func(r chi.Router) {
				r.Get("/", s.handleGetHostSlot)
				r.Put("/", s.handleSetHostSlot)
				r.Post("/gesture/{action}", s.handleHostGesture)
			})
		})

		r.Post("/snapshot", s.handleSnapshot)

		r.Route("/state", func(r chi.Router) {
			r.Post("/save", s.handleSaveState)
			r.Post("/load", s.handleLoadState)
		})

		r.Get(s.wsPath(), s.handleWebSocket)
	})

	return r
}

// wsPath returns the WebSocket route under /api/v1, "/ws" unless configured.
func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return "/" + strings.TrimPrefix(s.wsCfg.Path, "/")
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"version":     s.version,
		"mode":        string(s.registry.Mode()),
		"instance_id": s.instance.ID,
		"instance":    s.instance.Name,
	})
}
