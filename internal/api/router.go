package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/jughead-core/internal/ball"
)

// healthCheckTimeout bounds each component check on /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = "/ws"
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/palette", s.handlePalette)

		r.Route("/balls", func(r chi.Router) {
			r.Get("/", s.handleListBalls)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetBall)
				r.Put("/address", s.handleBindAddress)
				r.Post("/color", s.handleSendColor)
				r.Get("/history", s.handleHistory)
			})
		})

		r.Get(wsPath, s.handleWebSocket)
	})

	return r
}

// handleHealth reports the server and every registered component.
// Any failing component turns the response into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	components := make(map[string]string, len(s.checks))

	for name, checker := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := checker.HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":     overall,
		"version":    s.version,
		"components": components,
	})
}

// handleMetrics returns transport counters and hub statistics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"uptime_seconds":    int64(time.Since(s.startedAt).Seconds()),
		"websocket_clients": s.hub.ClientCount(),
		"balls":             len(s.dispatcher.States()),
	}
	if s.transport != nil {
		resp["transport"] = s.transport.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePalette returns the predefined colours in display order.
func (s *Server) handlePalette(w http.ResponseWriter, _ *http.Request) {
	type entry struct {
		Name  string     `json:"name"`
		Color ball.Color `json:"color"`
		Hex   string     `json:"hex"`
	}
	palette := ball.Palette()
	out := make([]entry, 0, len(palette))
	for _, nc := range palette {
		out = append(out, entry{Name: nc.Name, Color: nc.Color, Hex: nc.Color.Hex()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"colors": out, "count": len(out)})
}
