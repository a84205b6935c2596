// Package httptransport assembles the public HTTP surface from the
// component handlers.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"carbonmint/internal/platform/metrics"
	"carbonmint/pkg/platform/httputil"
	authmw "carbonmint/pkg/platform/middleware/auth"
	request "carbonmint/pkg/platform/middleware/request"
	"carbonmint/pkg/platform/middleware/requesttime"
)

// Registrar mounts public query routes.
type Registrar interface {
	Register(r chi.Router)
}

// AuthenticatedRegistrar mounts routes that need a caller identity.
type AuthenticatedRegistrar interface {
	RegisterAuthenticated(r chi.Router)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Tokens   authmw.TokenValidator
	Handlers []Registrar
	Checks   map[string]HealthCheck
	// MetricsHandler serves /metrics; nil disables the route.
	MetricsHandler http.Handler
}

// NewRouter wires middleware, health endpoints and every handler. Handlers
// that also implement AuthenticatedRegistrar get their mutating routes
// mounted behind bearer authentication.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(request.Recovery(logger))
	r.Use(request.Logger(logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(cfg.Checks))
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	for _, h := range cfg.Handlers {
		h.Register(r)
	}
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(cfg.Tokens, logger))
		for _, h := range cfg.Handlers {
			if ah, ok := h.(AuthenticatedRegistrar); ok {
				ah.RegisterAuthenticated(r)
			}
		}
	})
	return r
}

func readiness(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}
		httputil.WriteJSON(w, status, map[string]any{"checks": results})
	}
}
