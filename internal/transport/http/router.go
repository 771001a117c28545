// Package httptransport assembles the public HTTP surface: middleware
// chain, authenticated API routes, and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ownershiphandler "salegate/internal/ownership/handler"
	salehandler "salegate/internal/sale/handler"
	"salegate/pkg/platform/httputil"
	"salegate/pkg/platform/middleware/auth"
	"salegate/pkg/platform/middleware/metadata"
	"salegate/pkg/platform/middleware/request"
	"salegate/pkg/platform/middleware/requesttime"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router needs; nil health checkers are
// skipped.
type Deps struct {
	Ownership    *ownershiphandler.Handler
	Sale         *salehandler.Handler
	JWTValidator auth.JWTValidator
	Logger       *slog.Logger
	Health       map[string]HealthChecker
}

// NewRouter wires the middleware chain and mounts all endpoints.
// /metrics and /healthz stay outside the auth boundary.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", healthHandler(deps))

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(deps.JWTValidator, deps.Logger))
		deps.Ownership.Register(r)
		deps.Sale.Register(r)
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK

		if len(deps.Health) > 0 {
			resp.Checks = make(map[string]string, len(deps.Health))
			for name, checker := range deps.Health {
				if checker == nil {
					continue
				}
				if err := checker.Health(ctx); err != nil {
					resp.Checks[name] = err.Error()
					resp.Status = "degraded"
					status = http.StatusServiceUnavailable
					continue
				}
				resp.Checks[name] = "ok"
			}
		}

		httputil.WriteJSON(w, status, resp)
	}
}
