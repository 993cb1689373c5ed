// Package httptransport assembles the HTTP API. Handlers stay thin; all
// business rules live in the domain services.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "intia/internal/audit/handler"
	authhandler "intia/internal/auth/handler"
	branchhandler "intia/internal/branch/handler"
	clienthandler "intia/internal/client/handler"
	"intia/internal/platform/metrics"
	"intia/internal/platform/middleware"
	policyhandler "intia/internal/policy/handler"
	userhandler "intia/internal/user/handler"
	"intia/pkg/platform/httputil"
)

// Handlers collects the per-domain HTTP handlers the router mounts.
type Handlers struct {
	Auth     *authhandler.Handler
	Branches *branchhandler.Handler
	Clients  *clienthandler.Handler
	Policies *policyhandler.Handler
	Users    *userhandler.Handler
	Audit    *audithandler.Handler
}

// Deps are the cross-cutting pieces the middleware chain needs.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	TokenValidator middleware.TokenValidator
	UserLoader     middleware.UserLoader
	RequestTimeout time.Duration
}

// NewRouter wires the full API under /api/v1. Health and metrics stay
// outside the versioned, authenticated tree.
func NewRouter(h Handlers, deps Deps) http.Handler {
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(chimiddleware.Timeout(deps.RequestTimeout))
	r.Use(middleware.Latency(deps.Metrics))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	requireAuth := middleware.RequireAuth(deps.TokenValidator, deps.UserLoader, deps.Logger)
	requireAdmin := middleware.RequireAdmin(deps.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		// Login takes a form body, so the JSON content-type gate applies
		// only past this point.
		r.Post("/auth/login", h.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/auth/logout", h.Auth.Logout)
			r.Get("/auth/me", h.Auth.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(middleware.ContentTypeJSON)

			r.Route("/branches", func(r chi.Router) {
				r.Get("/", h.Branches.List)
				r.Get("/{branchID}", h.Branches.Get)
			})

			r.Route("/clients", func(r chi.Router) {
				r.Get("/", h.Clients.List)
				r.Post("/", h.Clients.Create)
				r.Get("/{clientID}", h.Clients.Get)
				r.Put("/{clientID}", h.Clients.Update)
				r.Delete("/{clientID}", h.Clients.Delete)
			})

			r.Route("/policies", func(r chi.Router) {
				r.Get("/", h.Policies.List)
				r.Post("/", h.Policies.Create)
				r.Get("/{policyID}", h.Policies.Get)
				r.Put("/{policyID}", h.Policies.Update)
				r.Delete("/{policyID}", h.Policies.Delete)
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/", h.Users.List)
				r.Get("/{userID}", h.Users.Get)
			})

			r.Route("/audit-logs", func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/", h.Audit.List)
			})
		})
	})

	return r
}
