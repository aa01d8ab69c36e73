package routes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/attune/internal/auth"
	"github.com/BradenHooton/attune/internal/handlers"
	"github.com/BradenHooton/attune/internal/middleware"
	pkghttp "github.com/BradenHooton/attune/pkg/http"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies are the handlers and collaborators wired into the router.
type Dependencies struct {
	Engine           *handlers.EngineHandler
	Admin            *handlers.AdminHandler
	TokenManager     *auth.TokenManager
	IPs              *pkghttp.IPResolver
	Metrics          http.Handler
	Health           HealthChecker
	Env              string
	AllowedOrigins   []string
	AttemptRateLimit int
	RequestTimeout   time.Duration
}

// NewRouter builds the HTTP surface.
func NewRouter(deps Dependencies, logger *slog.Logger) chi.Router {
	router := chi.NewRouter()

	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	router.Use(chimw.RequestID)
	router.Use(middleware.SecureLogger(logger, deps.IPs))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: deps.Env}))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(deps.AllowedOrigins)))
	router.Use(chimw.Timeout(timeout))

	router.Get("/health", healthHandler(deps.Health))
	if deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	RegisterRoutes(router, deps)
	return router
}

// RegisterRoutes registers the versioned API
func RegisterRoutes(router chi.Router, deps Dependencies) {
	limited := middleware.RateLimitByIP(middleware.AttemptRateLimit(deps.AttemptRateLimit), deps.IPs)

	router.Route("/v1", func(r chi.Router) {
		r.With(limited).Post("/enroll", deps.Engine.Enroll)
		r.With(limited).Post("/attempts", deps.Engine.Attempt)
		r.Post("/analyze/emotion", deps.Engine.AnalyzeEmotion)
		r.Post("/simulate", deps.Engine.Simulate)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin(deps.TokenManager))

			r.Get("/statistics", deps.Admin.GetStatistics)
			r.Get("/attempts", deps.Admin.ListAttempts)
			r.Get("/alerts", deps.Admin.ListAlerts)
			r.Get("/alerts/critical", deps.Admin.CriticalAlerts)
			r.Post("/alerts/{id}/acknowledge", deps.Admin.AcknowledgeAlert)
			r.Post("/alerts/{id}/resolve", deps.Admin.ResolveAlert)
		})
	})
}

func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.HealthCheck(r.Context()); err != nil {
				pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
				return
			}
		}
		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
