package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/univio-api/internal/config"
	"github.com/univio-api/internal/metrics"
	"github.com/univio-api/internal/transport/http/handler"
	appmiddleware "github.com/univio-api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router. ctx bounds the
// background work of the rate limiter.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10 per client IP on the public write endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10, appmiddleware.ParseTrustedProxies(cfg.TrustedProxies))

	checks := make(map[string]handler.Checker, len(deps.Checks))
	for name, fn := range deps.Checks {
		checks[name] = fn
	}
	healthH := handler.NewHealthHandler(checks)
	verifyH := handler.NewVerificationHandler(deps.Challenges)
	registrationH := handler.NewRegistrationHandler(deps.Registration)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Metrics))
	}

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes ────────────────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)

		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)
			r.Post("/verification/send", verifyH.Send)
			r.Post("/verification/verify", verifyH.Verify)
			r.Post("/registration", registrationH.Register)
			r.Post("/registration/repair", registrationH.Repair)
			if deps.Sessions != nil {
				r.Post("/sessions/login", handler.NewSessionHandler(deps.Sessions).Login)
			}
			if deps.Recovery != nil {
				r.Post("/password-recovery/{action}", handler.NewPasswordRecoveryHandler(deps.Recovery).Action)
			}
		})

		if deps.Catalog != nil {
			catalogH := handler.NewCatalogHandler(deps.Catalog)
			r.Get("/catalog/institutions", catalogH.Institutions)
			r.Get("/catalog/majors", catalogH.Majors)
			r.Get("/catalog/courses", catalogH.Courses)
		} else {
			slog.Warn("catalog routes disabled")
		}

		// ── Authenticated routes ─────────────────────────────────────────────
		if deps.Tokens == nil || deps.Profiles == nil {
			slog.Warn("token verifier not configured, profile routes disabled")
			return
		}
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.Tokens))

			profileH := handler.NewProfileHandler(deps.Profiles)
			r.Get("/profile", profileH.Get)
			r.Put("/profile/academic", profileH.UpdateAcademic)
		})
	})

	return r
}
