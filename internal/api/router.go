package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/api/handlers"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/config"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/logger"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/proxy"
	"github.com/baechuer/real-time-ressys/admin-bff/middleware"
)

type Deps struct {
	Config *config.Config
	Events handlers.EventService
	// Redis enables the shared rate limiter; nil falls back to per-instance limits.
	Redis     *redis.Client
	Readiness []handlers.ReadinessChecker
}

func NewRouter(d Deps) (http.Handler, error) {
	cfg := d.Config
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger.Log))
	r.Use(middleware.Tracing("admin-bff"))
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders)

	if cfg.RLEnabled && d.Redis == nil {
		r.Use(httprate.LimitByIP(cfg.RLLimit, cfg.RLWindow))
	}

	ready := handlers.NewReadinessHandler(d.Readiness...)
	r.Get("/api/healthz", ready.Healthz)
	r.Get("/api/readyz", ready.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	eh := handlers.NewEventHandler(d.Events, cfg.DefaultPageSize)

	var proxyErr error
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RequireRole("admin", "moderator"))
		if cfg.RLEnabled && d.Redis != nil {
			r.Use(middleware.NewRedisRateLimiter(d.Redis).Middleware(middleware.RateLimitConfig{
				Limit:  cfg.RLLimit,
				Window: cfg.RLWindow,
				KeyFn:  middleware.KeyByUser,
			}))
		}

		r.Route("/events", func(r chi.Router) {
			r.Get("/", eh.ListEvents)
			r.Get("/dashboard", eh.Dashboard)
			r.Post("/refresh", eh.Refresh)
			r.Put("/{id}", eh.UpdateEvent)
			r.Delete("/{id}", eh.DeleteEvent)
			r.Patch("/{id}/status", eh.UpdateStatus)
		})

		// Map /api/admin/{resource} -> /admin/v1/{resource}
		proxyErr = proxy.Register(r, cfg.AdminServiceURL, "/admin/v1")
	})
	if proxyErr != nil {
		return nil, fmt.Errorf("admin service proxy: %w", proxyErr)
	}

	logger.Log.Info().
		Str("events", cfg.EventServiceURL).
		Str("admin", cfg.AdminServiceURL+"/admin/v1").
		Msg("routes mounted")

	return r, nil
}
