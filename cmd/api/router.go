package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tabdeck/tabdeck/internal/config"
	"github.com/tabdeck/tabdeck/internal/handler"
	"github.com/tabdeck/tabdeck/internal/metrics"
	"github.com/tabdeck/tabdeck/internal/middleware"
)

// routerDeps collects what setupRouter wires together.
type routerDeps struct {
	cfg    *config.Config
	logger *slog.Logger

	recorder       metrics.Recorder
	metricsHandler http.Handler // optional
	limiter        middleware.IPRateLimiter
	authenticator  middleware.TokenAuthenticator

	health     *handler.HealthHandler
	auth       *handler.AuthHandler
	quickLinks *handler.QuickLinksHandler
	images     *handler.ImageHandler
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(d routerDeps) *chi.Mux {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = d.cfg.GetCORSAllowedOrigins()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.logger))
	r.Use(middleware.Metrics(d.recorder))
	r.Use(middleware.Recoverer(d.logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: d.cfg.IsDevelopment()}))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(d.cfg.MaxRequestBodySize))

	// Health and metrics
	r.Get("/healthz", d.health.Healthz)
	r.Get("/readyz", d.health.Readyz)
	if d.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.metricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		if d.limiter != nil && d.cfg.AuthRateLimitEnabled {
			r.Use(middleware.RateLimitIP(middleware.RateLimitConfig{
				Logger:  d.logger,
				Limiter: d.limiter,
				Enabled: true,
				Scope:   "auth",
				RPS:     d.cfg.AuthRateLimitRPS,
				Burst:   d.cfg.AuthRateLimitBurst,
			}))
		}
		r.Use(middleware.RequireJSON)

		r.Post("/register", d.auth.Register)
		r.Post("/login", d.auth.Login)
		r.Post("/refresh", d.auth.Refresh)
		r.Post("/logout", d.auth.Logout)
	})

	r.Route("/quicklinks", func(r chi.Router) {
		r.Use(middleware.Auth(middleware.AuthConfig{
			Logger:        d.logger,
			Authenticator: d.authenticator,
		}))

		r.Get("/", d.quickLinks.Get)
		r.With(middleware.RequireJSON).Post("/", d.quickLinks.Set)
	})

	r.Get("/images/latest", d.images.Latest)

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}
