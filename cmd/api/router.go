package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/quickai/quickai/internal/cache"
	"github.com/quickai/quickai/internal/config"
	"github.com/quickai/quickai/internal/handler"
	"github.com/quickai/quickai/internal/identity"
	"github.com/quickai/quickai/internal/metrics"
	"github.com/quickai/quickai/internal/middleware"
	"github.com/quickai/quickai/internal/repository"
)

// routerDeps carries everything setupRouter wires into handlers.
type routerDeps struct {
	cfg          *config.Config
	logger       *slog.Logger
	repo         *repository.Repository
	cache        *cache.Cache
	sessions     *identity.Verifier
	entitlements *identity.Adapter
	metrics      *metrics.PrometheusRecorder
	pipeline     handler.AIService
	providers    map[string]bool
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(d routerDeps) *chi.Mux {
	cfg := d.cfg
	r := chi.NewRouter()

	h := handler.New(cfg.Version)
	healthHandler := handler.NewHealthHandler(d.logger, d.providers,
		handler.HealthCheck{Name: "postgres", Checker: d.repo},
		handler.HealthCheck{Name: "redis", Checker: d.cache},
	)
	aiHandler := handler.NewAIHandler(d.pipeline, d.logger, cfg.MaxUploadSize)
	userHandler := handler.NewUserHandler(d.repo, d.entitlements, d.logger)
	apiKeyHandler := handler.NewAPIKeyHandler(d.logger, d.repo, cfg.KeyEnv())
	adminHandler := handler.NewAdminHandler(d.repo, d.logger)

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.logger))
	r.Use(middleware.Recoverer(d.logger))
	r.Use(middleware.Security(cfg.IsDevelopment()))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.GetCORSAllowedOrigins())))

	// Probes (no auth required)
	r.Get("/", h.Index)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Method(http.MethodGet, "/metrics", d.metrics.Handler())

	authCfg := middleware.AuthConfig{
		Logger:       d.logger,
		Keys:         d.repo,
		Cache:        d.cache,
		Entitlements: d.entitlements,
		Metrics:      d.metrics,
	}
	// A nil *Verifier must not become a non-nil interface.
	if d.sessions != nil {
		authCfg.Sessions = d.sessions
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:  d.logger,
		Limiter: d.cache,
		Metrics: d.metrics,
		Enabled: cfg.RateLimitEnabled,
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(authCfg))
		r.Use(middleware.RateLimitUser(rateLimitCfg))

		r.Route("/ai", func(r chi.Router) {
			r.Use(middleware.RequireWrite())
			r.Use(middleware.Deadline(cfg.UpstreamTimeout))

			r.Group(func(r chi.Router) {
				r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))
				r.Post("/generate-article", aiHandler.GenerateArticle)
				r.Post("/generate-blog-title", aiHandler.GenerateBlogTitle)
				r.Post("/generate-image", aiHandler.GenerateImage)
			})

			// Multipart routes carry the file itself.
			r.Group(func(r chi.Router) {
				r.Use(middleware.MaxBodySize(cfg.MaxUploadSize + 1<<20))
				r.Post("/remove-background", aiHandler.RemoveBackground)
				r.Post("/remove-object", aiHandler.RemoveObject)
				r.Post("/resume-review", aiHandler.ReviewResume)
			})
		})

		r.Route("/user", func(r chi.Router) {
			r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))
			r.With(middleware.RequireRead()).Get("/get-user-creations", userHandler.GetUserCreations)
			r.With(middleware.RequireRead()).Get("/get-published-creations", userHandler.GetPublishedCreations)
			r.With(middleware.RequireRead()).Get("/entitlement", userHandler.GetEntitlement)

			r.Route("/api-keys", func(r chi.Router) {
				r.With(middleware.RequireRead()).Get("/", apiKeyHandler.ListAPIKeys)
				r.With(middleware.RequireWrite()).Post("/", apiKeyHandler.CreateAPIKey)
				r.With(middleware.RequireWrite()).Delete("/{key_id}", apiKeyHandler.RevokeAPIKey)
				r.With(middleware.RequireWrite()).Post("/{key_id}/rotate", apiKeyHandler.RotateAPIKey)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin())
			r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))
			r.Post("/users/{user_id}/plan", adminHandler.SetPlan)
		})
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
