// Package api provides the HTTP API for SkyCast.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/skycastapp/skycast/internal/api/handler"
	"github.com/skycastapp/skycast/internal/api/middleware"
	"github.com/skycastapp/skycast/internal/cards"
	"github.com/skycastapp/skycast/internal/coordinator"
	"github.com/skycastapp/skycast/internal/region"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	Coordinator *coordinator.Coordinator
	Regions     *region.Service
	Cards       *cards.Manager
	ReadyChecks map[string]handler.ReadyCheck
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "skycast-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.ReadyChecks)
	weatherHandler := handler.NewWeatherHandler(cfg.Coordinator)
	cardsHandler := handler.NewCardsHandler(cfg.Cards, cfg.Coordinator)
	regionsHandler := handler.NewRegionsHandler(cfg.Regions)

	batchRateLimit := middleware.RateLimitByIP(middleware.BatchRateLimit)       // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})

		// Weather fetches - the batch endpoint fans out upstream, so it
		// gets the stricter limit.
		r.With(standardRateLimit).Get("/weather", weatherHandler.GetByCoordinate)
		r.With(standardRateLimit).Get("/weather/{city}", weatherHandler.GetCity)
		r.With(batchRateLimit).Post("/weather:batch", weatherHandler.Batch)

		// Region search
		r.With(standardRateLimit).Get("/regions/search", regionsHandler.Search)

		// Pinned city cards
		r.Route("/cards", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", cardsHandler.List)
			r.Post("/", cardsHandler.Create)
			r.Delete("/{cardId}", cardsHandler.Delete)
		})
		r.With(standardRateLimit).Put("/cards:order", cardsHandler.Reorder)
	})

	return r
}
