// Package main provides the entrypoint for the SkyCast API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/skycastapp/skycast/internal/api"
	"github.com/skycastapp/skycast/internal/api/handler"
	"github.com/skycastapp/skycast/internal/api/middleware"
	"github.com/skycastapp/skycast/internal/cache"
	"github.com/skycastapp/skycast/internal/cards"
	"github.com/skycastapp/skycast/internal/coordinator"
	"github.com/skycastapp/skycast/internal/database"
	"github.com/skycastapp/skycast/internal/gateway"
	"github.com/skycastapp/skycast/internal/geocode"
	geoamap "github.com/skycastapp/skycast/internal/geocode/amap"
	"github.com/skycastapp/skycast/internal/netmon"
	"github.com/skycastapp/skycast/internal/region"
	"github.com/skycastapp/skycast/internal/telemetry"
	"github.com/skycastapp/skycast/internal/weather/amap"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "skycast-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting SkyCast API")

	// Get configuration from environment
	port := getEnvOrDefault("APP_PORT", "8080")
	env := getEnvOrDefault("APP_ENV", "development")
	otlpEndpoint := getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	defaultCity := getEnvOrDefault("DEFAULT_CITY", "北京市")
	datasetPath := getEnvOrDefault("REGION_DATASET", "data/regions.csv")
	storageDriver := getEnvOrDefault("STORAGE_DRIVER", "memory")

	apiKey := os.Getenv("AMAP_API_KEY")
	if apiKey == "" {
		log.Warn().Msg("AMAP_API_KEY not set - provider calls will fail")
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Pick the storage driver: Postgres for durable deployments, memory
	// for local development.
	var (
		store      cache.Store
		regionRepo region.Repository
		readyCheck map[string]handler.ReadyCheck
	)

	switch storageDriver {
	case "postgres":
		dbConfig := database.ConfigFromEnv()
		var pool *pgxpool.Pool
		pool, err = database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")

		store = cache.NewPostgresStore(pool)
		regionRepo = region.NewPostgresRepository(pool)
		readyCheck = map[string]handler.ReadyCheck{
			"postgres": pool.Ping,
		}

	case "memory":
		store = cache.NewInMemoryStore()
		regionRepo = region.NewInMemoryRepository()
		log.Info().Msg("using in-memory storage")

	default:
		log.Fatal().Str("driver", storageDriver).Msg("unknown STORAGE_DRIVER")
	}

	// Seed the region reference table from the bundled dataset.
	if dataset, openErr := os.Open(datasetPath); openErr != nil {
		log.Warn().Err(openErr).Str("path", datasetPath).Msg("region dataset not loaded")
	} else {
		seeder := region.NewSeeder(regionRepo, log)
		if _, seedErr := seeder.Seed(ctx, dataset); seedErr != nil {
			log.Fatal().Err(seedErr).Msg("failed to seed region dataset")
		}
		dataset.Close()
	}
	regionService := region.NewService(regionRepo)

	// One gateway fronts every outbound provider call.
	gw := gateway.New(gateway.Config{Logger: log})
	defer gw.Close()

	weatherProvider := amap.NewClient(amap.ClientConfig{
		APIKey:  apiKey,
		Gateway: gw,
		Logger:  log,
	})

	geocoder := geocode.NewService(geoamap.NewClient(geoamap.ClientConfig{
		APIKey:  apiKey,
		Gateway: gw,
		Logger:  log,
	}), log)

	monitor := netmon.NewMonitor(netmon.Config{Logger: log})

	bundles := cache.NewBundleCache(store, "")

	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	coord := coordinator.New(coordinator.Config{
		Provider:    weatherProvider,
		Regions:     regionService,
		Bundles:     bundles,
		Monitor:     monitor,
		Geocoder:    geocoder,
		DefaultCity: defaultCity,
		Metrics:     providerMetrics,
		Logger:      log,
	})
	if err = coord.Warm(ctx); err != nil {
		log.Error().Err(err).Msg("failed to warm bundle state")
	}

	cardManager, err := cards.NewManager(ctx, store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load card list")
	}
	log.Info().Int("cards", len(cardManager.List())).Msg("card list loaded")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
		Coordinator: coord,
		Regions:     regionService,
		Cards:       cardManager,
		ReadyChecks: readyCheck,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
