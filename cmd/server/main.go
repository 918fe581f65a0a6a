// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pawcare-back/internal/analysis"
	"pawcare-back/internal/auth"
	"pawcare-back/internal/config"
	"pawcare-back/internal/database"
	"pawcare-back/internal/handlers"
	"pawcare-back/internal/logger"
	"pawcare-back/internal/notify"
	"pawcare-back/internal/observability"
	"pawcare-back/internal/repository"
	"pawcare-back/internal/storage"
	"pawcare-back/pkg/aiclient"
	"pawcare-back/pkg/media"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.InitLogger(cfg.OTEL.ServiceName, cfg.Environment, cfg.Log.Level, cfg.Log.File)
	if envErr != nil {
		log.Info().Msg("No .env file found")
	}
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	if cfg.OTEL.Enabled {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := database.MigrateDB(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	var store storage.Store
	switch cfg.Storage.Backend {
	case "minio":
		store, err = storage.NewMinIOStore(ctx, &cfg.MinIO)
	default:
		store, err = storage.NewLocalStore(cfg.Storage.Dir)
	}
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("Failed to initialize file storage")
	}
	gateway := storage.NewGateway(store, media.NewFFProbe(cfg.Storage.FFProbePath))

	var bus notify.Bus = notify.NewMemoryBus()
	if cfg.Redis.Enabled {
		redisBus, err := notify.NewRedisBus(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, status events stay in-process")
		} else {
			defer redisBus.Close()
			bus = redisBus
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis status events enabled")
		}
	}

	dispatcher := analysis.NewDispatcher()
	dogs := repository.NewDogRepository(db)
	orch := analysis.NewOrchestrator(
		repository.NewHealthLogRepository(db),
		dogs,
		gateway,
		aiclient.New(aiclient.Config{
			BaseURL:        cfg.AI.URL,
			ProbeTimeout:   cfg.AI.ProbeTimeout,
			RequestTimeout: cfg.AI.RequestTimeout,
		}),
		bus,
		metrics,
		dispatcher,
		analysis.Options{
			StartDelay:   cfg.Analysis.StartDelay,
			ModelVersion: cfg.Analysis.ModelVersion,
		},
	)

	router := handlers.NewRouter(handlers.Deps{
		DB:             db,
		Tokens:         auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Orchestrator:   orch,
		Dogs:           dogs,
		Files:          gateway,
		Events:         bus,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		CookieDomain:   cfg.Auth.CookieDomain,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// let running analyses write their final status
	if err := dispatcher.WaitContext(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Background analyses still running at exit")
	}

	log.Info().Msg("Server exited")
}
