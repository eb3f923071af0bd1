package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/sparecast/sparecast/internal/api"
	"github.com/sparecast/sparecast/internal/cache"
	"github.com/sparecast/sparecast/internal/config"
	"github.com/sparecast/sparecast/internal/engine"
	"github.com/sparecast/sparecast/internal/repository/postgres"
	"github.com/sparecast/sparecast/internal/service"
	"github.com/sparecast/sparecast/internal/storage"
	"github.com/sparecast/sparecast/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Initialize repositories
	itemRepo := postgres.NewItemRepository(db)
	consumptionRepo := postgres.NewConsumptionRepository(db)
	resultRepo := postgres.NewResultRepository(db)
	adjustmentRepo := postgres.NewAdjustmentRepository(db)
	runRepo := postgres.NewRunRepository(db)

	// Optional run snapshot export
	var exporter engine.Exporter
	if cfg.Export.Enabled {
		store, err := storage.NewMinioClient(cfg.Export)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize object storage")
		}
		exporter = storage.NewRunExporter(store)
	}

	eng := engine.New(engine.Deps{
		Items:       itemRepo,
		Consumption: consumptionRepo,
		Ledger:      itemRepo,
		Results:     resultRepo,
		Runs:        runRepo,
		Exporter:    exporter,
	}, cfg.Engine)

	// Initialize cache and services
	classifyCache, err := cache.NewClassificationCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Cache unavailable, continuing without it")
		classifyCache = cache.NewNoopClassificationCache()
	}

	classifyService := service.NewClassifyService(resultRepo, adjustmentRepo, classifyCache)
	forecastService := service.NewForecastService(eng, resultRepo, runRepo)

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{
		ClassifyService: classifyService,
		ForecastService: forecastService,
	}, cfg.Server.AllowedOrigins)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Schedule the automatic monthly run
	scheduler := cron.New()
	if cfg.Engine.CronSpec != "" {
		_, err := scheduler.AddFunc(cfg.Engine.CronSpec, func() {
			logger.Log.Info().Msg("Scheduled engine run starting")
			if _, err := eng.RunOnce(context.Background()); err != nil {
				logger.Log.Error().Err(err).Msg("Scheduled engine run failed")
				return
			}
			classifyService.InvalidateCache(context.Background())
		})
		if err != nil {
			logger.Log.Fatal().Err(err).Str("spec", cfg.Engine.CronSpec).Msg("Invalid cron spec")
		}
		scheduler.Start()
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	cronCtx := scheduler.Stop()
	<-cronCtx.Done()

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
