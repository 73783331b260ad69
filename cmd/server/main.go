package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/fba-replenish/internal/api"
	"github.com/andresuchdata/fba-replenish/internal/cache"
	"github.com/andresuchdata/fba-replenish/internal/config"
	"github.com/andresuchdata/fba-replenish/internal/drive"
	"github.com/andresuchdata/fba-replenish/internal/pipeline/replenishment"
	"github.com/andresuchdata/fba-replenish/internal/repository"
	"github.com/andresuchdata/fba-replenish/internal/repository/postgres"
	"github.com/andresuchdata/fba-replenish/internal/service"
	"github.com/andresuchdata/fba-replenish/internal/source"
	"github.com/andresuchdata/fba-replenish/internal/storage"
	"github.com/andresuchdata/fba-replenish/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
		logger.UseJSON()
	}
	logger.SetLevel(cfg.Server.LogLevel)

	ctx := context.Background()
	pipelineCfg := replenishment.ConfigFromApp(cfg.Replenishment, cfg.Schema)
	schema := source.SchemaFromConfig(cfg.Schema, pipelineCfg.KeyByChannel)
	router := source.NewRouter()

	// Object storage serves s3:// sources and receives published exports
	var objects storage.ObjectStorage
	if cfg.Storage.Endpoint != "" {
		client, err := storage.NewS3Client(cfg.Storage)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize object storage")
		}
		objects = client
		router.Handle("s3", storage.NewFetcher(client))
	}

	if cfg.Drive.CredentialsJSON != "" {
		driveService, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize Google Drive service")
		}
		router.Handle("drive", drive.NewFetcher(driveService))
	}

	mappingLocation := cfg.Replenishment.MappingLocation
	if source.Scheme(mappingLocation) == "db" {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		repo := postgres.NewMappingRepository(db)
		router.HandleTable("db", repository.NewMappingFetcher(repo, pipelineCfg.Columns.MappingSeller, pipelineCfg.Columns.MappingWarehouse))
		if strings.TrimPrefix(mappingLocation, "db://") == "" {
			mappingLocation = "db://" + cfg.Replenishment.MappingTable
		}
	}

	reportCache, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Report cache unavailable, continuing without it")
		reportCache = cache.NewNoopReportCache()
	}

	// Initialize services
	svc := service.NewReplenishmentService(
		replenishment.NewPipeline(pipelineCfg),
		source.NewLoader(router, schema),
		reportCache,
		objects,
	)
	if mappingLocation != "" {
		if _, err := svc.LoadMapping(ctx, mappingLocation); err != nil {
			logger.Log.Warn().Err(err).Msg("Shared SKU mapping not loaded; sessions must upload one")
		}
	}

	// Initialize HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewRouter(&api.Services{ReplenishmentService: svc}, cfg.Server.AllowedOrigins),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
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

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
