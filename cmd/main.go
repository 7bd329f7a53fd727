package main

import (
	"context"
	"fmt"
	"os"

	"github.com/velabs/studioforge-backend/internal/db"
	"github.com/velabs/studioforge-backend/internal/handlers"
	"github.com/velabs/studioforge-backend/internal/jobs"
	"github.com/velabs/studioforge-backend/internal/jobs/pipeline"
	"github.com/velabs/studioforge-backend/internal/jobs/render"
	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/observability"
	"github.com/velabs/studioforge-backend/internal/repos"
	"github.com/velabs/studioforge-backend/internal/server"
	"github.com/velabs/studioforge-backend/internal/services"
	"github.com/velabs/studioforge-backend/internal/sse"
	"github.com/velabs/studioforge-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Tracing
	ctx := context.Background()
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "studioforge-api",
		Environment: logMode,
	})
	if otelShutdown != nil {
		defer otelShutdown(ctx)
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Redis
	rdb := db.NewRedisClient(log)

	// Repos
	log.Info("Setting up Repos from main...")
	assetRepo := repos.NewAssetRepo(thePG, log)
	assetVersionRepo := repos.NewAssetVersionRepo(thePG, log)
	assetDependencyRepo := repos.NewAssetDependencyRepo(thePG, log)
	pipelineRunRepo := repos.NewPipelineRunRepo(thePG, log)
	renderJobRepo := repos.NewRenderJobRepo(thePG, log)
	jobRunRepo := repos.NewJobRunRepo(thePG, log)

	// SSE
	log.Info("Setting up SSE hub now...")
	sseHub := sse.NewSSEHub(log)
	notifier := services.NewStudioNotifier(sseHub)

	// Storage
	var storage services.StorageProvider
	if utils.GetEnv("STORAGE_DRIVER", "local", log) == "gcs" {
		bucket, err := services.NewBucketStorageProvider(log)
		if err != nil {
			log.Error("Could not init BucketStorageProvider", "error", err)
			os.Exit(1)
		}
		storage = bucket
	} else {
		storage = services.NewLocalStorageProvider(utils.GetEnv("UPLOAD_DIR", "./uploads", log), log)
	}

	// Services
	log.Info("Setting up Services from main...")
	queue := jobs.NewQueue(log, jobRunRepo)
	permissions := services.NewPermissionService()
	assetCache := services.NewAssetCacheService(rdb, log)
	assetService := services.NewAssetService(thePG, log, assetRepo, assetCache)
	dependencyService := services.NewDependencyService(thePG, log, assetDependencyRepo, utils.GetEnvAsInt("DEP_MAX_TRAVERSAL_DEPTH", services.DefaultMaxTraversalDepth, log))
	versionService := services.NewVersionService(thePG, log, assetRepo, assetVersionRepo, pipelineRunRepo, storage, queue, permissions, assetCache)
	renderService := services.NewRenderService(thePG, log, renderJobRepo, queue)

	// Worker (optional in-process, for single-binary deployments)
	if utils.GetEnvAsBool("WORKER_INPROCESS", false, log) {
		registry := jobs.NewRegistry()
		pipelineHandler := pipeline.NewHandler(
			log, assetRepo, assetVersionRepo, pipelineRunRepo, notifier, renderService,
			pipeline.NewValidateUnit(), pipeline.NewPreviewUnit(storage),
		)
		renderHandler := render.NewHandler(log, renderJobRepo, notifier, nil)
		if err := registry.Register(pipelineHandler); err != nil {
			log.Error("Failed to register pipeline handler", "error", err)
			os.Exit(1)
		}
		if err := registry.Register(renderHandler); err != nil {
			log.Error("Failed to register render handler", "error", err)
			os.Exit(1)
		}
		worker := jobs.NewWorker(thePG, log, jobRunRepo, registry, jobs.WorkerOptions{
			Concurrency: utils.GetEnvAsInt("WORKER_CONCURRENCY", 2, log),
		})
		go worker.Start(ctx)
	}

	// Handlers
	log.Info("Setting up handlers from main...")
	assetHandler := handlers.NewAssetHandler(log, assetService)
	versionHandler := handlers.NewVersionHandler(log, versionService)
	dependencyHandler := handlers.NewDependencyHandler(log, dependencyService)
	renderHandler := handlers.NewRenderHandler(log, renderService)
	sseHandler := handlers.NewSSEHandler(log, sseHub)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		Log:               log,
		AssetHandler:      assetHandler,
		VersionHandler:    versionHandler,
		DependencyHandler: dependencyHandler,
		RenderHandler:     renderHandler,
		SSEHandler:        sseHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Starting API server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
