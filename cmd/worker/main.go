package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/velabs/studioforge-backend/internal/db"
	"github.com/velabs/studioforge-backend/internal/jobs"
	"github.com/velabs/studioforge-backend/internal/jobs/pipeline"
	"github.com/velabs/studioforge-backend/internal/jobs/render"
	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/observability"
	"github.com/velabs/studioforge-backend/internal/repos"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "studioforge-worker",
		Environment: logMode,
	})
	if otelShutdown != nil {
		defer otelShutdown(context.Background())
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	assetRepo := repos.NewAssetRepo(thePG, log)
	assetVersionRepo := repos.NewAssetVersionRepo(thePG, log)
	pipelineRunRepo := repos.NewPipelineRunRepo(thePG, log)
	renderJobRepo := repos.NewRenderJobRepo(thePG, log)
	jobRunRepo := repos.NewJobRunRepo(thePG, log)

	// SSE events from the worker process are broadcast to an in-process hub
	// with no HTTP listeners; API processes serve their own hubs. Workers
	// still persist every transition, which is what clients poll.
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
	queue := jobs.NewQueue(log, jobRunRepo)
	renderService := services.NewRenderService(thePG, log, renderJobRepo, queue)

	// Handlers
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
	log.Info("Worker process starting")
	worker.Start(ctx)
}
