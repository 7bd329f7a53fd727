package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velabs/studioforge-backend/internal/apperr"
	"github.com/velabs/studioforge-backend/internal/jobs"
	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/repos"
	"github.com/velabs/studioforge-backend/internal/types"
	"github.com/velabs/studioforge-backend/internal/utils"
)

type RenderService interface {
	// EnqueueRenderJob creates a QUEUED render job row and enqueues the queue
	// run that will drive it. The row exists before the run is enqueued so
	// status lookups never race the worker.
	EnqueueRenderJob(ctx context.Context, studioID, assetID uuid.UUID, version int, correlationID string) (*types.RenderJob, error)
	GetRenderJob(ctx context.Context, id uuid.UUID) (*types.RenderJob, error)
}

type renderService struct {
	db         *gorm.DB
	log        *logger.Logger
	renderJobs repos.RenderJobRepo
	queue      jobs.Enqueuer

	maxAttempts int
	backoff     time.Duration
}

func NewRenderService(db *gorm.DB, baseLog *logger.Logger, renderJobs repos.RenderJobRepo, queue jobs.Enqueuer) RenderService {
	log := baseLog.With("service", "RenderService")
	return &renderService{
		db:          db,
		log:         log,
		renderJobs:  renderJobs,
		queue:       queue,
		maxAttempts: utils.GetEnvAsInt("RENDER_MAX_ATTEMPTS", 3, log),
		backoff:     time.Duration(utils.GetEnvAsInt("RENDER_BACKOFF_SECONDS", 5, log)) * time.Second,
	}
}

func (s *renderService) EnqueueRenderJob(ctx context.Context, studioID, assetID uuid.UUID, version int, correlationID string) (*types.RenderJob, error) {
	if version < 1 {
		return nil, apperr.Validation("version must be a positive integer")
	}
	job, err := s.renderJobs.Create(ctx, nil, &types.RenderJob{
		StudioID: studioID,
		AssetID:  assetID,
		Version:  version,
		Status:   types.RenderStatusQueued,
		Progress: 0,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	run, err := s.queue.Enqueue(ctx, jobs.JobTypeRenderJobs, map[string]interface{}{
		"render_job_id":  job.ID.String(),
		"correlation_id": correlationID,
	}, jobs.EnqueueOptions{MaxAttempts: s.maxAttempts, Backoff: s.backoff})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	s.log.Info("Enqueued render job", "render_job_id", job.ID, "asset_id", assetID, "version", version, "job_run_id", run.ID)
	return job, nil
}

func (s *renderService) GetRenderJob(ctx context.Context, id uuid.UUID) (*types.RenderJob, error) {
	job, err := s.renderJobs.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if job == nil {
		return nil, apperr.NotFound("render job %s not found", id)
	}
	return job, nil
}
