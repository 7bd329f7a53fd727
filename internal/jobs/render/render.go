package render

import (
	"context"
	"fmt"
	"time"

	"github.com/velabs/studioforge-backend/internal/jobs"
	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/repos"
	"github.com/velabs/studioforge-backend/internal/services"
	"github.com/velabs/studioforge-backend/internal/types"
	"github.com/velabs/studioforge-backend/internal/utils"
)

const renderSteps = 10

// StepFunc performs one render step. The default implementation just burns
// the configured step duration; tests and future render-farm integrations
// inject their own.
type StepFunc func(ctx context.Context, job *types.RenderJob, step int) error

// Handler simulates a render by walking progress from 10 to 100 in ten
// steps. Progress is persisted before each announcement so a restart resumes
// from durable state, never from memory.
type Handler struct {
	log        *logger.Logger
	renderJobs repos.RenderJobRepo
	notifier   services.StudioNotifier
	step       StepFunc
}

func NewHandler(baseLog *logger.Logger, renderJobs repos.RenderJobRepo, notifier services.StudioNotifier, step StepFunc) *Handler {
	log := baseLog.With("handler", "RenderJobs")
	if step == nil {
		stepDuration := time.Duration(utils.GetEnvAsInt("RENDER_STEP_MS", 500, log)) * time.Millisecond
		step = func(ctx context.Context, job *types.RenderJob, stepNum int) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(stepDuration):
				return nil
			}
		}
	}
	return &Handler{
		log:        log,
		renderJobs: renderJobs,
		notifier:   notifier,
		step:       step,
	}
}

func (h *Handler) Type() string { return jobs.JobTypeRenderJobs }

func (h *Handler) Run(jc *jobs.Context) error {
	job, err := h.loadJob(jc)
	if err != nil {
		return err
	}
	if job == nil {
		return nil
	}
	if job.Status == types.RenderStatusCompleted {
		jc.Log.Info("Render job already completed, dropping", "render_job_id", job.ID)
		return nil
	}

	if err := h.update(jc, job, map[string]interface{}{
		"status":   types.RenderStatusProcessing,
		"progress": 0,
		"error":    "",
	}); err != nil {
		return err
	}
	job.Status = types.RenderStatusProcessing
	job.Progress = 0
	job.Error = ""
	if h.notifier != nil {
		h.notifier.RenderProgress(job.StudioID, job)
	}

	for i := 1; i <= renderSteps; i++ {
		if err := h.step(jc.Ctx, job, i); err != nil {
			return fmt.Errorf("render step %d failed: %w", i, err)
		}
		progress := i * (100 / renderSteps)
		if err := h.update(jc, job, map[string]interface{}{"progress": progress}); err != nil {
			return err
		}
		job.Progress = progress
		if h.notifier != nil {
			h.notifier.RenderProgress(job.StudioID, job)
		}
	}

	if err := h.update(jc, job, map[string]interface{}{
		"status":   types.RenderStatusCompleted,
		"progress": 100,
	}); err != nil {
		return err
	}
	job.Status = types.RenderStatusCompleted
	job.Progress = 100
	if h.notifier != nil {
		h.notifier.RenderCompleted(job.StudioID, job)
	}
	jc.Log.Info("Render job completed", "render_job_id", job.ID)
	return nil
}

// OnExhausted fires once, after the final failed attempt, and is the only
// place a render job moves to FAILED. Intermediate attempt failures leave the
// row PROCESSING so watchers see retries as a stall, not a verdict.
func (h *Handler) OnExhausted(jc *jobs.Context, runErr error) {
	job, err := h.loadJob(jc)
	if err != nil || job == nil {
		jc.Log.Error("Cannot record render exhaustion", "error", err)
		return
	}
	updates := map[string]interface{}{
		"status": types.RenderStatusFailed,
		"error":  runErr.Error(),
	}
	if err := h.renderJobs.UpdateFields(jc.Ctx, nil, job.ID, updates); err != nil {
		jc.Log.Error("Failed to mark render job failed", "render_job_id", job.ID, "error", err)
		return
	}
	job.Status = types.RenderStatusFailed
	job.Error = runErr.Error()
	if h.notifier != nil {
		h.notifier.RenderFailed(job.StudioID, job)
	}
	jc.Log.Warn("Render job failed after exhausting retries", "render_job_id", job.ID, "error", runErr)
}

func (h *Handler) loadJob(jc *jobs.Context) (*types.RenderJob, error) {
	id, err := jc.PayloadUUID("render_job_id")
	if err != nil {
		return nil, err
	}
	job, err := h.renderJobs.GetByID(jc.Ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load render job %s: %w", id, err)
	}
	if job == nil {
		// Row created before enqueue; a missing row means it was removed out
		// of band. Nothing to drive.
		jc.Log.Warn("No render job row for queue run, dropping", "render_job_id", id)
	}
	return job, nil
}

func (h *Handler) update(jc *jobs.Context, job *types.RenderJob, updates map[string]interface{}) error {
	if err := h.renderJobs.UpdateFields(jc.Ctx, nil, job.ID, updates); err != nil {
		return fmt.Errorf("failed to update render job %s: %w", job.ID, err)
	}
	return nil
}
