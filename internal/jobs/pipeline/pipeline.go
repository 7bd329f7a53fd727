package pipeline

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

// WorkUnit is one pipeline stage body. Units must be idempotent: a crashed
// worker re-runs the whole pipeline from the top.
type WorkUnit func(ctx context.Context, asset *types.Asset, version *types.AssetVersion) error

// Handler drives one uploaded version through the processing pipeline:
// VALIDATING, PROCESSING_PREVIEW, READY_FOR_RENDER, then hands off to the
// render queue and parks the run at RENDER_QUEUED. Every transition is
// persisted before it is announced.
type Handler struct {
	log          *logger.Logger
	assets       repos.AssetRepo
	versions     repos.AssetVersionRepo
	pipelineRuns repos.PipelineRunRepo
	notifier     services.StudioNotifier
	render       services.RenderService

	validate WorkUnit
	preview  WorkUnit

	stageTimeout time.Duration
}

func NewHandler(
	baseLog *logger.Logger,
	assets repos.AssetRepo,
	versions repos.AssetVersionRepo,
	pipelineRuns repos.PipelineRunRepo,
	notifier services.StudioNotifier,
	render services.RenderService,
	validate WorkUnit,
	preview WorkUnit,
) *Handler {
	log := baseLog.With("handler", "AssetPipeline")
	return &Handler{
		log:          log,
		assets:       assets,
		versions:     versions,
		pipelineRuns: pipelineRuns,
		notifier:     notifier,
		render:       render,
		validate:     validate,
		preview:      preview,
		stageTimeout: time.Duration(utils.GetEnvAsInt("STAGE_TIMEOUT_SECONDS", 120, log)) * time.Second,
	}
}

func (h *Handler) Type() string { return jobs.JobTypeAssetPipeline }

func (h *Handler) Run(jc *jobs.Context) error {
	assetID, err := jc.PayloadUUID("asset_id")
	if err != nil {
		return err
	}
	versionNum, err := jc.PayloadInt("version")
	if err != nil {
		return err
	}

	asset, err := h.assets.GetByID(jc.Ctx, nil, assetID)
	if err != nil {
		return fmt.Errorf("failed to load asset %s: %w", assetID, err)
	}
	if asset == nil {
		return fmt.Errorf("asset %s not found", assetID)
	}
	run, err := h.pipelineRuns.GetByAssetVersion(jc.Ctx, nil, assetID, versionNum)
	if err != nil {
		return fmt.Errorf("failed to load pipeline run for asset %s v%d: %w", assetID, versionNum, err)
	}
	if run == nil {
		// The run row is created before enqueue, so a missing row means the
		// queue outlived the record. Nothing to drive; drop the job.
		jc.Log.Warn("No pipeline run for job, dropping", "asset_id", assetID, "version", versionNum)
		return nil
	}
	if run.Status == types.PipelineStatusRenderQueued {
		// Duplicate delivery of an already-finished run.
		jc.Log.Info("Pipeline run already completed, dropping", "pipeline_run_id", run.ID)
		return nil
	}
	if run.Status == types.PipelineStatusFailed {
		// A retried attempt re-drives the run from the top; stages are
		// idempotent so partial work from the failed attempt is overwritten.
		jc.Log.Info("Re-running failed pipeline run", "pipeline_run_id", run.ID, "attempt", jc.Job.Attempts)
	}
	version, err := h.versions.GetVersion(jc.Ctx, nil, assetID, versionNum)
	if err != nil {
		return fmt.Errorf("failed to load version row for asset %s v%d: %w", assetID, versionNum, err)
	}
	if version == nil {
		return h.fail(jc, asset, run, fmt.Errorf("asset %s has no version %d", assetID, versionNum))
	}

	if err := h.advance(jc, asset, run, types.PipelineStatusValidating); err != nil {
		return err
	}
	if err := h.runStage(jc.Ctx, h.validate, asset, version); err != nil {
		return h.fail(jc, asset, run, fmt.Errorf("validation failed: %w", err))
	}

	if err := h.advance(jc, asset, run, types.PipelineStatusProcessingPreview); err != nil {
		return err
	}
	if err := h.runStage(jc.Ctx, h.preview, asset, version); err != nil {
		return h.fail(jc, asset, run, fmt.Errorf("preview generation failed: %w", err))
	}

	if err := h.advance(jc, asset, run, types.PipelineStatusReadyForRender); err != nil {
		return err
	}

	renderJob, err := h.render.EnqueueRenderJob(jc.Ctx, asset.StudioID, asset.ID, versionNum, run.ID.String())
	if err != nil {
		return h.fail(jc, asset, run, fmt.Errorf("failed to enqueue render job: %w", err))
	}
	if err := h.advance(jc, asset, run, types.PipelineStatusRenderQueued); err != nil {
		return err
	}
	jc.Log.Info("Pipeline completed", "pipeline_run_id", run.ID, "render_job_id", renderJob.ID)
	return nil
}

func (h *Handler) runStage(ctx context.Context, unit WorkUnit, asset *types.Asset, version *types.AssetVersion) error {
	if unit == nil {
		return nil
	}
	stageCtx, cancel := context.WithTimeout(ctx, h.stageTimeout)
	defer cancel()
	return unit(stageCtx, asset, version)
}

// advance persists the transition, then mutates the in-memory run and
// announces it. Persist-then-notify: a listener can observe a state late but
// never before it is durable.
func (h *Handler) advance(jc *jobs.Context, asset *types.Asset, run *types.PipelineRun, status string) error {
	if err := h.pipelineRuns.UpdateStatus(jc.Ctx, nil, run.ID, status, ""); err != nil {
		return fmt.Errorf("failed to advance pipeline run %s to %s: %w", run.ID, status, err)
	}
	run.Status = status
	run.Error = ""
	jc.Log.Info("Pipeline state advanced", "pipeline_run_id", run.ID, "status", status)
	if h.notifier != nil {
		h.notifier.PipelineUpdate(asset.StudioID, run)
	}
	return nil
}

// fail parks the run in FAILED with the cause and returns the cause so the
// queue's retry policy still applies to the job run itself.
func (h *Handler) fail(jc *jobs.Context, asset *types.Asset, run *types.PipelineRun, cause error) error {
	if err := h.pipelineRuns.UpdateStatus(jc.Ctx, nil, run.ID, types.PipelineStatusFailed, cause.Error()); err != nil {
		jc.Log.Error("Failed to record pipeline failure", "pipeline_run_id", run.ID, "error", err)
		return cause
	}
	run.Status = types.PipelineStatusFailed
	run.Error = cause.Error()
	if h.notifier != nil {
		h.notifier.PipelineUpdate(asset.StudioID, run)
	}
	return cause
}
