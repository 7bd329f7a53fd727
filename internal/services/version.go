package services

import (
	"context"
	"fmt"
	"io"
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

type UploadVersionInput struct {
	AssetID  uuid.UUID
	StudioID uuid.UUID
	UserID   uuid.UUID
	Role     string

	FileName string
	MimeType string
	Size     int64
	// File must be seekable so the artifact can be re-written if the version
	// number is lost to a concurrent uploader.
	File io.ReadSeeker

	ChangeNote string
}

type UploadVersionResult struct {
	Version     *types.AssetVersion `json:"version"`
	PipelineRun *types.PipelineRun  `json:"pipeline_run"`
	JobRunID    uuid.UUID           `json:"job_run_id"`
}

type VersionService interface {
	// UploadNewVersion stores the artifact, appends the next version number,
	// advances the asset pointer, opens a pipeline run in UPLOADED and
	// enqueues the pipeline job. The run row exists before this returns.
	UploadNewVersion(ctx context.Context, input UploadVersionInput) (*UploadVersionResult, error)
	ListVersions(ctx context.Context, assetID, studioID uuid.UUID) ([]*types.AssetVersion, error)
	GetVersion(ctx context.Context, assetID, studioID uuid.UUID, version int) (*types.AssetVersion, error)
	GetPipelineRun(ctx context.Context, assetID uuid.UUID, version int) (*types.PipelineRun, error)
	// RollbackVersion points the asset's current version at an older existing
	// version. No new version row is written and no pipeline runs.
	RollbackVersion(ctx context.Context, assetID, studioID uuid.UUID, role string, version int) (*types.Asset, error)
}

type versionService struct {
	db           *gorm.DB
	log          *logger.Logger
	assets       repos.AssetRepo
	versions     repos.AssetVersionRepo
	pipelineRuns repos.PipelineRunRepo
	storage      StorageProvider
	queue        jobs.Enqueuer
	permissions  *PermissionService
	cache        AssetCacheService

	pipelineMaxAttempts int
}

func NewVersionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	assets repos.AssetRepo,
	versions repos.AssetVersionRepo,
	pipelineRuns repos.PipelineRunRepo,
	storage StorageProvider,
	queue jobs.Enqueuer,
	permissions *PermissionService,
	cache AssetCacheService,
) VersionService {
	log := baseLog.With("service", "VersionService")
	return &versionService{
		db:                  db,
		log:                 log,
		assets:              assets,
		versions:            versions,
		pipelineRuns:        pipelineRuns,
		storage:             storage,
		queue:               queue,
		permissions:         permissions,
		cache:               cache,
		pipelineMaxAttempts: utils.GetEnvAsInt("PIPELINE_MAX_ATTEMPTS", 1, log),
	}
}

func (s *versionService) UploadNewVersion(ctx context.Context, input UploadVersionInput) (*UploadVersionResult, error) {
	if !s.permissions.CanUpload(input.Role) {
		return nil, apperr.Authorization("role %q cannot upload versions", input.Role)
	}
	if input.File == nil {
		return nil, apperr.Validation("file is required")
	}
	asset, err := s.assets.GetByIDAndStudio(ctx, nil, input.AssetID, input.StudioID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if asset == nil {
		return nil, apperr.Validation("asset %s not found", input.AssetID)
	}

	version, err := s.appendVersion(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := s.assets.UpdateCurrentVersion(ctx, nil, input.AssetID, version.Version); err != nil {
		return nil, apperr.Internal(err)
	}
	if s.cache != nil {
		s.cache.InvalidateStudio(ctx, input.StudioID)
	}

	run, err := s.pipelineRuns.Create(ctx, nil, &types.PipelineRun{
		AssetID: input.AssetID,
		Version: version.Version,
		Status:  types.PipelineStatusUploaded,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	jobRun, err := s.queue.Enqueue(ctx, jobs.JobTypeAssetPipeline, map[string]interface{}{
		"asset_id":       input.AssetID.String(),
		"version":        version.Version,
		"correlation_id": run.ID.String(),
	}, jobs.EnqueueOptions{MaxAttempts: s.pipelineMaxAttempts})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	s.log.Info("Uploaded new version",
		"asset_id", input.AssetID,
		"version", version.Version,
		"pipeline_run_id", run.ID,
		"job_run_id", jobRun.ID)
	return &UploadVersionResult{Version: version, PipelineRun: run, JobRunID: jobRun.ID}, nil
}

// appendVersion computes latest+1 and inserts. Two concurrent uploaders can
// compute the same number; the unique index rejects the loser and one retry
// recomputes against the winner's row. The artifact is re-saved under the new
// key on retry, which is why the input reader must seek.
func (s *versionService) appendVersion(ctx context.Context, input UploadVersionInput) (*types.AssetVersion, error) {
	const maxInsertAttempts = 2
	var lastErr error
	for attempt := 0; attempt < maxInsertAttempts; attempt++ {
		if attempt > 0 {
			if _, err := input.File.Seek(0, io.SeekStart); err != nil {
				return nil, apperr.Internal(fmt.Errorf("failed to rewind upload stream: %w", err))
			}
		}
		latest, err := s.versions.GetLatest(ctx, nil, input.AssetID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		next := 1
		if latest != nil {
			next = latest.Version + 1
		}
		destination := fmt.Sprintf("%s/%s/v%d", input.StudioID, input.AssetID, next)
		stored, err := s.storage.Save(ctx, destination, input.FileName, input.File)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("failed to store version artifact: %w", err))
		}
		created, err := s.versions.Create(ctx, nil, &types.AssetVersion{
			AssetID:    input.AssetID,
			Version:    next,
			CreatedBy:  input.UserID,
			FilePath:   stored.Path,
			FileSize:   stored.Size,
			FileMime:   input.MimeType,
			ChangeNote: input.ChangeNote,
		})
		if err == nil {
			return created, nil
		}
		if !repos.IsDuplicateKey(err) {
			return nil, apperr.Internal(err)
		}
		lastErr = err
		s.log.Warn("Version number conflict, retrying", "asset_id", input.AssetID, "version", next)
	}
	return nil, apperr.Internal(fmt.Errorf("failed to allocate version number after %d attempts: %w", maxInsertAttempts, lastErr))
}

func (s *versionService) ListVersions(ctx context.Context, assetID, studioID uuid.UUID) ([]*types.AssetVersion, error) {
	asset, err := s.assets.GetByIDAndStudio(ctx, nil, assetID, studioID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if asset == nil {
		return nil, apperr.NotFound("asset %s not found", assetID)
	}
	versions, err := s.versions.GetByAsset(ctx, nil, assetID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return versions, nil
}

func (s *versionService) GetVersion(ctx context.Context, assetID, studioID uuid.UUID, version int) (*types.AssetVersion, error) {
	asset, err := s.assets.GetByIDAndStudio(ctx, nil, assetID, studioID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if asset == nil {
		return nil, apperr.NotFound("asset %s not found", assetID)
	}
	row, err := s.versions.GetVersion(ctx, nil, assetID, version)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if row == nil {
		return nil, apperr.NotFound("asset %s has no version %d", assetID, version)
	}
	return row, nil
}

func (s *versionService) GetPipelineRun(ctx context.Context, assetID uuid.UUID, version int) (*types.PipelineRun, error) {
	run, err := s.pipelineRuns.GetByAssetVersion(ctx, nil, assetID, version)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if run == nil {
		return nil, apperr.NotFound("no pipeline run for asset %s version %d", assetID, version)
	}
	return run, nil
}

func (s *versionService) RollbackVersion(ctx context.Context, assetID, studioID uuid.UUID, role string, version int) (*types.Asset, error) {
	if !s.permissions.CanApprove(role) {
		return nil, apperr.Authorization("role %q cannot roll back versions", role)
	}
	asset, err := s.assets.GetByIDAndStudio(ctx, nil, assetID, studioID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if asset == nil {
		return nil, apperr.NotFound("asset %s not found", assetID)
	}
	target, err := s.versions.GetVersion(ctx, nil, assetID, version)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if target == nil {
		return nil, apperr.Validation("asset %s has no version %d", assetID, version)
	}
	if err := s.assets.UpdateCurrentVersion(ctx, nil, assetID, version); err != nil {
		return nil, apperr.Internal(err)
	}
	if s.cache != nil {
		s.cache.InvalidateStudio(ctx, studioID)
	}
	asset.CurrentVersion = version
	asset.UpdatedAt = time.Now()
	s.log.Info("Rolled back asset version", "asset_id", assetID, "version", version)
	return asset, nil
}
