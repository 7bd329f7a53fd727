package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/types"
)

type PipelineRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, run *types.PipelineRun) (*types.PipelineRun, error)
	GetByAssetVersion(ctx context.Context, tx *gorm.DB, assetID uuid.UUID, version int) (*types.PipelineRun, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status, errorMessage string) error
}

type pipelineRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPipelineRunRepo(db *gorm.DB, baseLog *logger.Logger) PipelineRunRepo {
	return &pipelineRunRepo{db: db, log: baseLog.With("repo", "PipelineRunRepo")}
}

func (r *pipelineRunRepo) Create(ctx context.Context, tx *gorm.DB, run *types.PipelineRun) (*types.PipelineRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if run == nil {
		return nil, nil
	}
	if run.Status == "" {
		run.Status = types.PipelineStatusUploaded
	}
	if err := transaction.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *pipelineRunRepo) GetByAssetVersion(ctx context.Context, tx *gorm.DB, assetID uuid.UUID, version int) (*types.PipelineRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var run types.PipelineRun
	err := transaction.WithContext(ctx).
		Where("asset_id = ? AND version = ?", assetID, version).
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *pipelineRunRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status, errorMessage string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.PipelineRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"error":      errorMessage,
			"updated_at": time.Now(),
		}).Error
}
