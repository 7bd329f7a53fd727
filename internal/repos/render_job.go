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

type RenderJobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, job *types.RenderJob) (*types.RenderJob, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.RenderJob, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type renderJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRenderJobRepo(db *gorm.DB, baseLog *logger.Logger) RenderJobRepo {
	return &renderJobRepo{db: db, log: baseLog.With("repo", "RenderJobRepo")}
}

func (r *renderJobRepo) Create(ctx context.Context, tx *gorm.DB, job *types.RenderJob) (*types.RenderJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if job == nil {
		return nil, nil
	}
	if job.Status == "" {
		job.Status = types.RenderStatusQueued
	}
	if err := transaction.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *renderJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.RenderJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var job types.RenderJob
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *renderJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.RenderJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}
