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

type AssetRepo interface {
	Create(ctx context.Context, tx *gorm.DB, asset *types.Asset) (*types.Asset, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Asset, error)
	GetByIDAndStudio(ctx context.Context, tx *gorm.DB, id, studioID uuid.UUID) (*types.Asset, error)
	GetByStudio(ctx context.Context, tx *gorm.DB, studioID uuid.UUID, offset, limit int) ([]*types.Asset, error)
	UpdateCurrentVersion(ctx context.Context, tx *gorm.DB, id uuid.UUID, version int) error
}

type assetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssetRepo(db *gorm.DB, baseLog *logger.Logger) AssetRepo {
	return &assetRepo{db: db, log: baseLog.With("repo", "AssetRepo")}
}

func (r *assetRepo) Create(ctx context.Context, tx *gorm.DB, asset *types.Asset) (*types.Asset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if asset == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(asset).Error; err != nil {
		return nil, err
	}
	return asset, nil
}

func (r *assetRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Asset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var asset types.Asset
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *assetRepo) GetByIDAndStudio(ctx context.Context, tx *gorm.DB, id, studioID uuid.UUID) (*types.Asset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var asset types.Asset
	err := transaction.WithContext(ctx).
		Where("id = ? AND studio_id = ?", id, studioID).
		First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *assetRepo) GetByStudio(ctx context.Context, tx *gorm.DB, studioID uuid.UUID, offset, limit int) ([]*types.Asset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Asset
	q := transaction.WithContext(ctx).
		Where("studio_id = ?", studioID).
		Order("created_at DESC")
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assetRepo) UpdateCurrentVersion(ctx context.Context, tx *gorm.DB, id uuid.UUID, version int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Asset{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_version": version,
			"updated_at":      time.Now(),
		}).Error
}
