package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/types"
)

type AssetVersionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, version *types.AssetVersion) (*types.AssetVersion, error)
	GetLatest(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) (*types.AssetVersion, error)
	GetByAsset(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) ([]*types.AssetVersion, error)
	GetVersion(ctx context.Context, tx *gorm.DB, assetID uuid.UUID, version int) (*types.AssetVersion, error)
}

type assetVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssetVersionRepo(db *gorm.DB, baseLog *logger.Logger) AssetVersionRepo {
	return &assetVersionRepo{db: db, log: baseLog.With("repo", "AssetVersionRepo")}
}

func (r *assetVersionRepo) Create(ctx context.Context, tx *gorm.DB, version *types.AssetVersion) (*types.AssetVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if version == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(version).Error; err != nil {
		return nil, err
	}
	return version, nil
}

func (r *assetVersionRepo) GetLatest(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) (*types.AssetVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var v types.AssetVersion
	err := transaction.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("version DESC").
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *assetVersionRepo) GetByAsset(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) ([]*types.AssetVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AssetVersion
	if err := transaction.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("version DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assetVersionRepo) GetVersion(ctx context.Context, tx *gorm.DB, assetID uuid.UUID, version int) (*types.AssetVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var v types.AssetVersion
	err := transaction.WithContext(ctx).
		Where("asset_id = ? AND version = ?", assetID, version).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
