package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/types"
)

// AssetDependencyRepo exposes the two traversal primitives the graph service
// is built on: direct children of (parent, parentVersion) and direct parents
// of (child, childVersion).
type AssetDependencyRepo interface {
	Create(ctx context.Context, tx *gorm.DB, dep *types.AssetDependency) (*types.AssetDependency, error)
	FindChildren(ctx context.Context, tx *gorm.DB, parentAssetID uuid.UUID, parentVersion int) ([]*types.AssetDependency, error)
	FindParents(ctx context.Context, tx *gorm.DB, childAssetID uuid.UUID, childVersion int) ([]*types.AssetDependency, error)
}

type assetDependencyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssetDependencyRepo(db *gorm.DB, baseLog *logger.Logger) AssetDependencyRepo {
	return &assetDependencyRepo{db: db, log: baseLog.With("repo", "AssetDependencyRepo")}
}

func (r *assetDependencyRepo) Create(ctx context.Context, tx *gorm.DB, dep *types.AssetDependency) (*types.AssetDependency, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if dep == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(dep).Error; err != nil {
		return nil, err
	}
	return dep, nil
}

func (r *assetDependencyRepo) FindChildren(ctx context.Context, tx *gorm.DB, parentAssetID uuid.UUID, parentVersion int) ([]*types.AssetDependency, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AssetDependency
	if err := transaction.WithContext(ctx).
		Where("parent_asset_id = ? AND parent_version = ?", parentAssetID, parentVersion).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assetDependencyRepo) FindParents(ctx context.Context, tx *gorm.DB, childAssetID uuid.UUID, childVersion int) ([]*types.AssetDependency, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AssetDependency
	if err := transaction.WithContext(ctx).
		Where("child_asset_id = ? AND child_version = ?", childAssetID, childVersion).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
