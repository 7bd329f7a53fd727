package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/velabs/studioforge-backend/internal/apperr"
	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/repos"
	"github.com/velabs/studioforge-backend/internal/types"
)

type CreateAssetInput struct {
	StudioID uuid.UUID
	UserID   uuid.UUID
	Name     string
	Type     string
	Metadata datatypes.JSON
}

type AssetService interface {
	CreateAsset(ctx context.Context, input CreateAssetInput) (*types.Asset, error)
	GetAsset(ctx context.Context, assetID, studioID uuid.UUID) (*types.Asset, error)
	ListAssets(ctx context.Context, studioID uuid.UUID, page, limit int) ([]*types.Asset, error)
}

type assetService struct {
	db     *gorm.DB
	log    *logger.Logger
	assets repos.AssetRepo
	cache  AssetCacheService
}

func NewAssetService(db *gorm.DB, baseLog *logger.Logger, assets repos.AssetRepo, cache AssetCacheService) AssetService {
	return &assetService{
		db:     db,
		log:    baseLog.With("service", "AssetService"),
		assets: assets,
		cache:  cache,
	}
}

func (s *assetService) CreateAsset(ctx context.Context, input CreateAssetInput) (*types.Asset, error) {
	if input.Name == "" {
		return nil, apperr.Validation("asset name is required")
	}
	if !types.ValidAssetType(input.Type) {
		return nil, apperr.Validation("invalid asset type %q", input.Type)
	}
	asset := &types.Asset{
		StudioID:  input.StudioID,
		CreatedBy: input.UserID,
		Name:      input.Name,
		Type:      input.Type,
		Metadata:  input.Metadata,
	}
	created, err := s.assets.Create(ctx, nil, asset)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if s.cache != nil {
		s.cache.InvalidateStudio(ctx, input.StudioID)
	}
	return created, nil
}

func (s *assetService) GetAsset(ctx context.Context, assetID, studioID uuid.UUID) (*types.Asset, error) {
	key := AssetCacheKey(studioID, assetID)
	if s.cache != nil {
		if asset, ok := s.cache.GetAsset(ctx, key); ok {
			return asset, nil
		}
	}
	asset, err := s.assets.GetByIDAndStudio(ctx, nil, assetID, studioID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if asset == nil {
		return nil, apperr.NotFound("asset %s not found", assetID)
	}
	if s.cache != nil {
		s.cache.SetAsset(ctx, key, asset)
	}
	return asset, nil
}

func (s *assetService) ListAssets(ctx context.Context, studioID uuid.UUID, page, limit int) ([]*types.Asset, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	key := AssetListCacheKey(studioID, page, limit)
	if s.cache != nil {
		if assets, ok := s.cache.GetList(ctx, key); ok {
			return assets, nil
		}
	}
	assets, err := s.assets.GetByStudio(ctx, nil, studioID, (page-1)*limit, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if s.cache != nil {
		s.cache.SetList(ctx, key, assets)
	}
	return assets, nil
}
