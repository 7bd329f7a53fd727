package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/types"
)

const (
	assetCacheTTL     = 60 * time.Second
	assetListCacheTTL = 30 * time.Second
)

// AssetCacheService is a read-through redis cache in front of the asset
// repo. Cache failures degrade to store reads, never to request failures.
type AssetCacheService interface {
	GetAsset(ctx context.Context, key string) (*types.Asset, bool)
	SetAsset(ctx context.Context, key string, asset *types.Asset)
	GetList(ctx context.Context, key string) ([]*types.Asset, bool)
	SetList(ctx context.Context, key string, assets []*types.Asset)
	InvalidateStudio(ctx context.Context, studioID uuid.UUID)
}

type assetCacheService struct {
	rdb *redis.Client
	log *logger.Logger
}

func NewAssetCacheService(rdb *redis.Client, baseLog *logger.Logger) AssetCacheService {
	return &assetCacheService{rdb: rdb, log: baseLog.With("service", "AssetCacheService")}
}

func AssetCacheKey(studioID, assetID uuid.UUID) string {
	return fmt.Sprintf("asset:%s:%s", studioID, assetID)
}

func AssetListCacheKey(studioID uuid.UUID, page, limit int) string {
	return fmt.Sprintf("assets:list:%s:%d:%d", studioID, page, limit)
}

func (s *assetCacheService) GetAsset(ctx context.Context, key string) (*types.Asset, bool) {
	if s.rdb == nil {
		return nil, false
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var asset types.Asset
	if err := json.Unmarshal(raw, &asset); err != nil {
		return nil, false
	}
	return &asset, true
}

func (s *assetCacheService) SetAsset(ctx context.Context, key string, asset *types.Asset) {
	if s.rdb == nil || asset == nil {
		return
	}
	raw, err := json.Marshal(asset)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, assetCacheTTL).Err(); err != nil {
		s.log.Debug("Asset cache set failed", "key", key, "error", err)
	}
}

func (s *assetCacheService) GetList(ctx context.Context, key string) ([]*types.Asset, bool) {
	if s.rdb == nil {
		return nil, false
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var assets []*types.Asset
	if err := json.Unmarshal(raw, &assets); err != nil {
		return nil, false
	}
	return assets, true
}

func (s *assetCacheService) SetList(ctx context.Context, key string, assets []*types.Asset) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(assets)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, assetListCacheTTL).Err(); err != nil {
		s.log.Debug("Asset list cache set failed", "key", key, "error", err)
	}
}

// InvalidateStudio drops every cached asset and list entry for the studio by
// SCAN, so writers never serve a stale list longer than one request.
func (s *assetCacheService) InvalidateStudio(ctx context.Context, studioID uuid.UUID) {
	if s.rdb == nil {
		return
	}
	patterns := []string{
		fmt.Sprintf("assets:list:%s:*", studioID),
		fmt.Sprintf("asset:%s:*", studioID),
	}
	for _, pattern := range patterns {
		iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
				s.log.Debug("Asset cache invalidation delete failed", "key", iter.Val(), "error", err)
			}
		}
		if err := iter.Err(); err != nil {
			s.log.Debug("Asset cache invalidation scan failed", "pattern", pattern, "error", err)
		}
	}
}
