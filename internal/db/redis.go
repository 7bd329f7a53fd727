package db

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/utils"
)

func NewRedisClient(log *logger.Logger) *redis.Client {
	addr := utils.GetEnv("REDIS_ADDR", "localhost:6379", log)
	password := utils.GetEnv("REDIS_PASSWORD", "", log)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("Redis ping failed, caching will degrade to passthrough", "addr", addr, "error", err)
	}
	return client
}
