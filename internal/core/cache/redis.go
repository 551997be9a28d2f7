package cache

import (
	"context"
	"fmt"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

// RedisStore redis 後端的擷取結果緩存
type RedisStore struct {
	client *redis.Client
	config *config.CacheConfig
}

// NewRedisStore 創建 redis 緩存
func NewRedisStore(cfg *config.CacheConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	// 測試連接
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		config: cfg,
	}, nil
}

// Get 獲取緩存值
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		common.LogCacheMiss("extraction", key)
		return "", common.ErrCacheDisabled
	}
	if err != nil {
		return "", fmt.Errorf("failed to get cache: %w", err)
	}

	common.LogCacheHit("extraction", key)
	return val, nil
}

// Set 設置緩存值
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, s.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Stats 獲取緩存統計信息
func (s *RedisStore) Stats() map[string]interface{} {
	info := map[string]interface{}{
		"backend": "redis",
		"addr":    s.config.RedisAddr,
	}
	if size, err := s.client.DBSize(context.Background()).Result(); err == nil {
		info["size"] = size
	}
	return info
}

// Close 關閉 redis 連接
func (s *RedisStore) Close() error {
	return s.client.Close()
}
