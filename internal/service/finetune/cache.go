package finetune

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix = "finetune:provider:"

	jobsCacheKey   = "jobs"
	modelsCacheKey = "models"
)

// Cache 外部服务列表结果的 Redis 缓存
// 未配置 Redis 或 ttl<=0 时所有读取都未命中，写入被忽略
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache 创建缓存，rdb 可以为 nil
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.rdb != nil && c.ttl > 0
}

// Get 读取缓存
func (c *Cache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	if !c.enabled() {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, cacheKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Warning: read provider cache %s: %v", key, err)
		}
		return nil, false
	}
	return json.RawMessage(data), true
}

// Set 写入缓存，失败只记录日志
func (c *Cache) Set(ctx context.Context, key string, value json.RawMessage) {
	if !c.enabled() {
		return
	}
	if err := c.rdb.Set(ctx, cacheKeyPrefix+key, []byte(value), c.ttl).Err(); err != nil {
		log.Printf("Warning: write provider cache %s: %v", key, err)
	}
}

// Invalidate 删除缓存
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if !c.enabled() {
		return
	}
	if err := c.rdb.Del(ctx, cacheKeyPrefix+key).Err(); err != nil {
		log.Printf("Warning: invalidate provider cache %s: %v", key, err)
	}
}
