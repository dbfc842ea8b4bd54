package skillcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKey = "aspiretest:skills:predefined"

// Cache 缓存全局预定义技能列表，减少目录读放大。
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		rdb: rdb,
		ttl: ttl,
	}
}

// Get 返回缓存的技能列表；未命中或缓存不可用时 ok 为 false。
func (c *Cache) Get(ctx context.Context) ([]string, bool, error) {
	if c == nil || c.rdb == nil {
		return nil, false, nil
	}
	raw, err := c.rdb.Get(ctx, cacheKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("skillcache get: %w", err)
	}
	var skills []string
	if err := json.Unmarshal([]byte(raw), &skills); err != nil {
		// 缓存坏了就当未命中，由调用方回源重建
		return nil, false, nil
	}
	return skills, true, nil
}

// Set 写入技能列表。
func (c *Cache) Set(ctx context.Context, skills []string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(skills)
	if err != nil {
		return fmt.Errorf("skillcache marshal: %w", err)
	}
	if err := c.rdb.Set(ctx, cacheKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("skillcache set: %w", err)
	}
	return nil
}

// Invalidate 在目录被管理员修改后清除缓存。
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, cacheKey).Err(); err != nil {
		return fmt.Errorf("skillcache del: %w", err)
	}
	return nil
}
