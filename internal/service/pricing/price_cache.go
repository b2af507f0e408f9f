package pricing

import (
	"context"
	"strconv"
	"time"

	"github.com/dumeirei/house-booking-backend/internal/common/cache"
)

// RedisPriceCache 基于 Redis 的日价格缓存。
// 键中带有版本号，失效时只需递增版本，旧键随 TTL 过期
type RedisPriceCache struct {
	store *cache.Store
	ttl   time.Duration
}

// NewRedisPriceCache 创建 Redis 日价格缓存
func NewRedisPriceCache(store *cache.Store, ttl time.Duration) *RedisPriceCache {
	return &RedisPriceCache{store: store, ttl: ttl}
}

func (c *RedisPriceCache) key(version int64, k DayKey) string {
	return cache.BuildKey(cache.KeyPrefixDayPrice,
		strconv.FormatInt(version, 10),
		strconv.FormatInt(k.HouseID, 10),
		k.Date.Format("2006-01-02"),
	)
}

// GetMany 批量读取，同时返回读取时的版本号
func (c *RedisPriceCache) GetMany(ctx context.Context, keys []DayKey) (map[DayKey]int64, int64, error) {
	version, err := c.store.GetInt64(ctx, cache.KeyPrefixDayPriceVersion)
	if err != nil {
		return nil, 0, err
	}

	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = c.key(version, k)
	}
	values, err := c.store.MGetInt64(ctx, redisKeys)
	if err != nil {
		return nil, version, err
	}

	result := make(map[DayKey]int64, len(values))
	for i, k := range keys {
		if v, ok := values[redisKeys[i]]; ok {
			result[k] = v
		}
	}
	return result, version, nil
}

// SetMany 按 GetMany 返回的版本号批量写入。期间发生失效时写入的是旧版本键，不会被读到
func (c *RedisPriceCache) SetMany(ctx context.Context, version int64, prices map[DayKey]int64) error {
	values := make(map[string]int64, len(prices))
	for k, v := range prices {
		values[c.key(version, k)] = v
	}
	return c.store.MSetInt64(ctx, values, c.ttl)
}

// Invalidate 递增版本号
func (c *RedisPriceCache) Invalidate(ctx context.Context) error {
	_, err := c.store.Incr(ctx, cache.KeyPrefixDayPriceVersion)
	return err
}
