// Package cache 提供 Redis 缓存功能
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dumeirei/house-booking-backend/internal/common/config"
)

var rdb *redis.Client

// ErrMiss 缓存未命中
var ErrMiss = errors.New("cache miss")

// 缓存键前缀
const (
	KeyPrefixDayPrice        = "day_price:"
	KeyPrefixDayPriceVersion = "day_price_version"
	KeyPrefixRateLimit       = "ratelimit:"
)

// Init 初始化 Redis 连接
func Init(cfg *config.RedisConfig) (*redis.Client, error) {
	rdb = redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	return rdb, nil
}

// GetClient 获取 Redis 客户端
func GetClient() *redis.Client {
	return rdb
}

// Close 关闭 Redis 连接
func Close() error {
	if rdb != nil {
		return rdb.Close()
	}
	return nil
}

// Store 基于 Redis 的键值存储
type Store struct {
	client *redis.Client
}

// NewStore 创建存储
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Client 返回底层客户端
func (s *Store) Client() *redis.Client {
	return s.client
}

// Set 以 JSON 写入缓存
func (s *Store) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return s.client.Set(ctx, key, data, expiration).Err()
}

// Get 读取 JSON 缓存，未命中返回 ErrMiss
func (s *Store) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// GetInt64 读取整数，键不存在时返回 0
func (s *Store) GetInt64(ctx context.Context, key string) (int64, error) {
	v, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Incr 自增
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

// MGetInt64 批量读取整数值，结果只包含命中的键
func (s *Store) MGetInt64(ctx context.Context, keys []string) (map[string]int64, error) {
	result := make(map[string]int64, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			continue
		}
		result[keys[i]] = n
	}
	return result, nil
}

// MSetInt64 批量写入整数值，每个键使用相同的过期时间
func (s *Store) MSetInt64(ctx context.Context, values map[string]int64, expiration time.Duration) error {
	if len(values) == 0 {
		return nil
	}
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, v := range values {
			pipe.Set(ctx, key, v, expiration)
		}
		return nil
	})
	return err
}

// Delete 删除缓存
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// BuildKey 构建缓存键
func BuildKey(prefix string, parts ...string) string {
	key := prefix
	for _, part := range parts {
		key += part + ":"
	}
	return key[:len(key)-1]
}
