package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/dumeirei/house-booking-backend/internal/common/cache"
	"github.com/dumeirei/house-booking-backend/internal/common/logger"
	"github.com/dumeirei/house-booking-backend/internal/common/response"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	RedisClient redis.Cmdable
	Limit       int
	Window      time.Duration
	// KeyFunc 限流维度，默认按客户端 IP 和路由
	KeyFunc func(*gin.Context) string
}

// RateLimit 固定窗口限流。Redis 不可用时放行
func RateLimit(config *RateLimitConfig) gin.HandlerFunc {
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string {
			return cache.BuildKey(cache.KeyPrefixRateLimit, c.ClientIP(), c.FullPath())
		}
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := keyFunc(c)

		count, err := config.RedisClient.Incr(ctx, key).Result()
		if err != nil {
			logger.WithContext(ctx).Warn("限流计数失败，放行请求", logger.Err(err))
			c.Next()
			return
		}
		if count == 1 {
			config.RedisClient.Expire(ctx, key, config.Window)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		if int(count) > config.Limit {
			ttl, _ := config.RedisClient.TTL(ctx, key).Result()
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))

			response.TooManyRequests(c, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(config.Limit-int(count)))
		c.Next()
	}
}

// IPRateLimit 按客户端 IP 和路由限流
func IPRateLimit(redisClient redis.Cmdable, limit int, window time.Duration) gin.HandlerFunc {
	return RateLimit(&RateLimitConfig{
		RedisClient: redisClient,
		Limit:       limit,
		Window:      window,
	})
}
