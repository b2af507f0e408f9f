package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// probeTimeout 单个依赖的探测超时
const probeTimeout = 3 * time.Second

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp int64             `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// healthHandler 存活检查
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Unix(),
	})
}

// readyHandler 就绪检查：数据库与 Redis 均可用时返回 200
func readyHandler(db *gorm.DB, redisClient redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := map[string]string{
			"database": probe(c.Request.Context(), func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			}),
			"redis": probe(c.Request.Context(), func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}),
		}

		status, text := http.StatusOK, "ready"
		for _, v := range checks {
			if v != "ok" {
				status, text = http.StatusServiceUnavailable, "not ready"
				break
			}
		}

		c.JSON(status, HealthResponse{
			Status:    text,
			Timestamp: time.Now().Unix(),
			Checks:    checks,
		})
	}
}

func probe(parent context.Context, check func(ctx context.Context) error) string {
	ctx, cancel := context.WithTimeout(parent, probeTimeout)
	defer cancel()
	if err := check(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
