package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dumeirei/house-booking-backend/internal/common/logger"
)

// LoggingConfig 访问日志配置
type LoggingConfig struct {
	SkipPaths []string
}

// AccessLog 访问日志。5xx 记 Error，4xx 记 Warn
func AccessLog(config *LoggingConfig) gin.HandlerFunc {
	skipPaths := map[string]struct{}{
		"/health":  {},
		"/ready":   {},
		"/metrics": {},
	}
	if config != nil {
		for _, path := range config.SkipPaths {
			skipPaths[path] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skipPaths[path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		fields := []zap.Field{
			logger.Method(c.Request.Method),
			logger.Path(path),
			logger.String("query", c.Request.URL.RawQuery),
			logger.StatusCode(status),
			logger.Latency(latency),
			logger.IP(c.ClientIP()),
			logger.String("user_agent", c.Request.UserAgent()),
		}
		if operatorID := GetOperatorID(c); operatorID > 0 {
			fields = append(fields, logger.AdminID(operatorID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.String("errors", c.Errors.String()))
		}

		log := logger.WithContext(c.Request.Context())
		switch {
		case status >= 500:
			log.Error("HTTP Request", fields...)
		case status >= 400:
			log.Warn("HTTP Request", fields...)
		default:
			log.Info("HTTP Request", fields...)
		}
	}
}
