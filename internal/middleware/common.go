// Package middleware 提供 HTTP 中间件
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dumeirei/house-booking-backend/internal/common/errors"
	"github.com/dumeirei/house-booking-backend/internal/common/logger"
	"github.com/dumeirei/house-booking-backend/internal/common/response"
)

// HeaderRequestID 请求 ID 头
const HeaderRequestID = "X-Request-ID"

// ContextKeyRequestID 上下文键
const ContextKeyRequestID = "request_id"

// RequestID 请求 ID 中间件，同时写入 gin 上下文和请求的 context.Context
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(ContextKeyRequestID, requestID)
		c.Header(HeaderRequestID, requestID)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), requestID))

		c.Next()
	}
}

// GetRequestID 获取请求 ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// Recovery 捕获 panic，记录堆栈并返回 500
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.WithContext(c.Request.Context()).Error("Panic recovered",
					logger.Method(c.Request.Method),
					logger.Path(c.Request.URL.Path),
					logger.IP(c.ClientIP()),
					logger.Any("error", err),
					logger.String("stack", string(debug.Stack())),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
					Code:    errors.ErrInternalError.Code,
					Message: "服务器内部错误",
				})
			}
		}()

		c.Next()
	}
}

// SecureHeaders 安全头中间件
func SecureHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// RequestSizeLimiter 请求体大小限制
func RequestSizeLimiter(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			response.BadRequest(c, fmt.Sprintf("请求体过大，最大允许 %d 字节", maxSize))
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
