// Package middleware 提供与业务无关的通用 HTTP 中间件
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dumeirei/house-booking-backend/internal/common/logger"
)

// maxLoggedBody 记录的请求体上限
const maxLoggedBody = 4096

// OperationConfig 操作描述
type OperationConfig struct {
	Module string
	Action string
}

// 路由到操作的显式映射，未列出的路由按路径推断
var moduleActionMap = map[string]OperationConfig{
	"POST /api/v1/admin/reservations/:id/cancel":         {Module: "reservation", Action: "cancel"},
	"POST /api/v1/admin/reservations/:id/recompute-bill": {Module: "reservation", Action: "recompute_bill"},
	"POST /api/v1/admin/reservations/:id/pay":            {Module: "reservation", Action: "mark_paid"},
	"DELETE /api/v1/admin/houses/:id":                    {Module: "house", Action: "deactivate"},
}

var sensitiveFields = []string{"token", "secret", "password"}

// OperationLogger 运营写操作审计日志，写入独立命名的 zap 日志器
type OperationLogger struct {
	log        *zap.Logger
	operatorID func(*gin.Context) int64
}

// NewOperationLogger 创建审计日志中间件，operatorID 从请求上下文取运营人员 ID
func NewOperationLogger(operatorID func(*gin.Context) int64) *OperationLogger {
	return &OperationLogger{log: logger.Named("audit"), operatorID: operatorID}
}

// Log 只记录写操作；读请求直接放行
func (l *OperationLogger) Log() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxLoggedBody))
			c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), c.Request.Body))
		}

		c.Next()

		op := resolveOperation(c.Request.Method, c.FullPath())
		fields := []zap.Field{
			logger.String("module", op.Module),
			logger.String("action", op.Action),
			logger.Method(c.Request.Method),
			logger.Path(c.Request.URL.Path),
			logger.StatusCode(c.Writer.Status()),
			logger.IP(c.ClientIP()),
		}
		if id := logger.RequestIDFromContext(c.Request.Context()); id != "" {
			fields = append(fields, logger.RequestID(id))
		}
		if l.operatorID != nil {
			fields = append(fields, logger.AdminID(l.operatorID(c)))
		}
		if id, err := strconv.ParseInt(c.Param("id"), 10, 64); err == nil {
			fields = append(fields, logger.Int64("target_id", id))
		}
		if data := filterSensitiveData(body); data != nil {
			fields = append(fields, logger.Any("data", data))
		}
		l.log.Info("运营操作", fields...)
	}
}

func resolveOperation(method, route string) OperationConfig {
	if op, ok := moduleActionMap[method+" "+route]; ok {
		return op
	}

	module := "unknown"
	switch {
	case strings.Contains(route, "/houses"):
		module = "house"
	case strings.Contains(route, "/events"):
		module = "event"
	case strings.Contains(route, "/promo-codes"):
		module = "promo_code"
	case strings.Contains(route, "/reservations"):
		module = "reservation"
	}

	action := "unknown"
	switch method {
	case http.MethodPost:
		action = "create"
	case http.MethodPut, http.MethodPatch:
		action = "update"
	case http.MethodDelete:
		action = "delete"
	}
	return OperationConfig{Module: module, Action: action}
}

// filterSensitiveData 解析 JSON 请求体并遮蔽敏感字段，非 JSON 返回 nil
func filterSensitiveData(body []byte) interface{} {
	if len(body) == 0 {
		return nil
	}
	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil
	}
	return mask(data)
}

func mask(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isSensitive(key) {
				result[key] = "***"
			} else {
				result[key] = mask(value)
			}
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = mask(item)
		}
		return result
	default:
		return data
	}
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, f := range sensitiveFields {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}
