// Package handler 提供 API Handler 的通用辅助函数
// 统一错误到 HTTP 状态的映射、参数解析与分页
package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/house-booking-backend/internal/common/errors"
	"github.com/dumeirei/house-booking-backend/internal/common/logger"
	"github.com/dumeirei/house-booking-backend/internal/common/response"
	"github.com/dumeirei/house-booking-backend/internal/common/utils"
)

// StatusOf 应用错误分类对应的 HTTP 状态码
func StatusOf(kind errors.Kind) int {
	switch kind {
	case errors.KindValidation:
		return http.StatusBadRequest
	case errors.KindConflict:
		return http.StatusConflict
	case errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindUnauthorized:
		return http.StatusUnauthorized
	case errors.KindForbidden:
		return http.StatusForbidden
	case errors.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// HandleError 处理错误并发送响应
// err 为 nil 时返回 false；否则写入错误响应并返回 true，调用方应该 return
//
// 内部错误与持久化错误只返回通用消息，原始错误写入日志
//
//	result, err := service.DoSomething()
//	if HandleError(c, err) {
//	    return
//	}
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	appErr := errors.GetAppError(err)
	status := StatusOf(appErr.Kind)
	if status == http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("请求处理失败",
			logger.Method(c.Request.Method),
			logger.Path(c.FullPath()),
			logger.Int("code", appErr.Code),
			logger.Err(err),
		)
		response.Error(c, status, appErr.Code, genericMessage(appErr))
		return true
	}
	response.Error(c, status, appErr.Code, appErr.Message)
	return true
}

// genericMessage 持久化错误使用固定文案，其余内部错误统一为"服务器内部错误"
func genericMessage(appErr *errors.AppError) string {
	if appErr.Kind == errors.KindPersistence {
		return errors.ErrDatabaseError.Message
	}
	return "服务器内部错误"
}

// HandleBindError 绑定失败时返回 400
func HandleBindError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	response.Error(c, http.StatusBadRequest, errors.ErrInvalidParams.Code, "参数错误: "+err.Error())
	return true
}

// MustSucceed 有错误则返回错误响应，否则返回成功响应
func MustSucceed(c *gin.Context, err error, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.Success(c, data)
}

// MustSucceedWithMessage 带自定义成功消息
func MustSucceedWithMessage(c *gin.Context, err error, message string, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.SuccessWithMessage(c, message, data)
}

// MustSucceedPage 分页响应版本
//
//	list, total, err := service.List(ctx, p)
//	MustSucceedPage(c, err, list, total, p.Page, p.PageSize)
func MustSucceedPage(c *gin.Context, err error, list interface{}, total int64, page, pageSize int) {
	if HandleError(c, err) {
		return
	}
	response.SuccessPage(c, list, total, page, pageSize)
}

// ParseID 解析路径参数 "id" 为 int64
// 解析失败时已发送 400 响应，调用方应该 return
//
//	id, ok := handler.ParseID(c, "预订")
//	if !ok {
//	    return
//	}
func ParseID(c *gin.Context, resourceName string) (int64, bool) {
	return ParseParamID(c, "id", resourceName)
}

// ParseParamID 解析指定路径参数为正整数 ID
func ParseParamID(c *gin.Context, paramName, resourceName string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(paramName), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "无效的"+resourceName+"ID")
		return 0, false
	}
	return id, true
}

// ParseQueryID 解析查询参数中的可选 ID，参数为空时返回 (nil, true)
func ParseQueryID(c *gin.Context, paramName, resourceName string) (*int64, bool) {
	idStr := c.Query(paramName)
	if idStr == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的"+resourceName+"ID")
		return nil, false
	}
	return &id, true
}

// ParseQueryIDs 解析逗号分隔的 ID 列表，参数为空时返回 (nil, true)
func ParseQueryIDs(c *gin.Context, paramName, resourceName string) ([]int64, bool) {
	raw := c.Query(paramName)
	if raw == "" {
		return nil, true
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			response.BadRequest(c, "无效的"+resourceName+"ID: "+p)
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// ParseQueryBool 解析可选布尔查询参数
func ParseQueryBool(c *gin.Context, paramName string) (*bool, bool) {
	raw := c.Query(paramName)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		response.BadRequest(c, "无效的参数 "+paramName)
		return nil, false
	}
	return &v, true
}

// ParseRequiredQueryTime 解析必填的 RFC3339 时间查询参数
func ParseRequiredQueryTime(c *gin.Context, paramName string) (time.Time, bool) {
	raw := c.Query(paramName)
	if raw == "" {
		response.BadRequest(c, "请提供参数 "+paramName)
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		response.BadRequest(c, "时间格式错误: "+paramName)
		return time.Time{}, false
	}
	return t, true
}

// ParseQueryDate 按 layout 解析可选日期查询参数，参数为空时返回 (nil, true)
func ParseQueryDate(c *gin.Context, paramName, layout string) (*time.Time, bool) {
	raw := c.Query(paramName)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(layout, raw)
	if err != nil {
		response.BadRequest(c, "日期格式错误: "+paramName)
		return nil, false
	}
	return &t, true
}

// BindPagination 从查询参数绑定并规范化分页参数
// 默认 page=1, page_size=10, 最大 page_size=100
func BindPagination(c *gin.Context) utils.Pagination {
	var p utils.Pagination
	p.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	p.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "10"))
	p.Normalize()
	return p
}
