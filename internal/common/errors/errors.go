// Package errors 定义业务错误码和错误处理
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind 错误分类，决定 HTTP 状态码与是否向调用方暴露原始消息
type Kind int

const (
	KindInternal    Kind = iota // 配置或数据异常，不暴露细节
	KindValidation              // 输入校验失败
	KindConflict                // 业务规则冲突
	KindNotFound                // 资源不存在
	KindUnauthorized            // 未认证
	KindForbidden               // 无权限
	KindPersistence             // 持久化失败，事务已回滚
	KindRateLimited             // 请求过于频繁
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Kind    Kind   `json:"-"`
	Err     error  `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，使 errors.Is 对 WithMessage/WithError 的副本同样生效
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New 创建新的应用错误
func New(code int, message string) *AppError {
	return &AppError{Code: code, Message: message, Kind: KindInternal}
}

// NewKind 创建带分类的应用错误
func NewKind(kind Kind, code int, message string) *AppError {
	return &AppError{Code: code, Message: message, Kind: kind}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Kind: KindInternal, Err: err}
}

// WithMessage 修改错误消息
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{Code: e.Code, Message: message, Kind: e.Kind, Err: e.Err}
}

// WithMessagef 修改错误消息（格式化）
func (e *AppError) WithMessagef(format string, args ...interface{}) *AppError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithError 添加原始错误
func (e *AppError) WithError(err error) *AppError {
	return &AppError{Code: e.Code, Message: e.Message, Kind: e.Kind, Err: err}
}

// 通用错误码 (1000-1999)
var (
	ErrUnknown         = New(1000, "未知错误")
	ErrInvalidParams   = NewKind(KindValidation, 1001, "参数错误")
	ErrNotFound        = NewKind(KindNotFound, 1002, "资源不存在")
	ErrAlreadyExists   = NewKind(KindConflict, 1003, "资源已存在")
	ErrDatabaseError   = NewKind(KindPersistence, 1004, "数据库错误")
	ErrCacheError      = New(1005, "缓存错误")
	ErrInternalError   = New(1006, "内部错误")
	ErrRateLimitExceed = NewKind(KindRateLimited, 1008, "请求过于频繁")
)

// 认证错误码 (2000-2999)
var (
	ErrUnauthorized     = NewKind(KindUnauthorized, 2000, "未登录")
	ErrTokenExpired     = NewKind(KindUnauthorized, 2001, "登录已过期")
	ErrTokenInvalid     = NewKind(KindUnauthorized, 2002, "无效的令牌")
	ErrPermissionDenied = NewKind(KindForbidden, 2004, "权限不足")
)

// 预订错误码 (8000-8999)
var (
	ErrIncorrectDatetimes   = NewKind(KindValidation, 8001, "入住时间必须早于退房时间")
	ErrIncorrectOccupancy   = NewKind(KindValidation, 8002, "入住人数超出允许范围")
	ErrIncorrectTime        = NewKind(KindValidation, 8003, "不支持的入住或退房时刻")
	ErrReservationConflict  = NewKind(KindConflict, 8004, "该时段房屋已被预订")
	ErrHouseNotFound        = NewKind(KindNotFound, 8005, "房屋不存在")
	ErrHouseInactive        = NewKind(KindConflict, 8006, "房屋已停用")
	ErrReservationNotFound  = NewKind(KindNotFound, 8007, "预订不存在")
	ErrBillPaid             = NewKind(KindConflict, 8008, "账单已支付，不可重新计算")
	ErrInvalidClient        = NewKind(KindValidation, 8009, "客户信息不合法")
	ErrInvalidCalendarQuery = NewKind(KindValidation, 8010, "日历查询参数不合法")
	ErrHouseExists          = NewKind(KindConflict, 8011, "房屋名称已存在")
	ErrEventNotFound        = NewKind(KindNotFound, 8012, "活动不存在")
	ErrInvalidHouse         = NewKind(KindValidation, 8013, "房屋参数不合法")
	ErrInvalidEvent         = NewKind(KindValidation, 8014, "活动参数不合法")
)

// 优惠码错误码 (9000-9999)
var (
	ErrPromoCodeInvalid        = NewKind(KindConflict, 9001, "优惠码不可用")
	ErrPromoCodeNotFound       = NewKind(KindNotFound, 9002, "优惠码不存在")
	ErrPromoCodeUnexpectedType = New(9003, "未知的优惠类型")
	ErrPromoCodeExists         = NewKind(KindConflict, 9004, "优惠码已存在")
	ErrInvalidPromoCode        = NewKind(KindValidation, 9005, "优惠码参数不合法")
)

// IsAppError 判断是否为应用错误
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError 获取应用错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrUnknown.WithError(err)
}

// Is 判断 err 链中是否含有 target 错误码
func Is(err error, target *AppError) bool {
	return stderrors.Is(err, target)
}
