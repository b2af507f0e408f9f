// Package logger 提供结构化日志功能
package logger

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dumeirei/house-booking-backend/internal/common/config"
)

var (
	log   *zap.Logger
	sugar *zap.SugaredLogger
)

type requestIDKey struct{}

// Init 初始化日志
func Init(cfg *config.LoggerConfig) error {
	log = New(cfg)
	sugar = log.Sugar()
	return nil
}

// New 按配置构建日志器，不修改全局日志器
func New(cfg *config.LoggerConfig) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	var writers []zapcore.WriteSyncer
	if cfg.Output == "stdout" || cfg.Output == "" {
		writers = append(writers, zapcore.AddSync(os.Stdout))
	}
	// 文件输出按大小滚动
	if cfg.FilePath != "" && cfg.Output != "stdout" {
		writers = append(writers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writers...), getLogLevel(cfg.Level))

	options := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Caller {
		options = append(options, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	return zap.New(core, options...)
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

func getLogLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// GetLogger 获取原始日志器
func GetLogger() *zap.Logger {
	if log == nil {
		log, _ = zap.NewDevelopment()
		sugar = log.Sugar()
	}
	return log
}

// GetSugar 获取 Sugar 日志器
func GetSugar() *zap.SugaredLogger {
	if sugar == nil {
		GetLogger()
	}
	return sugar
}

// SetLogger 替换全局日志器，测试中用于捕获输出
func SetLogger(l *zap.Logger) {
	log = l
	sugar = l.Sugar()
}

// Sync 同步日志
func Sync() error {
	if log != nil {
		return log.Sync()
	}
	return nil
}

// Debug 调试日志
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Info 信息日志
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Warn 警告日志
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error 错误日志
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal 致命错误日志
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// Infof 格式化信息日志
func Infof(template string, args ...interface{}) {
	GetSugar().Infof(template, args...)
}

// Errorf 格式化错误日志
func Errorf(template string, args ...interface{}) {
	GetSugar().Errorf(template, args...)
}

// With 返回带有字段的日志器
func With(fields ...zap.Field) *zap.Logger {
	return GetLogger().With(fields...)
}

// Named 返回命名日志器
func Named(name string) *zap.Logger {
	return GetLogger().Named(name)
}

// ContextWithRequestID 把请求ID写入 context
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext 读取 context 中的请求ID
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithContext 返回携带请求ID的日志器
func WithContext(ctx context.Context) *zap.Logger {
	if id := RequestIDFromContext(ctx); id != "" {
		return GetLogger().With(RequestID(id))
	}
	return GetLogger()
}

// 常用字段构造函数
var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Float64  = zap.Float64
	Bool     = zap.Bool
	Any      = zap.Any
	Err      = zap.Error
	Duration = zap.Duration
	Time     = zap.Time
)

// RequestID 请求ID字段
func RequestID(id string) zap.Field {
	return zap.String("request_id", id)
}

// AdminID 管理员ID字段
func AdminID(id int64) zap.Field {
	return zap.Int64("admin_id", id)
}

// HouseID 房屋ID字段
func HouseID(id int64) zap.Field {
	return zap.Int64("house_id", id)
}

// ReservationID 预订ID字段
func ReservationID(id int64) zap.Field {
	return zap.Int64("reservation_id", id)
}

// ReservationSlug 预订短码字段
func ReservationSlug(slug string) zap.Field {
	return zap.String("reservation_slug", slug)
}

// PromoCode 优惠码字段
func PromoCode(code string) zap.Field {
	return zap.String("promo_code", code)
}

// Module 模块字段
func Module(name string) zap.Field {
	return zap.String("module", name)
}

// Latency 延迟字段
func Latency(d time.Duration) zap.Field {
	return zap.Duration("latency", d)
}

// StatusCode HTTP状态码字段
func StatusCode(code int) zap.Field {
	return zap.Int("status_code", code)
}

// Method HTTP方法字段
func Method(method string) zap.Field {
	return zap.String("method", method)
}

// Path 路径字段
func Path(path string) zap.Field {
	return zap.String("path", path)
}

// IP IP地址字段
func IP(ip string) zap.Field {
	return zap.String("ip", ip)
}
