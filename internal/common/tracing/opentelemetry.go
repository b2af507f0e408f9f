// Package tracing 提供 OpenTelemetry 分布式追踪
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/dumeirei/house-booking-backend/internal/common/config"
)

// Tracer 追踪器包装
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	cfg      config.TracingConfig
}

var defaultTracer = &Tracer{}

// Init 初始化追踪器；未启用时返回空操作追踪器
func Init(cfg *config.TracingConfig, version string) (*Tracer, error) {
	if cfg == nil || !cfg.Enabled {
		defaultTracer = &Tracer{}
		if cfg != nil {
			defaultTracer.cfg = *cfg
		}
		return defaultTracer, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("创建资源失败: %w", err)
	}

	var exporter sdktrace.SpanExporter
	if cfg.Endpoint != "" {
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
		exporter, err = otlptrace.New(context.Background(), client)
		if err != nil {
			return nil, fmt.Errorf("创建 OTLP 导出器失败: %w", err)
		}
	} else {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("创建 stdout 导出器失败: %w", err)
		}
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	defaultTracer = &Tracer{
		provider: provider,
		tracer:   provider.Tracer(cfg.ServiceName),
		cfg:      *cfg,
	}
	return defaultTracer, nil
}

// GetTracer 获取默认追踪器
func GetTracer() *Tracer {
	return defaultTracer
}

// Enabled 是否已启用
func (t *Tracer) Enabled() bool {
	return t.tracer != nil
}

// Shutdown 关闭追踪器并刷新未导出的 span
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// Start 开始一个带属性的 span；追踪未启用时返回上下文中已有的（空操作）span
func (t *Tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if t.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// Start 使用默认追踪器开始 span
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return defaultTracer.Start(ctx, name, attrs...)
}

// SetError 记录错误并把 span 状态置为失败
func SetError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddEvent 添加事件到当前 span
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// 常用属性键
var (
	AttrHouseID         = attribute.Key("house.id")
	AttrHouseCount      = attribute.Key("house.count")
	AttrReservationSlug = attribute.Key("reservation.slug")
	AttrCalendarMode    = attribute.Key("calendar.mode")
	AttrCalendarMonth   = attribute.Key("calendar.month")
	AttrPromoCode       = attribute.Key("promo.code")
)

// WithHouseID 房屋 ID 属性
func WithHouseID(id int64) attribute.KeyValue {
	return AttrHouseID.Int64(id)
}

// WithReservationSlug 预订访问码属性
func WithReservationSlug(slug string) attribute.KeyValue {
	return AttrReservationSlug.String(slug)
}

// WithCalendar 日历模式与月份（yyyy-mm）属性
func WithCalendar(mode string, year, month int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrCalendarMode.String(mode),
		AttrCalendarMonth.String(fmt.Sprintf("%04d-%02d", year, month)),
	}
}
