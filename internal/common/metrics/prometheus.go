// Package metrics 提供 Prometheus 指标收集
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "house_booking"

// 预订结果标签
const (
	ResultSuccess  = "success"
	ResultConflict = "conflict"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// 业务指标
var (
	ReceiptsBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "receipts_built_total",
		Help:      "Total number of receipts computed",
	})

	ReservationsCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reservations_committed_total",
		Help:      "Reservation commit attempts by result",
	}, []string{"result"})

	DayPriceCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "day_price_cache_hits_total",
		Help:      "Day prices served from cache",
	})

	DayPriceCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "day_price_cache_misses_total",
		Help:      "Day prices computed because of a cache miss",
	})

	CalendarRenderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "calendar_render_duration_seconds",
		Help:      "Calendar rendering duration in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"mode"})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Notifications dispatched by topic and result",
	}, []string{"topic", "result"})
)

// HTTP 指标
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"method", "path"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_flight",
		Help:      "Current number of HTTP requests being processed",
	})
)

// Middleware 返回 Gin 中间件
func Middleware(metricsPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 跳过 metrics 端点本身
		if c.Request.URL.Path == metricsPath {
			c.Next()
			return
		}

		start := time.Now()
		httpRequestsInFlight.Inc()

		c.Next()

		httpRequestsInFlight.Dec()
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// Handler 返回 Prometheus HTTP 处理器
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordHTTPRequest 记录 HTTP 请求
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveCalendarRender 记录日历渲染耗时
func ObserveCalendarRender(mode string, start time.Time) {
	CalendarRenderDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}
