// Package metrics 提供 Prometheus helper，包含 HTTP 与购物车业务指标
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 购物车操作计数，按 operation/result 区分
	CartOperationsTotal *prometheus.CounterVec
	// 合并时处理的游客购物车行，按 outcome（merged/added/skipped）区分
	CartMergeLinesTotal *prometheus.CounterVec
	// 事件投递失败计数
	EventPublishFailures *prometheus.CounterVec
}

// New 创建并注册指标实例，每个实例使用独立 registry
func New(serviceName string) *Metrics {
	// 指标名只允许字母、数字与下划线
	serviceName = strings.ReplaceAll(serviceName, "-", "_")
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		CartOperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: serviceName,
			Name:      "cart_operations_total",
			Help:      "Cart engine operations",
		}, []string{"operation", "result"}),
		CartMergeLinesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: serviceName,
			Name:      "cart_merge_lines_total",
			Help:      "Guest cart lines processed during merges",
		}, []string{"outcome"}),
		EventPublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: serviceName,
			Name:      "event_publish_failures_total",
			Help:      "Domain events that could not be delivered",
		}, []string{"topic"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CartOperationsTotal,
		m.CartMergeLinesTotal,
		m.EventPublishFailures,
	)
	return m
}

// Registry 返回底层 registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// GinMiddleware 记录 HTTP 请求计数与耗时，route 使用路由模板避免高基数
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordCartOperation 记录一次购物车操作
func (m *Metrics) RecordCartOperation(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CartOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordMergeLines 记录合并时处理的行数
func (m *Metrics) RecordMergeLines(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CartMergeLinesTotal.WithLabelValues(outcome).Add(float64(n))
}

// RecordPublishFailure 记录事件投递失败
func (m *Metrics) RecordPublishFailure(topic string) {
	if m == nil {
		return
	}
	m.EventPublishFailures.WithLabelValues(topic).Inc()
}
