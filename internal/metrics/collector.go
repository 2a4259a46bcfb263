// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/schemaflow/gateway"
	"github.com/BaSui01/schemaflow/types"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 实现 gateway.Recorder，把网关生命周期事件导出为
// Prometheus 指标。
type Collector struct {
	// 请求级指标：终态与总耗时（含全部重试与退避）
	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram

	// 尝试级指标：后端与结果类别
	attemptsTotal       *prometheus.CounterVec
	backendCallDuration *prometheus.HistogramVec

	// 路由指标：Token 估算分布，路由阈值落在桶边界上
	estimatedTokens prometheus.Histogram

	logger *zap.Logger
}

var _ gateway.Recorder = (*Collector)(nil)

// NewCollector 创建指标收集器并注册到默认 registry。
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of structured requests by terminal status",
		},
		[]string{"status"},
	)

	c.requestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "End-to-end request duration including retries and backoff",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	c.attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Total number of backend attempts by outcome",
		},
		[]string{"backend", "outcome"},
	)

	c.backendCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_call_duration_seconds",
			Help:      "Single backend call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"backend"},
	)

	c.estimatedTokens = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "estimated_tokens",
			Help:      "Distribution of routing-time token estimates",
			Buckets:   []float64{256, 512, 1024, 2048, 4096, 8192, 13000, 16384, 32768},
		},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 指标记录
// =============================================================================

// RecordRequest 记录一次请求终态与总耗时。
func (c *Collector) RecordRequest(status string, duration time.Duration) {
	c.requestsTotal.WithLabelValues(status).Inc()
	c.requestDuration.Observe(duration.Seconds())
}

// RecordAttempt 记录一次后端尝试及其结果类别。
func (c *Collector) RecordAttempt(backend string, outcome types.OutcomeClass) {
	c.attemptsTotal.WithLabelValues(backend, string(outcome)).Inc()
}

// RecordBackendCall 记录一次后端调用耗时。
func (c *Collector) RecordBackendCall(backend string, duration time.Duration) {
	c.backendCallDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordEstimatedTokens 记录路由时的 Token 估算值。
func (c *Collector) RecordEstimatedTokens(tokens int) {
	c.estimatedTokens.Observe(float64(tokens))
}
