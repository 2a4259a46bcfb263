package gateway

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/BaSui01/schemaflow/types"
)

const instrumentationName = "github.com/BaSui01/schemaflow/gateway"

// Recorder 接收网关的生命周期事件。internal/metrics 提供 Prometheus
// 实现；不注入时事件被丢弃。
type Recorder interface {
	// RecordRequest 记录一次请求终态（success / max_retries_reached / quota_exhausted）
	RecordRequest(status string, duration time.Duration)
	// RecordAttempt 记录一次后端尝试及其结果类别
	RecordAttempt(backend string, outcome types.OutcomeClass)
	// RecordBackendCall 记录一次后端调用耗时
	RecordBackendCall(backend string, duration time.Duration)
	// RecordEstimatedTokens 记录路由时的 Token 估算值
	RecordEstimatedTokens(tokens int)
}

// nopRecorder 丢弃全部事件。
type nopRecorder struct{}

func (nopRecorder) RecordRequest(string, time.Duration)      {}
func (nopRecorder) RecordAttempt(string, types.OutcomeClass) {}
func (nopRecorder) RecordBackendCall(string, time.Duration)  {}
func (nopRecorder) RecordEstimatedTokens(int)                {}

// obs 汇集 OTel 追踪与度量。宿主进程未安装 SDK 时全局提供者为 noop，
// 这里创建的仪表同样为 noop，调用零开销。
type obs struct {
	tracer       trace.Tracer
	attemptTotal metric.Int64Counter
	callDuration metric.Float64Histogram
}

func newObs() (*obs, error) {
	tracer := otel.Tracer(instrumentationName)
	meter := otel.Meter(instrumentationName)

	o := &obs{tracer: tracer}

	var err error
	o.attemptTotal, err = meter.Int64Counter("schemaflow.attempt.total",
		metric.WithDescription("Backend attempts by outcome"),
		metric.WithUnit("{attempt}"))
	if err != nil {
		return nil, err
	}

	o.callDuration, err = meter.Float64Histogram("schemaflow.backend.call.duration",
		metric.WithDescription("Backend call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60))
	if err != nil {
		return nil, err
	}

	return o, nil
}

// countAttempt 累计一次尝试。
func (o *obs) countAttempt(ctx context.Context, backend string, outcome types.OutcomeClass) {
	o.attemptTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("outcome", string(outcome))))
}

// recordCall 记录一次后端调用耗时。
func (o *obs) recordCall(ctx context.Context, backend string, dur time.Duration) {
	o.callDuration.Record(ctx, dur.Seconds(), metric.WithAttributes(
		attribute.String("backend", backend)))
}
