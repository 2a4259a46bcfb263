package gateway

import (
	"context"
	"math/rand"
	"time"

	"github.com/BaSui01/schemaflow/config"
	"github.com/BaSui01/schemaflow/types"
)

// BackoffPolicy 决定两次尝试之间的等待时长。基础设施失败等满额延迟，
// 语义失败按 SemanticFactor 折减。
type BackoffPolicy struct {
	// Base 基础延迟，按失败的尝试序号线性放大
	Base time.Duration
	// SemanticFactor 语义失败（解析/校验）的延迟折减系数，取值 [0, 1]
	SemanticFactor float64
	// MaxDelay 延迟上限，0 表示不封顶
	MaxDelay time.Duration
	// Jitter 是否添加 ±25% 随机抖动
	Jitter bool
}

// DefaultBackoffPolicy 返回默认退避策略。
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		Base:           20 * time.Second,
		SemanticFactor: 0.5,
		MaxDelay:       2 * time.Minute,
	}
}

// PolicyFromConfig 从重试配置构造退避策略。
func PolicyFromConfig(cfg config.RetryConfig) BackoffPolicy {
	return BackoffPolicy{
		Base:           cfg.BaseBackoff,
		SemanticFactor: cfg.SemanticFactor,
		MaxDelay:       cfg.MaxDelay,
		Jitter:         cfg.Jitter,
	}
}

// Delay 计算第 attempt 次尝试（从 1 计数）失败后的等待时长。
func (p BackoffPolicy) Delay(attempt int, outcome types.OutcomeClass) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := float64(p.Base) * float64(attempt)
	if isSemantic(outcome) {
		d *= p.SemanticFactor
	}
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}

	// 随机抖动 ±25%，防止多个客户端同时重试导致的雪崩效应
	if p.Jitter && d > 0 {
		jitter := d * 0.25
		d += (rand.Float64()*2 - 1) * jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// isSemantic 判断该结果类别是否走折减延迟。
func isSemantic(outcome types.OutcomeClass) bool {
	return outcome == types.OutcomeParseFail || outcome == types.OutcomeValidationFail
}

// Sleep 等待 d，期间监听 ctx 取消。
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
