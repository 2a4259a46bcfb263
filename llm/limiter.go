package llm

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TPMGuard 是经济档后端的客户端 Token 速率保护：在调用前按估算
// Token 数预约额度，超出每分钟预算时阻塞等待而不是打到上游限流。
// tokensPerMinute <= 0 时保护关闭，Wait 直接放行。
type TPMGuard struct {
	limiter *rate.Limiter
	burst   int
	logger  *zap.Logger
}

// NewTPMGuard 创建速率保护。突发额度为整分钟预算。
func NewTPMGuard(tokensPerMinute int, logger *zap.Logger) *TPMGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &TPMGuard{logger: logger.With(zap.String("component", "tpm_guard"))}
	if tokensPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(float64(tokensPerMinute)/60.0), tokensPerMinute)
		g.burst = tokensPerMinute
	}
	return g
}

// Enabled 报告保护是否生效。
func (g *TPMGuard) Enabled() bool {
	return g != nil && g.limiter != nil
}

// Wait 预约 tokens 个 Token 的额度，必要时阻塞。ctx 取消时返回其错误。
// 单条提示超过整分钟预算时按预算上限预约，放行而不是永久阻塞。
func (g *TPMGuard) Wait(ctx context.Context, tokens int) error {
	if !g.Enabled() || tokens <= 0 {
		return nil
	}
	if tokens > g.burst {
		g.logger.Warn("prompt exceeds full-minute token budget, clamping reservation",
			zap.Int("tokens", tokens),
			zap.Int("budget", g.burst))
		tokens = g.burst
	}
	return g.limiter.WaitN(ctx, tokens)
}
