package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/schemaflow/llm/tokenizer"
	"github.com/BaSui01/schemaflow/types"
)

// EstimateFunc 估算提示词的 Token 开销。
type EstimateFunc func(ctx context.Context, prompt string) (int, error)

// RouteReason 记录一次路由决策的依据，仅用于观测。
type RouteReason string

const (
	ReasonForced         RouteReason = "forced"
	ReasonBelowThreshold RouteReason = "below_threshold"
	ReasonAboveThreshold RouteReason = "above_threshold"
	ReasonEstimateFailed RouteReason = "estimate_failed"
)

// Decision 一次路由决策的结果。
type Decision struct {
	Backend         Backend
	Tier            types.BackendTier
	EstimatedTokens int
	Reason          RouteReason
}

// Router 在经济档与高级档之间做纯选择：不重试、不缓存、无内部状态。
// 估算失败时保守地选择高级档，正确性优先于成本。
type Router struct {
	economy   Backend
	premium   Backend
	threshold int
	estimate  EstimateFunc
	logger    *zap.Logger
}

// RouterOption 配置 Router。
type RouterOption func(*Router)

// WithEstimateFunc 替换默认估算函数（测试或自定义计数时使用）。
func WithEstimateFunc(fn EstimateFunc) RouterOption {
	return func(r *Router) { r.estimate = fn }
}

// WithRouterLogger 注入日志器。
func WithRouterLogger(logger *zap.Logger) RouterOption {
	return func(r *Router) { r.logger = logger }
}

// NewRouter 创建路由器。threshold 为经济档可承受的最大估算 Token 数。
func NewRouter(economy, premium Backend, threshold int, opts ...RouterOption) *Router {
	r := &Router{
		economy:   economy,
		premium:   premium,
		threshold: threshold,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.estimate == nil {
		r.estimate = DefaultEstimator(premium)
	}
	r.logger = r.logger.With(zap.String("component", "router"))
	return r
}

// Route 为一条提示词选择后端。强制提示完全绕过估算。
func (r *Router) Route(ctx context.Context, prompt string, hint types.BackendHint) Decision {
	switch hint {
	case types.HintForceEconomy:
		return Decision{Backend: r.economy, Tier: types.TierEconomy, Reason: ReasonForced}
	case types.HintForcePremium:
		return Decision{Backend: r.premium, Tier: types.TierPremium, Reason: ReasonForced}
	}

	est, err := r.estimate(ctx, prompt)
	if err != nil {
		// 估算不可靠时宁可多花钱也不冒险
		r.logger.Warn("token estimate failed, selecting premium",
			zap.Error(err))
		return Decision{Backend: r.premium, Tier: types.TierPremium, Reason: ReasonEstimateFailed}
	}

	if est < r.threshold {
		r.logger.Debug("routing to economy backend",
			zap.Int("estimated_tokens", est),
			zap.Int("threshold", r.threshold))
		return Decision{Backend: r.economy, Tier: types.TierEconomy, EstimatedTokens: est, Reason: ReasonBelowThreshold}
	}

	r.logger.Debug("routing to premium backend",
		zap.Int("estimated_tokens", est),
		zap.Int("threshold", r.threshold))
	return Decision{Backend: r.premium, Tier: types.TierPremium, EstimatedTokens: est, Reason: ReasonAboveThreshold}
}

// DefaultEstimator 以高级档后端的计数为准（稳定的度量基准）：
// 优先调用后端自身的 CountTokens，失败时退回本地分词器估算。
func DefaultEstimator(premium Backend) EstimateFunc {
	return func(ctx context.Context, prompt string) (int, error) {
		if premium != nil {
			if n, err := premium.CountTokens(ctx, prompt); err == nil {
				return n, nil
			}
		}
		model := ""
		if premium != nil {
			model = premium.Profile().Model
		}
		tk := tokenizer.GetTokenizerOrEstimator(model)
		return tk.CountTokens(prompt)
	}
}
