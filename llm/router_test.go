package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/schemaflow/types"
)

// stubBackend 是路由测试用的最小后端实现
type stubBackend struct {
	profile    types.BackendProfile
	countN     int
	countErr   error
	countCalls int
}

func (s *stubBackend) Generate(_ context.Context, _ *GenerateRequest) (*GenerateResponse, error) {
	return &GenerateResponse{Text: "{}", Backend: s.profile.ID, Model: s.profile.Model}, nil
}

func (s *stubBackend) CountTokens(_ context.Context, _ string) (int, error) {
	s.countCalls++
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.countN, nil
}

func (s *stubBackend) Name() string { return s.profile.ID }

func (s *stubBackend) Profile() types.BackendProfile { return s.profile }

func newTierPair() (*stubBackend, *stubBackend) {
	economy := &stubBackend{profile: types.BackendProfile{
		ID:     "gemini/gemma-3-27b-it",
		Vendor: "gemini",
		Model:  "gemma-3-27b-it",
		Tier:   types.TierEconomy,
	}}
	premium := &stubBackend{profile: types.BackendProfile{
		ID:                     "gemini/gemini-2.0-flash",
		Vendor:                 "gemini",
		Model:                  "gemini-2.0-flash",
		Tier:                   types.TierPremium,
		SupportsSchemaDecoding: true,
	}}
	return economy, premium
}

func fixedEstimate(n int) EstimateFunc {
	return func(context.Context, string) (int, error) { return n, nil }
}

// --- 路由决策测试 ---

func TestRouterBelowThreshold(t *testing.T) {
	economy, premium := newTierPair()
	r := NewRouter(economy, premium, 13000, WithEstimateFunc(fixedEstimate(4200)))

	d := r.Route(context.Background(), "short prompt", types.HintAuto)

	assert.Same(t, Backend(economy), d.Backend)
	assert.Equal(t, types.TierEconomy, d.Tier)
	assert.Equal(t, 4200, d.EstimatedTokens)
	assert.Equal(t, ReasonBelowThreshold, d.Reason)
}

func TestRouterAboveThreshold(t *testing.T) {
	economy, premium := newTierPair()
	r := NewRouter(economy, premium, 13000, WithEstimateFunc(fixedEstimate(25000)))

	d := r.Route(context.Background(), "very long prompt", types.HintAuto)

	assert.Same(t, Backend(premium), d.Backend)
	assert.Equal(t, types.TierPremium, d.Tier)
	assert.Equal(t, ReasonAboveThreshold, d.Reason)
}

func TestRouterThresholdBoundary(t *testing.T) {
	economy, premium := newTierPair()

	// 恰好等于阈值时走高级档
	r := NewRouter(economy, premium, 13000, WithEstimateFunc(fixedEstimate(13000)))
	d := r.Route(context.Background(), "p", types.HintAuto)
	assert.Equal(t, types.TierPremium, d.Tier)

	// 低一个 token 走经济档
	r = NewRouter(economy, premium, 13000, WithEstimateFunc(fixedEstimate(12999)))
	d = r.Route(context.Background(), "p", types.HintAuto)
	assert.Equal(t, types.TierEconomy, d.Tier)
}

func TestRouterForcedHintsSkipEstimation(t *testing.T) {
	economy, premium := newTierPair()
	calls := 0
	counting := func(context.Context, string) (int, error) {
		calls++
		return 0, nil
	}
	r := NewRouter(economy, premium, 13000, WithEstimateFunc(counting))

	d := r.Route(context.Background(), "p", types.HintForceEconomy)
	assert.Equal(t, types.TierEconomy, d.Tier)
	assert.Equal(t, ReasonForced, d.Reason)

	d = r.Route(context.Background(), "p", types.HintForcePremium)
	assert.Equal(t, types.TierPremium, d.Tier)
	assert.Equal(t, ReasonForced, d.Reason)

	assert.Equal(t, 0, calls, "forced hints must not invoke the estimator")
}

func TestRouterEstimateFailurePrefersPremium(t *testing.T) {
	economy, premium := newTierPair()
	failing := func(context.Context, string) (int, error) {
		return 0, errors.New("tokenizer offline")
	}
	r := NewRouter(economy, premium, 13000, WithEstimateFunc(failing))

	d := r.Route(context.Background(), "p", types.HintAuto)

	assert.Same(t, Backend(premium), d.Backend)
	assert.Equal(t, ReasonEstimateFailed, d.Reason)
}

// --- 默认估算器测试 ---

func TestDefaultEstimatorUsesBackendCount(t *testing.T) {
	_, premium := newTierPair()
	premium.countN = 42

	est := DefaultEstimator(premium)
	n, err := est(context.Background(), "whatever")

	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.Equal(t, 1, premium.countCalls)
}

func TestDefaultEstimatorFallsBackToLocal(t *testing.T) {
	_, premium := newTierPair()
	premium.countErr = errors.New("count endpoint down")

	est := DefaultEstimator(premium)
	n, err := est(context.Background(), "fallback please, a reasonably sized prompt")

	require.NoError(t, err)
	assert.Greater(t, n, 0)
}

func TestDefaultEstimatorNilBackend(t *testing.T) {
	est := DefaultEstimator(nil)
	n, err := est(context.Background(), "no backend at all")

	require.NoError(t, err)
	assert.Greater(t, n, 0)
}

// --- TPM 保护测试 ---

func TestTPMGuardDisabled(t *testing.T) {
	g := NewTPMGuard(0, nil)
	assert.False(t, g.Enabled())
	assert.NoError(t, g.Wait(context.Background(), 99999))

	var nilGuard *TPMGuard
	assert.False(t, nilGuard.Enabled())
	assert.NoError(t, nilGuard.Wait(context.Background(), 10))
}

func TestTPMGuardAllowsWithinBudget(t *testing.T) {
	g := NewTPMGuard(14000, nil)
	require.True(t, g.Enabled())

	start := time.Now()
	err := g.Wait(context.Background(), 500)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestTPMGuardClampsOversizedPrompt(t *testing.T) {
	// 预算 60 token/分钟，突发额度 60
	g := NewTPMGuard(60, nil)

	// 超预算的请求被收敛到整分钟预算后放行
	start := time.Now()
	err := g.Wait(context.Background(), 10000)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestTPMGuardBlocksWhenExhausted(t *testing.T) {
	g := NewTPMGuard(60, nil)

	// 耗尽整分钟预算
	require.NoError(t, g.Wait(context.Background(), 60))

	// 下一次预约需要等待补充，上下文先超时
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := g.Wait(ctx, 30)
	assert.Error(t, err)
}
