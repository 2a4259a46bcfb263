// Backend 的测试模拟实现。
//
// 支持固定响应、按尝试排布的响应/错误序列与调用记录。
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/schemaflow/llm"
	"github.com/BaSui01/schemaflow/types"
)

// --- Backend 结构 ---

// Backend 是 llm.Backend 的模拟实现。所有配置方法返回自身以支持
// 链式构造；并发安全。
type Backend struct {
	mu sync.Mutex

	// 响应配置
	response  string
	responses []string
	err       error
	errSeq    []error
	failAfter int

	// Token 计数配置
	tokenCount int
	countErr   error

	// 画像
	profile types.BackendProfile

	// 自定义行为
	generateFunc func(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error)

	// 调用记录
	calls     []Call
	callCount int
}

// Call 记录单次 Generate 调用。
type Call struct {
	Prompt string
	Schema *types.JSONSchema
	Error  error
}

// --- 构造函数和 Builder 方法 ---

// NewBackend 创建新的模拟后端，默认返回空对象响应。
func NewBackend() *Backend {
	return &Backend{
		response:   "{}",
		tokenCount: 100,
		profile: types.BackendProfile{
			ID:     "mock/mock-model",
			Vendor: "mock",
			Model:  "mock-model",
			Tier:   types.TierEconomy,
		},
	}
}

// WithResponse 设置固定响应文本。
func (m *Backend) WithResponse(text string) *Backend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = text
	return m
}

// WithResponses 设置按调用次序返回的响应序列，序列耗尽后重复最后一个。
func (m *Backend) WithResponses(texts ...string) *Backend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = texts
	return m
}

// WithError 设置每次调用都返回的错误。
func (m *Backend) WithError(err error) *Backend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithErrorSequence 设置按调用次序返回的错误序列，nil 项表示该次
// 调用成功（返回当前响应）。序列耗尽后一律成功。
func (m *Backend) WithErrorSequence(errs ...error) *Backend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errSeq = errs
	return m
}

// WithFailAfter 设置在第 n 次调用之后开始失败。
func (m *Backend) WithFailAfter(n int, err error) *Backend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	m.err = err
	return m
}

// WithTokenCount 设置 CountTokens 的返回值。
func (m *Backend) WithTokenCount(n int) *Backend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenCount = n
	return m
}

// WithCountError 设置 CountTokens 返回的错误。
func (m *Backend) WithCountError(err error) *Backend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countErr = err
	return m
}

// WithProfile 替换后端画像。
func (m *Backend) WithProfile(p types.BackendProfile) *Backend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = p
	return m
}

// WithGenerateFunc 设置自定义 Generate 函数，优先于其它响应配置。
func (m *Backend) WithGenerateFunc(fn func(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error)) *Backend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generateFunc = fn
	return m
}

// --- llm.Backend 接口实现 ---

// Generate 实现 llm.Backend。
func (m *Backend) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	m.mu.Lock()

	m.callCount++
	n := m.callCount

	if m.generateFunc != nil {
		fn := m.generateFunc
		m.mu.Unlock()
		resp, err := fn(ctx, req)
		m.mu.Lock()
		m.calls = append(m.calls, Call{Prompt: req.Prompt, Schema: req.ResponseSchema, Error: err})
		m.mu.Unlock()
		return resp, err
	}
	defer m.mu.Unlock()

	// 错误序列：第 n 次调用对应第 n-1 项
	var err error
	switch {
	case len(m.errSeq) >= n:
		err = m.errSeq[n-1]
	case m.failAfter > 0 && n > m.failAfter:
		err = m.err
	case m.failAfter == 0:
		err = m.err
	}
	if err != nil {
		m.calls = append(m.calls, Call{Prompt: req.Prompt, Schema: req.ResponseSchema, Error: err})
		return nil, err
	}

	text := m.response
	if len(m.responses) > 0 {
		idx := n - 1
		if idx >= len(m.responses) {
			idx = len(m.responses) - 1
		}
		text = m.responses[idx]
	}

	m.calls = append(m.calls, Call{Prompt: req.Prompt, Schema: req.ResponseSchema})
	return &llm.GenerateResponse{
		Text:    text,
		Backend: m.profile.ID,
		Model:   m.profile.Model,
		Latency: time.Millisecond,
	}, nil
}

// CountTokens 实现 llm.Backend。
func (m *Backend) CountTokens(_ context.Context, _ string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.tokenCount, nil
}

// Name 实现 llm.Backend。
func (m *Backend) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile.ID
}

// Profile 实现 llm.Backend。
func (m *Backend) Profile() types.BackendProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

// --- 查询方法 ---

// CallCount 返回 Generate 被调用的次数。
func (m *Backend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Calls 返回全部调用记录的副本。
func (m *Backend) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call{}, m.calls...)
}

// Prompts 返回每次调用的提示词。
func (m *Backend) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	for i, c := range m.calls {
		out[i] = c.Prompt
	}
	return out
}

// LastPrompt 返回最后一次调用的提示词，没有调用时为空串。
func (m *Backend) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return ""
	}
	return m.calls[len(m.calls)-1].Prompt
}

// Reset 清空调用记录与计数。
func (m *Backend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.callCount = 0
}

// --- 预设工厂 ---

// NewEconomyBackend 创建经济档画像的模拟后端。
func NewEconomyBackend() *Backend {
	return NewBackend().WithProfile(types.BackendProfile{
		ID:     "gemini/gemma-3-27b-it",
		Vendor: "gemini",
		Model:  "gemma-3-27b-it",
		Tier:   types.TierEconomy,
	})
}

// NewPremiumBackend 创建高级档画像的模拟后端，支持约束解码。
func NewPremiumBackend() *Backend {
	return NewBackend().WithProfile(types.BackendProfile{
		ID:                     "gemini/gemini-2.0-flash",
		Vendor:                 "gemini",
		Model:                  "gemini-2.0-flash",
		Tier:                   types.TierPremium,
		SupportsSchemaDecoding: true,
	})
}

// NewQuotaExhaustedBackend 创建首次调用即配额耗尽的模拟后端。
func NewQuotaExhaustedBackend() *Backend {
	b := NewEconomyBackend()
	e := llm.NewError(llm.ErrQuotaExceeded, "quota exceeded for metric: generate_requests", b.profile.ID)
	return b.WithError(e)
}

// NewRateLimitedBackend 创建前 n 次调用被限流、之后成功的模拟后端。
func NewRateLimitedBackend(n int, response string) *Backend {
	b := NewEconomyBackend().WithResponse(response)
	rate := llm.NewError(llm.ErrRateLimited, "resource exhausted, slow down", b.profile.ID)
	rate.Retryable = true
	errs := make([]error, n)
	for i := range errs {
		errs[i] = rate
	}
	return b.WithErrorSequence(errs...)
}
