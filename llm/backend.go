package llm

import (
	"context"
	"time"

	"github.com/BaSui01/schemaflow/types"
)

// GenerateRequest 一次生成调用的参数。
type GenerateRequest struct {
	// TraceID 贯穿信封、轨迹与 Span 的关联 ID
	TraceID string `json:"trace_id,omitempty"`
	// Prompt 完整提示词（模板渲染在上游完成）
	Prompt string `json:"prompt"`
	// SystemHint 可选的系统指令
	SystemHint string `json:"system_hint,omitempty"`
	// MaxTokens 生成上限，0 表示交给后端默认值
	MaxTokens int `json:"max_tokens,omitempty"`
	// Temperature 采样温度
	Temperature float32 `json:"temperature,omitempty"`
	// ResponseSchema 非空时要求受约束解码，仅高级档后端支持；
	// 不支持的后端必须忽略而不是报错
	ResponseSchema *types.JSONSchema `json:"response_schema,omitempty"`
	// Metadata 附加元数据（仅观测用途）
	Metadata map[string]string `json:"metadata,omitempty"`
}

// GenerateResponse 一次生成调用的结果。
type GenerateResponse struct {
	// Text 后端返回的原始文本
	Text string `json:"text"`
	// Backend 实际执行的后端 ID
	Backend string `json:"backend"`
	Model   string `json:"model,omitempty"`
	// Token 用量（后端未报告时为 0）
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	// Latency 本次调用耗时
	Latency time.Duration `json:"latency_ms,omitempty"`
}

// Backend 是生成后端的统一接口。实现必须：
//   - 对每种失败返回携带真实错误码的 *Error（见 error.go）
//   - 不在内部重试，重试策略由上层控制
//   - 调用阻塞至传输层自身的超时触发
type Backend interface {
	// Generate 执行一次生成调用
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
	// CountTokens 估算文本在该后端的 Token 开销
	CountTokens(ctx context.Context, text string) (int, error)
	// Name 返回后端 ID（vendor/model）
	Name() string
	// Profile 返回后端画像（层级、成本、能力），构造后只读
	Profile() types.BackendProfile
}
