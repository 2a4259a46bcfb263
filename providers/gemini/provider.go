package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/schemaflow/llm"
	"github.com/BaSui01/schemaflow/providers"
	"github.com/BaSui01/schemaflow/types"
)

// 默认模型与接入点。BaseURL 可配置以支持代理或区域端点。
const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.5-flash"
)

// Provider 实现 Google Gemini 的生成后端
// Gemini API 特点：
// 1. 使用 x-goog-api-key 请求头认证
// 2. 提供原生 countTokens 接口，估算与计费口径一致
// 3. generationConfig.responseSchema 支持受约束解码（JSON 模式）
// 4. 限流与额度用尽共用 429，需按消息区分
type Provider struct {
	cfg     providers.GeminiConfig
	profile types.BackendProfile
	client  *http.Client
	logger  *zap.Logger
}

// New 创建 Gemini 后端适配器。
func New(cfg providers.GeminiConfig, profile types.BackendProfile, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Provider{
		cfg:     cfg,
		profile: profile,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With(zap.String("component", "gemini")),
	}
}

// Name 返回后端 ID（vendor/model）。
func (p *Provider) Name() string { return p.profile.ID }

// Profile 返回后端画像。
func (p *Provider) Profile() types.BackendProfile { return p.profile }

// Gemini 消息结构
type geminiContent struct {
	Role  string       `json:"role,omitempty"` // user, model
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature      float32        `json:"temperature,omitempty"`
	MaxOutputTokens  int            `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	UsageMetadata  *geminiUsageMetadata  `json:"usageMetadata,omitempty"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
	ModelVersion   string                `json:"modelVersion,omitempty"`
}

type geminiCountRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiCountResponse struct {
	TotalTokens int `json:"totalTokens"`
}

func (p *Provider) buildHeaders(req *http.Request) {
	// Gemini 使用 x-goog-api-key 认证
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

// Generate 执行一次生成调用。
func (p *Provider) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	model := providers.ChooseModel(p.cfg.Model, defaultModel)

	body := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.Prompt}},
		}},
	}
	if req.SystemHint != "" {
		body.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: req.SystemHint}},
		}
	}
	if gc := p.generationConfig(req); gc != nil {
		body.GenerationConfig = gc
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &llm.Error{
			Code:       llm.ErrInvalidRequest,
			Message:    fmt.Sprintf("failed to marshal request: %v", err),
			HTTPStatus: http.StatusBadRequest,
			Backend:    p.Name(),
		}
	}

	endpoint := providers.JoinEndpoint(p.cfg.BaseURL,
		fmt.Sprintf("/v1beta/models/%s:generateContent", model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &llm.Error{
			Code:       llm.ErrInvalidRequest,
			Message:    err.Error(),
			HTTPStatus: http.StatusBadRequest,
			Backend:    p.Name(),
		}
	}
	p.buildHeaders(httpReq)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    err.Error(),
			HTTPStatus: http.StatusBadGateway,
			Retryable:  true,
			Backend:    p.Name(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		p.logger.Warn("gemini call failed",
			zap.Int("status", resp.StatusCode),
			zap.String("trace_id", req.TraceID))
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    err.Error(),
			HTTPStatus: http.StatusBadGateway,
			Retryable:  true,
			Backend:    p.Name(),
		}
	}

	if len(gr.Candidates) == 0 {
		// 无候选通常是提示词被安全策略拦截
		if gr.PromptFeedback != nil && gr.PromptFeedback.BlockReason != "" {
			return nil, &llm.Error{
				Code:       llm.ErrContentFiltered,
				Message:    fmt.Sprintf("prompt blocked: %s", gr.PromptFeedback.BlockReason),
				HTTPStatus: resp.StatusCode,
				Backend:    p.Name(),
			}
		}
		return nil, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    "gemini returned no candidates",
			HTTPStatus: resp.StatusCode,
			Retryable:  true,
			Backend:    p.Name(),
		}
	}

	var text strings.Builder
	for _, part := range gr.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	out := &llm.GenerateResponse{
		Text:    text.String(),
		Backend: p.Name(),
		Model:   model,
		Latency: time.Since(start),
	}
	if gr.UsageMetadata != nil {
		out.PromptTokens = gr.UsageMetadata.PromptTokenCount
		out.CompletionTokens = gr.UsageMetadata.CandidatesTokenCount
	}
	return out, nil
}

// generationConfig 组装生成配置。受约束解码只在画像声明支持且请求
// 带 schema 时开启；其余情况不设 MIME 类型，提示词协议（含标签协议）
// 自行约定输出格式。
func (p *Provider) generationConfig(req *llm.GenerateRequest) *geminiGenerationConfig {
	gc := &geminiGenerationConfig{
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxTokens,
	}
	if req.ResponseSchema != nil && p.profile.SupportsSchemaDecoding {
		gc.ResponseMimeType = "application/json"
		gc.ResponseSchema = schemaToGemini(req.ResponseSchema)
	}
	if gc.Temperature == 0 && gc.MaxOutputTokens == 0 && gc.ResponseMimeType == "" {
		return nil
	}
	return gc
}

// CountTokens 调用原生 countTokens 接口，与上游计费口径一致。
func (p *Provider) CountTokens(ctx context.Context, text string) (int, error) {
	model := providers.ChooseModel(p.cfg.Model, defaultModel)

	body := geminiCountRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: text}}}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, &llm.Error{
			Code:       llm.ErrInvalidRequest,
			Message:    fmt.Sprintf("failed to marshal request: %v", err),
			HTTPStatus: http.StatusBadRequest,
			Backend:    p.Name(),
		}
	}

	endpoint := providers.JoinEndpoint(p.cfg.BaseURL,
		fmt.Sprintf("/v1beta/models/%s:countTokens", model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, &llm.Error{
			Code:       llm.ErrInvalidRequest,
			Message:    err.Error(),
			HTTPStatus: http.StatusBadRequest,
			Backend:    p.Name(),
		}
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return 0, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    err.Error(),
			HTTPStatus: http.StatusBadGateway,
			Retryable:  true,
			Backend:    p.Name(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		return 0, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var cr geminiCountResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return 0, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    err.Error(),
			HTTPStatus: http.StatusBadGateway,
			Retryable:  true,
			Backend:    p.Name(),
		}
	}
	return cr.TotalTokens, nil
}

// schemaToGemini 把标准 JSON Schema 转成 Gemini 的 OpenAPI 风格
// schema：type 大写，只保留受约束解码认识的关键字。
func schemaToGemini(s *types.JSONSchema) map[string]any {
	if s == nil {
		return nil
	}
	out := make(map[string]any)

	if s.Type != "" {
		out["type"] = strings.ToUpper(string(s.Type))
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			props[name] = schemaToGemini(prop)
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	if s.Items != nil {
		out["items"] = schemaToGemini(s.Items)
	}
	return out
}
