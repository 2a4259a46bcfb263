package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/schemaflow/llm"
	"github.com/BaSui01/schemaflow/llm/tokenizer"
	"github.com/BaSui01/schemaflow/providers"
	"github.com/BaSui01/schemaflow/types"
)

// 默认模型与接入点。BaseURL 可配置以支持 Azure 网关或兼容服务。
const (
	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "gpt-4o-mini"
)

// Provider 实现 OpenAI 的生成后端
// OpenAI API 特点：
// 1. Bearer Token 认证，可选 OpenAI-Organization 头
// 2. 无 countTokens 接口，用本地 tiktoken 编码器计数
// 3. response_format.json_schema 支持受约束解码（structured outputs）
// 4. 额度用尽返回 429 + insufficient_quota，与普通限流同码不同义
type Provider struct {
	cfg     providers.OpenAIConfig
	profile types.BackendProfile
	client  *http.Client
	logger  *zap.Logger
}

// 本地分词器注册一次即可；离线环境下注册失败会自动退回字符估算。
var registerTokenizers sync.Once

// New 创建 OpenAI 后端适配器。
func New(cfg providers.OpenAIConfig, profile types.BackendProfile, logger *zap.Logger) *Provider {
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

	registerTokenizers.Do(func() {
		if err := tokenizer.RegisterOpenAITokenizers(); err != nil {
			logger.Warn("tiktoken registration failed, falling back to estimator",
				zap.Error(err))
		}
	})

	return &Provider{
		cfg:     cfg,
		profile: profile,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With(zap.String("component", "openai")),
	}
}

// Name 返回后端 ID（vendor/model）。
func (p *Provider) Name() string { return p.profile.ID }

// Profile 返回后端画像。
func (p *Provider) Profile() types.BackendProfile { return p.profile }

// OpenAI 消息结构
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchemaFormat struct {
	Name   string            `json:"name"`
	Schema *types.JSONSchema `json:"schema"`
	Strict bool              `json:"strict"`
}

type responseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *jsonSchemaFormat `json:"json_schema,omitempty"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float32         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

func (p *Provider) buildHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.Organization != "" {
		req.Header.Set("OpenAI-Organization", p.cfg.Organization)
	}
}

// Generate 执行一次生成调用。
func (p *Provider) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	model := providers.ChooseModel(p.cfg.Model, defaultModel)

	messages := make([]chatMessage, 0, 2)
	if req.SystemHint != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemHint})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.ResponseSchema != nil && p.profile.SupportsSchemaDecoding {
		body.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaFormat{
				Name:   "structured_payload",
				Schema: req.ResponseSchema,
				Strict: true,
			},
		}
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

	endpoint := providers.JoinEndpoint(p.cfg.BaseURL, "/v1/chat/completions")
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
		p.logger.Warn("openai call failed",
			zap.Int("status", resp.StatusCode),
			zap.String("trace_id", req.TraceID))
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    err.Error(),
			HTTPStatus: http.StatusBadGateway,
			Retryable:  true,
			Backend:    p.Name(),
		}
	}
	if len(cr.Choices) == 0 {
		return nil, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    "openai returned no choices",
			HTTPStatus: resp.StatusCode,
			Retryable:  true,
			Backend:    p.Name(),
		}
	}

	out := &llm.GenerateResponse{
		Text:    cr.Choices[0].Message.Content,
		Backend: p.Name(),
		Model:   model,
		Latency: time.Since(start),
	}
	if cr.Usage != nil {
		out.PromptTokens = cr.Usage.PromptTokens
		out.CompletionTokens = cr.Usage.CompletionTokens
	}
	return out, nil
}

// CountTokens 用本地 tiktoken 编码器计数，无网络调用；
// 未收录的模型退回字符估算。
func (p *Provider) CountTokens(_ context.Context, text string) (int, error) {
	model := providers.ChooseModel(p.cfg.Model, defaultModel)
	return tokenizer.GetTokenizerOrEstimator(model).CountTokens(text)
}
