// =============================================================================
// 📦 SchemaFlow 核心配置结构
// =============================================================================
// 所有阈值、后端标识、重试与退避参数都集中在这里，构造后只读。
// =============================================================================
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/schemaflow/types"
)

// Config 是 SchemaFlow 的完整配置结构
type Config struct {
	// Backends 经济档与高级档后端配置
	Backends BackendsConfig `yaml:"backends" env:"BACKENDS"`

	// Routing 路由配置
	Routing RoutingConfig `yaml:"routing" env:"ROUTING"`

	// Retry 重试与退避配置
	Retry RetryConfig `yaml:"retry" env:"RETRY"`

	// RateLimit 令牌速率保护配置
	RateLimit RateLimitConfig `yaml:"rate_limit" env:"RATE_LIMIT"`

	// Trail 诊断轨迹配置
	Trail TrailConfig `yaml:"trail" env:"TRAIL"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// BackendsConfig 两个可互换后端的配置
type BackendsConfig struct {
	// Economy 经济档后端（低成本，不支持受约束解码）
	Economy BackendConfig `yaml:"economy" env:"ECONOMY"`
	// Premium 高级档后端（支持受约束解码，配额更紧）
	Premium BackendConfig `yaml:"premium" env:"PREMIUM"`
}

// BackendConfig 单个后端配置
type BackendConfig struct {
	// 适配器类型: gemini, openai
	Vendor string `yaml:"vendor" env:"VENDOR"`
	// 模型名称
	Model string `yaml:"model" env:"MODEL"`
	// API Key
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL（可选，自托管部署时设置）
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 请求超时（挂起的调用由传输层超时兜底）
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 每千输入 Token 的近似成本（仅用于观测）
	CostPer1KTokens float64 `yaml:"cost_per_1k_tokens" env:"COST_PER_1K_TOKENS"`
}

// Profile 构造该后端的画像
func (b BackendConfig) Profile(tier types.BackendTier) types.BackendProfile {
	return types.BackendProfile{
		ID:                     fmt.Sprintf("%s/%s", b.Vendor, b.Model),
		Vendor:                 b.Vendor,
		Model:                  b.Model,
		Tier:                   tier,
		CostPer1KTokens:        b.CostPer1KTokens,
		SupportsSchemaDecoding: tier == types.TierPremium,
	}
}

// RoutingConfig 路由配置
type RoutingConfig struct {
	// Token 估算阈值：低于该值走经济档，高于走高级档
	TokenThreshold int `yaml:"token_threshold" env:"TOKEN_THRESHOLD"`
}

// RetryConfig 重试与退避配置
type RetryConfig struct {
	// 单次请求的最大后端调用次数
	MaxAttempts int `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	// 基础退避时长，基础设施失败按 base * attempt 递增
	BaseBackoff time.Duration `yaml:"base_backoff" env:"BASE_BACKOFF"`
	// 语义失败（解析/校验）的退避缩放因子
	SemanticFactor float64 `yaml:"semantic_factor" env:"SEMANTIC_FACTOR"`
	// 单次退避上限
	MaxDelay time.Duration `yaml:"max_delay" env:"MAX_DELAY"`
	// 是否加 ±25% 抖动
	Jitter bool `yaml:"jitter" env:"JITTER"`
}

// RateLimitConfig 客户端令牌速率保护
type RateLimitConfig struct {
	// 经济档每分钟 Token 预算，<=0 关闭保护
	EconomyTokensPerMinute int `yaml:"economy_tokens_per_minute" env:"ECONOMY_TOKENS_PER_MINUTE"`
}

// TrailConfig 诊断轨迹配置
type TrailConfig struct {
	// 是否写轨迹
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 文本轨迹文件的固定相对路径
	Path string `yaml:"path" env:"PATH"`
	// SQLite 轨迹库路径（可选，空则不启用）
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	// Redis 地址（可选，空则不启用流式轨迹）
	RedisAddr string `yaml:"redis_addr" env:"REDIS_ADDR"`
	// Redis Stream 键名
	RedisStream string `yaml:"redis_stream" env:"REDIS_STREAM"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// Validate 验证配置。构造期是唯一允许报错的阶段，
// 请求期的一切失败都会落入 ResultEnvelope。
func (c *Config) Validate() error {
	var errs []string

	if c.Backends.Economy.Vendor == "" || c.Backends.Economy.Model == "" {
		errs = append(errs, "economy backend vendor/model required")
	}
	if c.Backends.Premium.Vendor == "" || c.Backends.Premium.Model == "" {
		errs = append(errs, "premium backend vendor/model required")
	}
	if c.Routing.TokenThreshold <= 0 {
		errs = append(errs, "token_threshold must be positive")
	}
	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, "max_attempts must be positive")
	}
	if c.Retry.BaseBackoff < 0 {
		errs = append(errs, "base_backoff must not be negative")
	}
	if c.Retry.SemanticFactor < 0 || c.Retry.SemanticFactor > 1 {
		errs = append(errs, "semantic_factor must be within [0, 1]")
	}
	if c.Retry.MaxDelay > 0 && c.Retry.MaxDelay < c.Retry.BaseBackoff {
		errs = append(errs, "max_delay must not be below base_backoff")
	}
	if c.Trail.Enabled && c.Trail.Path == "" && c.Trail.SQLitePath == "" && c.Trail.RedisAddr == "" {
		errs = append(errs, "trail enabled but no sink configured")
	}

	if len(errs) > 0 {
		return types.NewError(types.ErrConfigInvalid,
			fmt.Sprintf("config validation errors: %s", strings.Join(errs, "; ")))
	}
	return nil
}

// ValidateCredentials 校验两个后端的凭据是否就绪。
// 独立于 Validate，便于纯本地测试跳过凭据检查。
func (c *Config) ValidateCredentials() error {
	if c.Backends.Economy.APIKey == "" && c.Backends.Economy.BaseURL == "" {
		return types.NewError(types.ErrMissingCredential, "economy backend needs api_key or base_url")
	}
	if c.Backends.Premium.APIKey == "" && c.Backends.Premium.BaseURL == "" {
		return types.NewError(types.ErrMissingCredential, "premium backend needs api_key or base_url")
	}
	return nil
}
