// =============================================================================
// 📦 SchemaFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Backends:  DefaultBackendsConfig(),
		Routing:   DefaultRoutingConfig(),
		Retry:     DefaultRetryConfig(),
		RateLimit: DefaultRateLimitConfig(),
		Trail:     DefaultTrailConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultBackendsConfig 返回默认后端配置
func DefaultBackendsConfig() BackendsConfig {
	return BackendsConfig{
		Economy: BackendConfig{
			Vendor:          "gemini",
			Model:           "gemma-3-27b-it",
			Timeout:         2 * time.Minute,
			CostPer1KTokens: 0,
		},
		Premium: BackendConfig{
			Vendor:          "gemini",
			Model:           "gemini-2.0-flash",
			Timeout:         2 * time.Minute,
			CostPer1KTokens: 0.10,
		},
	}
}

// DefaultRoutingConfig 返回默认路由配置
func DefaultRoutingConfig() RoutingConfig {
	return RoutingConfig{
		// 经济档 TPM 预算减去安全余量
		TokenThreshold: 13000,
	}
}

// DefaultRetryConfig 返回默认重试配置
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		BaseBackoff:    20 * time.Second,
		SemanticFactor: 0.5,
		MaxDelay:       120 * time.Second,
		Jitter:         false,
	}
}

// DefaultRateLimitConfig 返回默认速率保护配置
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		EconomyTokensPerMinute: 14000,
	}
}

// DefaultTrailConfig 返回默认轨迹配置
func DefaultTrailConfig() TrailConfig {
	return TrailConfig{
		Enabled:     true,
		Path:        "data/trail.log",
		RedisStream: "schemaflow:trail",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:        "info",
		Format:       "json",
		OutputPaths:  []string{"stdout"},
		EnableCaller: true,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "schemaflow",
		SampleRate:   0.1,
	}
}
