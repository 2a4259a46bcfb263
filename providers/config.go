package providers

import "time"

// BaseAdapterConfig 所有后端适配器共享的基础配置字段。
// 通过嵌入此结构体，各适配器的 Config 自动获得 APIKey、BaseURL、
// Model、Timeout 四个字段，避免重复定义。
type BaseAdapterConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// GeminiConfig Gemini 适配器配置
type GeminiConfig struct {
	BaseAdapterConfig `yaml:",inline"`
}

// OpenAIConfig OpenAI 适配器配置
type OpenAIConfig struct {
	BaseAdapterConfig `yaml:",inline"`
	Organization      string `json:"organization,omitempty" yaml:"organization,omitempty"`
}
