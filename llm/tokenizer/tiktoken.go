package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TiktokenTokenizer 使用tiktoken库实现OpenAI系模型的精确token计数
type TiktokenTokenizer struct {
	encoding  *tiktoken.Tiktoken
	model     string
	maxTokens int
	initOnce  sync.Once
	initErr   error
}

// modelEncodings 只覆盖OpenAI官方模型.
// 自托管模型 (qwen, llama) 没有本地编码表, 由估算器兜底.
var modelEncodings = map[string]struct {
	encoding  string
	maxTokens int
}{
	"gpt-4o":        {"o200k_base", 128000},
	"gpt-4o-mini":   {"o200k_base", 128000},
	"gpt-4.1":       {"o200k_base", 1047576},
	"gpt-4-turbo":   {"cl100k_base", 128000},
	"gpt-4":         {"cl100k_base", 8192},
	"gpt-3.5-turbo": {"cl100k_base", 16385},
}

// NewTiktokenTokenizer 创建新的tiktoken tokenizer.
// 编码表延迟加载, 首次计数时才初始化.
func NewTiktokenTokenizer(model string) (*TiktokenTokenizer, error) {
	cfg, ok := modelEncodings[model]
	if !ok {
		return nil, fmt.Errorf("unsupported model for tiktoken: %s", model)
	}

	return &TiktokenTokenizer{
		model:     model,
		maxTokens: cfg.maxTokens,
		encoding:  nil,
		initErr:   fmt.Errorf("encoding %s not loaded yet", cfg.encoding),
	}, nil
}

// ensureEncoding 延迟初始化encoding
func (t *TiktokenTokenizer) ensureEncoding() error {
	t.initOnce.Do(func() {
		cfg := modelEncodings[t.model]
		enc, err := tiktoken.GetEncoding(cfg.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("failed to load encoding %s: %w", cfg.encoding, err)
			return
		}
		t.encoding = enc
		t.initErr = nil
	})
	return t.initErr
}

// CountTokens 计算文本的token数量
func (t *TiktokenTokenizer) CountTokens(text string) (int, error) {
	if err := t.ensureEncoding(); err != nil {
		return 0, err
	}
	tokens := t.encoding.Encode(text, nil, nil)
	return len(tokens), nil
}

// Encode 将文本编码为token ID序列
func (t *TiktokenTokenizer) Encode(text string) ([]int, error) {
	if err := t.ensureEncoding(); err != nil {
		return nil, err
	}
	return t.encoding.Encode(text, nil, nil), nil
}

// Decode 将token ID序列解码为文本
func (t *TiktokenTokenizer) Decode(tokens []int) (string, error) {
	if err := t.ensureEncoding(); err != nil {
		return "", err
	}
	return t.encoding.Decode(tokens), nil
}

// MaxTokens 返回模型的最大token限制
func (t *TiktokenTokenizer) MaxTokens() int {
	return t.maxTokens
}

// Name 返回tokenizer名称
func (t *TiktokenTokenizer) Name() string {
	return "tiktoken-" + t.model
}

// RegisterOpenAITokenizers 注册所有OpenAI模型的tokenizer
func RegisterOpenAITokenizers() error {
	for model := range modelEncodings {
		t, err := NewTiktokenTokenizer(model)
		if err != nil {
			return fmt.Errorf("failed to create tokenizer for %s: %w", model, err)
		}
		RegisterTokenizer(model, t)
	}
	return nil
}
