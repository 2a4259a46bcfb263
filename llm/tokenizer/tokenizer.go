package tokenizer

import (
	"fmt"
	"strings"
	"sync"
)

// Tokenizer 定义了Token计数器的通用接口.
// 路由决策只需要计数; Encode/Decode 用于调试和截断.
type Tokenizer interface {
	// CountTokens 计算文本的token数量
	CountTokens(text string) (int, error)

	// Encode 将文本编码为token ID序列
	Encode(text string) ([]int, error)

	// Decode 将token ID序列解码为文本
	Decode(tokens []int) (string, error)

	// MaxTokens 返回该模型的最大token限制
	MaxTokens() int

	// Name 返回tokenizer的名称
	Name() string
}

var (
	registry   = make(map[string]Tokenizer)
	registryMu sync.RWMutex
)

// RegisterTokenizer 注册一个tokenizer到全局注册表
func RegisterTokenizer(model string, t Tokenizer) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[model] = t
}

// GetTokenizer 根据模型名称获取tokenizer.
// 先精确匹配, 再前缀匹配 (gpt-4o-2024-08-06 命中 gpt-4o).
func GetTokenizer(model string) (Tokenizer, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if t, ok := registry[model]; ok {
		return t, nil
	}

	for prefix, t := range registry {
		if strings.HasPrefix(model, prefix) {
			return t, nil
		}
	}

	return nil, fmt.Errorf("no tokenizer registered for model: %s", model)
}

// GetTokenizerOrEstimator 获取tokenizer, 不存在时返回估算器.
// gemini/gemma 等没有本地编码表的模型走这条路径.
func GetTokenizerOrEstimator(model string) Tokenizer {
	if t, err := GetTokenizer(model); err == nil {
		return t
	}
	return NewEstimatorTokenizer(model)
}
