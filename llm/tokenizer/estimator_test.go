package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- 估算器测试 ---

func TestEstimatorCountTokens(t *testing.T) {
	e := NewEstimatorTokenizer("gemma-3-27b-it")

	n, err := e.CountTokens("")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// 400 ASCII chars at 4.0 chars/token
	n, err = e.CountTokens(strings.Repeat("a", 400))
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	// 150 CJK chars at 1.5 chars/token
	n, err = e.CountTokens(strings.Repeat("语", 150))
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	// mixed input sums both classes
	n, err = e.CountTokens(strings.Repeat("a", 40) + strings.Repeat("语", 15))
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestEstimatorMinimumOne(t *testing.T) {
	e := NewEstimatorTokenizer("gemma-3-27b-it")

	n, err := e.CountTokens("a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEstimatorOptions(t *testing.T) {
	e := NewEstimatorTokenizer("gemini-2.0-flash",
		WithMaxTokens(1 << 20),
		WithCharsPerToken(2.0),
	)

	assert.Equal(t, 1<<20, e.MaxTokens())

	n, err := e.CountTokens(strings.Repeat("a", 100))
	require.NoError(t, err)
	assert.Equal(t, 50, n)

	// non-positive ratio is ignored
	e2 := NewEstimatorTokenizer("x", WithCharsPerToken(-1))
	n, err = e2.CountTokens(strings.Repeat("a", 100))
	require.NoError(t, err)
	assert.Equal(t, 25, n)
}

func TestEstimatorDecodeUnsupported(t *testing.T) {
	e := NewEstimatorTokenizer("gemma-3-27b-it")
	_, err := e.Decode([]int{104, 105})
	assert.Error(t, err)
}

// --- 注册表测试 ---

func TestRegistryPrefixMatch(t *testing.T) {
	est := NewEstimatorTokenizer("test-model-base")
	RegisterTokenizer("test-model", est)

	got, err := GetTokenizer("test-model")
	require.NoError(t, err)
	assert.Equal(t, est, got)

	// 日期后缀通过前缀匹配命中
	got, err = GetTokenizer("test-model-2025-05-01")
	require.NoError(t, err)
	assert.Equal(t, est, got)

	_, err = GetTokenizer("unrelated-model")
	assert.Error(t, err)
}

func TestGetTokenizerOrEstimatorFallback(t *testing.T) {
	tk := GetTokenizerOrEstimator("totally-unknown-model")
	require.NotNil(t, tk)
	assert.Equal(t, "estimator-totally-unknown-model", tk.Name())

	n, err := tk.CountTokens("hello world")
	require.NoError(t, err)
	assert.Greater(t, n, 0)
}
