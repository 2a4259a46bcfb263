package structured

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/schemaflow/types"
)

func TestParseLoose_ValidObject(t *testing.T) {
	v, err := ParseLoose(`{"skills": [{"topic": "Go"}]}`)
	require.NoError(t, err)

	m, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, m, "skills")
}

func TestParseLoose_ValidArray(t *testing.T) {
	v, err := ParseLoose(`[{"topic": "Go"}, {"topic": "Rust"}]`)
	require.NoError(t, err)

	list, ok := v.([]any)
	require.True(t, ok)
	assert.Len(t, list, 2)
}

func TestParseLoose_ScalarRejected(t *testing.T) {
	// 合法 JSON 但不是对象或数组，不算结构化载荷
	for _, raw := range []string{`42`, `true`, `null`, `"just a string"`} {
		_, err := ParseLoose(raw)
		require.Error(t, err, "raw=%s", raw)
		assert.Equal(t, types.ErrParseFailure, types.GetErrorCode(err))
	}
}

func TestParseLoose_DoubleEncoded(t *testing.T) {
	// JSON 字符串里又包了一层 JSON，拆开后生效
	v, err := ParseLoose(`"{\"topic\": \"Go\"}"`)
	require.NoError(t, err)

	m, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Go", m["topic"])
}

func TestParseLoose_TrailingCommas(t *testing.T) {
	t.Run("对象尾逗号", func(t *testing.T) {
		v, err := ParseLoose(`{"a": 1, "b": 2,}`)
		require.NoError(t, err)
		m := v.(map[string]any)
		assert.Equal(t, float64(2), m["b"])
	})

	t.Run("数组尾逗号", func(t *testing.T) {
		v, err := ParseLoose(`[1, 2, 3,]`)
		require.NoError(t, err)
		assert.Len(t, v.([]any), 3)
	})

	t.Run("换行后的尾逗号", func(t *testing.T) {
		v, err := ParseLoose("{\"a\": 1,\n}")
		require.NoError(t, err)
		assert.Equal(t, float64(1), v.(map[string]any)["a"])
	})
}

func TestParseLoose_TruncatedOutput(t *testing.T) {
	t.Run("未闭合对象", func(t *testing.T) {
		v, err := ParseLoose(`{"a": {"b": 1`)
		require.NoError(t, err)
		m := v.(map[string]any)
		inner := m["a"].(map[string]any)
		assert.Equal(t, float64(1), inner["b"])
	})

	t.Run("未闭合的对象数组", func(t *testing.T) {
		v, err := ParseLoose(`[{"topic": "Go"}, {"topic": "Rust"`)
		require.NoError(t, err)
		list := v.([]any)
		require.Len(t, list, 2)
		assert.Equal(t, "Rust", list[1].(map[string]any)["topic"])
	})
}

func TestParseLoose_PythonLiterals(t *testing.T) {
	v, err := ParseLoose(`{"done": True, "failed": False, "extra": None}`)
	require.NoError(t, err)

	m := v.(map[string]any)
	assert.Equal(t, true, m["done"])
	assert.Equal(t, false, m["failed"])
	assert.Nil(t, m["extra"])
}

func TestParseLoose_SingleQuotes(t *testing.T) {
	v, err := ParseLoose(`{'topic': 'Go', 'priority': 'MUST_HAVE'}`)
	require.NoError(t, err)

	m := v.(map[string]any)
	assert.Equal(t, "Go", m["topic"])
	assert.Equal(t, "MUST_HAVE", m["priority"])
}

func TestParseLoose_SingleQuotesNotSwappedWithDoubleQuotesPresent(t *testing.T) {
	// 文本里已有双引号时不做单引号替换，避免破坏值里的撇号
	_, err := ParseLoose(`{'broken': "mix'ed"}`)
	require.Error(t, err)
	assert.Equal(t, types.ErrParseFailure, types.GetErrorCode(err))
}

func TestParseLoose_StackedRepairs(t *testing.T) {
	// 尾逗号 + Python 字面量叠加，修复阶梯逐级生效
	v, err := ParseLoose(`{"active": True, "items": [1, 2,],}`)
	require.NoError(t, err)

	m := v.(map[string]any)
	assert.Equal(t, true, m["active"])
	assert.Len(t, m["items"].([]any), 2)
}

func TestParseLoose_Empty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n"} {
		_, err := ParseLoose(raw)
		require.Error(t, err)
		assert.Equal(t, types.ErrParseFailure, types.GetErrorCode(err))
		assert.Contains(t, err.Error(), "empty candidate")
	}
}

func TestParseLoose_Garbage(t *testing.T) {
	_, err := ParseLoose("the model refused to answer")
	require.Error(t, err)
	assert.Equal(t, types.ErrParseFailure, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), "no parseable JSON payload")
}

func TestBalanceBrackets(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a": 1`, `{"a": 1}`},
		{`[[1, 2`, `[[1, 2]]`},
		{`{"a": [1`, `{"a": [1}]`},
		{`{"a": 1}`, `{"a": 1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, balanceBrackets(tt.in))
	}
}

func TestSwapSingleQuotes(t *testing.T) {
	assert.Equal(t, `{"a": "b"}`, swapSingleQuotes(`{'a': 'b'}`))
	// 有双引号时原样返回
	assert.Equal(t, `{'a': "b"}`, swapSingleQuotes(`{'a': "b"}`))
}
