package structured

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/schemaflow/types"
)

func TestExtract_FencedObject(t *testing.T) {
	e := NewExtractor(nil)

	raw := "Here is the result you asked for:\n```json\n{\"skills\": []}\n```\nLet me know if you need more."
	got := e.Extract(raw)

	assert.Equal(t, types.ProtocolFenced, got.Protocol)
	assert.Equal(t, `{"skills": []}`, got.Raw)
	assert.Nil(t, got.Value)
}

func TestExtract_FencedArray(t *testing.T) {
	e := NewExtractor(nil)

	raw := "```\n[1, 2, 3]\n```"
	got := e.Extract(raw)

	assert.Equal(t, types.ProtocolFenced, got.Protocol)
	assert.Equal(t, "[1, 2, 3]", got.Raw)
}

func TestExtract_FencedWinsOverBareBraces(t *testing.T) {
	e := NewExtractor(nil)

	// 围栏外的杂散括号不应干扰围栏块的提取
	raw := "ignore this { noise\n```json\n{\"a\": 1}\n```\ntrailing } text"
	got := e.Extract(raw)

	assert.Equal(t, types.ProtocolFenced, got.Protocol)
	assert.Equal(t, `{"a": 1}`, got.Raw)
}

func TestExtract_BracketObject(t *testing.T) {
	e := NewExtractor(nil)

	raw := `Sure! The answer is {"skills": [{"topic": "Go"}]} as requested.`
	got := e.Extract(raw)

	assert.Equal(t, types.ProtocolBracket, got.Protocol)
	assert.Equal(t, `{"skills": [{"topic": "Go"}]}`, got.Raw)
}

func TestExtract_BracketArray(t *testing.T) {
	e := NewExtractor(nil)

	raw := `The list: ["a", "b"] and nothing else.`
	got := e.Extract(raw)

	assert.Equal(t, types.ProtocolBracket, got.Protocol)
	assert.Equal(t, `["a", "b"]`, got.Raw)
}

func TestExtract_BracketFirstOpenerWins(t *testing.T) {
	e := NewExtractor(nil)

	t.Run("对象先开口", func(t *testing.T) {
		got := e.Extract(`{"items": [1, 2]} [3, 4]`)
		assert.Equal(t, types.ProtocolBracket, got.Protocol)
		// 对象先出现，闭合到最后一个 }
		assert.Equal(t, `{"items": [1, 2]}`, got.Raw)
	})

	t.Run("数组先开口", func(t *testing.T) {
		got := e.Extract(`[{"a": 1}] trailing`)
		assert.Equal(t, types.ProtocolBracket, got.Protocol)
		assert.Equal(t, `[{"a": 1}]`, got.Raw)
	})
}

func TestExtract_UnclosedBracketFallsThrough(t *testing.T) {
	e := NewExtractor(nil)

	// 只有开口没有闭合，不能按括号协议切片
	got := e.Extract(`broken output { "a": 1`)

	assert.Equal(t, types.ProtocolNone, got.Protocol)
	assert.Equal(t, `broken output { "a": 1`, got.Raw)
}

func TestExtract_TaggedSegments(t *testing.T) {
	e := NewExtractor(nil)

	raw := "@@@\nTOPIC: Kubernetes\nPRIORITY: MUST_HAVE\n@@@"
	got := e.Extract(raw)

	require.Equal(t, types.ProtocolTagged, got.Protocol)
	require.NotNil(t, got.Value)
	payload, ok := got.Value.(types.NormalizedPayload)
	require.True(t, ok)
	records := payload.Records(types.WrapperSkills)
	require.Len(t, records, 1)
	assert.Equal(t, "Kubernetes", records[0]["topic"])
	assert.Equal(t, "MUST_HAVE", records[0]["priority"])
}

func TestExtract_BracketBeatsTagged(t *testing.T) {
	e := NewExtractor(nil)

	// 标记段里混进了 JSON 片段时按括号协议处理，标记协议只兜底
	raw := "@@@\nTOPIC: Go\n@@@ and also {\"skills\": []}"
	got := e.Extract(raw)

	assert.Equal(t, types.ProtocolBracket, got.Protocol)
	assert.Equal(t, `{"skills": []}`, got.Raw)
}

func TestExtract_PlainProse(t *testing.T) {
	e := NewExtractor(nil)

	got := e.Extract("  I could not produce the requested data.  ")

	assert.Equal(t, types.ProtocolNone, got.Protocol)
	assert.Equal(t, "I could not produce the requested data.", got.Raw)
	assert.Nil(t, got.Value)
}

func TestExtract_Empty(t *testing.T) {
	e := NewExtractor(nil)

	for _, raw := range []string{"", "   ", "\n\t\n"} {
		got := e.Extract(raw)
		assert.Equal(t, types.ProtocolNone, got.Protocol)
		assert.Empty(t, got.Raw)
	}
}

func TestOuterBracketSpan(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"纯对象", `{"a": 1}`, `{"a": 1}`, true},
		{"前后有文字", `say {"a": 1} now`, `{"a": 1}`, true},
		{"嵌套对象闭合到最后", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`, true},
		{"数组", `x [1, 2] y`, `[1, 2]`, true},
		{"对象先于数组", `{"a": [1]} [2]`, `{"a": [1]}`, true},
		{"数组先于对象", `[1] {"a": 2}`, `[1]`, true},
		{"未闭合对象", `{"a": 1`, "", false},
		{"未闭合数组", `[1, 2`, "", false},
		{"无括号", `plain text`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := outerBracketSpan(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
