package structured

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/schemaflow/types"
)

func defaultTagKinds() []TagKindRule {
	return DefaultTables().TagKinds
}

func TestParseTagged_SkillSegment(t *testing.T) {
	raw := "@@@\nTOPIC: Kubernetes\nPRIORITY: NICE_TO_HAVE\nQUOTE: experience with container orchestration\n@@@"

	payload, ok := parseTagged(raw, defaultTagKinds())
	require.True(t, ok)

	records := payload.Records(types.WrapperSkills)
	require.Len(t, records, 1)
	assert.Equal(t, "Kubernetes", records[0]["topic"])
	assert.Equal(t, "NICE_TO_HAVE", records[0]["priority"])

	analysis := records[0]["analysis"].(map[string]any)
	assert.Equal(t, "experience with container orchestration", analysis["quote"])
	// 未出现的槽位用默认值补齐
	assert.Equal(t, "None detected.", analysis["hidden_bar"])
}

func TestParseTagged_GapSegmentByMarker(t *testing.T) {
	raw := "@@@\nTOPIC: Terraform\nEVIDENCE_STATUS: NOT_FOUND\nSTRATEGY: take the official associate course\n@@@"

	payload, ok := parseTagged(raw, defaultTagKinds())
	require.True(t, ok)

	records := payload.Records(types.WrapperGaps)
	require.Len(t, records, 1)
	assert.Equal(t, "Terraform", records[0]["topic"])

	evidence := records[0]["evidence"].(map[string]any)
	assert.Equal(t, "NOT_FOUND", evidence["status"])
	assert.Equal(t, "No evidence found.", evidence["snippet"])

	effort := records[0]["effort"].(map[string]any)
	assert.Equal(t, "HIGH", effort["level"])
	assert.Equal(t, "take the official associate course", effort["strategy"])
	assert.Equal(t, "Update resume.", effort["estimated_action"])
}

func TestParseTagged_AdviceSegmentByMarker(t *testing.T) {
	raw := "@@@\nTOPIC: Cover letter\nRATIONALE: the posting stresses communication\nACTIONABLE_STEP: mention the conference talk\n@@@"

	payload, ok := parseTagged(raw, defaultTagKinds())
	require.True(t, ok)

	records := payload.Records(types.WrapperAdvice)
	require.Len(t, records, 1)

	suggestion := records[0]["suggestion"].(map[string]any)
	assert.Equal(t, "the posting stresses communication", suggestion["rationale"])
	assert.Equal(t, "mention the conference talk", suggestion["after_text"])
	assert.Equal(t, "MEDIUM", records[0]["priority"])
}

func TestParseTagged_AliasPriority(t *testing.T) {
	// TOPIC 与 SKILL 同时出现时，别名按槽位表顺序取第一个命中
	raw := "@@@\nSKILL: fallback name\nTOPIC: preferred name\nSTRATEGY: study\n@@@"

	payload, ok := parseTagged(raw, defaultTagKinds())
	require.True(t, ok)

	records := payload.Records(types.WrapperGaps)
	require.Len(t, records, 1)
	assert.Equal(t, "preferred name", records[0]["topic"])
}

func TestParseTagged_AliasFallback(t *testing.T) {
	// 首选别名缺席时退到次选
	raw := "@@@\nSKILL: only name\nSTRATEGY: study\n@@@"

	payload, ok := parseTagged(raw, defaultTagKinds())
	require.True(t, ok)

	records := payload.Records(types.WrapperGaps)
	require.Len(t, records, 1)
	assert.Equal(t, "only name", records[0]["topic"])
}

func TestParseTagged_DuplicateKeyFirstWins(t *testing.T) {
	raw := "@@@\nTOPIC: first\nTOPIC: second\n@@@"

	payload, ok := parseTagged(raw, defaultTagKinds())
	require.True(t, ok)

	records := payload.Records(types.WrapperSkills)
	require.Len(t, records, 1)
	assert.Equal(t, "first", records[0]["topic"])
}

func TestParseTagged_MultilineValue(t *testing.T) {
	raw := "@@@\nTOPIC: Kafka\nQUOTE: the posting asks for\nstream processing at scale\n@@@"

	payload, ok := parseTagged(raw, defaultTagKinds())
	require.True(t, ok)

	records := payload.Records(types.WrapperSkills)
	require.Len(t, records, 1)
	analysis := records[0]["analysis"].(map[string]any)
	assert.Equal(t, "the posting asks for\nstream processing at scale", analysis["quote"])
}

func TestParseTagged_MultipleSegments(t *testing.T) {
	raw := "@@@\nTOPIC: Go\n@@@\n@@@\nTOPIC: Rust\nPRIORITY: NICE_TO_HAVE\n@@@"

	payload, ok := parseTagged(raw, defaultTagKinds())
	require.True(t, ok)

	records := payload.Records(types.WrapperSkills)
	require.Len(t, records, 2)
	assert.Equal(t, "Go", records[0]["topic"])
	assert.Equal(t, "Rust", records[1]["topic"])
	// 无 PRIORITY 的段落用默认优先级
	assert.Equal(t, "MUST_HAVE", records[0]["priority"])
}

func TestParseTagged_MixedKindsCollapseToLast(t *testing.T) {
	// 混合形状的段落全部归入最后识别出的类别，错放交给逐项校验暴露
	raw := "@@@\nTOPIC: Terraform\nSTRATEGY: study\n@@@\n@@@\nTOPIC: Go\n@@@"

	payload, ok := parseTagged(raw, defaultTagKinds())
	require.True(t, ok)

	assert.Len(t, payload.Records(types.WrapperSkills), 2)
	assert.Empty(t, payload.Records(types.WrapperGaps))
}

func TestParseTagged_NoPairedMarkers(t *testing.T) {
	for _, raw := range []string{
		"no markers at all",
		"@@@ dangling single marker",
		"",
	} {
		_, ok := parseTagged(raw, defaultTagKinds())
		assert.False(t, ok, "raw=%q", raw)
	}
}

func TestParseTagged_LowercaseKeysIgnored(t *testing.T) {
	// 键必须全大写顶行出现，小写行是值的一部分而不是键
	raw := "@@@\nTOPIC: Go\nnote: this line is body text\n@@@"

	payload, ok := parseTagged(raw, defaultTagKinds())
	require.True(t, ok)

	records := payload.Records(types.WrapperSkills)
	require.Len(t, records, 1)
	assert.Equal(t, "Go\nnote: this line is body text", records[0]["topic"])
}

func TestFieldsOf(t *testing.T) {
	block := "\nTOPIC: Go\nEVIDENCE_STATUS: FOUND_WEAK\nQUOTE: uses goroutines\n"

	fields := fieldsOf(block)

	assert.Equal(t, "Go", fields["TOPIC"])
	assert.Equal(t, "FOUND_WEAK", fields["EVIDENCE_STATUS"])
	assert.Equal(t, "uses goroutines", fields["QUOTE"])
}

func TestClassifySegment_CatchAllLast(t *testing.T) {
	rules := defaultTagKinds()

	rule, ok := classifySegment("STRATEGY: anything", rules)
	require.True(t, ok)
	assert.Equal(t, types.KindGap, rule.Kind)

	rule, ok = classifySegment("nothing recognizable", rules)
	require.True(t, ok)
	assert.Equal(t, types.KindSkill, rule.Kind)
}
