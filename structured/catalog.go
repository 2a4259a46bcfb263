package structured

import (
	"github.com/BaSui01/schemaflow/types"
)

// Canonical record schemas. These mirror the shapes the tagged-protocol
// parser and the item repairs produce, so the three sources of records
// (JSON, tagged text, repair) all validate against the same catalog.

// SkillSchema describes one skill record: a topic plus an analysis object
// whose quote field carries the supporting evidence. The quote minimum
// length matches the junk threshold used by string coercion.
func SkillSchema() *types.JSONSchema {
	analysis := types.NewObjectSchema().
		AddProperty("quote", types.NewStringSchema().WithMinLength(3)).
		AddProperty("hidden_bar", types.NewStringSchema()).
		AddRequired("quote")

	return types.NewObjectSchema().
		AddProperty("topic", types.NewStringSchema()).
		AddProperty("priority", types.NewEnumSchema("MUST_HAVE", "NICE_TO_HAVE", "BLOCKER")).
		AddProperty("analysis", analysis).
		AddProperty("id", types.NewStringSchema()).
		AddProperty("description", types.NewStringSchema()).
		AddRequired("topic", "analysis")
}

// GapSchema describes one gap record: the missing capability, the evidence
// check verdict, and the effort assessment for closing it.
func GapSchema() *types.JSONSchema {
	evidence := types.NewObjectSchema().
		AddProperty("status", types.NewEnumSchema("FOUND_STRONG", "FOUND_WEAK", "NOT_FOUND")).
		AddProperty("snippet", types.NewStringSchema()).
		AddRequired("status")

	effort := types.NewObjectSchema().
		AddProperty("level", types.NewEnumSchema("NONE", "LOW", "MEDIUM", "HIGH", "BLOCKER")).
		AddProperty("strategy", types.NewStringSchema()).
		AddProperty("estimated_action", types.NewStringSchema()).
		AddRequired("level")

	return types.NewObjectSchema().
		AddProperty("topic", types.NewStringSchema()).
		AddProperty("evidence", evidence).
		AddProperty("effort", effort).
		AddRequired("topic", "evidence", "effort")
}

// AdviceSchema describes one advice record: a prescription with its
// rationale and the concrete content to apply.
func AdviceSchema() *types.JSONSchema {
	suggestion := types.NewObjectSchema().
		AddProperty("rationale", types.NewStringSchema()).
		AddProperty("before_text", types.NewStringSchema()).
		AddProperty("after_text", types.NewStringSchema()).
		AddRequired("rationale")

	return types.NewObjectSchema().
		AddProperty("topic", types.NewStringSchema()).
		AddProperty("action_type", types.NewEnumSchema(
			"RESUME_REWRITE", "COVER_LETTER_HOOK", "PORTFOLIO_ADDITION", "LEARNING_TASK")).
		AddProperty("priority", types.NewEnumSchema("HIGH", "MEDIUM", "LOW")).
		AddProperty("suggestion", suggestion).
		AddRequired("topic", "suggestion")
}

// SkillDescriptor returns the ready-made descriptor for skill extraction.
func SkillDescriptor() types.SchemaDescriptor {
	return types.SchemaDescriptor{Item: SkillSchema(), WrapperKey: types.WrapperSkills}
}

// GapDescriptor returns the ready-made descriptor for gap analysis.
func GapDescriptor() types.SchemaDescriptor {
	return types.SchemaDescriptor{Item: GapSchema(), WrapperKey: types.WrapperGaps}
}

// AdviceDescriptor returns the ready-made descriptor for advice records.
func AdviceDescriptor() types.SchemaDescriptor {
	return types.SchemaDescriptor{Item: AdviceSchema(), WrapperKey: types.WrapperAdvice}
}

// DescriptorForKind maps a record kind to its catalog descriptor. Unknown
// kinds return a zero descriptor.
func DescriptorForKind(kind types.RecordKind) types.SchemaDescriptor {
	switch kind {
	case types.KindSkill:
		return SkillDescriptor()
	case types.KindGap:
		return GapDescriptor()
	case types.KindAdvice:
		return AdviceDescriptor()
	default:
		return types.SchemaDescriptor{}
	}
}
