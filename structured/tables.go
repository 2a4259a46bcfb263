package structured

import (
	"github.com/BaSui01/schemaflow/types"
)

// WrapperAlias maps one off-canonical top-level key to a canonical wrapper
// key. Aliases are scanned in slice order; the first hit per canonical key
// wins.
type WrapperAlias struct {
	Alias     string
	Canonical string
}

// FingerprintRule classifies a record-shaped map by its field set. Groups
// is a conjunction of disjunctions: every group must have at least one of
// its fields present. Rules are evaluated in slice order, most specific
// first; the first matching rule decides the kind.
type FingerprintRule struct {
	Kind   types.RecordKind
	Groups [][]string
}

// Matches reports whether the record satisfies every field group.
func (r FingerprintRule) Matches(rec map[string]any) bool {
	for _, group := range r.Groups {
		hit := false
		for _, field := range group {
			if _, ok := rec[field]; ok {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return len(r.Groups) > 0
}

// TagSlot describes one field of a tagged-protocol record: the accepted
// key aliases inside a segment, the nested target path in the canonical
// record, and the value used when no alias is present. An empty Default
// omits the field instead of filling it.
type TagSlot struct {
	Aliases []string
	Path    []string
	Default string
}

// TagKindRule classifies one tagged segment and lists the slots to fill.
// A segment matches when it contains any marker substring; a rule with no
// markers matches everything and must come last.
type TagKindRule struct {
	Kind    types.RecordKind
	Markers []string
	Slots   []TagSlot
}

// RepairRule promotes a record field that should be an object but came
// back as a plain scalar. The original value is stringified into IntoField
// and the remaining required fields are filled from Fill, so repair is
// lossy in shape but never loses the original text. When Ensure is set,
// a missing field is created from it outright.
type RepairRule struct {
	Field     string
	IntoField string
	Fill      map[string]string
	Ensure    map[string]string
}

// Tables bundles every shape-knowledge table the extractor and normalizer
// consult. All matching and renaming behavior lives here as data; the
// control flow never hard-codes a field name. Tables are read-only after
// construction and safe to share between concurrent pipelines.
type Tables struct {
	// WrapperAliases renames recognized off-canonical top-level keys.
	WrapperAliases []WrapperAlias
	// Fingerprints classify record-shaped maps, most specific first.
	Fingerprints []FingerprintRule
	// TagKinds classify tagged-protocol segments and map their fields.
	TagKinds []TagKindRule
	// Repairs lists per-kind promotions for string-degraded sub-objects.
	Repairs map[types.RecordKind][]RepairRule
	// CoerceMinLen is the minimum length for a bare string to be coerced
	// into a record; shorter strings are treated as junk and dropped.
	CoerceMinLen int
	// SearchDepth bounds the nested-wrapper search on map input.
	SearchDepth int
}

// PlaceholderText fills required fields that repair cannot reconstruct
// from the degraded value.
const PlaceholderText = "implied from context"

// DefaultTables returns the built-in shape knowledge covering the three
// canonical record kinds.
func DefaultTables() *Tables {
	return &Tables{
		WrapperAliases: []WrapperAlias{
			{"required_skills", types.WrapperSkills},
			{"skill", types.WrapperSkills},
			{"skills", types.WrapperSkills},
			{"requirements", types.WrapperSkills},
			{"extraction", types.WrapperSkills},
			{"output", types.WrapperSkills},
			{"result", types.WrapperSkills},
			{"items", types.WrapperSkills},
			{"gap_analysis", types.WrapperGaps},
			{"gap", types.WrapperGaps},
			{"gaps", types.WrapperGaps},
			{"analysis", types.WrapperGaps},
			{"assessment", types.WrapperGaps},
			{"gap_report", types.WrapperGaps},
			{"areas", types.WrapperGaps},
			{"breakdown", types.WrapperGaps},
			{"strategic_advice", types.WrapperAdvice},
			{"advices", types.WrapperAdvice},
			{"recommendations", types.WrapperAdvice},
			{"suggestions", types.WrapperAdvice},
			{"action_plan", types.WrapperAdvice},
		},
		Fingerprints: []FingerprintRule{
			{
				Kind: types.KindGap,
				Groups: [][]string{{
					"effort", "effort_assessment", "evidence",
					"evidence_in_personal_db", "fixing_strategy",
					"specific_gaps", "current_state", "gap",
				}},
			},
			{
				Kind: types.KindAdvice,
				Groups: [][]string{{
					"rationale", "actionable_step", "action_type", "suggestion",
				}},
			},
			{
				Kind: types.KindSkill,
				Groups: [][]string{
					{"skill", "topic", "name"},
					{"priority", "category", "analysis"},
				},
			},
			// A bare topic with nothing else still reads as a skill.
			{
				Kind:   types.KindSkill,
				Groups: [][]string{{"topic"}},
			},
		},
		TagKinds: []TagKindRule{
			{
				Kind:    types.KindGap,
				Markers: []string{"EFFORT", "STRATEGY", "EVIDENCE"},
				Slots: []TagSlot{
					{Aliases: []string{"TOPIC", "SKILL"}, Path: []string{"topic"}},
					{Aliases: []string{"EVIDENCE_STATUS", "STATUS"}, Path: []string{"evidence", "status"}, Default: "NOT_FOUND"},
					{Aliases: []string{"EVIDENCE", "PROOF"}, Path: []string{"evidence", "snippet"}, Default: "No evidence found."},
					{Aliases: []string{"EFFORT_LEVEL", "EFFORT"}, Path: []string{"effort", "level"}, Default: "HIGH"},
					{Aliases: []string{"STRATEGY", "PLAN"}, Path: []string{"effort", "strategy"}, Default: "Review required."},
					{Aliases: []string{"ACTION", "ESTIMATED_ACTION"}, Path: []string{"effort", "estimated_action"}, Default: "Update resume."},
				},
			},
			{
				Kind:    types.KindAdvice,
				Markers: []string{"RATIONALE", "ACTIONABLE_STEP"},
				Slots: []TagSlot{
					{Aliases: []string{"TOPIC", "FOCUS_AREA"}, Path: []string{"topic"}},
					{Aliases: []string{"RATIONALE", "REASONING"}, Path: []string{"suggestion", "rationale"}, Default: PlaceholderText},
					{Aliases: []string{"ACTIONABLE_STEP", "ACTION", "INSTRUCTION"}, Path: []string{"suggestion", "after_text"}},
					{Aliases: []string{"ACTION_TYPE", "TYPE"}, Path: []string{"action_type"}},
					{Aliases: []string{"PRIORITY"}, Path: []string{"priority"}, Default: "MEDIUM"},
				},
			},
			// 无标记时默认按技能段解析
			{
				Kind: types.KindSkill,
				Slots: []TagSlot{
					{Aliases: []string{"TOPIC"}, Path: []string{"topic"}},
					{Aliases: []string{"PRIORITY"}, Path: []string{"priority"}, Default: "MUST_HAVE"},
					{Aliases: []string{"HIDDEN_BAR", "HBAR", "IMPLICIT_REQUIREMENT"}, Path: []string{"analysis", "hidden_bar"}, Default: "None detected."},
					{Aliases: []string{"QUOTE", "SOURCE"}, Path: []string{"analysis", "quote"}, Default: "Contextual."},
				},
			},
		},
		Repairs: map[types.RecordKind][]RepairRule{
			types.KindSkill: {
				{
					Field:     "analysis",
					IntoField: "hidden_bar",
					Fill:      map[string]string{"quote": PlaceholderText},
					Ensure:    map[string]string{"quote": PlaceholderText},
				},
			},
			types.KindGap: {
				{
					Field:     "evidence",
					IntoField: "snippet",
					Fill:      map[string]string{"status": "FOUND_WEAK"},
				},
				{
					Field:     "effort",
					IntoField: "strategy",
					Fill:      map[string]string{"level": "HIGH"},
				},
			},
			types.KindAdvice: {
				{
					Field:     "suggestion",
					IntoField: "after_text",
					Fill:      map[string]string{"rationale": PlaceholderText},
				},
			},
		},
		CoerceMinLen: 3,
		SearchDepth:  2,
	}
}

// KindOf runs the fingerprint discriminator over a record-shaped map.
// Returns KindUnknown when no rule matches.
func (t *Tables) KindOf(rec map[string]any) types.RecordKind {
	for _, rule := range t.Fingerprints {
		if rule.Matches(rec) {
			return rule.Kind
		}
	}
	return types.KindUnknown
}

// CanonicalKey resolves a top-level key to its canonical wrapper key.
// Canonical keys resolve to themselves; unknown keys return "".
func (t *Tables) CanonicalKey(key string) string {
	if types.KindForWrapper(key) != types.KindUnknown {
		return key
	}
	for _, a := range t.WrapperAliases {
		if a.Alias == key {
			return a.Canonical
		}
	}
	return ""
}
