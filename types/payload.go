package types

// RecordKind is the closed discriminator for the record categories a
// normalized payload may hold. Classification always goes through this tag;
// callers must not re-inspect record shapes ad hoc.
type RecordKind string

const (
	KindSkill   RecordKind = "skill"
	KindGap     RecordKind = "gap"
	KindAdvice  RecordKind = "advice"
	KindUnknown RecordKind = "unknown"
)

// Canonical wrapper keys. The set is closed: a normalized payload contains
// exactly these keys and no others.
const (
	WrapperSkills = "skills"
	WrapperGaps   = "gaps"
	WrapperAdvice = "advice"
)

// wrapperOrder fixes the iteration order for deterministic output.
var wrapperOrder = []string{WrapperSkills, WrapperGaps, WrapperAdvice}

// WrapperKeys returns the canonical wrapper keys in stable order.
// The returned slice must not be modified.
func WrapperKeys() []string {
	return wrapperOrder
}

// KindForWrapper maps a canonical wrapper key to its record kind.
func KindForWrapper(key string) RecordKind {
	switch key {
	case WrapperSkills:
		return KindSkill
	case WrapperGaps:
		return KindGap
	case WrapperAdvice:
		return KindAdvice
	default:
		return KindUnknown
	}
}

// WrapperForKind maps a record kind to its canonical wrapper key.
// KindUnknown has no wrapper and returns "".
func WrapperForKind(kind RecordKind) string {
	switch kind {
	case KindSkill:
		return WrapperSkills
	case KindGap:
		return WrapperGaps
	case KindAdvice:
		return WrapperAdvice
	default:
		return ""
	}
}

// Record is one structured item inside a canonical collection. Shapes are
// validated against a caller-supplied schema, so the representation stays
// dynamic.
type Record = map[string]any

// NormalizedPayload is the canonical result shape: every wrapper key present,
// each mapping to an ordered list of records. Downstream code can iterate
// any collection without nil checks.
type NormalizedPayload map[string][]Record

// EmptyPayload returns a payload with all canonical wrapper keys present and
// empty. This is the normal form of "no data" and the failure-envelope filler.
func EmptyPayload() NormalizedPayload {
	p := make(NormalizedPayload, len(wrapperOrder))
	for _, k := range wrapperOrder {
		p[k] = []Record{}
	}
	return p
}

// PayloadOf returns an otherwise-empty payload holding records under the
// given wrapper key. Unrecognized keys yield EmptyPayload.
func PayloadOf(key string, records []Record) NormalizedPayload {
	p := EmptyPayload()
	if _, ok := p[key]; ok && records != nil {
		p[key] = records
	}
	return p
}

// Records returns the collection for a wrapper key, never nil.
func (p NormalizedPayload) Records(key string) []Record {
	if p == nil {
		return []Record{}
	}
	if rs, ok := p[key]; ok && rs != nil {
		return rs
	}
	return []Record{}
}

// NonEmptyKeys returns the wrapper keys holding at least one record,
// in stable order.
func (p NormalizedPayload) NonEmptyKeys() []string {
	var keys []string
	for _, k := range wrapperOrder {
		if len(p.Records(k)) > 0 {
			keys = append(keys, k)
		}
	}
	return keys
}

// DominantKind returns the kind of the single non-empty collection, or
// KindUnknown when the payload is empty or holds several categories.
func (p NormalizedPayload) DominantKind() RecordKind {
	keys := p.NonEmptyKeys()
	if len(keys) != 1 {
		return KindUnknown
	}
	return KindForWrapper(keys[0])
}

// IsEmpty reports whether every collection is empty.
func (p NormalizedPayload) IsEmpty() bool {
	return len(p.NonEmptyKeys()) == 0
}

// AsMap converts the payload to a plain map for schema validation.
func (p NormalizedPayload) AsMap() map[string]any {
	m := make(map[string]any, len(p))
	for _, k := range wrapperOrder {
		rs := p.Records(k)
		items := make([]any, len(rs))
		for i, r := range rs {
			items[i] = map[string]any(r)
		}
		m[k] = items
	}
	return m
}
