package types

import (
	"reflect"
	"testing"
)

func TestEmptyPayload_AllWrapperKeysPresent(t *testing.T) {
	t.Parallel()

	p := EmptyPayload()
	if len(p) != len(WrapperKeys()) {
		t.Fatalf("expected %d keys, got %d", len(WrapperKeys()), len(p))
	}
	for _, k := range WrapperKeys() {
		rs, ok := p[k]
		if !ok {
			t.Fatalf("missing wrapper key %q", k)
		}
		if rs == nil || len(rs) != 0 {
			t.Fatalf("wrapper key %q not an empty list: %#v", k, rs)
		}
	}
	if !p.IsEmpty() {
		t.Fatalf("expected empty payload")
	}
}

func TestPayloadOf_DominantKind(t *testing.T) {
	t.Parallel()

	p := PayloadOf(WrapperSkills, []Record{{"topic": "Rust"}})
	if got := p.DominantKind(); got != KindSkill {
		t.Fatalf("expected %s, got %s", KindSkill, got)
	}
	if got := len(p.Records(WrapperGaps)); got != 0 {
		t.Fatalf("expected empty gaps, got %d", got)
	}

	// Unrecognized keys fall back to an empty payload.
	p = PayloadOf("bogus", []Record{{"topic": "x"}})
	if !p.IsEmpty() {
		t.Fatalf("expected empty payload for unknown wrapper key")
	}
}

func TestKindWrapperRoundTrip(t *testing.T) {
	t.Parallel()

	for _, k := range WrapperKeys() {
		kind := KindForWrapper(k)
		if kind == KindUnknown {
			t.Fatalf("canonical key %q mapped to unknown", k)
		}
		if back := WrapperForKind(kind); back != k {
			t.Fatalf("round trip %q -> %s -> %q", k, kind, back)
		}
	}
	if KindForWrapper("whatever") != KindUnknown {
		t.Fatalf("expected unknown for unrecognized key")
	}
	if WrapperForKind(KindUnknown) != "" {
		t.Fatalf("expected empty wrapper for unknown kind")
	}
}

func TestAsMap_SafeForValidation(t *testing.T) {
	t.Parallel()

	p := PayloadOf(WrapperGaps, []Record{{"topic": "CUDA"}})
	m := p.AsMap()
	items, ok := m[WrapperGaps].([]any)
	if !ok {
		t.Fatalf("expected []any under %q, got %T", WrapperGaps, m[WrapperGaps])
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if _, ok := m[WrapperSkills].([]any); !ok {
		t.Fatalf("empty collections must still be []any")
	}
}

func TestSnippet_TruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	if got := Snippet("short", 200); got != "short" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	long := "深度学习模型部署经验很重要"
	got := Snippet(long, 10)
	if !reflect.DeepEqual([]rune(got)[:3], []rune("深度学")) {
		t.Fatalf("unexpected prefix: %q", got)
	}
	for i := 0; i < len(got)-3; i++ {
		// no partial runes before the ellipsis
		_ = got[i]
	}
	if got[len(got)-3:] != "..." {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
}
