package coerce

import (
	"errors"
	"testing"
)

func TestExtractDirectJSON(t *testing.T) {
	out, err := Extract(`{"score": 2, "notes": "ok"}`)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got := Float(out, "score", -1); got != 2 {
		t.Fatalf("expected score 2, got %v", got)
	}
	if got := String(out, "notes", ""); got != "ok" {
		t.Fatalf("expected notes ok, got %q", got)
	}
}

func TestExtractFencedBlock(t *testing.T) {
	text := "Here is the result:\n```json\n{\"score\":1}\n```\nThanks"
	out, err := Extract(text)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got := Int(out, "score", -1); got != 1 {
		t.Fatalf("expected score 1, got %d", got)
	}
}

func TestExtractUntaggedFence(t *testing.T) {
	text := "```\n{\"phase\": \"plan\"}\n```"
	out, err := Extract(text)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got := String(out, "phase", ""); got != "plan" {
		t.Fatalf("expected phase plan, got %q", got)
	}
}

func TestExtractEmbeddedBraceSpan(t *testing.T) {
	text := `The evaluation follows. {"score": 3, "grade": "A"} Let me know if you need more.`
	out, err := Extract(text)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got := Int(out, "score", -1); got != 3 {
		t.Fatalf("expected score 3, got %d", got)
	}
}

func TestExtractFailureReturnsCoercionError(t *testing.T) {
	_, err := Extract("not json at all")
	if err == nil {
		t.Fatal("expected error")
	}
	var coercionErr *CoercionError
	if !errors.As(err, &coercionErr) {
		t.Fatalf("expected CoercionError, got %T", err)
	}
}

func TestExtractWithFallbackNeverFails(t *testing.T) {
	fallback := map[string]interface{}{"score": 0}
	out := ExtractWith("not json at all", fallback)
	if got := Int(out, "score", -1); got != 0 {
		t.Fatalf("expected fallback score 0, got %d", got)
	}
}

func TestFieldHelpers(t *testing.T) {
	record := map[string]interface{}{
		"items": []interface{}{"a", "b", 3},
		"rows":  []interface{}{map[string]interface{}{"k": "v"}, "skip"},
		"inner": map[string]interface{}{"x": 1.0},
	}
	if got := Strings(record, "items"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected strings %v", got)
	}
	rows := Records(record, "rows")
	if len(rows) != 1 || rows[0]["k"] != "v" {
		t.Fatalf("unexpected records %v", rows)
	}
	if inner := Record(record, "inner"); inner == nil || Float(inner, "x", -1) != 1 {
		t.Fatalf("unexpected inner record")
	}
	if got := Strings(record, "missing"); got != nil {
		t.Fatalf("expected nil for missing list, got %v", got)
	}
}
