package judge

import (
	"encoding/json"
	"testing"
)

func canon(t *testing.T, v any) string {
	t.Helper()
	b, err := CanonicalJSON(v)
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	return string(b)
}

func TestCanonicalSortsKeys(t *testing.T) {
	got := canon(t, map[string]any{"z": 1, "a": 2, "m": 3})
	want := `{"a":2,"m":3,"z":1}`
	if got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestCanonicalIndependentOfSource(t *testing.T) {
	// A map decoded from JSON and one built directly must canonicalize
	// identically, including integral numbers arriving as float64.
	var decoded map[string]any
	if err := json.Unmarshal([]byte(`{"steps": [1, 2], "goal": "x", "budget": 3}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	built := map[string]any{"goal": "x", "budget": 3, "steps": []any{1, 2}}

	if a, b := canon(t, decoded), canon(t, built); a != b {
		t.Fatalf("divergent canonical forms:\n%s\n%s", a, b)
	}
}

func TestCanonicalNested(t *testing.T) {
	got := canon(t, map[string]any{
		"outer": map[string]any{"b": []any{true, nil, "s"}, "a": 1.5},
	})
	want := `{"outer":{"a":1.5,"b":[true,null,"s"]}}`
	if got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestCanonicalEscapesStrings(t *testing.T) {
	got := canon(t, map[string]any{"q": `say "hi"`})
	want := `{"q":"say \"hi\""}`
	if got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestCanonicalNoWhitespace(t *testing.T) {
	got := canon(t, map[string]any{"a": []any{1, 2, 3}, "b": map[string]any{"c": "d"}})
	for _, c := range got {
		if c == ' ' || c == '\n' || c == '\t' {
			t.Fatalf("canonical form contains whitespace: %q", got)
		}
	}
}

func TestCanonicalEmpty(t *testing.T) {
	if got := canon(t, map[string]any{}); got != "{}" {
		t.Fatalf("got %s want {}", got)
	}
	if got := canon(t, []any{}); got != "[]" {
		t.Fatalf("got %s want []", got)
	}
}
