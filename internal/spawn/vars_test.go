package spawn

import (
	"testing"

	"crossover.world/internal/sim/catalogs"
)

func TestSubstituteVariables(t *testing.T) {
	vars := map[string]any{"destination": "the Undercity", "n": 3}
	cases := []struct{ in, want string }{
		{"A tear leading to ${destination}.", "A tear leading to the Undercity."},
		{"${n} charges left", "3 charges left"},
		{"no references", "no references"},
		{"unbound ${other} stays", "unbound ${other} stays"},
		{"${destination}${destination}", "the Undercitythe Undercity"},
		{"dangling ${destination", "dangling ${destination"},
	}
	for _, c := range cases {
		if got := substituteVariables(c.in, vars); got != c.want {
			t.Fatalf("substitute(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseItemVariables(t *testing.T) {
	prop := catalogs.PropDef{
		Prop: "sign",
		Variables: map[string]catalogs.VariableDef{
			"text":  {Type: "string", Value: "blank"},
			"count": {Type: "number", Value: float64(0)},
			"lit":   {Type: "boolean", Value: false},
		},
	}

	vars, err := parseItemVariables(map[string]any{"text": "hello", "count": 2, "extra": "dropped"}, prop)
	if err != nil {
		t.Fatal(err)
	}
	if vars["text"] != "hello" {
		t.Fatalf("text = %v", vars["text"])
	}
	if vars["count"] != float64(2) {
		t.Fatalf("count = %v", vars["count"])
	}
	// Unsupplied variables fall back to their declared defaults.
	if vars["lit"] != false {
		t.Fatalf("lit = %v", vars["lit"])
	}
	if _, ok := vars["extra"]; ok {
		t.Fatal("undeclared variable kept")
	}

	if _, err := parseItemVariables(map[string]any{"text": 42}, prop); err == nil {
		t.Fatal("type mismatch accepted")
	}
}

func TestMergeAdditive(t *testing.T) {
	base := map[string]int{"exploration": 1, "firstaid": 1}
	got := mergeAdditive(map[string]int{"firstaid": 2, "beast": 3}, base)
	if got["exploration"] != 1 || got["firstaid"] != 3 || got["beast"] != 3 {
		t.Fatalf("merged = %v", got)
	}
	if base["firstaid"] != 1 {
		t.Fatal("base map mutated")
	}
}
