package styles

import "testing"

func TestFindByKey(t *testing.T) {
	p := Find("neon_noir")
	if p.Label != "Neon Noir" || len(p.Tokens) == 0 {
		t.Fatalf("preset: %+v", p)
	}
}

func TestFindByLabelCaseInsensitive(t *testing.T) {
	p := Find("neon noir")
	if p.Key != "neon_noir" {
		t.Fatalf("label lookup: %+v", p)
	}
}

func TestFindUnknownDegradesToFreeform(t *testing.T) {
	p := Find("sepia ghost town")
	if p.Key != "sepia ghost town" {
		t.Fatalf("freeform key: %+v", p)
	}
	if len(p.Tokens) != 1 || p.Tokens[0] != "sepia ghost town" {
		t.Fatalf("freeform tokens: %v", p.Tokens)
	}
}

func TestCatalogIsComplete(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range List() {
		if p.Key == "" || p.Label == "" || len(p.Tokens) == 0 || p.ScriptNotes == "" {
			t.Fatalf("incomplete preset: %+v", p)
		}
		if seen[p.Key] {
			t.Fatalf("duplicate key: %s", p.Key)
		}
		seen[p.Key] = true
	}
}

func TestListReturnsCopy(t *testing.T) {
	a := List()
	a[0].Label = "mutated"
	if List()[0].Label == "mutated" {
		t.Fatalf("List exposes internal slice")
	}
}
