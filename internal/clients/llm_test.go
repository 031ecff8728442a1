package clients

import "testing"

func TestExtractJSONObjectBare(t *testing.T) {
	in := `{"bpm": 120, "mood": ["dark"]}`
	if got := ExtractJSONObject(in); got != in {
		t.Fatalf("bare object: %q", got)
	}
}

func TestExtractJSONObjectFenced(t *testing.T) {
	in := "```json\n{\"bpm\": 120}\n```"
	if got := ExtractJSONObject(in); got != `{"bpm": 120}` {
		t.Fatalf("fenced object: %q", got)
	}
}

func TestExtractJSONObjectSurroundingProse(t *testing.T) {
	in := `Sure, here is the plan: {"sequences": [{"id": "seq_01"}]} Let me know.`
	if got := ExtractJSONObject(in); got != `{"sequences": [{"id": "seq_01"}]}` {
		t.Fatalf("embedded object: %q", got)
	}
}

func TestExtractJSONObjectIgnoresBracesInStrings(t *testing.T) {
	in := `{"note": "use {curly} braces", "n": 1} trailing`
	if got := ExtractJSONObject(in); got != `{"note": "use {curly} braces", "n": 1}` {
		t.Fatalf("braces in string: %q", got)
	}
}

func TestExtractJSONObjectNoObject(t *testing.T) {
	if got := ExtractJSONObject("no json here"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
