package debuglog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
	"github.com/BXLSTNRD/FrePathe/internal/paths"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

func TestRecordWritesEntryFile(t *testing.T) {
	pm, err := paths.NewPathManager(logger.NewNop(), t.TempDir())
	if err != nil {
		t.Fatalf("NewPathManager: %v", err)
	}
	rec := NewRecorder(logger.NewNop(), pm)
	st := &domain.State{Project: domain.Project{ID: "p1", Title: "Test"}}

	rec.Record(st, "llm_call", "chat/completions",
		map[string]any{"prompt": "plan sequences"},
		map[string]any{"sequences": 5},
		map[string]any{"model": "gpt-4o-mini"},
	)

	dir, err := pm.LLMDir(st)
	if err != nil {
		t.Fatalf("LLMDir: %v", err)
	}
	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 entry file, got %d", len(files))
	}

	raw, err := os.ReadFile(filepath.Join(dir, files[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		t.Fatalf("entry not valid JSON: %v", err)
	}
	if entry.Kind != "llm_call" || entry.Endpoint != "chat/completions" {
		t.Fatalf("entry: %+v", entry)
	}
	if entry.Meta["model"] != "gpt-4o-mini" {
		t.Fatalf("meta: %v", entry.Meta)
	}
}

func TestRecordIgnoresNilState(t *testing.T) {
	pm, err := paths.NewPathManager(logger.NewNop(), t.TempDir())
	if err != nil {
		t.Fatalf("NewPathManager: %v", err)
	}
	rec := NewRecorder(logger.NewNop(), pm)
	rec.Record(nil, "llm_call", "x", nil, nil, nil)
}
