package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
	"github.com/BXLSTNRD/FrePathe/internal/paths"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

func newTestService(t *testing.T) (Service, string) {
	t.Helper()
	base := t.TempDir()
	pm, err := paths.NewPathManager(logger.NewNop(), base)
	if err != nil {
		t.Fatalf("NewPathManager: %v", err)
	}
	return NewService(logger.NewNop(), base, pm), base
}

func TestLoadReturnsDefaultsWithoutFile(t *testing.T) {
	svc, _ := newTestService(t)
	got := svc.Load()
	if !got.AutoCleanupTemp || got.TempRetentionHours != 24 {
		t.Fatalf("defaults: %+v", got)
	}
	if got.Version != domain.Version {
		t.Fatalf("version: %q", got.Version)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	in := Settings{AutoCleanupTemp: false, TempRetentionHours: 48}
	if err := svc.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got := svc.Load()
	if got.AutoCleanupTemp || got.TempRetentionHours != 48 {
		t.Fatalf("round trip: %+v", got)
	}
	// Save stamps the current version regardless of input.
	if got.Version != domain.Version {
		t.Fatalf("version not stamped: %q", got.Version)
	}
}

func TestLoadFallsBackOnCorruptFile(t *testing.T) {
	svc, base := newTestService(t)
	if err := os.WriteFile(filepath.Join(base, settingsFilename), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := svc.Load()
	if got.TempRetentionHours != 24 {
		t.Fatalf("corrupt file not defaulted: %+v", got)
	}
}

func TestValidatePath(t *testing.T) {
	svc, base := newTestService(t)

	v := svc.ValidatePath(base)
	if !v.Valid || !v.Writable {
		t.Fatalf("writable dir: %+v", v)
	}

	v = svc.ValidatePath(filepath.Join(base, "missing"))
	if v.Valid {
		t.Fatalf("missing path validated: %+v", v)
	}

	file := filepath.Join(base, "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	v = svc.ValidatePath(file)
	if v.Valid {
		t.Fatalf("file validated as dir: %+v", v)
	}
}

func TestUpdateWorkspaceRootRejectsInvalid(t *testing.T) {
	svc, base := newTestService(t)
	if _, err := svc.UpdateWorkspaceRoot(filepath.Join(base, "nope")); err == nil {
		t.Fatalf("expected error for missing path")
	}

	target := filepath.Join(base, "projects")
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	got, err := svc.UpdateWorkspaceRoot(target)
	if err != nil {
		t.Fatalf("UpdateWorkspaceRoot: %v", err)
	}
	if got.WorkspaceRoot != target {
		t.Fatalf("root not stored: %+v", got)
	}
}

func TestWorkspaceRootFromPersistedSettings(t *testing.T) {
	svc, base := newTestService(t)

	if got := WorkspaceRootFrom(logger.NewNop(), base); got != "" {
		t.Fatalf("expected empty before save, got %q", got)
	}

	target := filepath.Join(base, "workspace")
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := svc.UpdateWorkspaceRoot(target); err != nil {
		t.Fatalf("UpdateWorkspaceRoot: %v", err)
	}
	if got := WorkspaceRootFrom(logger.NewNop(), base); got != target {
		t.Fatalf("persisted root not read back: %q", got)
	}

	// A vanished directory is ignored rather than trusted.
	if err := os.RemoveAll(target); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := WorkspaceRootFrom(logger.NewNop(), base); got != "" {
		t.Fatalf("missing root still returned: %q", got)
	}
}

func TestCleanupTempHonorsOptOut(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.Save(Settings{AutoCleanupTemp: false}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	removed, err := svc.CleanupTemp()
	if err != nil {
		t.Fatalf("CleanupTemp: %v", err)
	}
	if removed != 0 {
		t.Fatalf("cleanup ran while disabled: %d", removed)
	}
}
