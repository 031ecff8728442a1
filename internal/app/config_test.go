package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

func writeSettings(t *testing.T, dir string, workspaceRoot string) {
	t.Helper()
	data, err := json.Marshal(map[string]any{"workspace_root": workspaceRoot})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "settings.json"), data, 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
}

func TestLoadConfigReadsPersistedWorkspaceRoot(t *testing.T) {
	settingsDir := t.TempDir()
	workspace := t.TempDir()
	writeSettings(t, settingsDir, workspace)

	t.Setenv("SETTINGS_DIR", settingsDir)
	t.Setenv("WORKSPACE_ROOT", "")

	cfg := LoadConfig(logger.NewNop())
	if cfg.WorkspaceRoot != workspace {
		t.Fatalf("workspace root: %q, want %q", cfg.WorkspaceRoot, workspace)
	}
	if cfg.SettingsDir != settingsDir {
		t.Fatalf("settings dir: %q", cfg.SettingsDir)
	}
}

func TestLoadConfigEnvOverridesPersistedRoot(t *testing.T) {
	settingsDir := t.TempDir()
	persisted := t.TempDir()
	fromEnv := t.TempDir()
	writeSettings(t, settingsDir, persisted)

	t.Setenv("SETTINGS_DIR", settingsDir)
	t.Setenv("WORKSPACE_ROOT", fromEnv)

	cfg := LoadConfig(logger.NewNop())
	if cfg.WorkspaceRoot != fromEnv {
		t.Fatalf("env override lost: %q", cfg.WorkspaceRoot)
	}
}

func TestLoadConfigIgnoresMissingPersistedRoot(t *testing.T) {
	settingsDir := t.TempDir()
	writeSettings(t, settingsDir, filepath.Join(settingsDir, "gone"))

	t.Setenv("SETTINGS_DIR", settingsDir)
	t.Setenv("WORKSPACE_ROOT", "")

	cfg := LoadConfig(logger.NewNop())
	if cfg.WorkspaceRoot != defaultWorkspaceRoot() {
		t.Fatalf("expected default root, got %q", cfg.WorkspaceRoot)
	}
}
