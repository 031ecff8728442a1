// Package settings persists user-level configuration that lives outside any
// single project: the workspace root and temp-file retention policy.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
	"github.com/BXLSTNRD/FrePathe/internal/paths"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

const settingsFilename = "settings.json"

type Settings struct {
	WorkspaceRoot      string `json:"workspace_root,omitempty"`
	AutoCleanupTemp    bool   `json:"auto_cleanup_temp"`
	TempRetentionHours int    `json:"temp_retention_hours"`
	Version            string `json:"version"`
}

type Validation struct {
	Valid    bool   `json:"valid"`
	Error    string `json:"error,omitempty"`
	Writable bool   `json:"writable"`
}

type Service interface {
	Load() Settings
	Save(s Settings) error
	UpdateWorkspaceRoot(path string) (Settings, error)
	ValidatePath(path string) Validation
	// CleanupTemp removes temp files older than the configured retention.
	CleanupTemp() (int, error)
}

type service struct {
	log   *logger.Logger
	base  string
	paths paths.PathManager
}

func NewService(log *logger.Logger, baseDir string, pm paths.PathManager) Service {
	return &service{
		log:   log.With("service", "SettingsService"),
		base:  baseDir,
		paths: pm,
	}
}

// WorkspaceRootFrom reads the persisted workspace root without constructing a
// full service, so startup can pick the workspace before the PathManager
// exists. Returns "" when nothing usable is configured.
func WorkspaceRootFrom(log *logger.Logger, baseDir string) string {
	data, err := os.ReadFile(filepath.Join(baseDir, settingsFilename))
	if err != nil {
		return ""
	}
	var cfg Settings
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Warn("settings file unreadable, ignoring workspace root", "error", err)
		return ""
	}
	if cfg.WorkspaceRoot == "" {
		return ""
	}
	if info, err := os.Stat(cfg.WorkspaceRoot); err != nil || !info.IsDir() {
		log.Warn("configured workspace root missing, ignoring", "path", cfg.WorkspaceRoot)
		return ""
	}
	return cfg.WorkspaceRoot
}

func defaults() Settings {
	return Settings{
		AutoCleanupTemp:    true,
		TempRetentionHours: 24,
		Version:            domain.Version,
	}
}

func (s *service) file() string {
	return filepath.Join(s.base, settingsFilename)
}

func (s *service) Load() Settings {
	data, err := os.ReadFile(s.file())
	if err != nil {
		return defaults()
	}
	out := defaults()
	if err := json.Unmarshal(data, &out); err != nil {
		s.log.Warn("settings file unreadable, using defaults", "error", err)
		return defaults()
	}
	return out
}

func (s *service) Save(cfg Settings) error {
	cfg.Version = domain.Version
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.MkdirAll(s.base, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := renameio.WriteFile(s.file(), data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	s.log.Info("settings saved", "path", s.file())
	return nil
}

func (s *service) UpdateWorkspaceRoot(path string) (Settings, error) {
	v := s.ValidatePath(path)
	if !v.Valid {
		return Settings{}, fmt.Errorf("invalid workspace root: %s", v.Error)
	}
	if !v.Writable {
		return Settings{}, fmt.Errorf("workspace root is not writable: %s", path)
	}
	cfg := s.Load()
	cfg.WorkspaceRoot = path
	if err := s.Save(cfg); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

func (s *service) ValidatePath(path string) Validation {
	info, err := os.Stat(path)
	if err != nil {
		return Validation{Valid: false, Error: "path doesn't exist"}
	}
	if !info.IsDir() {
		return Validation{Valid: false, Error: "path is not a directory"}
	}
	probe := filepath.Join(path, ".frepathe_test")
	writable := false
	if f, err := os.Create(probe); err == nil {
		f.Close()
		os.Remove(probe)
		writable = true
	}
	return Validation{Valid: true, Writable: writable}
}

func (s *service) CleanupTemp() (int, error) {
	cfg := s.Load()
	if !cfg.AutoCleanupTemp {
		return 0, nil
	}
	retention := time.Duration(cfg.TempRetentionHours) * time.Hour
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	removed, err := s.paths.CleanupTemp(retention)
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		s.log.Info("temp cleanup", "removed", removed)
	}
	return removed, nil
}
