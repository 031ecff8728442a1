package app

import (
	"os"
	"path/filepath"

	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
	"github.com/BXLSTNRD/FrePathe/internal/settings"
	"github.com/BXLSTNRD/FrePathe/internal/utils"
)

type Config struct {
	Port          string
	SettingsDir   string
	WorkspaceRoot string
	CostDBPath    string
}

// LoadConfig resolves the workspace root in order: WORKSPACE_ROOT env var,
// the workspace_root persisted in settings.json, then the per-user default.
func LoadConfig(log *logger.Logger) Config {
	port := utils.GetEnv("PORT", "8080", log)
	settingsDir := utils.GetEnv("SETTINGS_DIR", defaultSettingsDir(), log)

	workspaceRoot := utils.GetEnv("WORKSPACE_ROOT", "", log)
	if workspaceRoot == "" {
		workspaceRoot = settings.WorkspaceRootFrom(log, settingsDir)
	}
	if workspaceRoot == "" {
		workspaceRoot = defaultWorkspaceRoot()
	}

	costDBPath := utils.GetEnv("COST_DB_PATH", filepath.Join(workspaceRoot, "costs.db"), log)
	return Config{
		Port:          port,
		SettingsDir:   settingsDir,
		WorkspaceRoot: workspaceRoot,
		CostDBPath:    costDBPath,
	}
}

func defaultSettingsDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "./frepathe_config"
	}
	return filepath.Join(base, "frepathe")
}

func defaultWorkspaceRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./frepathe_projects"
	}
	return filepath.Join(home, "FrePathe", "Projects")
}
