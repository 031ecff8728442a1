package app

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/BXLSTNRD/FrePathe/internal/paths"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Paths    paths.PathManager
	Clients  Clients
	Services Services
	Router   *gin.Engine
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	pm, err := paths.NewPathManager(log, cfg.WorkspaceRoot)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init path manager: %w", err)
	}

	cl, err := wireClients(log, cfg, pm)
	if err != nil {
		log.Sync()
		return nil, err
	}

	svc := wireServices(log, cfg, pm, cl)
	handlerset := wireHandlers(log, pm, cl, svc)
	router := wireRouter(cfg, handlerset)

	// Startup housekeeping per retention settings.
	if removed, err := svc.Settings.CleanupTemp(); err != nil {
		log.Warn("Temp cleanup failed", "error", err)
	} else if removed > 0 {
		log.Info("Temp cleanup", "removed", removed)
	}

	return &App{
		Log:      log,
		Cfg:      cfg,
		Paths:    pm,
		Clients:  cl,
		Services: svc,
		Router:   router,
	}, nil
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(":" + a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
