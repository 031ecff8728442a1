package app

import (
	"github.com/BXLSTNRD/FrePathe/internal/handlers"
	"github.com/BXLSTNRD/FrePathe/internal/paths"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

type Handlers struct {
	Project    *handlers.ProjectHandler
	Audio      *handlers.AudioHandler
	Cast       *handlers.CastHandler
	Scene      *handlers.SceneHandler
	Storyboard *handlers.StoryboardHandler
	Render     *handlers.RenderHandler
	Video      *handlers.VideoHandler
	Export     *handlers.ExportHandler
	Costs      *handlers.CostsHandler
	Settings   *handlers.SettingsHandler
}

func wireHandlers(log *logger.Logger, pm paths.PathManager, cl Clients, svc Services) Handlers {
	return Handlers{
		Project:    handlers.NewProjectHandler(log, svc.Store, svc.Cast),
		Audio:      handlers.NewAudioHandler(log, svc.Store, pm, cl.FAL, svc.Audio),
		Cast:       handlers.NewCastHandler(log, svc.Cast),
		Scene:      handlers.NewSceneHandler(log, svc.Cast),
		Storyboard: handlers.NewStoryboardHandler(log, svc.Store, svc.Planner),
		Render:     handlers.NewRenderHandler(log, svc.Render),
		Video:      handlers.NewVideoHandler(log, svc.Video),
		Export:     handlers.NewExportHandler(log, svc.Export),
		Costs:      handlers.NewCostsHandler(log, cl.Costs, svc.Store),
		Settings:   handlers.NewSettingsHandler(log, svc.Settings),
	}
}
