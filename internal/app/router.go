package app

import (
	"github.com/gin-gonic/gin"

	"github.com/BXLSTNRD/FrePathe/internal/server"
)

func wireRouter(cfg Config, h Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		WorkspaceRoot:     cfg.WorkspaceRoot,
		ProjectHandler:    h.Project,
		AudioHandler:      h.Audio,
		CastHandler:       h.Cast,
		SceneHandler:      h.Scene,
		StoryboardHandler: h.Storyboard,
		RenderHandler:     h.Render,
		VideoHandler:      h.Video,
		ExportHandler:     h.Export,
		CostsHandler:      h.Costs,
		SettingsHandler:   h.Settings,
	})
}
