package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/BXLSTNRD/FrePathe/internal/handlers"
)

type RouterConfig struct {
	WorkspaceRoot     string
	ProjectHandler    *handlers.ProjectHandler
	AudioHandler      *handlers.AudioHandler
	CastHandler       *handlers.CastHandler
	SceneHandler      *handlers.SceneHandler
	StoryboardHandler *handlers.StoryboardHandler
	RenderHandler     *handlers.RenderHandler
	VideoHandler      *handlers.VideoHandler
	ExportHandler     *handlers.ExportHandler
	CostsHandler      *handlers.CostsHandler
	SettingsHandler   *handlers.SettingsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	// Local workspace assets (renders, audio, video, exports)
	router.Static("/files", cfg.WorkspaceRoot)

	api := router.Group("/api")
	{
		api.GET("/version", cfg.ProjectHandler.Version)
		api.GET("/styles", cfg.ProjectHandler.Styles)

		// Costs
		api.GET("/costs", cfg.CostsHandler.Session)
		api.POST("/costs/reset", cfg.CostsHandler.Reset)
		api.POST("/costs/refresh-pricing", cfg.CostsHandler.RefreshPricing)

		// Settings
		api.GET("/settings", cfg.SettingsHandler.Get)
		api.POST("/settings", cfg.SettingsHandler.Update)
		api.POST("/settings/workspace", cfg.SettingsHandler.UpdateWorkspace)
		api.POST("/settings/validate_path", cfg.SettingsHandler.ValidatePath)
		api.POST("/settings/cleanup_temp", cfg.SettingsHandler.CleanupTemp)

		// Video model catalog
		api.GET("/video/models", cfg.VideoHandler.Models)

		// Projects
		api.GET("/projects", cfg.ProjectHandler.List)
		api.POST("/project/create", cfg.ProjectHandler.Create)
		api.POST("/project/import", cfg.ProjectHandler.Import)

		project := api.Group("/project/:project_id")
		{
			project.GET("", cfg.ProjectHandler.Get)
			project.DELETE("", cfg.ProjectHandler.Delete)
			project.GET("/validate", cfg.ProjectHandler.Validate)
			project.PATCH("/settings", cfg.ProjectHandler.UpdateSettings)
			project.POST("/clear_style_lock", cfg.ProjectHandler.ClearStyleLock)
			project.GET("/costs", cfg.CostsHandler.Project)

			// Audio
			project.POST("/audio", cfg.AudioHandler.Upload)
			project.PATCH("/audio/bpm", cfg.AudioHandler.PatchBPM)
			project.PATCH("/audio/lyrics", cfg.AudioHandler.PatchLyrics)

			// Cast
			project.POST("/cast", cfg.CastHandler.Add)
			project.PATCH("/cast/:cast_id", cfg.CastHandler.Patch)
			project.DELETE("/cast/:cast_id", cfg.CastHandler.Delete)
			project.POST("/cast/:cast_id/ref", cfg.CastHandler.AddReference)
			project.POST("/cast/:cast_id/lora", cfg.CastHandler.SetLora)
			project.POST("/cast/:cast_id/canonical_refs", cfg.CastHandler.GenerateCanonicalRefs)
			project.POST("/cast/:cast_id/rerender/:ref_type", cfg.CastHandler.RerenderRef)
			project.POST("/cast/:cast_id/ref/:ref_type", cfg.CastHandler.UploadCanonicalRef)

			// Cast matrix scenes
			project.POST("/castmatrix/scenes/autogen", cfg.SceneHandler.Autogen)
			scene := project.Group("/castmatrix/scene/:scene_id")
			{
				scene.POST("/render", cfg.SceneHandler.Render)
				scene.POST("/decor_alt", cfg.SceneHandler.DecorAlt)
				scene.POST("/edit", cfg.SceneHandler.Edit)
				scene.POST("/import", cfg.SceneHandler.Import)
				scene.POST("/wardrobe_ref", cfg.SceneHandler.WardrobeRef)
				scene.PATCH("/wardrobe", cfg.SceneHandler.PatchWardrobe)
				scene.PATCH("/decor_lock", cfg.SceneHandler.PatchDecorLock)
				scene.PATCH("/wardrobe_lock", cfg.SceneHandler.PatchWardrobeLock)
			}

			// Storyboard
			project.POST("/sequences/build", cfg.StoryboardHandler.BuildSequences)
			project.POST("/sequences/repair", cfg.StoryboardHandler.Repair)
			project.POST("/shots/expand_all", cfg.StoryboardHandler.ExpandAll)
			project.POST("/shots/expand_sequence", cfg.StoryboardHandler.ExpandSequence)
			project.POST("/shots/tighten", cfg.StoryboardHandler.Tighten)
			project.GET("/coverage", cfg.StoryboardHandler.Coverage)

			// Shot renders
			project.POST("/shot/:shot_id/render", cfg.RenderHandler.RenderShot)
			project.POST("/shot/:shot_id/edit", cfg.RenderHandler.EditShot)
			project.POST("/render/prewarm", cfg.RenderHandler.Prewarm)
			project.GET("/render/pending", cfg.RenderHandler.Pending)
			project.GET("/render/stats", cfg.RenderHandler.Stats)

			// Videos
			project.POST("/shot/:shot_id/video", cfg.VideoHandler.GenerateShot)
			project.POST("/video/generate", cfg.VideoHandler.GenerateBatch)

			// Export
			project.POST("/video/export", cfg.ExportHandler.Export)
			project.GET("/export/status", cfg.ExportHandler.Status)
			project.POST("/export/contact_sheet", cfg.ExportHandler.ContactSheet)
		}
	}

	return router
}
