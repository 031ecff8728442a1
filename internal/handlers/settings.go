package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
	"github.com/BXLSTNRD/FrePathe/internal/settings"
)

type SettingsHandler struct {
	log      *logger.Logger
	settings settings.Service
}

func NewSettingsHandler(log *logger.Logger, svc settings.Service) *SettingsHandler {
	return &SettingsHandler{
		log:      log.With("handler", "SettingsHandler"),
		settings: svc,
	}
}

// GET /api/settings
func (h *SettingsHandler) Get(c *gin.Context) {
	RespondOK(c, h.settings.Load())
}

// POST /api/settings
func (h *SettingsHandler) Update(c *gin.Context) {
	var req settings.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.settings.Save(req); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, h.settings.Load())
}

// POST /api/settings/workspace
func (h *SettingsHandler) UpdateWorkspace(c *gin.Context) {
	var req struct {
		Path string `json:"path"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	cfg, err := h.settings.UpdateWorkspaceRoot(req.Path)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, cfg)
}

// POST /api/settings/validate_path
func (h *SettingsHandler) ValidatePath(c *gin.Context) {
	var req struct {
		Path string `json:"path"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	RespondOK(c, h.settings.ValidatePath(req.Path))
}

// POST /api/settings/cleanup_temp
func (h *SettingsHandler) CleanupTemp(c *gin.Context) {
	removed, err := h.settings.CleanupTemp()
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"removed": removed})
}
