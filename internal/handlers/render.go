package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
	"github.com/BXLSTNRD/FrePathe/internal/render"
)

type RenderHandler struct {
	log    *logger.Logger
	render render.Orchestrator
}

func NewRenderHandler(log *logger.Logger, orch render.Orchestrator) *RenderHandler {
	return &RenderHandler{
		log:    log.With("handler", "RenderHandler"),
		render: orch,
	}
}

// POST /api/project/:project_id/shot/:shot_id/render
func (h *RenderHandler) RenderShot(c *gin.Context) {
	var req struct {
		NegativePrompt string `json:"negative_prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.render.RenderShot(c.Request.Context(), c.Param("project_id"), c.Param("shot_id"), req.NegativePrompt)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, result)
}

// POST /api/project/:project_id/shot/:shot_id/edit
func (h *RenderHandler) EditShot(c *gin.Context) {
	var req struct {
		Prompt    string   `json:"prompt"`
		ExtraCast []string `json:"extra_cast"`
		RefImage  string   `json:"ref_image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.render.EditShot(c.Request.Context(), c.Param("project_id"), c.Param("shot_id"), req.Prompt, req.ExtraCast, req.RefImage)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, result)
}

// POST /api/project/:project_id/render/prewarm
func (h *RenderHandler) Prewarm(c *gin.Context) {
	uploaded, err := h.render.Prewarm(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"uploaded": uploaded})
}

// GET /api/project/:project_id/render/pending
func (h *RenderHandler) Pending(c *gin.Context) {
	shots, err := h.render.PendingShots(c.Param("project_id"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	if shots == nil {
		shots = []string{}
	}
	RespondOK(c, gin.H{"pending": shots, "count": len(shots)})
}

// GET /api/project/:project_id/render/stats
func (h *RenderHandler) Stats(c *gin.Context) {
	stats, err := h.render.Stats(c.Param("project_id"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, stats)
}
