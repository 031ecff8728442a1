package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
	"github.com/BXLSTNRD/FrePathe/internal/video"
)

type VideoHandler struct {
	log    *logger.Logger
	videos video.Generator
}

func NewVideoHandler(log *logger.Logger, videos video.Generator) *VideoHandler {
	return &VideoHandler{
		log:    log.With("handler", "VideoHandler"),
		videos: videos,
	}
}

// GET /api/video/models
func (h *VideoHandler) Models(c *gin.Context) {
	RespondOK(c, gin.H{"models": video.ListModels(), "default": video.DefaultModel().Key})
}

// POST /api/project/:project_id/shot/:shot_id/video
func (h *VideoHandler) GenerateShot(c *gin.Context) {
	var req struct {
		VideoModel string `json:"video_model"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.videos.GenerateShotVideo(c.Request.Context(), c.Param("project_id"), c.Param("shot_id"), req.VideoModel)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, result)
}

// POST /api/project/:project_id/video/generate
func (h *VideoHandler) GenerateBatch(c *gin.Context) {
	var req struct {
		ShotIDs    []string `json:"shot_ids"`
		VideoModel string   `json:"video_model"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.videos.GenerateBatch(c.Request.Context(), c.Param("project_id"), req.ShotIDs, req.VideoModel)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, result)
}
