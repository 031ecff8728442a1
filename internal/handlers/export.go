package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BXLSTNRD/FrePathe/internal/export"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

type ExportHandler struct {
	log      *logger.Logger
	exporter export.Exporter
}

func NewExportHandler(log *logger.Logger, exporter export.Exporter) *ExportHandler {
	return &ExportHandler{
		log:      log.With("handler", "ExportHandler"),
		exporter: exporter,
	}
}

// POST /api/project/:project_id/video/export
// Kicks off the export synchronously; clients poll /export/status from a
// second connection for progress.
func (h *ExportHandler) Export(c *gin.Context) {
	var req struct {
		Mode         string  `json:"mode"`
		FadeDuration float64 `json:"fade_duration"`
		FPS          int     `json:"fps"`
		Width        int     `json:"width"`
		Height       int     `json:"height"`
		VideoModel   string  `json:"video_model"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.exporter.Export(c.Request.Context(), c.Param("project_id"), export.Options{
		Mode:         req.Mode,
		FadeDuration: req.FadeDuration,
		FPS:          req.FPS,
		Width:        req.Width,
		Height:       req.Height,
		VideoModel:   req.VideoModel,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, result)
}

// GET /api/project/:project_id/export/status
func (h *ExportHandler) Status(c *gin.Context) {
	RespondOK(c, h.exporter.Status(c.Param("project_id")))
}

// POST /api/project/:project_id/export/contact_sheet
func (h *ExportHandler) ContactSheet(c *gin.Context) {
	url, err := h.exporter.ContactSheet(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"url": url})
}
