package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BXLSTNRD/FrePathe/internal/castmatrix"
	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

type SceneHandler struct {
	log  *logger.Logger
	cast castmatrix.Service
}

func NewSceneHandler(log *logger.Logger, cast castmatrix.Service) *SceneHandler {
	return &SceneHandler{
		log:  log.With("handler", "SceneHandler"),
		cast: cast,
	}
}

// POST /api/project/:project_id/castmatrix/scenes/autogen
func (h *SceneHandler) Autogen(c *gin.Context) {
	scenes, err := h.cast.AutogenScenes(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"scenes": scenes, "count": len(scenes)})
}

// POST /api/project/:project_id/castmatrix/scene/:scene_id/render
func (h *SceneHandler) Render(c *gin.Context) {
	result, err := h.cast.RenderScene(c.Request.Context(), c.Param("project_id"), c.Param("scene_id"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, result)
}

// POST /api/project/:project_id/castmatrix/scene/:scene_id/decor_alt
func (h *SceneHandler) DecorAlt(c *gin.Context) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	url, err := h.cast.GenerateDecorAlt(c.Request.Context(), c.Param("project_id"), c.Param("scene_id"), req.Prompt)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"url": url})
}

// POST /api/project/:project_id/castmatrix/scene/:scene_id/edit
func (h *SceneHandler) Edit(c *gin.Context) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	url, err := h.cast.EditScene(c.Request.Context(), c.Param("project_id"), c.Param("scene_id"), req.Prompt)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"url": url})
}

// PATCH /api/project/:project_id/castmatrix/scene/:scene_id/wardrobe
func (h *SceneHandler) PatchWardrobe(c *gin.Context) {
	var req struct {
		Wardrobe string `json:"wardrobe"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	scene, err := h.cast.UpdateWardrobe(c.Param("project_id"), c.Param("scene_id"), req.Wardrobe)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, scene)
}

// PATCH /api/project/:project_id/castmatrix/scene/:scene_id/decor_lock
func (h *SceneHandler) PatchDecorLock(c *gin.Context) {
	locked, ok := bindLock(c)
	if !ok {
		return
	}
	scene, err := h.cast.SetDecorLock(c.Param("project_id"), c.Param("scene_id"), locked)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, scene)
}

// PATCH /api/project/:project_id/castmatrix/scene/:scene_id/wardrobe_lock
func (h *SceneHandler) PatchWardrobeLock(c *gin.Context) {
	locked, ok := bindLock(c)
	if !ok {
		return
	}
	scene, err := h.cast.SetWardrobeLock(c.Param("project_id"), c.Param("scene_id"), locked)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, scene)
}

// POST /api/project/:project_id/castmatrix/scene/:scene_id/wardrobe_ref
func (h *SceneHandler) WardrobeRef(c *gin.Context) {
	url, err := h.cast.GenerateWardrobeRef(c.Request.Context(), c.Param("project_id"), c.Param("scene_id"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"url": url})
}

// POST /api/project/:project_id/castmatrix/scene/:scene_id/import
func (h *SceneHandler) Import(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body",
			fmt.Errorf("scene image required: %w", apperr.ErrInvalidArgument))
		return
	}
	data, err := readUpload(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	url, err := h.cast.ImportSceneImage(c.Param("project_id"), c.Param("scene_id"), file.Filename, data)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"url": url})
}

func bindLock(c *gin.Context) (bool, bool) {
	var req struct {
		Locked bool `json:"locked"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return false, false
	}
	return req.Locked, true
}
