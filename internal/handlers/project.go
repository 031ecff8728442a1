package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BXLSTNRD/FrePathe/internal/castmatrix"
	"github.com/BXLSTNRD/FrePathe/internal/domain"
	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
	"github.com/BXLSTNRD/FrePathe/internal/state"
	"github.com/BXLSTNRD/FrePathe/internal/styles"
)

type ProjectHandler struct {
	log   *logger.Logger
	store state.StateStore
	cast  castmatrix.Service
}

func NewProjectHandler(log *logger.Logger, store state.StateStore, cast castmatrix.Service) *ProjectHandler {
	return &ProjectHandler{
		log:   log.With("handler", "ProjectHandler"),
		store: store,
		cast:  cast,
	}
}

// POST /api/project/create
func (h *ProjectHandler) Create(c *gin.Context) {
	var req struct {
		Title           string `json:"title"`
		StylePreset     string `json:"style_preset"`
		Aspect          string `json:"aspect"`
		LLM             string `json:"llm"`
		ImageModel      string `json:"image_model"`
		VideoModel      string `json:"video_model"`
		UseWhisper      bool   `json:"use_whisper"`
		ProjectLocation string `json:"project_location"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	st, err := h.store.NewProject(state.NewProjectParams{
		Title:            req.Title,
		StylePreset:      req.StylePreset,
		Aspect:           domain.Aspect(req.Aspect),
		LLMPreference:    req.LLM,
		ImageModelChoice: domain.ImageModel(req.ImageModel),
		VideoModelChoice: req.VideoModel,
		UseWhisper:       req.UseWhisper,
		ProjectLocation:  req.ProjectLocation,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, st)
}

// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.store.List()
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"projects": projects})
}

// GET /api/project/:project_id
func (h *ProjectHandler) Get(c *gin.Context) {
	st, err := h.store.Load(c.Param("project_id"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, st)
}

// GET /api/project/:project_id/validate
func (h *ProjectHandler) Validate(c *gin.Context) {
	st, err := h.store.Load(c.Param("project_id"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	strict := c.Query("strict") == "true"
	valid, issues, err := h.store.Validate(st, strict)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	if issues == nil {
		issues = []string{}
	}
	RespondOK(c, gin.H{"valid": valid, "issues": issues})
}

// PATCH /api/project/:project_id/settings
func (h *ProjectHandler) UpdateSettings(c *gin.Context) {
	projectID := c.Param("project_id")
	var req struct {
		Title       *string `json:"title"`
		StylePreset *string `json:"style_preset"`
		Aspect      *string `json:"aspect"`
		VideoModel  *string `json:"video_model"`
		UseWhisper  *bool   `json:"use_whisper"`
		ImageModel  *string `json:"image_model"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	var updated *domain.State
	err := h.store.WithProjectLock(projectID, func() error {
		st, err := h.store.Load(projectID)
		if err != nil {
			return err
		}
		if req.Title != nil {
			st.Project.Title = *req.Title
		}
		if req.StylePreset != nil {
			st.Project.StylePreset = *req.StylePreset
		}
		if req.Aspect != nil {
			aspect := domain.Aspect(*req.Aspect)
			if !aspect.Valid() {
				return fmt.Errorf("unknown aspect %q: %w", *req.Aspect, apperr.ErrInvalidArgument)
			}
			st.Project.Aspect = aspect
		}
		if req.VideoModel != nil {
			st.Project.VideoModelChoice = *req.VideoModel
		}
		if req.UseWhisper != nil {
			st.Project.UseWhisper = *req.UseWhisper
		}
		if req.ImageModel != nil {
			choice := domain.ImageModel(*req.ImageModel)
			st.Project.ImageModelChoice = choice
			st.Project.RenderModels = domain.LockRenderModels(choice)
		}
		if err := h.store.Save(st, true, false); err != nil {
			return err
		}
		updated = st
		return nil
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, updated.Project)
}

// DELETE /api/project/:project_id
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Param("project_id")); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

// POST /api/project/import
func (h *ProjectHandler) Import(c *gin.Context) {
	doc, err := io.ReadAll(c.Request.Body)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	st, err := h.store.Import(doc)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, st)
}

// POST /api/project/:project_id/clear_style_lock
func (h *ProjectHandler) ClearStyleLock(c *gin.Context) {
	if err := h.cast.ClearStyleLock(c.Param("project_id")); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"style_locked": false})
}

// GET /api/styles
func (h *ProjectHandler) Styles(c *gin.Context) {
	RespondOK(c, gin.H{"styles": styles.List()})
}

// GET /api/version
func (h *ProjectHandler) Version(c *gin.Context) {
	RespondOK(c, gin.H{"version": domain.Version})
}
