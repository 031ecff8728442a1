package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BXLSTNRD/FrePathe/internal/castmatrix"
	"github.com/BXLSTNRD/FrePathe/internal/domain"
	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

type CastHandler struct {
	log  *logger.Logger
	cast castmatrix.Service
}

func NewCastHandler(log *logger.Logger, cast castmatrix.Service) *CastHandler {
	return &CastHandler{
		log:  log.With("handler", "CastHandler"),
		cast: cast,
	}
}

// POST /api/project/:project_id/cast
// Multipart: file + name + role.
func (h *CastHandler) Add(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body",
			fmt.Errorf("cast photo required: %w", apperr.ErrInvalidArgument))
		return
	}
	data, err := readUpload(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	member, err := h.cast.AddCast(c.Request.Context(), c.Param("project_id"), castmatrix.AddCastInput{
		Name:     c.PostForm("name"),
		Role:     domain.Role(c.PostForm("role")),
		Filename: file.Filename,
		Data:     data,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, member)
}

// PATCH /api/project/:project_id/cast/:cast_id
func (h *CastHandler) Patch(c *gin.Context) {
	var req struct {
		Name        *string  `json:"name"`
		Role        *string  `json:"role"`
		Impact      *float64 `json:"impact"`
		PromptExtra *string  `json:"prompt_extra"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	member, err := h.cast.UpdateCast(c.Param("project_id"), c.Param("cast_id"), castmatrix.CastPatch{
		Name:        req.Name,
		Role:        req.Role,
		Impact:      req.Impact,
		PromptExtra: req.PromptExtra,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, member)
}

// DELETE /api/project/:project_id/cast/:cast_id
func (h *CastHandler) Delete(c *gin.Context) {
	if err := h.cast.DeleteCast(c.Param("project_id"), c.Param("cast_id")); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

// POST /api/project/:project_id/cast/:cast_id/ref
func (h *CastHandler) AddReference(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body",
			fmt.Errorf("reference image required: %w", apperr.ErrInvalidArgument))
		return
	}
	data, err := readUpload(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	member, err := h.cast.AddReferenceImage(c.Request.Context(), c.Param("project_id"), c.Param("cast_id"), file.Filename, data)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, member)
}

// POST /api/project/:project_id/cast/:cast_id/lora
func (h *CastHandler) SetLora(c *gin.Context) {
	var req struct {
		LoraID   string  `json:"lora_id"`
		Strength float64 `json:"strength"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	member, err := h.cast.SetLora(c.Param("project_id"), c.Param("cast_id"), req.LoraID, req.Strength)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, member)
}

// POST /api/project/:project_id/cast/:cast_id/canonical_refs
func (h *CastHandler) GenerateCanonicalRefs(c *gin.Context) {
	result, err := h.cast.GenerateCanonicalRefs(c.Request.Context(), c.Param("project_id"), c.Param("cast_id"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, result)
}

// POST /api/project/:project_id/cast/:cast_id/rerender/:ref_type
func (h *CastHandler) RerenderRef(c *gin.Context) {
	url, err := h.cast.RerenderRef(c.Request.Context(), c.Param("project_id"), c.Param("cast_id"), c.Param("ref_type"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"ref_type": c.Param("ref_type"), "url": url})
}

// POST /api/project/:project_id/cast/:cast_id/ref/:ref_type
// Manual upload of a canonical reference.
func (h *CastHandler) UploadCanonicalRef(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body",
			fmt.Errorf("reference image required: %w", apperr.ErrInvalidArgument))
		return
	}
	data, err := readUpload(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	refs, err := h.cast.UploadCanonicalRef(c.Param("project_id"), c.Param("cast_id"), c.Param("ref_type"), file.Filename, data)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, refs)
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}
