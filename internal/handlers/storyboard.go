package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
	"github.com/BXLSTNRD/FrePathe/internal/state"
	"github.com/BXLSTNRD/FrePathe/internal/storyboard"
)

type StoryboardHandler struct {
	log     *logger.Logger
	store   state.StateStore
	planner storyboard.Planner
}

func NewStoryboardHandler(log *logger.Logger, store state.StateStore, planner storyboard.Planner) *StoryboardHandler {
	return &StoryboardHandler{
		log:     log.With("handler", "StoryboardHandler"),
		store:   store,
		planner: planner,
	}
}

// withState runs fn against a freshly loaded state under the project lock and
// persists the result.
func (h *StoryboardHandler) withState(projectID string, fn func(st *domain.State) error) error {
	return h.store.WithProjectLock(projectID, func() error {
		st, err := h.store.Load(projectID)
		if err != nil {
			return err
		}
		if err := fn(st); err != nil {
			return err
		}
		return h.store.Save(st, true, false)
	})
}

// POST /api/project/:project_id/sequences/build
func (h *StoryboardHandler) BuildSequences(c *gin.Context) {
	var result *storyboard.BuildResult
	err := h.withState(c.Param("project_id"), func(st *domain.State) error {
		r, err := h.planner.BuildSequences(c.Request.Context(), st)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, result)
}

// POST /api/project/:project_id/sequences/repair
func (h *StoryboardHandler) Repair(c *gin.Context) {
	var report *storyboard.RepairReport
	err := h.withState(c.Param("project_id"), func(st *domain.State) error {
		r, err := h.planner.Repair(st)
		if err != nil {
			return err
		}
		report = r
		return nil
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, report)
}

// POST /api/project/:project_id/shots/expand_all
func (h *StoryboardHandler) ExpandAll(c *gin.Context) {
	var shots []domain.Shot
	err := h.withState(c.Param("project_id"), func(st *domain.State) error {
		s, err := h.planner.ExpandAll(c.Request.Context(), st)
		if err != nil {
			return err
		}
		shots = s
		return nil
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"shots": shots, "count": len(shots)})
}

// POST /api/project/:project_id/shots/expand_sequence
func (h *StoryboardHandler) ExpandSequence(c *gin.Context) {
	var req struct {
		SequenceID string `json:"sequence_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	var shots []domain.Shot
	err := h.withState(c.Param("project_id"), func(st *domain.State) error {
		s, err := h.planner.ExpandSequence(c.Request.Context(), st, req.SequenceID)
		if err != nil {
			return err
		}
		shots = s
		return nil
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"shots": shots, "count": len(shots)})
}

// POST /api/project/:project_id/shots/tighten
func (h *StoryboardHandler) Tighten(c *gin.Context) {
	var shotCount int
	err := h.withState(c.Param("project_id"), func(st *domain.State) error {
		if err := h.planner.Tighten(st); err != nil {
			return err
		}
		shotCount = len(st.Storyboard.Shots)
		return nil
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"tightened": true, "shots": shotCount})
}

// GET /api/project/:project_id/coverage
func (h *StoryboardHandler) Coverage(c *gin.Context) {
	st, err := h.store.Load(c.Param("project_id"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, h.planner.ValidateCoverage(st))
}
