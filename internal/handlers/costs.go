package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/BXLSTNRD/FrePathe/internal/costs"
	"github.com/BXLSTNRD/FrePathe/internal/domain"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
	"github.com/BXLSTNRD/FrePathe/internal/state"
)

type CostsHandler struct {
	log   *logger.Logger
	costs costs.CostTracker
	store state.StateStore
}

func NewCostsHandler(log *logger.Logger, tracker costs.CostTracker, store state.StateStore) *CostsHandler {
	return &CostsHandler{
		log:   log.With("handler", "CostsHandler"),
		costs: tracker,
		store: store,
	}
}

// GET /api/costs
func (h *CostsHandler) Session(c *gin.Context) {
	session, err := h.costs.Session()
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, session)
}

// GET /api/project/:project_id/costs
func (h *CostsHandler) Project(c *gin.Context) {
	st, err := h.store.Load(c.Param("project_id"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	ledger := st.Costs
	if ledger == nil {
		ledger = &domain.CostLedger{}
	}
	RespondOK(c, ledger)
}

// POST /api/costs/reset
func (h *CostsHandler) Reset(c *gin.Context) {
	if err := h.costs.ResetSession(); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"reset": true})
}

// POST /api/costs/refresh-pricing
func (h *CostsHandler) RefreshPricing(c *gin.Context) {
	if err := h.costs.RefreshPricing(c.Request.Context()); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"refreshed": true})
}
