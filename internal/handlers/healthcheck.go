package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
)

// GET /healthcheck
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": domain.Version,
	})
}
