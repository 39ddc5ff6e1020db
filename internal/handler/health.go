package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health godoc
// @Summary      Health check
// @Description  Returns service status and whether either data source is degraded
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	view := h.dashboard.View()
	status := "healthy"
	if view.OracleDegraded && view.MarketDegraded {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          status,
		"oracle_degraded": view.OracleDegraded,
		"market_degraded": view.MarketDegraded,
		"can_sign":        h.actions != nil && h.actions.CanSign(),
	})
}
