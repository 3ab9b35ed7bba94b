package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetDashboard returns the tenant's counters and recent rows.
func (h *Handler) GetDashboard(c *gin.Context) {
	company, err := tenantFor(c, "")
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.dashboard.Summary(c.Request.Context(), company))
}

// GetPlan returns the plan of the caller's network with its next due date.
func (h *Handler) GetPlan(c *gin.Context) {
	company, err := tenantFor(c, c.Query("rede"))
	if err != nil {
		h.fail(c, err)
		return
	}
	summary, err := h.plans.Summary(c.Request.Context(), company)
	if err != nil {
		h.fail(c, err)
		return
	}
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No plan found for this company"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
