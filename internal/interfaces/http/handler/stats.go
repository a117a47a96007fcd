package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "github.com/daftar/backend/internal/application/billing"
)

// StatsHandler handles aggregate statistics endpoints
type StatsHandler struct {
	BaseHandler
	statsService *billingapp.StatsService
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(statsService *billingapp.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// RegisterRoutes registers all stats routes
func (h *StatsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	stats := rg.Group("/stats")
	{
		stats.GET("/overview", h.Overall)
		stats.GET("/merchants/:id", h.Merchant)
	}
}

// Overall returns totals and per-status counts across all invoices
func (h *StatsHandler) Overall(c *gin.Context) {
	stats, err := h.statsService.Overall(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// Merchant returns totals scoped to a single merchant
func (h *StatsHandler) Merchant(c *gin.Context) {
	merchantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid merchant ID format")
		return
	}

	stats, err := h.statsService.Merchant(c.Request.Context(), merchantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}
