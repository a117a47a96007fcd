package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	partnerapp "github.com/daftar/backend/internal/application/partner"
)

// MerchantHandler handles merchant-related API endpoints
type MerchantHandler struct {
	BaseHandler
	merchantService *partnerapp.MerchantService
}

// NewMerchantHandler creates a new MerchantHandler
func NewMerchantHandler(merchantService *partnerapp.MerchantService) *MerchantHandler {
	return &MerchantHandler{merchantService: merchantService}
}

// RegisterRoutes registers all merchant routes
func (h *MerchantHandler) RegisterRoutes(rg *gin.RouterGroup) {
	merchants := rg.Group("/merchants")
	{
		merchants.POST("", h.Create)
		merchants.GET("", h.List)
		merchants.GET("/:id", h.GetByID)
		merchants.PUT("/:id", h.Update)
		merchants.PUT("/:id/status", h.UpdateStatus)
		merchants.POST("/:id/activate", h.transitionTo("active"))
		merchants.POST("/:id/suspend", h.transitionTo("suspended"))
		merchants.POST("/:id/deactivate", h.transitionTo("inactive"))
		merchants.DELETE("/:id", h.Delete)
	}
}

// Create creates a new merchant
func (h *MerchantHandler) Create(c *gin.Context) {
	var req partnerapp.CreateMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	merchant, err := h.merchantService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, merchant)
}

// GetByID retrieves a merchant by its ID
func (h *MerchantHandler) GetByID(c *gin.Context) {
	merchantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid merchant ID format")
		return
	}

	merchant, err := h.merchantService.GetByID(c.Request.Context(), merchantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, merchant)
}

// List returns merchants matching the filter with pagination meta
func (h *MerchantHandler) List(c *gin.Context) {
	var filter partnerapp.MerchantListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	merchants, total, err := h.merchantService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, merchants, total, filter.Page, filter.PageSize)
}

// Update applies a partial update to a merchant
func (h *MerchantHandler) Update(c *gin.Context) {
	merchantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid merchant ID format")
		return
	}

	var req partnerapp.UpdateMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	merchant, err := h.merchantService.Update(c.Request.Context(), merchantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, merchant)
}

// UpdateStatus transitions a merchant between active, suspended and inactive
func (h *MerchantHandler) UpdateStatus(c *gin.Context) {
	merchantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid merchant ID format")
		return
	}

	var req partnerapp.UpdateMerchantStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	merchant, err := h.merchantService.UpdateStatus(c.Request.Context(), merchantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, merchant)
}

// transitionTo returns a handler moving a merchant to a fixed status.
// Convenience verbs over UpdateStatus: activate, suspend, deactivate.
func (h *MerchantHandler) transitionTo(status string) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchantID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			h.BadRequest(c, "Invalid merchant ID format")
			return
		}

		merchant, err := h.merchantService.UpdateStatus(c.Request.Context(), merchantID,
			partnerapp.UpdateMerchantStatusRequest{Status: status})
		if err != nil {
			h.HandleError(c, err)
			return
		}

		h.Success(c, merchant)
	}
}

// Delete removes a merchant without invoices
func (h *MerchantHandler) Delete(c *gin.Context) {
	merchantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid merchant ID format")
		return
	}

	if err := h.merchantService.Delete(c.Request.Context(), merchantID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
