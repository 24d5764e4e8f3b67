package handler

import (
	"github.com/gin-gonic/gin"

	cartapp "github.com/alpenform/storefront/internal/application/cart"
	regionapp "github.com/alpenform/storefront/internal/application/region"
	"github.com/alpenform/storefront/internal/interfaces/http/middleware"
)

// RegionHandler handles region resolution HTTP requests
type RegionHandler struct {
	BaseHandler
	regions  *regionapp.Service
	sessions *cartapp.Sessions
}

// NewRegionHandler creates a new region handler
func NewRegionHandler(regions *regionapp.Service, sessions *cartapp.Sessions) *RegionHandler {
	return &RegionHandler{regions: regions, sessions: sessions}
}

// RegisterRoutes registers region routes
func (h *RegionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	regions := rg.Group("/regions")
	{
		regions.GET("", h.ListRegions)
		regions.GET("/current", h.CurrentRegion)
		regions.PUT("/current", h.SetRegion)
	}
}

// ListRegions lists the regions the store sells into
func (h *RegionHandler) ListRegions(c *gin.Context) {
	regions, err := h.regions.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, regions)
}

// CurrentRegion returns the region resolved for this session. Resolution
// never fails; unnavailable region data degrades to the fallback region.
func (h *RegionHandler) CurrentRegion(c *gin.Context) {
	resolved := h.regions.Resolve(c.Request.Context(), middleware.GetSessionID(c))
	h.Success(c, resolved)
}

// SetRegion pins the session to one of the store's regions and rebinds
// the session's cart to it, so the next cart read already serves the new
// region.
func (h *RegionHandler) SetRegion(c *gin.Context) {
	var req SetRegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	sessionID := middleware.GetSessionID(c)
	resolved, err := h.regions.SetRegion(c.Request.Context(), sessionID, req.RegionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if _, err := h.sessions.Get(sessionID).Reinitialize(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resolved)
}
