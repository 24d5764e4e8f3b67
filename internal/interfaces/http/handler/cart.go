package handler

import (
	"github.com/gin-gonic/gin"

	cartapp "github.com/alpenform/storefront/internal/application/cart"
	"github.com/alpenform/storefront/internal/domain/cart"
	"github.com/alpenform/storefront/internal/domain/shared/valueobject"
	"github.com/alpenform/storefront/internal/interfaces/http/middleware"
)

// CartHandler handles cart-related HTTP requests. Every route operates
// on the cart of the request's browsing session.
type CartHandler struct {
	BaseHandler
	sessions *cartapp.Sessions
}

// NewCartHandler creates a new cart handler
func NewCartHandler(sessions *cartapp.Sessions) *CartHandler {
	return &CartHandler{sessions: sessions}
}

// RegisterRoutes registers cart routes
func (h *CartHandler) RegisterRoutes(rg *gin.RouterGroup) {
	carts := rg.Group("/cart")
	{
		carts.GET("", h.GetCart)
		carts.POST("/reinitialize", h.Reinitialize)
		carts.POST("/items", h.AddItem)
		carts.POST("/local-items", h.AddLocalItem)
		carts.PUT("/items/:item_id", h.UpdateItem)
		carts.DELETE("/items/:item_id", h.RemoveItem)
		carts.PUT("", h.UpdateCart)
		carts.GET("/shipping-options", h.ListShippingOptions)
		carts.POST("/shipping-methods", h.AddShippingMethod)
		carts.POST("/promotions", h.ApplyPromotion)
		carts.DELETE("/promotions", h.RemovePromotion)
		carts.POST("/payment-session", h.InitializePaymentSession)
		carts.POST("/complete", h.CompleteCart)
	}
}

func (h *CartHandler) manager(c *gin.Context) *cartapp.Manager {
	return h.sessions.Get(middleware.GetSessionID(c))
}

func (h *CartHandler) cartResponse(m *cartapp.Manager, current *cart.Cart) CartResponse {
	return CartResponse{
		Cart:      current,
		Mode:      string(m.Mode()),
		ItemCount: current.ItemQuantityTotal(),
	}
}

// GetCart returns the session's cart, initializing one when needed
func (h *CartHandler) GetCart(c *gin.Context) {
	m := h.manager(c)
	current, err := m.Cart(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, h.cartResponse(m, current))
}

// Reinitialize discards in-memory cart state and rebuilds it from the
// session store and the commerce backend
func (h *CartHandler) Reinitialize(c *gin.Context) {
	m := h.manager(c)
	current, err := m.Reinitialize(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, h.cartResponse(m, current))
}

// AddItem adds a commerce variant to the cart
func (h *CartHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	m := h.manager(c)
	current, err := m.AddItem(c.Request.Context(), req.VariantID, req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, h.cartResponse(m, current))
}

// AddLocalItem adds a session-store product to the cart
func (h *CartHandler) AddLocalItem(c *gin.Context) {
	var req AddLocalItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	unitPrice, err := valueobject.NewMoneyFromString(req.UnitPrice, valueobject.DefaultCurrency)
	if err != nil || unitPrice.IsNegative() {
		h.BadRequest(c, "Invalid unit price")
		return
	}

	m := h.manager(c)
	current, err := m.AddLocalItem(c.Request.Context(), cart.LocalProduct{
		ID:        req.ProductID,
		Title:     req.Title,
		Subtitle:  req.Subtitle,
		Thumbnail: req.Thumbnail,
		Handle:    req.Handle,
		UnitPrice: unitPrice.Amount(),
	}, req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, h.cartResponse(m, current))
}

// UpdateItem changes a line item's quantity
func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	m := h.manager(c)
	current, err := m.UpdateItem(c.Request.Context(), c.Param("item_id"), req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, h.cartResponse(m, current))
}

// RemoveItem deletes a line item from the cart
func (h *CartHandler) RemoveItem(c *gin.Context) {
	m := h.manager(c)
	current, err := m.RemoveItem(c.Request.Context(), c.Param("item_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, h.cartResponse(m, current))
}

// UpdateCart patches cart-level fields such as email and addresses
func (h *CartHandler) UpdateCart(c *gin.Context) {
	var req UpdateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	m := h.manager(c)
	current, err := m.UpdateCart(c.Request.Context(), cartapp.CartUpdateInput{
		Email:           req.Email,
		ShippingAddress: req.ShippingAddress.toDomain(),
		BillingAddress:  req.BillingAddress.toDomain(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, h.cartResponse(m, current))
}

// ListShippingOptions lists the shipping options available to the cart
func (h *CartHandler) ListShippingOptions(c *gin.Context) {
	options, err := h.manager(c).ListShippingOptions(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, options)
}

// AddShippingMethod selects a shipping option for the cart
func (h *CartHandler) AddShippingMethod(c *gin.Context) {
	var req AddShippingMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	m := h.manager(c)
	current, err := m.AddShippingMethod(c.Request.Context(), req.OptionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, h.cartResponse(m, current))
}

// ApplyPromotion applies a promotion code to the cart. Rejected codes
// are reported in the result, not as errors.
func (h *CartHandler) ApplyPromotion(c *gin.Context) {
	var req PromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.manager(c).ApplyPromoCode(c.Request.Context(), req.Code)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RemovePromotion removes a promotion code from the cart
func (h *CartHandler) RemovePromotion(c *gin.Context) {
	var req PromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.manager(c).RemovePromoCode(c.Request.Context(), req.Code)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// InitializePaymentSession creates or refreshes the payment session and
// returns the client secret for the payment element
func (h *CartHandler) InitializePaymentSession(c *gin.Context) {
	var req PaymentSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}

	result, err := h.manager(c).InitializePaymentSession(c.Request.Context(), req.ProviderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// CompleteCart places the order
func (h *CartHandler) CompleteCart(c *gin.Context) {
	order, err := h.manager(c).CompleteCart(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}
