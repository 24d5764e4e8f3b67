package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/alpenform/storefront/internal/application/identity"
	"github.com/alpenform/storefront/internal/infrastructure/commerce"
	"github.com/alpenform/storefront/internal/interfaces/http/middleware"
)

// AuthHandler handles customer authentication HTTP requests
type AuthHandler struct {
	BaseHandler
	identity       *identity.Service
	authMiddleware gin.HandlerFunc
}

// NewAuthHandler creates a new auth handler. authMiddleware guards the
// profile routes.
func NewAuthHandler(identitySvc *identity.Service, authMiddleware gin.HandlerFunc) *AuthHandler {
	return &AuthHandler{identity: identitySvc, authMiddleware: authMiddleware}
}

// RegisterRoutes registers auth routes
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/register", h.Register)
	}

	customers := rg.Group("/customers", h.authMiddleware)
	{
		customers.GET("/me", h.Me)
		customers.PUT("/me", h.UpdateProfile)
	}
}

func toCustomerResponse(c *commerce.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID,
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
	}
}

func toAuthResponse(result *identity.AuthResult) AuthResponse {
	return AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Customer:  toCustomerResponse(result.Customer),
	}
}

// Login authenticates a customer and hands the session's cart over
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.identity.Login(c.Request.Context(), middleware.GetSessionID(c), req.Email, req.Password)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toAuthResponse(result))
}

// Register creates a customer account and logs it in
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.identity.Register(c.Request.Context(), middleware.GetSessionID(c), identity.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toAuthResponse(result))
}

// Me returns the authenticated customer's profile
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	customer, err := h.identity.Me(c.Request.Context(), claims)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toCustomerResponse(customer))
}

// UpdateProfile updates the authenticated customer's profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	customer, err := h.identity.UpdateProfile(c.Request.Context(), claims, identity.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toCustomerResponse(customer))
}
