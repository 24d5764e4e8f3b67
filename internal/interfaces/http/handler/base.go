package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alpenform/storefront/internal/domain/shared"
	"github.com/alpenform/storefront/internal/infrastructure/commerce"
	"github.com/alpenform/storefront/internal/interfaces/http/dto"
	"github.com/alpenform/storefront/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := middleware.GetRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts application errors to HTTP responses. Domain
// errors carry their own code; commerce backend errors are translated so
// the storefront never leaks raw upstream responses.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	requestID := middleware.GetRequestID(c)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
		return
	}

	if commerce.IsNotFound(err) {
		h.NotFound(c, "Resource not found")
		return
	}

	if errors.Is(err, commerce.ErrBackendUnavailable) {
		h.Error(c, http.StatusBadGateway, dto.ErrCodeBackendUnavailable, "Commerce backend is unavailable")
		return
	}

	var apiErr *commerce.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			h.Unauthorized(c, apiErr.Message)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeInvalidInput, apiErr.Message)
		default:
			h.Error(c, http.StatusBadGateway, dto.ErrCodeBackendUnavailable, "Commerce backend request failed")
		}
		return
	}

	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal,
		"An unexpected error occurred",
		requestID,
	))
}
