package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alpenform/storefront/internal/infrastructure/auth"
	"github.com/alpenform/storefront/internal/interfaces/http/dto"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// JWTAuthMiddleware requires a valid session token on every request
func JWTAuthMiddleware(tokens *auth.TokenService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}

		claims, err := tokens.Validate(tokenString)
		if err != nil {
			if logger != nil {
				logger.Warn("session token rejected",
					zap.Error(err),
					zap.String("path", c.Request.URL.Path))
			}
			code := dto.ErrCodeTokenInvalid
			message := "Invalid token"
			if err == auth.ErrExpiredToken {
				code = dto.ErrCodeTokenExpired
				message = "Token has expired"
			}
			abortUnauthorized(c, code, message)
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader(AuthHeaderKey)
	if authHeader == "" || !strings.HasPrefix(authHeader, BearerPrefix) {
		return "", false
	}
	token := strings.TrimPrefix(authHeader, BearerPrefix)
	return token, token != ""
}

func abortUnauthorized(c *gin.Context, code, message string) {
	requestID := GetRequestID(c)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// GetJWTClaims retrieves session token claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if tokenClaims, ok := claims.(*auth.Claims); ok {
			return tokenClaims
		}
	}
	return nil
}
