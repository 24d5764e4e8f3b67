package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Session and correlation headers
const (
	SessionHeaderKey = "X-Session-ID"
	SessionCookieKey = "storefront_session"
	SessionCtxKey    = "session_id"
	RequestIDHeader  = "X-Request-ID"
	RequestCtxKey    = "request_id"
)

// RequestID adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(RequestCtxKey, requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)
		c.Next()
	}
}

// GetRequestID retrieves the request ID from the gin context
func GetRequestID(c *gin.Context) string {
	if id := c.GetString(RequestCtxKey); id != "" {
		return id
	}
	return c.GetHeader(RequestIDHeader)
}

// SessionConfig holds browsing session middleware configuration
type SessionConfig struct {
	// CookieMaxAge bounds how long an idle session cookie survives
	CookieMaxAge time.Duration
	// CookieSecure marks the cookie Secure; enable behind TLS
	CookieSecure bool
}

// DefaultSessionConfig returns the default session settings
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		CookieMaxAge: 30 * 24 * time.Hour,
		CookieSecure: false,
	}
}

// Session resolves the browsing session ID for each request. The header
// takes precedence over the cookie so API clients can pin their session;
// browser clients fall back to the cookie. A request without either gets
// a fresh session ID, returned in both the header and the cookie.
func Session() gin.HandlerFunc {
	return SessionWithConfig(DefaultSessionConfig())
}

// SessionWithConfig resolves the browsing session ID with custom settings
func SessionWithConfig(cfg SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(SessionHeaderKey)
		if sessionID == "" {
			if cookie, err := c.Cookie(SessionCookieKey); err == nil {
				sessionID = cookie
			}
		}
		if sessionID == "" || !validSessionID(sessionID) {
			sessionID = uuid.New().String()
		}

		c.Set(SessionCtxKey, sessionID)
		c.Writer.Header().Set(SessionHeaderKey, sessionID)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookieKey, sessionID, int(cfg.CookieMaxAge.Seconds()), "/", "", cfg.CookieSecure, true)
		c.Next()
	}
}

// GetSessionID retrieves the browsing session ID from the gin context
func GetSessionID(c *gin.Context) string {
	return c.GetString(SessionCtxKey)
}

// validSessionID rejects session IDs that could not have been issued by
// this service. Anything else would let a client pick arbitrary keys in
// the session store.
func validSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// CORSConfig holds CORS middleware configuration
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig returns default CORS configuration
// NOTE: AllowOrigins is empty by default. In production the storefront
// origins must be configured explicitly; an empty list rejects all
// cross-origin requests.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:     []string{},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Request-ID", "X-Session-ID", "Accept", "Origin", "Cache-Control"},
		ExposeHeaders:    []string{"X-Request-ID", "X-Session-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// CORSWithConfig returns a CORS middleware with custom configuration
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	allowWildcard := false
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			allowWildcard = true
			break
		}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if c.Request.Method == http.MethodOptions {
			if len(cfg.AllowOrigins) > 0 {
				if allowWildcard {
					c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
					setCORSHeaders(c, cfg)
				} else {
					for _, o := range cfg.AllowOrigins {
						if o == origin {
							c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
							if cfg.AllowCredentials {
								c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
							}
							setCORSHeaders(c, cfg)
							break
						}
					}
				}
			}
			// Always answer preflight, even for disallowed origins
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		if len(cfg.AllowOrigins) == 0 {
			c.Next()
			return
		}

		var allowedOrigin string
		if allowWildcard {
			allowedOrigin = "*"
		} else {
			for _, o := range cfg.AllowOrigins {
				if o == origin {
					allowedOrigin = origin
					break
				}
			}
			if allowedOrigin == "" && origin != "" {
				c.Next()
				return
			}
		}

		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if cfg.AllowCredentials && allowedOrigin != "*" {
				c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			setCORSHeaders(c, cfg)
		}

		c.Next()
	}
}

// setCORSHeaders sets common CORS headers (methods, headers, expose, max-age)
func setCORSHeaders(c *gin.Context, cfg CORSConfig) {
	c.Writer.Header().Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowHeaders, ", "))
	c.Writer.Header().Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowMethods, ", "))

	if len(cfg.ExposeHeaders) > 0 {
		c.Writer.Header().Set("Access-Control-Expose-Headers", strings.Join(cfg.ExposeHeaders, ", "))
	}

	if cfg.MaxAge > 0 {
		c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(int(cfg.MaxAge.Seconds())))
	}
}
