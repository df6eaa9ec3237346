// Package middleware provides shared HTTP middleware for GeoShield
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig controls cross-origin access to the API
type CORSConfig struct {
	// AllowedOrigins is the origin whitelist. "*" allows any origin.
	AllowedOrigins []string
	// AllowedMethods lists the methods advertised on preflight
	AllowedMethods []string
	// AllowedHeaders lists the request headers advertised on preflight
	AllowedHeaders []string
	// MaxAge is the preflight cache lifetime in seconds
	MaxAge int
}

// DefaultCORSConfig covers the dashboard frontend's methods and headers
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	}
}

// CORS returns a middleware enforcing the configured origin whitelist.
// Requests without an Origin header (curl, health probes) pass through
// untouched; preflight OPTIONS requests are answered directly.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			c.Next()
			return
		}

		allowAll := false
		allowed := false
		for _, o := range cfg.AllowedOrigins {
			if o == "*" {
				allowAll = true
				allowed = true
				break
			}
			if o == origin {
				allowed = true
				break
			}
		}
		if !allowed {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
		} else {
			c.Header("Access-Control-Allow-Origin", origin)
			// The response depends on the request origin, keep caches honest
			c.Header("Vary", "Origin")
		}
		if len(cfg.AllowedMethods) > 0 {
			c.Header("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
		}
		if len(cfg.AllowedHeaders) > 0 {
			c.Header("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
		}
		if cfg.MaxAge > 0 {
			c.Header("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// CORSWithOrigins returns a CORS middleware allowing the given origins
func CORSWithOrigins(origins []string) gin.HandlerFunc {
	cfg := DefaultCORSConfig()
	if len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}
	return CORS(cfg)
}
