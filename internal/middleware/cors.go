package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mentorlink/internal/config"
)

// CORS handles cross-origin requests using the configured origin allowlist.
func CORS() gin.HandlerFunc {
	allowed := config.Load().Server.CORS.AllowedOrigins

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if isOriginAllowed(origin, allowed) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		c.Header("Access-Control-Allow-Headers",
			"Origin, X-Requested-With, Content-Type, Accept, Authorization, Cache-Control")
		c.Header("Access-Control-Allow-Methods",
			"GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func isOriginAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
		// Suffix wildcards like https://*.example.com
		if strings.HasPrefix(a, "https://*.") || strings.HasPrefix(a, "http://*.") {
			scheme, host, _ := strings.Cut(a, "://*.")
			if strings.HasPrefix(origin, scheme+"://") && strings.HasSuffix(origin, "."+host) {
				return true
			}
		}
	}
	return false
}
