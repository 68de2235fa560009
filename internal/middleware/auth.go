package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mentorlink/internal/utils"
)

// JWTAuth validates the bearer token and stores the caller's identity in
// the request context. Websocket upgrades cannot set headers from the
// browser, so a token query parameter is accepted as a fallback.
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Missing authentication token")
			c.Abort()
			return
		}

		claims, err := utils.ValidateUserJWT(tokenString)
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_name", claims.Name)
		c.Set("user_role", claims.Role)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString != authHeader {
			return tokenString
		}
		return ""
	}
	return c.Query("token")
}

// UserID returns the authenticated user ID set by JWTAuth.
func UserID(c *gin.Context) string {
	return c.GetString("user_id")
}
