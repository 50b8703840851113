package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/opentill/terminal/internal/presentation/http/dto/response"
	"github.com/opentill/terminal/pkg/utils"
)

// AuthMiddleware validates the local operator token issued at login. The
// server session token never crosses this surface; the register UI only ever
// holds the loopback token.
func AuthMiddleware(tokens *utils.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := tokens.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// GetUserID extracts the operator ID set by AuthMiddleware.
func GetUserID(c *gin.Context) int64 {
	id, exists := c.Get("user_id")
	if !exists {
		return 0
	}
	userID, ok := id.(int64)
	if !ok {
		return 0
	}
	return userID
}
