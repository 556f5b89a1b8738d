package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"chatlink-backend/pkg/jwt"
	"chatlink-backend/pkg/response"
)

// AuthMiddleware validates the Bearer token and stores the caller's
// identity in the request context.
func AuthMiddleware(jwtManager *jwt.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		// Tokens issued for other services must not be accepted here.
		validAudience := false
		for _, aud := range claims.Audience {
			if aud == jwt.Audience {
				validAudience = true
				break
			}
		}
		if !validAudience {
			response.Unauthorized(c, "Token not valid for this service")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("username", claims.Username)

		c.Next()
	}
}
