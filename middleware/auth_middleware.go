package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"zentask/zentask/services"
	"zentask/zentask/utils/token"
)

// bearerToken reads the token from the Authorization header only.
func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", token.ErrAuthHeaderMissing
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", token.ErrInvalidAuthFormat
	}
	return parts[1], nil
}

// authenticate validates the token found by extract and stores the
// caller's identity in the context. It aborts the request on failure.
func authenticate(c *gin.Context, authService services.AuthServiceInterface, extract func(*gin.Context) (string, error)) bool {
	tokenString, err := extract(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return false
	}

	claims, err := authService.ValidateToken(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return false
	}

	c.Set("userID", claims.UserID)
	c.Set("email", claims.Email)
	return true
}

func AuthMiddleware(authService services.AuthServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticate(c, authService, bearerToken) {
			c.Next()
		}
	}
}
