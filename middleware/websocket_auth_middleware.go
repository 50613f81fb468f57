package middleware

import (
	"github.com/gin-gonic/gin"

	"zentask/zentask/services"
	"zentask/zentask/utils/token"
)

// WebSocketAuthMiddleware validates JWT tokens for WebSocket connections.
// Browsers cannot set headers on WebSocket requests, so the token may also
// come from the query string.
func WebSocketAuthMiddleware(authService services.AuthServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticate(c, authService, token.ExtractToken) {
			c.Next()
		}
	}
}
