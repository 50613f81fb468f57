package routes

import (
	"github.com/gin-gonic/gin"

	"zentask/zentask/middleware"
	"zentask/zentask/services"
)

// RegisterWebSocketRoutes sets up the push channel. The token may come
// from the Authorization header or the token query parameter.
func RegisterWebSocketRoutes(router *gin.Engine, authService services.AuthServiceInterface, wsService services.WebSocketServiceInterface) {
	wsGroup := router.Group("/api/v1/ws")
	wsGroup.Use(middleware.WebSocketAuthMiddleware(authService))
	{
		wsGroup.GET("", wsService.HandleConnection)
	}
}
