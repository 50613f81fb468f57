package routes

import (
	"github.com/gin-gonic/gin"

	"zentask/zentask/database"
	"zentask/zentask/middleware"
	"zentask/zentask/services"
	"zentask/zentask/store"
)

// Dependencies are the collaborators the HTTP API is built from. DB is nil
// in mirror mode.
type Dependencies struct {
	DB             *database.Database
	Storage        store.LocalStorage
	AuthService    services.AuthServiceInterface
	UserService    services.UserServiceInterface
	Sessions       *services.SessionManager
	WebSocket      services.WebSocketServiceInterface
	AllowedOrigins string
	Debug          bool
}

// NewRouter registers every API route on a fresh gin engine.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.Default()
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigins))

	RegisterAuthRoutes(router, deps)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(deps.AuthService), middleware.AccessControlMiddleware(deps.Sessions))
	{
		RegisterTaskRoutes(api)
		RegisterCategoryRoutes(api)
		RegisterViewRoutes(api)
		RegisterCalendarRoutes(api, deps.Sessions.Calendar())
		RegisterUserRoutes(api, deps)
	}

	if deps.WebSocket != nil {
		RegisterWebSocketRoutes(router, deps.AuthService, deps.WebSocket)
	}
	if deps.Debug {
		SetupDebugRoutes(router, deps.Sessions)
	}
	return router
}
