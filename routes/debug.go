package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"zentask/zentask/services"
)

// SetupDebugRoutes exposes store and session state for development.
func SetupDebugRoutes(router *gin.Engine, sessions *services.SessionManager) {
	debugGroup := router.Group("/api/v1/debug")
	{
		debugGroup.GET("/store", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"mode":     sessions.Store().Mode(),
				"sessions": sessions.Count(),
				"time":     time.Now(),
			})
		})

		debugGroup.GET("/sessions/:userId", func(c *gin.Context) {
			session, ok := sessions.Get(c.Param("userId"))
			if !ok {
				c.JSON(http.StatusOK, gin.H{"active": false, "time": time.Now()})
				return
			}
			repo := session.Repository()
			c.JSON(http.StatusOK, gin.H{
				"active":     true,
				"view":       session.ViewState(),
				"tasks":      len(repo.Tasks()),
				"categories": len(repo.Categories()),
				"permission": session.Notifier().Permission(),
				"time":       time.Now(),
			})
		})
	}
}
