package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"zentask/zentask/models"
	"zentask/zentask/services"
)

// SessionKey is the context key holding the caller's *services.Session.
const SessionKey = "session"

// AccessControlMiddleware scopes every request to the caller's own session.
// Handlers only ever see the signed-in user's tasks and categories, so
// another user's documents are simply not found.
func AccessControlMiddleware(sessions *services.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
			return
		}

		session := sessions.Ensure(models.Profile{UID: userID, Email: c.GetString("email")})
		c.Set(SessionKey, session)

		c.Next()
	}
}

// CurrentSession returns the session set by AccessControlMiddleware.
func CurrentSession(c *gin.Context) (*services.Session, bool) {
	value, exists := c.Get(SessionKey)
	if !exists {
		return nil, false
	}
	session, ok := value.(*services.Session)
	return session, ok
}
