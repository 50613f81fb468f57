package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"zentask/zentask/models"
	"zentask/zentask/services"
)

type updateProfileRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
}

// RegisterUserRoutes exposes the caller's own account. Accounts only exist
// with a remote store; in mirror mode the session profile is returned.
func RegisterUserRoutes(group *gin.RouterGroup, deps Dependencies) {
	group.GET("/users/me", func(c *gin.Context) { GetCurrentUser(c, deps) })
	group.PUT("/users/me", func(c *gin.Context) { UpdateCurrentUser(c, deps) })
	group.DELETE("/users/me", func(c *gin.Context) { DeleteCurrentUser(c, deps) })
}

func GetCurrentUser(c *gin.Context, deps Dependencies) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	if deps.DB == nil {
		c.JSON(http.StatusOK, session.Profile)
		return
	}

	user, err := deps.UserService.GetUserById(deps.DB, session.UserID())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Profile())
}

func UpdateCurrentUser(c *gin.Context, deps Dependencies) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var request updateProfileRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := deps.UserService.UpdateUser(deps.DB, session.UserID(), models.User{DisplayName: request.DisplayName})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Profile())
}

func DeleteCurrentUser(c *gin.Context, deps Dependencies) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	if deps.DB == nil {
		respondError(c, services.ErrRemoteModeOnly)
		return
	}

	userID := session.UserID()
	if err := deps.UserService.DeleteUser(deps.DB, userID); err != nil {
		respondError(c, err)
		return
	}
	deps.Sessions.End(userID)
	c.JSON(http.StatusNoContent, gin.H{})
}
