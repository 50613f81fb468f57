package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"zentask/zentask/middleware"
	"zentask/zentask/models"
)

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token string         `json:"token"`
	User  models.Profile `json:"user"`
}

func RegisterAuthRoutes(router *gin.Engine, deps Dependencies) {
	group := router.Group("/api/v1/auth")
	{
		group.POST("/register", func(c *gin.Context) { Register(c, deps) })
		group.POST("/login", func(c *gin.Context) { Login(c, deps) })
		group.POST("/demo", func(c *gin.Context) { DemoLogin(c, deps) })
		group.GET("/session", func(c *gin.Context) { RestoreSession(c, deps) })
		group.POST("/logout", middleware.AuthMiddleware(deps.AuthService), func(c *gin.Context) { Logout(c, deps) })
	}
}

func Register(c *gin.Context, deps Dependencies) {
	var request registerRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := deps.AuthService.Register(deps.DB, request.Email, request.Password, request.DisplayName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

func Login(c *gin.Context, deps Dependencies) {
	var request loginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, profile, err := deps.AuthService.Login(deps.DB, request.Email, request.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	deps.Sessions.Ensure(profile)
	c.JSON(http.StatusOK, loginResponse{Token: token, User: profile})
}

func DemoLogin(c *gin.Context, deps Dependencies) {
	token, profile, err := deps.AuthService.DemoLogin(deps.Storage, deps.Sessions.Store().Mode())
	if err != nil {
		respondError(c, err)
		return
	}
	deps.Sessions.Ensure(profile)
	c.JSON(http.StatusOK, loginResponse{Token: token, User: profile})
}

// RestoreSession hands out a fresh token for the user still signed in to
// the local mirror.
func RestoreSession(c *gin.Context, deps Dependencies) {
	token, profile, err := deps.AuthService.RestoreMirrorUser(deps.Storage, deps.Sessions.Store().Mode())
	if err != nil {
		respondError(c, err)
		return
	}
	deps.Sessions.Ensure(profile)
	c.JSON(http.StatusOK, loginResponse{Token: token, User: profile})
}

func Logout(c *gin.Context, deps Dependencies) {
	userID := c.GetString("userID")
	deps.Sessions.End(userID)
	if err := deps.AuthService.Logout(deps.Storage, deps.Sessions.Store().Mode()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}
