package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"zentask/zentask/services"
)

func RegisterViewRoutes(group *gin.RouterGroup) {
	group.GET("/view", GetView)
	group.PUT("/view", UpdateView)
	group.POST("/view/shuffle", ShuffleView)
	group.GET("/statistics", GetStatistics)
}

func GetView(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.ViewState())
}

func UpdateView(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var update services.ViewUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := session.SetView(update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func ShuffleView(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.Shuffle())
}

func GetStatistics(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.Statistics())
}
