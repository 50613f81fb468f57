package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"zentask/zentask/models"
)

func RegisterCategoryRoutes(group *gin.RouterGroup) {
	group.GET("/categories", GetCategories)
	group.POST("/categories", CreateCategory)
	group.PATCH("/categories/:id", UpdateCategory)
	group.DELETE("/categories/:id", DeleteCategory)
}

func GetCategories(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.Repository().Categories())
}

func CreateCategory(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var input models.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := session.AddCategory(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func UpdateCategory(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var patch models.CategoryPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := session.UpdateCategory(c.Request.Context(), c.Param("id"), patch); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Category update accepted"})
}

func DeleteCategory(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	if err := session.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"view": session.ViewState()})
}
