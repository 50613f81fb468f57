package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"zentask/zentask/models"
	"zentask/zentask/services"
)

type reorderRequest struct {
	Source      *int `json:"source" binding:"required"`
	Destination *int `json:"destination" binding:"required"`
}

type transferRequest struct {
	TargetUserID string `json:"targetUserId" binding:"required"`
}

func RegisterTaskRoutes(group *gin.RouterGroup) {
	group.GET("/tasks", GetTasks)
	group.POST("/tasks", CreateTask)
	group.POST("/tasks/reorder", ReorderTasks)
	group.POST("/tasks/transfer", TransferTasks)
	group.POST("/tasks/sync-calendar", SyncCalendar)
	group.GET("/tasks/:id", GetTaskById)
	group.PATCH("/tasks/:id", UpdateTask)
	group.DELETE("/tasks/:id", DeleteTask)
	group.POST("/tasks/:id/subtasks/:sid/toggle", ToggleSubtask)
	group.POST("/tasks/:id/breakdown", BreakdownTask)
}

// viewFromQuery overlays the category, view and sortBy query parameters
// on the session's view state.
func viewFromQuery(c *gin.Context, view services.ViewState) (services.ViewState, error) {
	if category, ok := c.GetQuery("category"); ok {
		if category == "" {
			category = services.AllCategories
		}
		view.SelectedCategoryID = category
	}
	if value, ok := c.GetQuery("view"); ok {
		parsed, err := services.ParseView(value)
		if err != nil {
			return view, err
		}
		view.View = parsed
	}
	if value, ok := c.GetQuery("sortBy"); ok {
		parsed, err := services.ParseSortMode(value)
		if err != nil {
			return view, err
		}
		view.Sort = parsed
	}
	return view, nil
}

func GetTasks(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	view, err := viewFromQuery(c, session.ViewState())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": session.VisibleWith(view),
		"view":  view,
	})
}

func CreateTask(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var input models.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := session.AddTask(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func GetTaskById(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	linked, err := session.Linked(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, linked)
}

func UpdateTask(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var patch models.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := session.UpdateTask(c.Request.Context(), c.Param("id"), patch); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Task update accepted"})
}

func DeleteTask(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	if err := session.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Task deletion accepted"})
}

func ToggleSubtask(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	if err := session.ToggleSubtask(c.Request.Context(), c.Param("id"), c.Param("sid")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Subtask toggle accepted"})
}

func BreakdownTask(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	result, err := session.Breakdown(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func ReorderTasks(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var request reorderRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assignments, result, err := session.Reorder(c.Request.Context(), *request.Source, *request.Destination)
	if err != nil {
		respondError(c, err)
		return
	}
	if assignments == nil {
		assignments = []services.OrderAssignment{}
	}
	c.JSON(http.StatusAccepted, gin.H{
		"assignments": assignments,
		"result":      result,
	})
}

func TransferTasks(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var request transferRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := session.TransferVisible(c.Request.Context(), request.TargetUserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func SyncCalendar(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	result, err := session.SyncAllToCalendar(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
