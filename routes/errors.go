package routes

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"zentask/zentask/middleware"
	"zentask/zentask/services"
	"zentask/zentask/store"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrCategoryNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrNotFound),
		errors.Is(err, store.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrUnauthorized),
		errors.Is(err, services.ErrCalendarNotAuthorized):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrDemoModeOnly),
		errors.Is(err, services.ErrRemoteModeOnly):
		return http.StatusForbidden
	case errors.Is(err, services.ErrManualOrderUnavailable), errors.Is(err, services.ErrResourceExists):
		return http.StatusConflict
	case errors.Is(err, services.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, services.ErrSideChannel):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrBreakdownUnavailable), errors.Is(err, services.ErrCalendarUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("Request %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// currentSession fetches the session set by the access control
// middleware, answering 401 when there is none.
func currentSession(c *gin.Context) (*services.Session, bool) {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return nil, false
	}
	return session, true
}
