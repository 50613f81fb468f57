package services

import (
	"errors"

	"zentask/zentask/models"
)

// Common errors
var (
	ErrNotFound               = errors.New("resource not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrTaskNotFound           = errors.New("task not found")
	ErrCategoryNotFound       = errors.New("category not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidToken           = errors.New("invalid token")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrResourceExists         = errors.New("resource already exists")
	ErrValidation             = models.ErrValidation
	ErrWebSocketConnection    = errors.New("websocket connection error")
	ErrSessionClosed          = errors.New("session is closed")
	ErrManualOrderUnavailable = errors.New("manual ordering is only available with the default sort")
	ErrCalendarNotAuthorized  = errors.New("calendar is not authorized")
	ErrCalendarUnavailable    = errors.New("calendar is not configured")
	ErrNoDueDate              = errors.New("task has no due date")
	ErrBreakdownUnavailable   = errors.New("task breakdown is not configured")
	ErrSideChannel            = errors.New("external service request failed")
	ErrDemoModeOnly           = errors.New("only available in demo mode")
	ErrRemoteModeOnly         = errors.New("only available with a remote store")
)
