package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is wrapped by every patch and input validation failure.
var ErrValidation = errors.New("validation error")

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func newValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// TaskPatch is a partial update of a task. Nil fields are left untouched.
// For the nullable references (CategoryID, DueDate, DependencyID,
// GoogleEventID) a pointer to "" clears the field.
type TaskPatch struct {
	Title            *string         `json:"title,omitempty"`
	Description      *string         `json:"description,omitempty"`
	CategoryID       *string         `json:"categoryId,omitempty"`
	Completed        *bool           `json:"completed,omitempty"`
	DueDate          *string         `json:"dueDate,omitempty"`
	EstimatedMinutes *int            `json:"estimatedMinutes,omitempty"`
	ActualMinutes    *int            `json:"actualMinutes,omitempty"`
	ReminderSent     *bool           `json:"reminderSent,omitempty"`
	Order            *int            `json:"order,omitempty"`
	Subtasks         *[]Subtask      `json:"subtasks,omitempty"`
	DependencyID     *string         `json:"dependencyId,omitempty"`
	DependencyType   *DependencyType `json:"dependencyType,omitempty"`
	GoogleEventID    *string         `json:"googleEventId,omitempty"`
	UserID           *string         `json:"-"`
}

// Validate checks the patch against the task it will be applied to.
func (p TaskPatch) Validate(taskID string) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return newValidationError("title", "must not be empty")
	}
	if p.EstimatedMinutes != nil && *p.EstimatedMinutes < 0 {
		return newValidationError("estimatedMinutes", "must not be negative")
	}
	if p.ActualMinutes != nil && *p.ActualMinutes < 0 {
		return newValidationError("actualMinutes", "must not be negative")
	}
	if p.Order != nil && *p.Order < 0 {
		return newValidationError("order", "must not be negative")
	}
	if p.ReminderSent != nil && !*p.ReminderSent {
		return newValidationError("reminderSent", "cannot be reset once sent")
	}
	if p.DependencyType != nil && !p.DependencyType.Valid() {
		return newValidationError("dependencyType", "must be sequential or parallel")
	}
	if p.DependencyID != nil && *p.DependencyID != "" && *p.DependencyID == taskID {
		return newValidationError("dependencyId", "must not reference the task itself")
	}
	if p.DueDate != nil && *p.DueDate != "" {
		if _, ok := ParseDueDate(*p.DueDate, nil); !ok {
			return newValidationError("dueDate", "must be an ISO-8601 timestamp")
		}
	}
	if p.UserID != nil && strings.TrimSpace(*p.UserID) == "" {
		return newValidationError("userId", "must not be empty")
	}
	if p.Subtasks != nil {
		for _, subtask := range *p.Subtasks {
			if subtask.ID == "" || strings.TrimSpace(subtask.Title) == "" {
				return newValidationError("subtasks", "need an id and a title")
			}
		}
	}
	return nil
}

func (p TaskPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Fields converts the patch into the shallow-merge field map of the store.
func (p TaskPatch) Fields() map[string]interface{} {
	fields := map[string]interface{}{}
	if p.Title != nil {
		fields["title"] = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.CategoryID != nil {
		fields["categoryId"] = nullable(*p.CategoryID)
	}
	if p.Completed != nil {
		fields["completed"] = *p.Completed
	}
	if p.DueDate != nil {
		fields["dueDate"] = nullable(*p.DueDate)
	}
	if p.EstimatedMinutes != nil {
		fields["estimatedMinutes"] = *p.EstimatedMinutes
	}
	if p.ActualMinutes != nil {
		fields["actualMinutes"] = *p.ActualMinutes
	}
	if p.ReminderSent != nil {
		fields["reminderSent"] = *p.ReminderSent
	}
	if p.Order != nil {
		fields["order"] = *p.Order
	}
	if p.Subtasks != nil {
		fields["subtasks"] = *p.Subtasks
	}
	if p.DependencyID != nil {
		fields["dependencyId"] = nullable(*p.DependencyID)
	}
	if p.DependencyType != nil {
		fields["dependencyType"] = string(*p.DependencyType)
	}
	if p.GoogleEventID != nil {
		fields["googleEventId"] = nullable(*p.GoogleEventID)
	}
	if p.UserID != nil {
		fields["userId"] = *p.UserID
	}
	return fields
}

// CategoryPatch is a partial update of a category.
type CategoryPatch struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

func (p CategoryPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return newValidationError("name", "must not be empty")
	}
	return nil
}

func (p CategoryPatch) Fields() map[string]interface{} {
	fields := map[string]interface{}{}
	if p.Name != nil {
		fields["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Color != nil {
		fields["color"] = *p.Color
	}
	return fields
}

// Ptr is a small helper for building patches.
func Ptr[T any](v T) *T {
	return &v
}
