package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskPatchValidate(t *testing.T) {
	sequential := DependencySequential
	unknown := DependencyType("blocking")

	testCases := []struct {
		name    string
		patch   TaskPatch
		field   string
		wantErr bool
	}{
		{"Empty patch", TaskPatch{}, "", false},
		{"Valid title", TaskPatch{Title: Ptr("New")}, "", false},
		{"Blank title", TaskPatch{Title: Ptr("   ")}, "title", true},
		{"Negative estimate", TaskPatch{EstimatedMinutes: Ptr(-5)}, "estimatedMinutes", true},
		{"Negative actual", TaskPatch{ActualMinutes: Ptr(-1)}, "actualMinutes", true},
		{"Negative order", TaskPatch{Order: Ptr(-1)}, "order", true},
		{"Reminder set", TaskPatch{ReminderSent: Ptr(true)}, "", false},
		{"Reminder reset", TaskPatch{ReminderSent: Ptr(false)}, "reminderSent", true},
		{"Known dependency type", TaskPatch{DependencyType: &sequential}, "", false},
		{"Unknown dependency type", TaskPatch{DependencyType: &unknown}, "dependencyType", true},
		{"Self dependency", TaskPatch{DependencyID: Ptr("task-1")}, "dependencyId", true},
		{"Clear dependency", TaskPatch{DependencyID: Ptr("")}, "", false},
		{"Bad due date", TaskPatch{DueDate: Ptr("whenever")}, "dueDate", true},
		{"Clear due date", TaskPatch{DueDate: Ptr("")}, "", false},
		{"Blank owner", TaskPatch{UserID: Ptr("")}, "userId", true},
		{"Subtask without id", TaskPatch{Subtasks: &[]Subtask{{Title: "a"}}}, "subtasks", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.patch.Validate("task-1")
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
			var validationErr *ValidationError
			if assert.True(t, errors.As(err, &validationErr)) {
				assert.Equal(t, tc.field, validationErr.Field)
			}
		})
	}
}

func TestTaskPatchFieldsClearsNullableReferences(t *testing.T) {
	patch := TaskPatch{
		CategoryID:    Ptr(""),
		GoogleEventID: Ptr(""),
		Completed:     Ptr(true),
		Order:         Ptr(0),
	}

	fields := patch.Fields()
	assert.Len(t, fields, 4)
	assert.Nil(t, fields["categoryId"])
	assert.Contains(t, fields, "googleEventId")
	assert.Nil(t, fields["googleEventId"])
	assert.Equal(t, true, fields["completed"])
	assert.Equal(t, 0, fields["order"])
	assert.False(t, patch.IsEmpty())
	assert.True(t, TaskPatch{}.IsEmpty())
}

func TestCategoryPatch(t *testing.T) {
	assert.ErrorIs(t, CategoryPatch{Name: Ptr("")}.Validate(), ErrValidation)
	assert.NoError(t, CategoryPatch{Color: Ptr("bg-red-500")}.Validate())

	fields := CategoryPatch{Name: Ptr(" Work ")}.Fields()
	assert.Equal(t, map[string]interface{}{"name": "Work"}, fields)
}

func TestCategoryInput(t *testing.T) {
	assert.ErrorIs(t, CategoryInput{}.Validate(), ErrValidation)

	fields := CategoryInput{Name: "Home", Color: "bg-blue-500"}.Fields("user-1")
	assert.Equal(t, "user-1", fields["userId"])
	assert.Equal(t, "Home", fields["name"])
}
