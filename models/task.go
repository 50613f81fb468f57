package models

import (
	"encoding/json"
	"strings"
	"time"
)

// DependencyType describes how a task relates to the task it depends on.
type DependencyType string

const (
	DependencySequential DependencyType = "sequential"
	DependencyParallel   DependencyType = "parallel"
)

func (d DependencyType) Valid() bool {
	return d == "" || d == DependencySequential || d == DependencyParallel
}

type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Task is the document shape stored in the "tasks" collection.
type Task struct {
	ID               string         `json:"id"`
	UserID           string         `json:"userId"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	CategoryID       *string        `json:"categoryId"`
	Completed        bool           `json:"completed"`
	DueDate          *string        `json:"dueDate"`
	EstimatedMinutes int            `json:"estimatedMinutes"`
	ActualMinutes    int            `json:"actualMinutes"`
	ReminderSent     bool           `json:"reminderSent"`
	CreatedAt        int64          `json:"createdAt"`
	Order            *int           `json:"order,omitempty"`
	Subtasks         []Subtask      `json:"subtasks,omitempty"`
	DependencyID     *string        `json:"dependencyId,omitempty"`
	DependencyType   DependencyType `json:"dependencyType,omitempty"`
	GoogleEventID    *string        `json:"googleEventId,omitempty"`
}

// Layouts accepted for due dates, tried in order. The zone-less forms are
// what an HTML datetime-local input produces.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDueDate parses an ISO-8601 due date. Zone-less values are read in loc.
func ParseDueDate(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Due returns the parsed due timestamp. Unparseable values count as unscheduled.
func (t Task) Due(loc *time.Location) (time.Time, bool) {
	if t.DueDate == nil {
		return time.Time{}, false
	}
	return ParseDueDate(*t.DueDate, loc)
}

// Category returns the category reference, or "" when uncategorized.
func (t Task) Category() string {
	if t.CategoryID == nil {
		return ""
	}
	return *t.CategoryID
}

func (t Task) EventID() string {
	if t.GoogleEventID == nil {
		return ""
	}
	return *t.GoogleEventID
}

func (t Task) Dependency() string {
	if t.DependencyID == nil {
		return ""
	}
	return *t.DependencyID
}

// Clone returns a deep copy so callers can hand out snapshots safely.
func (t Task) Clone() Task {
	out := t
	out.CategoryID = clonePtr(t.CategoryID)
	out.DueDate = clonePtr(t.DueDate)
	out.Order = clonePtr(t.Order)
	out.DependencyID = clonePtr(t.DependencyID)
	out.GoogleEventID = clonePtr(t.GoogleEventID)
	if t.Subtasks != nil {
		out.Subtasks = append([]Subtask(nil), t.Subtasks...)
	}
	return out
}

func (t *Task) FromJSON(data []byte) error {
	return json.Unmarshal(data, t)
}

func (t *Task) ToJSON() ([]byte, error) {
	return json.Marshal(t)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// TaskInput is a creation request. Server-controlled fields (owner,
// completion, reminder flag, timestamps) are filled in by the session.
type TaskInput struct {
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	CategoryID       string         `json:"categoryId"`
	DueDate          string         `json:"dueDate"`
	EstimatedMinutes int            `json:"estimatedMinutes"`
	Subtasks         []Subtask      `json:"subtasks"`
	DependencyID     string         `json:"dependencyId"`
	DependencyType   DependencyType `json:"dependencyType"`
}

func (in TaskInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return newValidationError("title", "is required")
	}
	if in.EstimatedMinutes < 0 {
		return newValidationError("estimatedMinutes", "must not be negative")
	}
	if !in.DependencyType.Valid() {
		return newValidationError("dependencyType", "must be sequential or parallel")
	}
	if in.DueDate != "" {
		if _, ok := ParseDueDate(in.DueDate, time.UTC); !ok {
			return newValidationError("dueDate", "must be an ISO-8601 timestamp")
		}
	}
	return nil
}

// Fields builds the initial document for a new task.
func (in TaskInput) Fields(userID string, createdAt time.Time) map[string]interface{} {
	fields := map[string]interface{}{
		"userId":           userID,
		"title":            strings.TrimSpace(in.Title),
		"description":      in.Description,
		"categoryId":       nullable(in.CategoryID),
		"completed":        false,
		"dueDate":          nullable(in.DueDate),
		"estimatedMinutes": in.EstimatedMinutes,
		"actualMinutes":    0,
		"reminderSent":     false,
		"createdAt":        createdAt.UnixMilli(),
	}
	if len(in.Subtasks) > 0 {
		fields["subtasks"] = in.Subtasks
	}
	if in.DependencyID != "" {
		fields["dependencyId"] = in.DependencyID
		dependencyType := in.DependencyType
		if dependencyType == "" {
			dependencyType = DependencySequential
		}
		fields["dependencyType"] = string(dependencyType)
	}
	return fields
}

func nullable(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
