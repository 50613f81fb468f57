package services

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"zentask/zentask/models"
)

type View string

const (
	ViewPending    View = "pending"
	ViewCompleted  View = "completed"
	ViewStatistics View = "statistics"
)

// ParseView accepts "tasks" as an alias of the pending view.
func ParseView(value string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "pending", "tasks":
		return ViewPending, nil
	case "completed":
		return ViewCompleted, nil
	case "statistics":
		return ViewStatistics, nil
	default:
		return "", fmt.Errorf("%w: unknown view %q", ErrInvalidInput, value)
	}
}

type SortMode string

const (
	SortDefault  SortMode = "default"
	SortDueDate  SortMode = "dueDate"
	SortAlpha    SortMode = "alpha"
	SortPriority SortMode = "priority"
)

func ParseSortMode(value string) (SortMode, error) {
	switch strings.TrimSpace(value) {
	case "", "default":
		return SortDefault, nil
	case "dueDate":
		return SortDueDate, nil
	case "alpha":
		return SortAlpha, nil
	case "priority":
		return SortPriority, nil
	default:
		return "", fmt.Errorf("%w: unknown sort mode %q", ErrInvalidInput, value)
	}
}

// AllCategories is the category selection that disables the category filter.
const AllCategories = "all"

// undatedMillis places tasks without a due date after every real date.
const undatedMillis int64 = 9999999999999

// ProjectedTask is a task as shown in a list, with its category resolved.
// Category is nil for uncategorized tasks and for dangling references.
type ProjectedTask struct {
	models.Task
	Category *models.Category `json:"category"`
}

// Projector derives the ordered visible list from a snapshot. Location is
// used for zone-less due dates, Language for title collation.
type Projector struct {
	Language language.Tag
	Location *time.Location
}

var DefaultProjector = Projector{Language: language.English, Location: time.Local}

func NewProjector(locale string, loc *time.Location) Projector {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	if loc == nil {
		loc = time.Local
	}
	return Projector{Language: tag, Location: loc}
}

func Project(tasks []models.Task, categories []models.Category, selectedCategoryID string, view View, sortMode SortMode, now time.Time) []ProjectedTask {
	return DefaultProjector.Project(tasks, categories, selectedCategoryID, view, sortMode, now)
}

type sortKey struct {
	task    models.Task
	due     int64
	overdue bool
}

// Project filters by category and view, then sorts. It does not modify its
// inputs and returns the same order for the same inputs.
func (p Projector) Project(tasks []models.Task, categories []models.Category, selectedCategoryID string, view View, sortMode SortMode, now time.Time) []ProjectedTask {
	nowMillis := now.UnixMilli()

	keys := make([]sortKey, 0, len(tasks))
	for _, task := range tasks {
		if view != ViewStatistics {
			if selectedCategoryID != "" && selectedCategoryID != AllCategories && task.Category() != selectedCategoryID {
				continue
			}
			if view == ViewCompleted && !task.Completed {
				continue
			}
			if view != ViewCompleted && task.Completed {
				continue
			}
		}
		key := sortKey{task: task, due: undatedMillis}
		if due, ok := task.Due(p.Location); ok {
			key.due = due.UnixMilli()
		}
		key.overdue = key.due < nowMillis && !task.Completed
		keys = append(keys, key)
	}

	compare := p.comparator(sortMode)
	slices.SortStableFunc(keys, compare)

	byID := make(map[string]models.Category, len(categories))
	for _, category := range categories {
		byID[category.ID] = category
	}

	out := make([]ProjectedTask, len(keys))
	for i, key := range keys {
		out[i] = ProjectedTask{Task: key.task.Clone()}
		if category, ok := byID[key.task.Category()]; ok {
			out[i].Category = &category
		}
	}
	return out
}

func (p Projector) comparator(sortMode SortMode) func(a, b sortKey) int {
	switch sortMode {
	case SortDueDate:
		return func(a, b sortKey) int {
			if c := cmp.Compare(a.due, b.due); c != 0 {
				return c
			}
			return tieBreak(a.task, b.task)
		}
	case SortAlpha:
		// A collator keeps internal buffers, so each projection gets its own.
		collator := collate.New(p.Language)
		return func(a, b sortKey) int {
			if c := collator.CompareString(a.task.Title, b.task.Title); c != 0 {
				return c
			}
			return tieBreak(a.task, b.task)
		}
	case SortPriority:
		return comparePriority
	default:
		return func(a, b sortKey) int {
			return compareDefault(a.task, b.task)
		}
	}
}

// comparePriority puts overdue tasks first, most overdue first. The rest
// follow by due date with the shorter estimate first; undated tasks have
// the largest due value and so end up last in their bucket.
func comparePriority(a, b sortKey) int {
	if a.overdue != b.overdue {
		if a.overdue {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(a.due, b.due); c != 0 {
		return c
	}
	if !a.overdue {
		if c := cmp.Compare(a.task.EstimatedMinutes, b.task.EstimatedMinutes); c != 0 {
			return c
		}
	}
	return tieBreak(a.task, b.task)
}

// compareDefault orders by manual position when both tasks have one and by
// newest first when neither has. In a mixed pair the task without a
// position comes first, which keeps the relation transitive.
func compareDefault(a, b models.Task) int {
	switch {
	case a.Order != nil && b.Order != nil:
		if c := cmp.Compare(*a.Order, *b.Order); c != 0 {
			return c
		}
	case a.Order == nil && b.Order != nil:
		return -1
	case a.Order != nil && b.Order == nil:
		return 1
	}
	return tieBreak(a, b)
}

// tieBreak is createdAt descending, then id ascending.
func tieBreak(a, b models.Task) int {
	if c := cmp.Compare(b.CreatedAt, a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
