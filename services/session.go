package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"zentask/zentask/models"
	"zentask/zentask/store"
)

// ViewState is the list configuration of a session.
type ViewState struct {
	SelectedCategoryID string   `json:"selectedCategoryId"`
	View               View     `json:"view"`
	Sort               SortMode `json:"sortBy"`
}

// ViewUpdate changes the fields that are set.
type ViewUpdate struct {
	SelectedCategoryID *string `json:"selectedCategoryId,omitempty"`
	View               *string `json:"view,omitempty"`
	Sort               *string `json:"sortBy,omitempty"`
}

type LinkedTask struct {
	Task       models.Task  `json:"task"`
	Dependency *models.Task `json:"dependency,omitempty"`
}

type BreakdownResult struct {
	Breakdown *Breakdown  `json:"breakdown"`
	Task      models.Task `json:"task"`
}

// Session is the state of one signed-in user: live data, view state,
// reminder loop and side-channel authorization. Nothing in it outlives
// Close.
type Session struct {
	Profile models.Profile

	store     store.Store
	repo      *TaskRepository
	reorder   *ReorderEngine
	reminders ReminderScannerInterface
	notifier  *PushNotifier
	pusher    Pusher
	calendar  CalendarServiceInterface
	breakdown BreakdownServiceInterface
	projector Projector
	now       func() time.Time

	CalendarAuth *CalendarAuth

	mu     sync.RWMutex
	view   ViewState
	closed bool
}

func (s *Session) UserID() string {
	return s.Profile.UID
}

func (s *Session) Repository() *TaskRepository {
	return s.repo
}

func (s *Session) Reminders() ReminderScannerInterface {
	return s.reminders
}

func (s *Session) Notifier() *PushNotifier {
	return s.notifier
}

func (s *Session) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

func (s *Session) task(id string) (models.Task, error) {
	task, ok := s.repo.Task(id)
	if !ok {
		return models.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return task, nil
}

// AddTask creates a task. Store failures are returned; a calendar event
// is created afterwards when the task is scheduled and the calendar is
// authorized, and its failure only gets logged.
func (s *Session) AddTask(ctx context.Context, input models.TaskInput) (models.Task, error) {
	if err := s.checkOpen(); err != nil {
		return models.Task{}, err
	}
	if err := input.Validate(); err != nil {
		return models.Task{}, err
	}

	fields := input.Fields(s.UserID(), s.now())
	id, err := s.store.Create(ctx, store.Tasks, fields)
	if err != nil {
		log.Printf("Error adding task: %v", err)
		return models.Task{}, fmt.Errorf("failed to add task: %w", err)
	}

	var task models.Task
	if err := models.DocumentData(fields).Decode(&task); err != nil {
		return models.Task{}, err
	}
	task.ID = id

	if task.DueDate != nil && s.calendar != nil && s.CalendarAuth.Authorized() {
		if eventID, err := s.createEvent(ctx, task); err != nil {
			log.Printf("Auto-sync to calendar failed for task %s: %v", id, err)
		} else {
			task.GoogleEventID = models.Ptr(eventID)
		}
	}
	return task, nil
}

// createEvent creates the calendar event of a task and stores its id.
func (s *Session) createEvent(ctx context.Context, task models.Task) (string, error) {
	ts, err := s.CalendarAuth.TokenSource()
	if err != nil {
		return "", err
	}
	eventID, err := s.calendar.CreateEvent(ctx, ts, task)
	if err != nil {
		return "", err
	}
	patch := models.TaskPatch{GoogleEventID: models.Ptr(eventID)}
	if err := s.store.Update(ctx, store.Tasks, task.ID, patch.Fields()); err != nil {
		return "", err
	}
	return eventID, nil
}

// UpdateTask applies a validated patch. Completing a task removes its
// calendar event first when possible. Store failures are logged and
// absorbed: the change simply does not show up in the next snapshot.
func (s *Session) UpdateTask(ctx context.Context, taskID string, patch models.TaskPatch) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	task, err := s.task(taskID)
	if err != nil {
		return err
	}
	if err := patch.Validate(taskID); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}

	if patch.Completed != nil && *patch.Completed && task.EventID() != "" {
		if err := s.deleteEvent(ctx, task.EventID()); err != nil {
			log.Printf("Failed to remove completed task %s from calendar: %v", taskID, err)
		} else {
			patch.GoogleEventID = models.Ptr("")
		}
	}

	if err := s.store.Update(ctx, store.Tasks, taskID, patch.Fields()); err != nil {
		log.Printf("Error updating task %s: %v", taskID, err)
	}
	return nil
}

func (s *Session) deleteEvent(ctx context.Context, eventID string) error {
	if s.calendar == nil {
		return ErrCalendarUnavailable
	}
	ts, err := s.CalendarAuth.TokenSource()
	if err != nil {
		return err
	}
	return s.calendar.DeleteEvent(ctx, ts, eventID)
}

func (s *Session) DeleteTask(ctx context.Context, taskID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, err := s.task(taskID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, store.Tasks, taskID); err != nil {
		log.Printf("Error deleting task %s: %v", taskID, err)
	}
	return nil
}

func (s *Session) ToggleSubtask(ctx context.Context, taskID, subtaskID string) error {
	task, err := s.task(taskID)
	if err != nil {
		return err
	}
	subtasks := task.Subtasks
	found := false
	for i := range subtasks {
		if subtasks[i].ID == subtaskID {
			subtasks[i].Completed = !subtasks[i].Completed
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: subtask %s", ErrNotFound, subtaskID)
	}
	return s.UpdateTask(ctx, taskID, models.TaskPatch{Subtasks: &subtasks})
}

// AddCategory creates a category; store failures are returned.
func (s *Session) AddCategory(ctx context.Context, input models.CategoryInput) (models.Category, error) {
	if err := s.checkOpen(); err != nil {
		return models.Category{}, err
	}
	if err := input.Validate(); err != nil {
		return models.Category{}, err
	}
	fields := input.Fields(s.UserID())
	id, err := s.store.Create(ctx, store.Categories, fields)
	if err != nil {
		log.Printf("Error adding category: %v", err)
		return models.Category{}, fmt.Errorf("failed to add category: %w", err)
	}
	category := models.Category{ID: id, UserID: s.UserID(), Name: fields["name"].(string), Color: input.Color}
	return category, nil
}

// UpdateCategory renames or recolors a category. Store failures are
// absorbed like task updates.
func (s *Session) UpdateCategory(ctx context.Context, categoryID string, patch models.CategoryPatch) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, ok := s.repo.Category(categoryID); !ok {
		return fmt.Errorf("%w: %s", ErrCategoryNotFound, categoryID)
	}
	if err := patch.Validate(); err != nil {
		return err
	}
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil
	}
	if err := s.store.Update(ctx, store.Categories, categoryID, fields); err != nil {
		log.Printf("Error updating category %s: %v", categoryID, err)
	}
	return nil
}

// DeleteCategory removes a category and, once that succeeded, resets the
// category filter if it pointed at it. Tasks keep their reference and show
// up as uncategorized.
func (s *Session) DeleteCategory(ctx context.Context, categoryID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, ok := s.repo.Category(categoryID); !ok {
		return fmt.Errorf("%w: %s", ErrCategoryNotFound, categoryID)
	}
	if err := s.store.Delete(ctx, store.Categories, categoryID); err != nil {
		log.Printf("Error deleting category %s: %v", categoryID, err)
		return nil
	}

	s.mu.Lock()
	reset := s.view.SelectedCategoryID == categoryID
	if reset {
		s.view.SelectedCategoryID = AllCategories
	}
	s.mu.Unlock()
	if reset {
		s.pushTasks()
	}
	return nil
}

func (s *Session) ViewState() ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

func (s *Session) SetView(update ViewUpdate) (ViewState, error) {
	next := s.ViewState()
	if update.SelectedCategoryID != nil {
		id := *update.SelectedCategoryID
		if id == "" {
			id = AllCategories
		}
		if id != AllCategories {
			if _, ok := s.repo.Category(id); !ok {
				return next, fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
			}
		}
		next.SelectedCategoryID = id
	}
	if update.View != nil {
		view, err := ParseView(*update.View)
		if err != nil {
			return next, err
		}
		next.View = view
	}
	if update.Sort != nil {
		sortMode, err := ParseSortMode(*update.Sort)
		if err != nil {
			return next, err
		}
		next.Sort = sortMode
	}

	s.mu.Lock()
	s.view = next
	s.mu.Unlock()
	s.pushTasks()
	return next, nil
}

// Shuffle toggles between the smart priority sort and the manual order.
func (s *Session) Shuffle() ViewState {
	s.mu.Lock()
	if s.view.Sort == SortPriority {
		s.view.Sort = SortDefault
	} else {
		s.view.Sort = SortPriority
	}
	view := s.view
	s.mu.Unlock()
	s.pushTasks()
	return view
}

// Visible projects the current snapshot through the session's view state.
func (s *Session) Visible() []ProjectedTask {
	view := s.ViewState()
	return s.projector.Project(s.repo.Tasks(), s.repo.Categories(), view.SelectedCategoryID, view.View, view.Sort, s.now())
}

// VisibleWith projects with a one-off view state, leaving the session's
// own state untouched.
func (s *Session) VisibleWith(view ViewState) []ProjectedTask {
	return s.projector.Project(s.repo.Tasks(), s.repo.Categories(), view.SelectedCategoryID, view.View, view.Sort, s.now())
}

func visibleTasks(projected []ProjectedTask) []models.Task {
	tasks := make([]models.Task, len(projected))
	for i, p := range projected {
		tasks[i] = p.Task
	}
	return tasks
}

// Reorder moves a task within the visible list. Only the manual order can
// be rearranged.
func (s *Session) Reorder(ctx context.Context, source, destination int) ([]OrderAssignment, BatchResult, error) {
	if err := s.checkOpen(); err != nil {
		return nil, BatchResult{}, err
	}
	if s.ViewState().Sort != SortDefault {
		return nil, BatchResult{}, ErrManualOrderUnavailable
	}
	return s.reorder.Reorder(ctx, visibleTasks(s.Visible()), source, destination)
}

// SyncAllToCalendar creates events for pending scheduled tasks that have
// none yet. Authorization is checked once before any request.
func (s *Session) SyncAllToCalendar(ctx context.Context) (BatchResult, error) {
	if err := s.checkOpen(); err != nil {
		return BatchResult{}, err
	}
	var pending []models.Task
	for _, task := range s.repo.Tasks() {
		if !task.Completed && task.DueDate != nil && *task.DueDate != "" && task.EventID() == "" {
			pending = append(pending, task)
		}
	}
	if len(pending) == 0 {
		return BatchResult{}, nil
	}
	if s.calendar == nil {
		return BatchResult{}, ErrCalendarUnavailable
	}
	if _, err := s.CalendarAuth.TokenSource(); err != nil {
		return BatchResult{}, err
	}

	result := runBatch(ctx, len(pending), func(ctx context.Context, i int) error {
		_, err := s.createEvent(ctx, pending[i])
		if err != nil {
			log.Printf("Failed to sync task %s to calendar: %v", pending[i].ID, err)
		}
		return err
	})
	log.Printf("Calendar sync complete: %d added, %d failed", result.Succeeded, result.Failed)
	return result, nil
}

// TransferVisible hands every visible task to another user.
func (s *Session) TransferVisible(ctx context.Context, targetUserID string) (BatchResult, error) {
	if err := s.checkOpen(); err != nil {
		return BatchResult{}, err
	}
	targetUserID = strings.TrimSpace(targetUserID)
	patch := models.TaskPatch{UserID: models.Ptr(targetUserID)}
	if err := patch.Validate(""); err != nil {
		return BatchResult{}, err
	}
	if targetUserID == s.UserID() {
		return BatchResult{}, fmt.Errorf("%w: tasks already belong to %s", ErrInvalidInput, targetUserID)
	}

	tasks := visibleTasks(s.Visible())
	if len(tasks) == 0 {
		return BatchResult{}, nil
	}
	result := runBatch(ctx, len(tasks), func(ctx context.Context, i int) error {
		return s.store.Update(ctx, store.Tasks, tasks[i].ID, patch.Fields())
	})
	if result.Failed > 0 {
		log.Printf("Failed to transfer %d of %d tasks to %s", result.Failed, result.Total(), targetUserID)
	}
	return result, nil
}

// Breakdown asks the AI side-channel for subtasks and merges them into the
// task. The estimate becomes the sum of the suggested subtasks, and the
// suggested category is applied to uncategorized tasks when it names an
// existing category.
func (s *Session) Breakdown(ctx context.Context, taskID string) (BreakdownResult, error) {
	if err := s.checkOpen(); err != nil {
		return BreakdownResult{}, err
	}
	task, err := s.task(taskID)
	if err != nil {
		return BreakdownResult{}, err
	}
	if s.breakdown == nil {
		return BreakdownResult{}, ErrBreakdownUnavailable
	}

	breakdown, err := s.breakdown.Breakdown(ctx, task.Title, task.Description)
	if err != nil {
		log.Printf("AI breakdown failed for task %s: %v", taskID, err)
		return BreakdownResult{}, err
	}
	if len(breakdown.Subtasks) == 0 {
		return BreakdownResult{Breakdown: breakdown, Task: task}, nil
	}

	subtasks := append([]models.Subtask{}, task.Subtasks...)
	for _, suggested := range breakdown.Subtasks {
		subtasks = append(subtasks, models.Subtask{ID: uuid.New().String(), Title: suggested.Title})
	}
	patch := models.TaskPatch{
		Subtasks:         &subtasks,
		EstimatedMinutes: models.Ptr(breakdown.TotalMinutes()),
	}
	if task.Category() == "" && breakdown.SuggestedCategory != "" {
		for _, category := range s.repo.Categories() {
			if strings.EqualFold(category.Name, breakdown.SuggestedCategory) {
				patch.CategoryID = models.Ptr(category.ID)
				break
			}
		}
	}

	if err := s.UpdateTask(ctx, taskID, patch); err != nil {
		return BreakdownResult{}, err
	}
	task.Subtasks = subtasks
	task.EstimatedMinutes = *patch.EstimatedMinutes
	if patch.CategoryID != nil {
		task.CategoryID = patch.CategoryID
	}
	return BreakdownResult{Breakdown: breakdown, Task: task}, nil
}

// Statistics aggregates over all tasks, ignoring the view filters.
func (s *Session) Statistics() Statistics {
	return ComputeStatistics(s.repo.Tasks(), s.repo.Categories())
}

// Linked returns a task together with the task it depends on, if that
// task is still present.
func (s *Session) Linked(taskID string) (LinkedTask, error) {
	task, err := s.task(taskID)
	if err != nil {
		return LinkedTask{}, err
	}
	linked := LinkedTask{Task: task}
	if dependencyID := task.Dependency(); dependencyID != "" {
		if dependency, ok := s.repo.Task(dependencyID); ok {
			linked.Dependency = &dependency
		}
	}
	return linked, nil
}

// SetPermission records the notification permission the client reported.
func (s *Session) SetPermission(permission Permission) {
	s.notifier.SetPermission(permission)
}

func (s *Session) pushTasks() {
	if s.pusher == nil || s.checkOpen() != nil {
		return
	}
	msg := models.NewStandardMessage(models.EventMessage, models.TasksSnapshotEvent, map[string]interface{}{
		"tasks": s.Visible(),
		"view":  s.ViewState(),
	}).WithResource(store.Tasks, "")
	s.pusher.SendToUser(s.UserID(), msg)
}

func (s *Session) pushCategories() {
	if s.pusher == nil || s.checkOpen() != nil {
		return
	}
	msg := models.NewStandardMessage(models.EventMessage, models.CategoriesSnapshotEvent, map[string]interface{}{
		"categories": s.repo.Categories(),
	}).WithResource(store.Categories, "")
	s.pusher.SendToUser(s.UserID(), msg)
}

// Push sends the current snapshot of a collection to the user's clients.
func (s *Session) Push(collection string) {
	switch collection {
	case store.Tasks:
		s.pushTasks()
	case store.Categories:
		s.pushCategories()
		// Category names are embedded in projected tasks.
		s.pushTasks()
	}
}

// Close stops the reminder loop and the subscriptions. It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.reminders.Stop()
	s.repo.Close()
	s.CalendarAuth.Clear()
}

// WaitLoaded blocks until the first task snapshot arrived or ctx is done.
func (s *Session) WaitLoaded(ctx context.Context) error {
	select {
	case <-s.repo.Loaded():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
