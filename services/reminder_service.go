package services

import (
	"context"
	"log"
	"sync"
	"time"

	"zentask/zentask/models"
	"zentask/zentask/store"
)

// ReminderScannerInterface is what a session needs from its reminder loop.
type ReminderScannerInterface interface {
	Start()
	Stop()
	Sweep(ctx context.Context) int
}

var _ ReminderScannerInterface = (*ReminderScanner)(nil)

// ReminderScanner periodically fires reminders for due tasks of one
// session. The reminderSent flag is the only deduplication.
type ReminderScanner struct {
	repo     *TaskRepository
	store    store.Store
	notifier Notifier
	interval time.Duration
	location *time.Location
	now      func() time.Time

	mu                  sync.Mutex
	isRunning           bool
	stopChan            chan struct{}
	doneChan            chan struct{}
	permissionRequested bool
}

func NewReminderScanner(repo *TaskRepository, s store.Store, notifier Notifier, interval time.Duration, loc *time.Location) *ReminderScanner {
	if interval <= 0 {
		interval = time.Minute
	}
	if loc == nil {
		loc = time.Local
	}
	return &ReminderScanner{
		repo:     repo,
		store:    s,
		notifier: notifier,
		interval: interval,
		location: loc,
		now:      time.Now,
	}
}

func (s *ReminderScanner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	go s.run(s.stopChan, s.doneChan)
}

// Stop ends the sweep loop and waits for an in-flight sweep to finish.
func (s *ReminderScanner) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.doneChan
	s.mu.Unlock()
	<-done
}

func (s *ReminderScanner) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			if fired := s.Sweep(ctx); fired > 0 {
				log.Printf("Fired %d reminders for user %s", fired, s.repo.UserID())
			}
			cancel()
		}
	}
}

// Sweep fires every due reminder once and returns how many fired. Tasks
// whose due time passed while no sweep ran are caught up here.
func (s *ReminderScanner) Sweep(ctx context.Context) int {
	if s.repo.UserID() == "" {
		return 0
	}
	tasks := s.repo.Tasks()
	if len(tasks) == 0 {
		return 0
	}

	s.requestPermissionOnce()

	now := s.now()
	fired := 0
	for _, task := range tasks {
		if !reminderDue(task, now, s.location) {
			continue
		}
		if s.notifier != nil && s.notifier.Permission() == PermissionGranted {
			s.notifier.Notify(task)
		}
		patch := models.TaskPatch{ReminderSent: models.Ptr(true)}
		if err := s.store.Update(ctx, store.Tasks, task.ID, patch.Fields()); err != nil {
			log.Printf("Failed to mark reminder sent for task %s: %v", task.ID, err)
		}
		fired++
	}
	return fired
}

func (s *ReminderScanner) requestPermissionOnce() {
	if s.notifier == nil {
		return
	}
	s.mu.Lock()
	if s.permissionRequested || s.notifier.Permission() != PermissionDefault {
		s.mu.Unlock()
		return
	}
	s.permissionRequested = true
	s.mu.Unlock()
	s.notifier.RequestPermission()
}

func reminderDue(task models.Task, now time.Time, loc *time.Location) bool {
	if task.Completed || task.ReminderSent {
		return false
	}
	due, ok := task.Due(loc)
	return ok && !due.After(now)
}
