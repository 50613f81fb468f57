package services

import (
	"fmt"
	"log"
	"sync"

	"zentask/zentask/models"
	"zentask/zentask/store"
)

// Permission mirrors the notification permission states of a client.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

func ParsePermission(value string) (Permission, error) {
	switch Permission(value) {
	case PermissionDefault, PermissionGranted, PermissionDenied:
		return Permission(value), nil
	default:
		return "", fmt.Errorf("%w: unknown permission %q", ErrInvalidInput, value)
	}
}

type Notifier interface {
	Permission() Permission
	RequestPermission()
	Notify(task models.Task)
}

// Pusher delivers a message to every connection of a user and reports
// how many connections it reached.
type Pusher interface {
	SendToUser(userID string, msg *models.StandardMessage) int
}

// PushNotifier turns reminders into WebSocket notification messages for
// one user. The permission is whatever the user's client last reported.
type PushNotifier struct {
	pusher Pusher
	userID string

	mu         sync.RWMutex
	permission Permission
}

func NewPushNotifier(pusher Pusher, userID string) *PushNotifier {
	return &PushNotifier{pusher: pusher, userID: userID, permission: PermissionDefault}
}

func (n *PushNotifier) Permission() Permission {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.permission
}

func (n *PushNotifier) SetPermission(permission Permission) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.permission = permission
}

func (n *PushNotifier) RequestPermission() {
	if n.pusher == nil {
		return
	}
	msg := models.NewStandardMessage(models.NotificationMessage, models.PermissionRequestEvent, map[string]interface{}{})
	n.pusher.SendToUser(n.userID, msg)
}

func (n *PushNotifier) Notify(task models.Task) {
	if n.pusher == nil {
		return
	}
	msg := models.NewStandardMessage(models.NotificationMessage, models.ReminderEvent, map[string]interface{}{
		"title":  fmt.Sprintf("Task Due: %s", task.Title),
		"body":   "Your task is due now!",
		"taskId": task.ID,
	}).WithResource(store.Tasks, task.ID)
	if delivered := n.pusher.SendToUser(n.userID, msg); delivered == 0 {
		log.Printf("Reminder for task %s had no connected client", task.ID)
	}
}
