package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WebSocketMessageType represents message type constants
type WebSocketMessageType string

const (
	// Message types
	EventMessage        WebSocketMessageType = "event"
	NotificationMessage WebSocketMessageType = "notification"
	SubscribeMessage    WebSocketMessageType = "subscribe"
	UnsubscribeMessage  WebSocketMessageType = "unsubscribe"
	PermissionMessage   WebSocketMessageType = "notification_permission"
	PingMessage         WebSocketMessageType = "ping"
	ErrorMessage        WebSocketMessageType = "error"
)

// Server event names
const (
	TasksSnapshotEvent      = "tasks.snapshot"
	CategoriesSnapshotEvent = "categories.snapshot"
	ReminderEvent           = "notification.reminder"
	PermissionRequestEvent  = "notification.permission_request"
	SessionEndedEvent       = "session.ended"
)

// StandardMessage represents a standardized WebSocket message format
type StandardMessage struct {
	ID           string                 `json:"id"`
	Type         WebSocketMessageType   `json:"type"`
	Event        string                 `json:"event,omitempty"` // For event messages
	Timestamp    time.Time              `json:"timestamp"`
	Payload      map[string]interface{} `json:"payload"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	ResourceType string                 `json:"resource_type,omitempty"`
}

// NewStandardMessage creates a new standard message
func NewStandardMessage(msgType WebSocketMessageType, event string, payload map[string]interface{}) *StandardMessage {
	return &StandardMessage{
		ID:        uuid.New().String(),
		Type:      msgType,
		Event:     event,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// WithResource adds resource information to the message
func (m *StandardMessage) WithResource(resourceType string, resourceID string) *StandardMessage {
	m.ResourceType = resourceType
	m.ResourceID = resourceID
	return m
}

func (m *StandardMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ClientMessage represents a message from the client
type ClientMessage struct {
	Type    WebSocketMessageType `json:"type"`
	Payload json.RawMessage      `json:"payload"`
}
