package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"zentask/zentask/broker"
	"zentask/zentask/config"
	"zentask/zentask/models"
	"zentask/zentask/store"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

const testUser = "user-1"

// recordingPusher keeps every message pushed to any user.
type recordingPusher struct {
	mu       sync.Mutex
	messages map[string][]*models.StandardMessage
}

func newRecordingPusher() *recordingPusher {
	return &recordingPusher{messages: make(map[string][]*models.StandardMessage)}
}

func (p *recordingPusher) SendToUser(userID string, msg *models.StandardMessage) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages[userID] = append(p.messages[userID], msg)
	return 1
}

func (p *recordingPusher) events(userID, event string) []*models.StandardMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*models.StandardMessage
	for _, msg := range p.messages[userID] {
		if msg.Event == event {
			out = append(out, msg)
		}
	}
	return out
}

// fakeCalendar records calendar calls instead of talking to Google.
type fakeCalendar struct {
	mu      sync.Mutex
	created []string
	deleted []string
	err     error
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, ts oauth2.TokenSource, task models.Task) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if _, err := EventForTask(task, time.UTC); err != nil {
		return "", err
	}
	f.created = append(f.created, task.ID)
	return "event-" + task.ID, nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, ts oauth2.TokenSource, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, eventID)
	return nil
}

func (f *fakeCalendar) OAuthConfig() *oauth2.Config {
	return nil
}

type fakeBreakdown struct {
	result *Breakdown
	err    error
	calls  int
}

func (f *fakeBreakdown) Breakdown(ctx context.Context, title, description string) (*Breakdown, error) {
	f.calls++
	return f.result, f.err
}

func testConfig() config.Config {
	return config.Config{
		ReminderInterval: time.Hour,
		Locale:           "en",
		TimeZone:         "UTC",
		CalendarID:       "primary",
		GeminiModel:      "gemini-test",
	}
}

func newTestManager(t *testing.T) (*SessionManager, store.Store, *recordingPusher) {
	t.Helper()
	st := store.NewMirrorStore(store.NewMemoryStorage(), broker.NewLocalBus(), "")
	pusher := newRecordingPusher()
	m := NewSessionManager(st, pusher, testConfig())
	m.now = func() time.Time { return testNow }
	t.Cleanup(m.CloseAll)
	return m, st, pusher
}

func newTestSession(t *testing.T) (*Session, store.Store, *recordingPusher) {
	t.Helper()
	m, st, pusher := newTestManager(t)
	session := m.Start(models.Profile{UID: testUser, Email: "user@example.com"})
	return session, st, pusher
}

// seed writes a task document straight to the store and returns its id.
func seed(t *testing.T, st store.Store, fields map[string]interface{}) string {
	t.Helper()
	doc := map[string]interface{}{
		"userId":           testUser,
		"title":            "task",
		"description":      "",
		"categoryId":       nil,
		"completed":        false,
		"dueDate":          nil,
		"estimatedMinutes": 0,
		"actualMinutes":    0,
		"reminderSent":     false,
		"createdAt":        testNow.UnixMilli(),
	}
	for k, v := range fields {
		doc[k] = v
	}
	id, err := st.Create(context.Background(), store.Tasks, doc)
	require.NoError(t, err)
	return id
}

func seedCategory(t *testing.T, st store.Store, name string) string {
	t.Helper()
	input := models.CategoryInput{Name: name, Color: "#6366f1"}
	id, err := st.Create(context.Background(), store.Categories, input.Fields(testUser))
	require.NoError(t, err)
	return id
}

func dueIn(d time.Duration) string {
	return testNow.Add(d).Format(time.RFC3339)
}

func ids(tasks []ProjectedTask) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.ID
	}
	return out
}
