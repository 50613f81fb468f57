package services

import (
	"log"
	"sync"
	"time"

	"zentask/zentask/config"
	"zentask/zentask/models"
	"zentask/zentask/store"
)

// SessionManager owns the sessions of all signed-in users. A session is
// created on sign-in or on the first authenticated request and lives
// until End.
type SessionManager struct {
	store     store.Store
	pusher    Pusher
	calendar  CalendarServiceInterface
	breakdown BreakdownServiceInterface
	projector Projector
	interval  time.Duration
	location  *time.Location
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

var SessionManagerInstance *SessionManager

func NewSessionManager(s store.Store, pusher Pusher, cfg config.Config) *SessionManager {
	m := &SessionManager{
		store:     s,
		pusher:    pusher,
		calendar:  NewCalendarService(cfg),
		projector: NewProjector(cfg.Locale, cfg.Location()),
		interval:  cfg.ReminderInterval,
		location:  cfg.Location(),
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
	if breakdown := NewBreakdownService(cfg); breakdown.Configured() {
		m.breakdown = breakdown
	} else {
		log.Println("GEMINI_API_KEY not set, AI breakdown disabled")
	}
	return m
}

func (m *SessionManager) Store() store.Store {
	return m.store
}

func (m *SessionManager) Calendar() CalendarServiceInterface {
	return m.calendar
}

// Start returns the session of profile.UID, creating it when needed.
func (m *SessionManager) Start(profile models.Profile) *Session {
	m.mu.Lock()
	if existing, ok := m.sessions[profile.UID]; ok {
		m.mu.Unlock()
		return existing
	}

	repo := NewTaskRepository(m.store)
	notifier := NewPushNotifier(m.pusher, profile.UID)
	reminders := NewReminderScanner(repo, m.store, notifier, m.interval, m.location)
	reminders.now = m.now
	session := &Session{
		Profile:      profile,
		store:        m.store,
		repo:         repo,
		reorder:      NewReorderEngine(m.store),
		reminders:    reminders,
		notifier:     notifier,
		pusher:       m.pusher,
		calendar:     m.calendar,
		breakdown:    m.breakdown,
		projector:    m.projector,
		now:          m.now,
		CalendarAuth: &CalendarAuth{},
		view: ViewState{
			SelectedCategoryID: AllCategories,
			View:               ViewPending,
			Sort:               SortDefault,
		},
	}
	m.sessions[profile.UID] = session
	m.mu.Unlock()

	repo.OnChange(session.Push)
	repo.SetUser(profile.UID)
	reminders.Start()
	log.Printf("Session started for user %s", profile.UID)
	return session
}

// Ensure returns the session of userID, starting one from the minimal
// profile when the user has none yet.
func (m *SessionManager) Ensure(profile models.Profile) *Session {
	if session, ok := m.Get(profile.UID); ok {
		return session
	}
	return m.Start(profile)
}

func (m *SessionManager) Get(userID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[userID]
	return session, ok
}

// End tears the session down and tells the user's clients.
func (m *SessionManager) End(userID string) bool {
	m.mu.Lock()
	session, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()
	if !ok {
		return false
	}

	session.Close()
	if m.pusher != nil {
		msg := models.NewStandardMessage(models.EventMessage, models.SessionEndedEvent, map[string]interface{}{
			"userId": userID,
		})
		m.pusher.SendToUser(userID, msg)
	}
	log.Printf("Session ended for user %s", userID)
	return true
}

func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}

// HandlePermission records the notification permission a client reported.
func (m *SessionManager) HandlePermission(userID string, value string) error {
	permission, err := ParsePermission(value)
	if err != nil {
		return err
	}
	session, ok := m.Get(userID)
	if !ok {
		return ErrSessionClosed
	}
	session.SetPermission(permission)
	return nil
}

// HandleSubscribe pushes the current snapshot of a collection so a newly
// subscribed client does not wait for the next change.
func (m *SessionManager) HandleSubscribe(userID string, collection string) error {
	if collection != store.Tasks && collection != store.Categories {
		return ErrInvalidInput
	}
	session, ok := m.Get(userID)
	if !ok {
		return ErrSessionClosed
	}
	session.Push(collection)
	return nil
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
