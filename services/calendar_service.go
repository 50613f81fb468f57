package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"zentask/zentask/config"
	"zentask/zentask/models"
)

// defaultEventDuration is used for tasks without an estimate.
const defaultEventDuration = 30 * time.Minute

type CalendarServiceInterface interface {
	CreateEvent(ctx context.Context, ts oauth2.TokenSource, task models.Task) (string, error)
	DeleteEvent(ctx context.Context, ts oauth2.TokenSource, eventID string) error
	OAuthConfig() *oauth2.Config
}

type CalendarService struct {
	calendarID string
	endpoint   string
	location   *time.Location
	oauth      *oauth2.Config
	// httpClient is the transport under the oauth2 client; nil uses the default.
	httpClient *http.Client
}

func NewCalendarService(cfg config.Config) *CalendarService {
	s := &CalendarService{
		calendarID: cfg.CalendarID,
		endpoint:   cfg.CalendarEndpoint,
		location:   cfg.Location(),
	}
	if s.calendarID == "" {
		s.calendarID = "primary"
	}
	if cfg.GoogleClientID != "" {
		s.oauth = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{calendar.CalendarEventsScope},
			Endpoint:     google.Endpoint,
		}
	}
	return s
}

func (s *CalendarService) OAuthConfig() *oauth2.Config {
	return s.oauth
}

func (s *CalendarService) service(ctx context.Context, ts oauth2.TokenSource) (*calendar.Service, error) {
	if ts == nil {
		return nil, ErrCalendarNotAuthorized
	}
	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}
	return calendar.NewService(ctx, opts...)
}

// EventForTask builds the calendar event of a task: it starts at the due
// time and lasts for the estimate, or 30 minutes without one.
func EventForTask(task models.Task, loc *time.Location) (*calendar.Event, error) {
	start, ok := task.Due(loc)
	if !ok {
		return nil, ErrNoDueDate
	}
	duration := time.Duration(task.EstimatedMinutes) * time.Minute
	if duration <= 0 {
		duration = defaultEventDuration
	}
	end := start.Add(duration)

	return &calendar.Event{
		Summary:     task.Title,
		Description: task.Description,
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: zoneName(loc),
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: zoneName(loc),
		},
	}, nil
}

// zoneName is the IANA name sent with an event. time.Local has no such
// name, so it is left empty and the offset in DateTime applies.
func zoneName(loc *time.Location) string {
	if loc == nil || loc == time.Local || loc.String() == "Local" {
		return ""
	}
	return loc.String()
}

func (s *CalendarService) CreateEvent(ctx context.Context, ts oauth2.TokenSource, task models.Task) (string, error) {
	event, err := EventForTask(task, s.location)
	if err != nil {
		return "", err
	}
	srv, err := s.service(ctx, ts)
	if err != nil {
		return "", err
	}

	created, err := srv.Events.Insert(s.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: calendar insert: %v", ErrSideChannel, err)
	}
	log.Printf("Created calendar event %s for task %s", created.Id, task.ID)
	return created.Id, nil
}

func (s *CalendarService) DeleteEvent(ctx context.Context, ts oauth2.TokenSource, eventID string) error {
	srv, err := s.service(ctx, ts)
	if err != nil {
		return err
	}
	if err := srv.Events.Delete(s.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: calendar delete: %v", ErrSideChannel, err)
	}
	return nil
}

// CalendarAuth caches the calendar authorization of one session.
type CalendarAuth struct {
	mu     sync.RWMutex
	source oauth2.TokenSource
}

// SetAccessToken caches a token the client obtained itself.
func (a *CalendarAuth) SetAccessToken(accessToken string, expiry time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.source = oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		Expiry:      expiry,
	})
}

// Exchange trades an authorization code for a refreshable token source.
func (a *CalendarAuth) Exchange(ctx context.Context, cfg *oauth2.Config, code string) error {
	if cfg == nil {
		return ErrCalendarUnavailable
	}
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("%w: token exchange: %v", ErrSideChannel, err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.source = cfg.TokenSource(context.Background(), token)
	return nil
}

func (a *CalendarAuth) TokenSource() (oauth2.TokenSource, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.source == nil {
		return nil, ErrCalendarNotAuthorized
	}
	return a.source, nil
}

func (a *CalendarAuth) Authorized() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.source != nil
}

func (a *CalendarAuth) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.source = nil
}
