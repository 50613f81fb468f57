package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"zentask/zentask/services"
)

// defaultTokenLifetime applies when the client does not say how long its
// access token is valid.
const defaultTokenLifetime = time.Hour

// authorizeRequest carries either an access token obtained by the client
// or an authorization code to exchange.
type authorizeRequest struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
	Code        string `json:"code"`
}

func RegisterCalendarRoutes(group *gin.RouterGroup, calendar services.CalendarServiceInterface) {
	group.GET("/calendar/auth-url", func(c *gin.Context) { CalendarAuthURL(c, calendar) })
	group.POST("/calendar/authorize", func(c *gin.Context) { AuthorizeCalendar(c, calendar) })
	group.DELETE("/calendar/authorize", RevokeCalendar)
}

func oauthConfig(calendar services.CalendarServiceInterface) *oauth2.Config {
	if calendar == nil {
		return nil
	}
	return calendar.OAuthConfig()
}

func CalendarAuthURL(c *gin.Context, calendar services.CalendarServiceInterface) {
	cfg := oauthConfig(calendar)
	if cfg == nil {
		respondError(c, services.ErrCalendarUnavailable)
		return
	}
	state := uuid.New().String()
	c.JSON(http.StatusOK, gin.H{
		"url":   cfg.AuthCodeURL(state, oauth2.AccessTypeOffline),
		"state": state,
	})
}

func AuthorizeCalendar(c *gin.Context, calendar services.CalendarServiceInterface) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var request authorizeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch {
	case request.AccessToken != "":
		lifetime := defaultTokenLifetime
		if request.ExpiresIn > 0 {
			lifetime = time.Duration(request.ExpiresIn) * time.Second
		}
		session.CalendarAuth.SetAccessToken(request.AccessToken, time.Now().Add(lifetime))
	case request.Code != "":
		if err := session.CalendarAuth.Exchange(c.Request.Context(), oauthConfig(calendar), request.Code); err != nil {
			respondError(c, err)
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "accessToken or code is required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authorized": true})
}

func RevokeCalendar(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	session.CalendarAuth.Clear()
	c.JSON(http.StatusOK, gin.H{"authorized": false})
}
