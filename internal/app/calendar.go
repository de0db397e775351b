package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"mentorship-service/internal/calendar"
)

// GET /api/calendar/auth
// Returns the Google consent URL for the calling user.
func (a *App) GoogleAuthHandler(c *gin.Context) {
	if a.Calendar == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": calendar.ErrNotConfigured.Error()})
		return
	}
	sess, ok := session(c)
	if !ok {
		return
	}

	state := fmt.Sprintf("user_%s_%d", sess.UserID, time.Now().Unix())
	c.JSON(http.StatusOK, gin.H{
		"auth_url": a.Calendar.AuthURL(state),
		"state":    state,
	})
}

// GET /oauth2callback?code=&state=
// The token is handed back to the client, which replays it in the
// X-Google-Token header.
func (a *App) GoogleOAuth2CallbackHandler(c *gin.Context) {
	if a.Calendar == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": calendar.ErrNotConfigured.Error()})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code required"})
		return
	}

	token, err := a.Calendar.Exchange(c.Request.Context(), code)
	if err != nil {
		a.Logger.Warn("google token exchange failed", "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to exchange code for token"})
		return
	}
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Authorization successful",
		"state":   c.Query("state"),
		"token":   string(tokenJSON),
	})
}

// GET /api/calendar/events?calendar_id=&time_min=&time_max=
func (a *App) GetGoogleCalendarEvents(c *gin.Context) {
	tok, ok := a.googleToken(c)
	if !ok {
		return
	}
	events, err := a.Calendar.ListEvents(c.Request.Context(), tok,
		c.DefaultQuery("calendar_id", "primary"), c.Query("time_min"), c.Query("time_max"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// GET /api/calendar/calendars
func (a *App) GetGoogleCalendarList(c *gin.Context) {
	tok, ok := a.googleToken(c)
	if !ok {
		return
	}
	calendars, err := a.Calendar.ListCalendars(c.Request.Context(), tok)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calendars": calendars, "count": len(calendars)})
}

func (a *App) googleToken(c *gin.Context) (*oauth2.Token, bool) {
	if a.Calendar == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": calendar.ErrNotConfigured.Error()})
		return nil, false
	}
	tok, err := calendar.ParseToken(c.GetHeader(calendar.TokenHeader))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return tok, true
}
