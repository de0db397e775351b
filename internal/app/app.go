package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"mentorship-service/internal/auth"
	"mentorship-service/internal/booking"
	"mentorship-service/internal/calendar"
	"mentorship-service/internal/events"
)

const dateLayout = "2006-01-02"

// App holds the HTTP handlers. Calendar is nil when Google OAuth is not
// configured.
type App struct {
	Service  *booking.Service
	Calendar *calendar.Client
	Events   events.Publisher
	Logger   *slog.Logger
}

// Routes mounts every endpoint. requireAuth guards /api; limit, when not
// nil, runs on state-changing /api routes.
func (a *App) Routes(router gin.IRouter, requireAuth gin.HandlerFunc, limit gin.HandlerFunc) {
	// OAuth2 callback (must be before auth middleware)
	router.GET("/oauth2callback", a.GoogleOAuth2CallbackHandler)

	writes := []gin.HandlerFunc{}
	if limit != nil {
		writes = append(writes, limit)
	}
	w := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, writes...), h)
	}

	api := router.Group("/api", requireAuth)
	{
		mentors := api.Group("/mentors")
		{
			mentors.GET("", a.ListMentorsHandler)
			mentors.GET("/:id", a.GetMentorHandler)
			mentors.PUT("/:id", w(a.SaveMentorHandler)...)
			mentors.GET("/:id/availability", a.GetAvailabilityHandler)
			mentors.PUT("/:id/availability", w(a.SetAvailabilityHandler)...)
			mentors.GET("/:id/slots", a.GetSlotsHandler)
			mentors.POST("/:id/meetings", w(a.BookMeetingHandler)...)
			mentors.POST("/:id/service-requests", w(a.RequestServiceHandler)...)
		}

		meetings := api.Group("/meetings")
		{
			meetings.GET("/:id", a.GetMeetingHandler)
			meetings.POST("/:id/approve", w(a.ApproveMeetingHandler)...)
			meetings.POST("/:id/decline", w(a.DeclineMeetingHandler)...)
			meetings.POST("/:id/complete", w(a.CompleteMeetingHandler)...)
			meetings.POST("/:id/no-show", w(a.NoShowHandler)...)
			meetings.POST("/:id/cancel", w(a.CancelMeetingHandler)...)
		}
		api.GET("/dashboard", a.DashboardHandler)

		requests := api.Group("/service-requests")
		{
			requests.GET("", a.ListServiceRequestsHandler)
			requests.POST("/:id/approve", w(a.ApproveServiceRequestHandler)...)
			requests.POST("/:id/decline", w(a.DeclineServiceRequestHandler)...)
			requests.POST("/:id/start", w(a.StartServiceRequestHandler)...)
			requests.POST("/:id/complete", w(a.CompleteServiceRequestHandler)...)
		}
		api.GET("/services", a.ListServicesHandler)

		mentees := api.Group("/mentees")
		{
			mentees.GET("/:id", a.GetMenteeHandler)
			mentees.PUT("/:id", w(a.SaveMenteeHandler)...)
		}

		// Google Calendar integration routes
		cal := api.Group("/calendar")
		{
			cal.GET("/auth", a.GoogleAuthHandler)
			cal.GET("/events", a.GetGoogleCalendarEvents)
			cal.GET("/calendars", a.GetGoogleCalendarList)
		}
	}
}

func session(c *gin.Context) (booking.Session, bool) {
	sess, ok := auth.SessionFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
	}
	return sess, ok
}

// writeError maps service errors onto HTTP statuses.
func (a *App) writeError(c *gin.Context, err error) {
	var (
		ve *booking.ValidationError
		te *booking.InvalidTransitionError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, booking.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &te):
		c.JSON(http.StatusConflict, gin.H{"error": te.Error()})
	case errors.Is(err, booking.ErrConflict), errors.Is(err, booking.ErrSlotTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		a.Logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"err", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (a *App) publishMeeting(ctx context.Context, m booking.Meeting) {
	ev, err := events.MeetingEvent(m)
	if err == nil {
		err = a.Events.Publish(ctx, ev)
	}
	if err != nil {
		a.Logger.Warn("publish meeting event failed", "meeting_id", m.ID, "err", err)
	}
}

func (a *App) publishRequest(ctx context.Context, r booking.ServiceRequest) {
	ev, err := events.RequestEvent(r)
	if err == nil {
		err = a.Events.Publish(ctx, ev)
	}
	if err != nil {
		a.Logger.Warn("publish service request event failed", "service_request_id", r.ID, "err", err)
	}
}
