package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mentorship-service/internal/availability"
	"mentorship-service/internal/booking"
	"mentorship-service/internal/calendar"
)

// GET /api/mentors?industry=&service=
func (a *App) ListMentorsHandler(c *gin.Context) {
	mentors, err := a.Service.ListMentors(c.Request.Context(), booking.MentorFilter{
		Industry: c.Query("industry"),
		Service:  booking.ServiceType(c.Query("service")),
	})
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mentors": mentors, "count": len(mentors)})
}

// GET /api/mentors/:id
func (a *App) GetMentorHandler(c *gin.Context) {
	m, err := a.Service.Mentor(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// PUT /api/mentors/:id
func (a *App) SaveMentorHandler(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var payload booking.Mentor
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payload.ID = c.Param("id")

	m, err := a.Service.SaveMentor(c.Request.Context(), sess, payload)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// GET /api/mentors/:id/availability
func (a *App) GetAvailabilityHandler(c *gin.Context) {
	m, err := a.Service.Mentor(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	av := m.Availability
	if av == nil {
		av = availability.WeeklyAvailability{}
	}
	c.JSON(http.StatusOK, av)
}

// PUT /api/mentors/:id/availability
// Replaces the whole weekly schedule.
func (a *App) SetAvailabilityHandler(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var payload availability.WeeklyAvailability
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := a.Service.SetAvailability(c.Request.Context(), sess, c.Param("id"), payload)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m.Availability)
}

// GET /api/mentors/:id/slots?date=YYYY-MM-DD
func (a *App) GetSlotsHandler(c *gin.Context) {
	dateStr := c.Query("date")
	if dateStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date required (YYYY-MM-DD)"})
		return
	}
	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return
	}
	slots, err := a.Service.Slots(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": dateStr, "slots": slots})
}

type bookMeetingReq struct {
	ServiceType   string `json:"service_type"`
	ScheduledDate string `json:"scheduled_date" binding:"required"` // YYYY-MM-DD
	ScheduledTime string `json:"scheduled_time" binding:"required"` // HH:MM
	Notes         string `json:"notes,omitempty"`
}

// POST /api/mentors/:id/meetings
func (a *App) BookMeetingHandler(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req bookMeetingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := time.Parse(dateLayout, req.ScheduledDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scheduled_date"})
		return
	}

	ctx := c.Request.Context()
	m, err := a.Service.BookMeeting(ctx, sess, booking.BookRequest{
		MentorID:    c.Param("id"),
		ServiceType: booking.ServiceType(req.ServiceType),
		Date:        date,
		Time:        req.ScheduledTime,
		Notes:       req.Notes,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}
	a.publishMeeting(ctx, m)
	c.JSON(http.StatusCreated, m)
}

// GET /api/meetings/:id
func (a *App) GetMeetingHandler(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	m, err := a.Service.Meeting(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// POST /api/meetings/:id/approve
// With an X-Google-Token header and calendar configured, the meeting is put
// on the mentor's Google Calendar and gets a real Meet link.
func (a *App) ApproveMeetingHandler(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var links booking.LinkProvider
	if raw := c.GetHeader(calendar.TokenHeader); raw != "" && a.Calendar != nil {
		tok, err := calendar.ParseToken(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var tz string
		if mentor, err := a.Service.Mentor(ctx, sess.UserID); err == nil {
			tz = mentor.Timezone
		}
		links = a.Calendar.MeetLinks(tok, tz)
	}

	m, err := a.Service.ApproveMeeting(ctx, sess, c.Param("id"), links)
	if err != nil {
		a.writeError(c, err)
		return
	}
	a.publishMeeting(ctx, m)
	c.JSON(http.StatusOK, m)
}

// POST /api/meetings/:id/decline
func (a *App) DeclineMeetingHandler(c *gin.Context) {
	a.meetingAction(c, a.Service.DeclineMeeting)
}

// POST /api/meetings/:id/no-show
func (a *App) NoShowHandler(c *gin.Context) {
	a.meetingAction(c, a.Service.MarkNoShow)
}

// POST /api/meetings/:id/cancel
func (a *App) CancelMeetingHandler(c *gin.Context) {
	a.meetingAction(c, a.Service.CancelMeeting)
}

func (a *App) meetingAction(c *gin.Context, do func(context.Context, booking.Session, string) (booking.Meeting, error)) {
	sess, ok := session(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	m, err := do(ctx, sess, c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	a.publishMeeting(ctx, m)
	c.JSON(http.StatusOK, m)
}

type completeMeetingReq struct {
	MentorNotes string `json:"mentor_notes,omitempty"`
}

// POST /api/meetings/:id/complete
func (a *App) CompleteMeetingHandler(c *gin.Context) {
	var req completeMeetingReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	a.meetingAction(c, func(ctx context.Context, sess booking.Session, id string) (booking.Meeting, error) {
		return a.Service.CompleteMeeting(ctx, sess, id, req.MentorNotes)
	})
}

// GET /api/dashboard?as_of=YYYY-MM-DD
func (a *App) DashboardHandler(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	asOf := time.Now().UTC()
	if s := c.Query("as_of"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid as_of"})
			return
		}
		asOf = t
	}
	d, err := a.Service.Dashboard(c.Request.Context(), sess, asOf)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

type requestServiceReq struct {
	Type    string          `json:"type" binding:"required"`
	Details json.RawMessage `json:"details" binding:"required"`
}

// POST /api/mentors/:id/service-requests
func (a *App) RequestServiceHandler(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req requestServiceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	details, err := booking.DecodeDetails(booking.ServiceType(req.Type), req.Details)
	if err != nil {
		a.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	r, err := a.Service.RequestService(ctx, sess, c.Param("id"), details)
	if err != nil {
		a.writeError(c, err)
		return
	}
	a.publishRequest(ctx, r)
	c.JSON(http.StatusCreated, r)
}

// GET /api/service-requests
func (a *App) ListServiceRequestsHandler(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	reqs, err := a.Service.ServiceRequests(c.Request.Context(), sess)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"service_requests": reqs, "count": len(reqs)})
}

// POST /api/service-requests/:id/approve
func (a *App) ApproveServiceRequestHandler(c *gin.Context) {
	a.serviceRequestAction(c, a.Service.ApproveServiceRequest)
}

// POST /api/service-requests/:id/decline
func (a *App) DeclineServiceRequestHandler(c *gin.Context) {
	a.serviceRequestAction(c, a.Service.DeclineServiceRequest)
}

// POST /api/service-requests/:id/start
func (a *App) StartServiceRequestHandler(c *gin.Context) {
	a.serviceRequestAction(c, a.Service.StartServiceRequest)
}

type completeServiceRequestReq struct {
	Feedback string `json:"feedback,omitempty"`
}

// POST /api/service-requests/:id/complete
func (a *App) CompleteServiceRequestHandler(c *gin.Context) {
	var req completeServiceRequestReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	a.serviceRequestAction(c, func(ctx context.Context, sess booking.Session, id string) (booking.ServiceRequest, error) {
		return a.Service.CompleteServiceRequest(ctx, sess, id, req.Feedback)
	})
}

func (a *App) serviceRequestAction(c *gin.Context, do func(context.Context, booking.Session, string) (booking.ServiceRequest, error)) {
	sess, ok := session(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	r, err := do(ctx, sess, c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	a.publishRequest(ctx, r)
	c.JSON(http.StatusOK, r)
}

// GET /api/services
func (a *App) ListServicesHandler(c *gin.Context) {
	services := booking.Catalog()
	c.JSON(http.StatusOK, gin.H{"services": services, "count": len(services)})
}

// GET /api/mentees/:id
func (a *App) GetMenteeHandler(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	m, err := a.Service.Mentee(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// PUT /api/mentees/:id
func (a *App) SaveMenteeHandler(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var payload booking.Mentee
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payload.ID = c.Param("id")

	m, err := a.Service.SaveMentee(c.Request.Context(), sess, payload)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
