// Package calendar wraps the Google OAuth2 consent flow and the Calendar v3
// API used by mentors: calendar and event listing plus Meet links for
// approved meetings.
package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"mentorship-service/internal/availability"
	"mentorship-service/internal/booking"
)

// TokenHeader carries the caller's JSON-encoded OAuth2 token.
const TokenHeader = "X-Google-Token"

var ErrNotConfigured = errors.New("google calendar not configured")

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type Client struct {
	oauth *oauth2.Config
	// endpoint overrides the Calendar API base URL when set.
	endpoint string
}

// New returns ErrNotConfigured when any OAuth2 setting is missing.
func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, ErrNotConfigured
	}
	return &Client{oauth: &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			gcal.CalendarReadonlyScope,
			gcal.CalendarEventsScope,
		},
		Endpoint: google.Endpoint,
	}}, nil
}

func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.oauth.Exchange(ctx, code)
}

// ParseToken decodes the value of TokenHeader.
func ParseToken(raw string) (*oauth2.Token, error) {
	if raw == "" {
		return nil, fmt.Errorf("google token required in %s header", TokenHeader)
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("invalid token format: %w", err)
	}
	return &tok, nil
}

func (c *Client) service(ctx context.Context, tok *oauth2.Token) (*gcal.Service, error) {
	opts := []option.ClientOption{option.WithHTTPClient(c.oauth.Client(ctx, tok))}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	srv, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return srv, nil
}

type CalendarInfo struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Primary     bool   `json:"primary"`
	AccessRole  string `json:"access_role"`
}

func (c *Client) ListCalendars(ctx context.Context, tok *oauth2.Token) ([]CalendarInfo, error) {
	srv, err := c.service(ctx, tok)
	if err != nil {
		return nil, err
	}
	list, err := srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("retrieve calendars: %w", err)
	}
	out := make([]CalendarInfo, 0, len(list.Items))
	for _, item := range list.Items {
		out = append(out, CalendarInfo{
			ID:          item.Id,
			Summary:     item.Summary,
			Description: item.Description,
			Primary:     item.Primary,
			AccessRole:  item.AccessRole,
		})
	}
	return out, nil
}

type Event struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Location    string    `json:"location,omitempty"`
	Status      string    `json:"status"`
	Creator     string    `json:"creator,omitempty"`
	MeetLink    string    `json:"meet_link,omitempty"`
}

// ListEvents returns single events of calendarID ordered by start time.
// timeMin and timeMax are optional RFC3339 bounds.
func (c *Client) ListEvents(ctx context.Context, tok *oauth2.Token, calendarID, timeMin, timeMax string) ([]Event, error) {
	srv, err := c.service(ctx, tok)
	if err != nil {
		return nil, err
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	call := srv.Events.List(calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250)
	if timeMin != "" {
		call = call.TimeMin(timeMin)
	}
	if timeMax != "" {
		call = call.TimeMax(timeMax)
	}
	events, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("retrieve events: %w", err)
	}

	out := make([]Event, 0, len(events.Items))
	for _, item := range events.Items {
		out = append(out, convertEvent(item))
	}
	return out, nil
}

func convertEvent(item *gcal.Event) Event {
	ev := Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Status:      item.Status,
		MeetLink:    item.HangoutLink,
		StartTime:   eventTime(item.Start),
		EndTime:     eventTime(item.End),
	}
	if item.Creator != nil {
		ev.Creator = item.Creator.Email
	}
	return ev
}

// eventTime reads a timed or all-day boundary; unparseable values yield the
// zero time.
func eventTime(dt *gcal.EventDateTime) time.Time {
	if dt == nil {
		return time.Time{}
	}
	if dt.DateTime != "" {
		t, _ := time.Parse(time.RFC3339, dt.DateTime)
		return t
	}
	if dt.Date != "" {
		t, _ := time.Parse("2006-01-02", dt.Date)
		return t
	}
	return time.Time{}
}

// MeetLinks returns a booking.LinkProvider that inserts an event with a
// Google Meet conference on the token owner's primary calendar. timezone
// is the mentor's IANA zone; an unknown zone falls back to UTC.
func (c *Client) MeetLinks(tok *oauth2.Token, timezone string) booking.LinkProvider {
	return &meetLinks{client: c, token: tok, timezone: timezone}
}

type meetLinks struct {
	client   *Client
	token    *oauth2.Token
	timezone string
}

// MeetingLink inserts the event. The returned release deletes it again.
func (p *meetLinks) MeetingLink(ctx context.Context, m booking.Meeting) (string, func(context.Context) error, error) {
	ev, err := buildEvent(m, p.timezone)
	if err != nil {
		return "", nil, err
	}
	srv, err := p.client.service(ctx, p.token)
	if err != nil {
		return "", nil, err
	}
	created, err := srv.Events.Insert("primary", ev).ConferenceDataVersion(1).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("insert calendar event: %w", err)
	}

	release := func(ctx context.Context) error {
		if err := srv.Events.Delete("primary", created.Id).Context(ctx).Do(); err != nil {
			return fmt.Errorf("delete calendar event %s: %w", created.Id, err)
		}
		return nil
	}
	if created.HangoutLink != "" {
		return created.HangoutLink, release, nil
	}
	return created.HtmlLink, release, nil
}

func buildEvent(m booking.Meeting, timezone string) (*gcal.Event, error) {
	minutes, err := availability.ParseClock(m.ScheduledTime)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		loc, timezone = time.UTC, "UTC"
	}
	d := m.ScheduledDate
	start := time.Date(d.Year(), d.Month(), d.Day(), minutes/60, minutes%60, 0, 0, loc)
	duration := m.DurationMinutes
	if duration <= 0 {
		duration = booking.DefaultDurationMinutes
	}
	end := start.Add(time.Duration(duration) * time.Minute)

	return &gcal.Event{
		Summary:     m.ServiceType.Label() + " mentorship session",
		Description: m.MenteeNotes,
		Location:    m.Location,
		Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: timezone},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: timezone},
		ConferenceData: &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId:             m.ID,
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}, nil
}
