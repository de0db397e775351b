package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"

	"mentorship-service/internal/booking"
)

func pendingMeeting(t *testing.T) booking.Meeting {
	t.Helper()
	mg := booking.NewManager(booking.WithIDGenerator(func() string { return "meeting-1" }))
	m, err := mg.Book("mentor-1", "mentee-1", booking.ServiceMockInterview, time.Date(2030, 1, 7, 0, 0, 0, 0, time.UTC), "14:30", "bring questions")
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	return m
}

func TestBuildEvent(t *testing.T) {
	ev, err := buildEvent(pendingMeeting(t), "America/New_York")
	if err != nil {
		t.Fatalf("buildEvent failed: %v", err)
	}
	if ev.Start.DateTime != "2030-01-07T14:30:00-05:00" || ev.End.DateTime != "2030-01-07T15:00:00-05:00" {
		t.Fatalf("unexpected times %s - %s", ev.Start.DateTime, ev.End.DateTime)
	}
	if ev.Start.TimeZone != "America/New_York" {
		t.Fatalf("unexpected timezone %q", ev.Start.TimeZone)
	}
	if !strings.HasPrefix(ev.Summary, "Mock Interview") {
		t.Fatalf("unexpected summary %q", ev.Summary)
	}
	req := ev.ConferenceData.CreateRequest
	if req.RequestId != "meeting-1" || req.ConferenceSolutionKey.Type != "hangoutsMeet" {
		t.Fatalf("unexpected conference request %+v", req)
	}
}

func TestBuildEventUnknownZoneFallsBackToUTC(t *testing.T) {
	ev, err := buildEvent(pendingMeeting(t), "Mars/Olympus_Mons")
	if err != nil {
		t.Fatalf("buildEvent failed: %v", err)
	}
	if ev.Start.DateTime != "2030-01-07T14:30:00Z" || ev.Start.TimeZone != "UTC" {
		t.Fatalf("unexpected start %+v", ev.Start)
	}
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(Config{ClientID: "id"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	c, err := New(Config{ClientID: "id", ClientSecret: "secret", RedirectURL: "http://localhost/oauth2callback"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	url := c.AuthURL("state-1")
	if !strings.Contains(url, "state=state-1") || !strings.Contains(url, "access_type=offline") {
		t.Fatalf("unexpected auth url %s", url)
	}
}

func TestParseToken(t *testing.T) {
	if _, err := ParseToken(""); err == nil {
		t.Fatal("expected error for empty header")
	}
	if _, err := ParseToken("not json"); err == nil {
		t.Fatal("expected error for malformed token")
	}
	tok, err := ParseToken(`{"access_token":"abc","token_type":"Bearer"}`)
	if err != nil || tok.AccessToken != "abc" {
		t.Fatalf("ParseToken = %+v, %v", tok, err)
	}
}

func TestConvertEvent(t *testing.T) {
	ev := convertEvent(&gcal.Event{
		Id:          "e1",
		Summary:     "Sync",
		Start:       &gcal.EventDateTime{DateTime: "2030-01-07T09:00:00Z"},
		End:         &gcal.EventDateTime{Date: "2030-01-08"},
		Creator:     &gcal.EventCreator{Email: "a@example.com"},
		HangoutLink: "https://meet.google.com/abc-defg-hij",
	})
	if !ev.StartTime.Equal(time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", ev.StartTime)
	}
	if !ev.EndTime.Equal(time.Date(2030, 1, 8, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %v", ev.EndTime)
	}
	if ev.Creator != "a@example.com" || ev.MeetLink == "" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if !eventTime(nil).IsZero() {
		t.Fatal("expected zero time for nil boundary")
	}
}

func TestMeetLinksInsertAndRelease(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r.Method+" "+r.URL.Path)
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/calendar/v3/calendars/primary/events":
			if r.URL.Query().Get("conferenceDataVersion") != "1" {
				t.Errorf("missing conferenceDataVersion: %s", r.URL.RawQuery)
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{
				"id":          "evt1",
				"hangoutLink": "https://meet.google.com/abc-defg-hij",
			})
		case r.Method == http.MethodDelete && r.URL.Path == "/calendar/v3/calendars/primary/events/evt1":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := &Client{oauth: &oauth2.Config{}, endpoint: srv.URL + "/calendar/v3/"}
	links := c.MeetLinks(&oauth2.Token{AccessToken: "abc", TokenType: "Bearer"}, "UTC")

	ctx := context.Background()
	link, release, err := links.MeetingLink(ctx, pendingMeeting(t))
	if err != nil {
		t.Fatalf("MeetingLink failed: %v", err)
	}
	if link != "https://meet.google.com/abc-defg-hij" || release == nil {
		t.Fatalf("unexpected link %q (release nil: %v)", link, release == nil)
	}
	if err := release(ctx); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{
		"POST /calendar/v3/calendars/primary/events",
		"DELETE /calendar/v3/calendars/primary/events/evt1",
	}
	if len(requests) != len(want) || requests[0] != want[0] || requests[1] != want[1] {
		t.Fatalf("requests = %v, want %v", requests, want)
	}
}
