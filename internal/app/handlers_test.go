package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"mentorship-service/internal/auth"
	"mentorship-service/internal/booking"
	"mentorship-service/internal/events"
	"mentorship-service/internal/store/memory"
)

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, ev.Type)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type testEnv struct {
	router *gin.Engine
	events *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authn, err := auth.New("", "mentor-token:mentor:mentor-1,mentee-token:mentee:mentee-1,other-token:mentor:mentor-2")
	if err != nil {
		t.Fatalf("auth.New failed: %v", err)
	}
	pub := &recordingPublisher{}
	a := &App{
		Service: booking.NewService(memory.New(), booking.NewManager()),
		Events:  pub,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	router := gin.New()
	a.Routes(router, authn.Middleware(), nil)
	return &testEnv{router: router, events: pub}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func (e *testEnv) seedMentor(t *testing.T) {
	t.Helper()
	w := e.do(t, http.MethodPut, "/api/mentors/mentor-1", "mentor-token", gin.H{
		"first_name":       "Ada",
		"last_name":        "Lovelace",
		"email":            "ada@example.com",
		"industry":         "Software",
		"is_active":        true,
		"services_offered": []string{"initial-consultation", "resume-review"},
		"availability": gin.H{
			"monday": []gin.H{{"start_time": "09:00", "end_time": "10:30"}},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("seed mentor: %d %s", w.Code, w.Body.String())
	}
}

func TestBookApproveApproveAgain(t *testing.T) {
	env := newTestEnv(t)
	env.seedMentor(t)

	w := env.do(t, http.MethodPost, "/api/mentors/mentor-1/meetings", "mentee-token", gin.H{
		"service_type":   "initial-consultation",
		"scheduled_date": "2030-01-07",
		"scheduled_time": "09:30",
		"notes":          "career switch",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("book: %d %s", w.Code, w.Body.String())
	}
	var booked struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decode(t, w, &booked)
	if booked.Status != "pending" {
		t.Fatalf("expected pending, got %s", booked.Status)
	}

	w = env.do(t, http.MethodPost, "/api/meetings/"+booked.ID+"/approve", "mentee-token", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("mentee approve: %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/meetings/"+booked.ID+"/approve", "mentor-token", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", w.Code, w.Body.String())
	}
	var approved struct {
		Status      string `json:"status"`
		MeetingLink string `json:"meeting_link"`
	}
	decode(t, w, &approved)
	if approved.Status != "confirmed" || approved.MeetingLink == "" {
		t.Fatalf("unexpected approved meeting %s", w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/meetings/"+booked.ID+"/approve", "mentor-token", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("approve again: %d %s", w.Code, w.Body.String())
	}

	if len(env.events.types) != 2 || env.events.types[0] != "meeting.requested" || env.events.types[1] != "meeting.confirmed" {
		t.Fatalf("unexpected published events %v", env.events.types)
	}
}

func TestSlotsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedMentor(t)

	w := env.do(t, http.MethodGet, "/api/mentors/mentor-1/slots?date=2030-01-07", "mentee-token", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("slots: %d %s", w.Code, w.Body.String())
	}
	var body struct {
		Slots []string `json:"slots"`
	}
	decode(t, w, &body)
	if len(body.Slots) != 3 || body.Slots[0] != "09:00" || body.Slots[2] != "10:00" {
		t.Fatalf("unexpected slots %v", body.Slots)
	}

	w = env.do(t, http.MethodGet, "/api/mentors/mentor-1/slots?date=2030-01-08", "mentee-token", nil)
	decode(t, w, &body)
	if w.Code != http.StatusOK || body.Slots == nil || len(body.Slots) != 0 {
		t.Fatalf("tuesday: %d %s", w.Code, w.Body.String())
	}

	for _, q := range []string{"", "?date=07-01-2030"} {
		w = env.do(t, http.MethodGet, "/api/mentors/mentor-1/slots"+q, "mentee-token", nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("slots%s: expected 400, got %d", q, w.Code)
		}
	}

	w = env.do(t, http.MethodGet, "/api/mentors/nobody/slots?date=2030-01-07", "mentee-token", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown mentor: expected 404, got %d", w.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	env.seedMentor(t)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"no token", http.MethodGet, "/api/mentors", "", nil, http.StatusUnauthorized},
		{"outside availability", http.MethodPost, "/api/mentors/mentor-1/meetings", "mentee-token",
			gin.H{"scheduled_date": "2030-01-07", "scheduled_time": "12:00"}, http.StatusBadRequest},
		{"missing fields", http.MethodPost, "/api/mentors/mentor-1/meetings", "mentee-token", gin.H{}, http.StatusBadRequest},
		{"mentor books", http.MethodPost, "/api/mentors/mentor-1/meetings", "mentor-token",
			gin.H{"scheduled_date": "2030-01-07", "scheduled_time": "09:00"}, http.StatusForbidden},
		{"other mentor profile", http.MethodPut, "/api/mentors/mentor-1", "other-token",
			gin.H{"first_name": "X", "last_name": "Y"}, http.StatusForbidden},
		{"missing meeting", http.MethodPost, "/api/meetings/nope/decline", "mentor-token", nil, http.StatusNotFound},
		{"bad as_of", http.MethodGet, "/api/dashboard?as_of=soon", "mentor-token", nil, http.StatusBadRequest},
		{"calendar not configured", http.MethodGet, "/api/calendar/calendars", "mentor-token", nil, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		w := env.do(t, tc.method, tc.path, tc.token, tc.body)
		if w.Code != tc.want {
			t.Fatalf("%s: status %d, want %d (%s)", tc.name, w.Code, tc.want, w.Body.String())
		}
	}
}

func TestServiceRequestEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.seedMentor(t)

	w := env.do(t, http.MethodPost, "/api/mentors/mentor-1/service-requests", "mentee-token", gin.H{
		"type":    "resume-review",
		"details": gin.H{"resume_url": "https://example.com/cv.pdf", "target_roles": []string{"Staff Engineer"}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("request service: %d %s", w.Code, w.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	decode(t, w, &created)

	w = env.do(t, http.MethodPost, "/api/service-requests/"+created.ID+"/start", "mentor-token", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("start pending: expected 409, got %d", w.Code)
	}
	for _, step := range []string{"approve", "start"} {
		w = env.do(t, http.MethodPost, "/api/service-requests/"+created.ID+"/"+step, "mentor-token", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: %d %s", step, w.Code, w.Body.String())
		}
	}
	w = env.do(t, http.MethodPost, "/api/service-requests/"+created.ID+"/complete", "mentor-token", gin.H{"feedback": "lead with impact"})
	if w.Code != http.StatusOK {
		t.Fatalf("complete: %d %s", w.Code, w.Body.String())
	}
	var done struct {
		Status  string `json:"status"`
		Details struct {
			Feedback string `json:"feedback"`
		} `json:"details"`
	}
	decode(t, w, &done)
	if done.Status != "completed" || done.Details.Feedback != "lead with impact" {
		t.Fatalf("unexpected completed request %s", w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/service-requests", "mentee-token", nil)
	var list struct {
		Count int `json:"count"`
	}
	decode(t, w, &list)
	if w.Code != http.StatusOK || list.Count != 1 {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/mentors/mentor-1/service-requests", "mentee-token", gin.H{
		"type":    "initial-consultation",
		"details": gin.H{},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("calendar service as request: expected 400, got %d", w.Code)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedMentor(t)

	for _, clock := range []string{"09:00", "10:00"} {
		w := env.do(t, http.MethodPost, "/api/mentors/mentor-1/meetings", "mentee-token", gin.H{
			"scheduled_date": "2030-01-07", "scheduled_time": clock,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("book %s: %d %s", clock, w.Code, w.Body.String())
		}
	}

	w := env.do(t, http.MethodGet, "/api/dashboard?as_of=2030-01-08", "mentor-token", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard: %d %s", w.Code, w.Body.String())
	}
	var d struct {
		Pending []json.RawMessage `json:"pending"`
		Past    []json.RawMessage `json:"past"`
		Stats   struct {
			Pending int `json:"pending"`
		} `json:"stats"`
	}
	decode(t, w, &d)
	if len(d.Pending) != 2 || len(d.Past) != 2 || d.Stats.Pending != 2 {
		t.Fatalf("unexpected dashboard %s", w.Body.String())
	}
}

func TestApproveSecondMeetingInSameSlot(t *testing.T) {
	env := newTestEnv(t)
	env.seedMentor(t)

	var ids []string
	for i := 0; i < 2; i++ {
		w := env.do(t, http.MethodPost, "/api/mentors/mentor-1/meetings", "mentee-token", gin.H{
			"scheduled_date": "2030-01-07", "scheduled_time": "09:00",
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("book %d: %d %s", i, w.Code, w.Body.String())
		}
		var m struct {
			ID string `json:"id"`
		}
		decode(t, w, &m)
		ids = append(ids, m.ID)
	}

	if w := env.do(t, http.MethodPost, "/api/meetings/"+ids[0]+"/approve", "mentor-token", nil); w.Code != http.StatusOK {
		t.Fatalf("first approve: %d %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodPost, "/api/meetings/"+ids[1]+"/approve", "mentor-token", nil); w.Code != http.StatusConflict {
		t.Fatalf("second approve: expected 409, got %d %s", w.Code, w.Body.String())
	}
}

func TestServicesCatalog(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/services", "mentee-token", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("services: %d %s", w.Code, w.Body.String())
	}
	var body struct {
		Services []struct {
			Type        string `json:"type"`
			Label       string `json:"label"`
			Description string `json:"description"`
		} `json:"services"`
		Count int `json:"count"`
	}
	decode(t, w, &body)
	if body.Count != 5 || body.Services[2].Type != "resume-review" || body.Services[2].Label != "Resume Review" {
		t.Fatalf("unexpected catalog %s", w.Body.String())
	}
}

func TestMenteeProfile(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/mentees/mentee-1", "mentee-token", gin.H{
		"first_name":   "Grace",
		"last_name":    "Hopper",
		"email":        "grace@example.com",
		"career_goals": "move into engineering management",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("save mentee: %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/mentees/mentee-1", "mentor-token", nil)
	var m struct {
		ID          string `json:"id"`
		CareerGoals string `json:"career_goals"`
	}
	decode(t, w, &m)
	if w.Code != http.StatusOK || m.ID != "mentee-1" || m.CareerGoals == "" {
		t.Fatalf("get mentee: %d %s", w.Code, w.Body.String())
	}

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"mentor edits mentee", http.MethodPut, "/api/mentees/mentee-1", "mentor-token", gin.H{"first_name": "X", "last_name": "Y"}, http.StatusForbidden},
		{"missing names", http.MethodPut, "/api/mentees/mentee-1", "mentee-token", gin.H{"first_name": "Grace"}, http.StatusBadRequest},
		{"unknown mentee", http.MethodGet, "/api/mentees/nobody", "mentor-token", nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		if w := env.do(t, tc.method, tc.path, tc.token, tc.body); w.Code != tc.want {
			t.Fatalf("%s: status %d, want %d (%s)", tc.name, w.Code, tc.want, w.Body.String())
		}
	}
}

func TestServiceRequestDecline(t *testing.T) {
	env := newTestEnv(t)
	env.seedMentor(t)

	w := env.do(t, http.MethodPost, "/api/mentors/mentor-1/service-requests", "mentee-token", gin.H{
		"type":    "resume-review",
		"details": gin.H{"resume_url": "https://example.com/cv.pdf"},
	})
	var created struct {
		ID string `json:"id"`
	}
	decode(t, w, &created)

	w = env.do(t, http.MethodPost, "/api/service-requests/"+created.ID+"/decline", "mentor-token", nil)
	var declined struct {
		Status      string `json:"status"`
		StatusLabel string `json:"status_label"`
	}
	decode(t, w, &declined)
	if w.Code != http.StatusOK || declined.Status != "declined" || declined.StatusLabel != "Declined" {
		t.Fatalf("decline: %d %s", w.Code, w.Body.String())
	}
	if len(env.events.types) != 2 || env.events.types[1] != "service_request.declined" {
		t.Fatalf("unexpected published events %v", env.events.types)
	}
}
