package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"mentorship-service/internal/booking"
)

func TestMeetingEventTypeFollowsStatus(t *testing.T) {
	mg := booking.NewManager()
	m, err := mg.Book("mentor-1", "mentee-1", booking.ServiceCareerAdvice, time.Date(2030, 1, 7, 0, 0, 0, 0, time.UTC), "09:00", "")
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	ev, err := MeetingEvent(m)
	if err != nil {
		t.Fatalf("MeetingEvent failed: %v", err)
	}
	if ev.Type != "meeting.requested" || ev.AggregateID != m.ID || ev.ID == "" {
		t.Fatalf("unexpected event %+v", ev)
	}

	m, _ = mg.Approve(m, "")
	m, _ = mg.MarkNoShow(m)
	ev, _ = MeetingEvent(m)
	if ev.Type != "meeting.no_show" {
		t.Fatalf("expected meeting.no_show, got %s", ev.Type)
	}
	var data map[string]any
	if err := json.Unmarshal(ev.Data, &data); err != nil || data["status"] != "no-show" {
		t.Fatalf("unexpected payload %s (%v)", ev.Data, err)
	}
}

func TestRequestEventType(t *testing.T) {
	mg := booking.NewManager()
	r, err := mg.NewServiceRequest("mentor-1", "mentee-1", booking.CareerAdviceDetails{Topics: "negotiation"})
	if err != nil {
		t.Fatalf("NewServiceRequest failed: %v", err)
	}
	r, _ = mg.ApplyRequest(r, booking.RequestActionApprove, "")
	r, _ = mg.ApplyRequest(r, booking.RequestActionStart, "")
	ev, err := RequestEvent(r)
	if err != nil {
		t.Fatalf("RequestEvent failed: %v", err)
	}
	if ev.Type != "service_request.in_progress" {
		t.Fatalf("unexpected type %s", ev.Type)
	}
}

func TestMessageHeaders(t *testing.T) {
	ev := Event{ID: "ev-1", Type: "meeting.confirmed", AggregateID: "m-1", Data: json.RawMessage(`{}`)}
	msg, err := message(context.Background(), ev)
	if err != nil {
		t.Fatalf("message failed: %v", err)
	}
	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	if msg.Topic != "meeting.confirmed" || string(msg.Key) != "m-1" {
		t.Fatalf("unexpected message topic=%s key=%s", msg.Topic, msg.Key)
	}
	if headers["event_id"] != "ev-1" || headers["event_type"] != "meeting.confirmed" {
		t.Fatalf("unexpected headers %v", headers)
	}

	if _, err := message(context.Background(), Event{ID: "x"}); err == nil {
		t.Fatal("expected error for event without type")
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" a:9092, ,b:9092,")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
	if SplitBrokers("") != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestHeaderCarrierOverwrites(t *testing.T) {
	c := &headerCarrier{}
	c.Set("traceparent", "a")
	c.Set("traceparent", "b")
	if len(c.Keys()) != 1 || c.Get("traceparent") != "b" {
		t.Fatalf("unexpected carrier state %+v", c.headers)
	}
}
