// Package events publishes meeting and service request lifecycle changes.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"mentorship-service/internal/booking"
)

// Event is one lifecycle change. Type doubles as the Kafka topic.
type Event struct {
	ID          string          `json:"event_id"`
	Type        string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Data        json.RawMessage `json:"data"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

var meetingTypes = map[booking.Status]string{
	booking.StatusPending:   "meeting.requested",
	booking.StatusConfirmed: "meeting.confirmed",
	booking.StatusCompleted: "meeting.completed",
	booking.StatusCancelled: "meeting.cancelled",
	booking.StatusNoShow:    "meeting.no_show",
}

// MeetingEvent describes m after its latest change.
func MeetingEvent(m booking.Meeting) (Event, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:          uuid.NewString(),
		Type:        meetingTypes[m.Status()],
		AggregateID: m.ID,
		OccurredAt:  m.UpdatedAt,
		Data:        data,
	}, nil
}

// RequestEvent describes r after its latest change.
func RequestEvent(r booking.ServiceRequest) (Event, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:          uuid.NewString(),
		Type:        "service_request." + strings.ReplaceAll(string(r.Status()), "-", "_"),
		AggregateID: r.ID,
		OccurredAt:  r.UpdatedAt,
		Data:        data,
	}, nil
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
