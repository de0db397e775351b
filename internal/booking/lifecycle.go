package booking

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"mentorship-service/internal/availability"
)

const (
	DefaultDurationMinutes = availability.SlotMinutes
	placeholderLinkBase    = "https://meet.google.com/"
)

// Manager owns every Meeting and ServiceRequest status change. It does not
// persist anything; callers save the returned values.
type Manager struct {
	now   func() time.Time
	newID func() string
}

type ManagerOption func(*Manager)

func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func WithIDGenerator(newID func() string) ManagerOption {
	return func(m *Manager) { m.newID = newID }
}

func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Book creates a pending meeting request.
func (mg *Manager) Book(mentorID, menteeID string, st ServiceType, date time.Time, clock, notes string) (Meeting, error) {
	if strings.TrimSpace(mentorID) == "" {
		return Meeting{}, &ValidationError{Field: "mentor_id", Reason: "required"}
	}
	if strings.TrimSpace(menteeID) == "" {
		return Meeting{}, &ValidationError{Field: "mentee_id", Reason: "required"}
	}
	if !st.Valid() {
		return Meeting{}, &ValidationError{Field: "service_type", Reason: "unknown service type " + string(st)}
	}
	if date.IsZero() {
		return Meeting{}, &ValidationError{Field: "scheduled_date", Reason: "required"}
	}
	if _, err := availability.ParseClock(clock); err != nil {
		return Meeting{}, &ValidationError{Field: "scheduled_time", Reason: err.Error()}
	}

	now := mg.timestamp()
	return Meeting{
		ID:              mg.newID(),
		MentorID:        mentorID,
		MenteeID:        menteeID,
		ServiceType:     st,
		ScheduledDate:   dateOnly(date),
		ScheduledTime:   clock,
		DurationMinutes: DefaultDurationMinutes,
		MenteeNotes:     strings.TrimSpace(notes),
		CreatedAt:       now,
		UpdatedAt:       now,
		status:          StatusPending,
	}, nil
}

// Apply runs action against m and returns the updated copy. m itself is
// never modified.
func (mg *Manager) Apply(m Meeting, action Action) (Meeting, error) {
	return mg.apply(m, action, "", "")
}

// Approve confirms a pending meeting. An empty link is replaced by a
// generated placeholder.
func (mg *Manager) Approve(m Meeting, link string) (Meeting, error) {
	return mg.apply(m, ActionApprove, link, "")
}

func (mg *Manager) Decline(m Meeting) (Meeting, error) {
	return mg.apply(m, ActionDecline, "", "")
}

func (mg *Manager) Complete(m Meeting, mentorNotes string) (Meeting, error) {
	return mg.apply(m, ActionComplete, "", mentorNotes)
}

func (mg *Manager) MarkNoShow(m Meeting) (Meeting, error) {
	return mg.apply(m, ActionNoShow, "", "")
}

func (mg *Manager) Cancel(m Meeting) (Meeting, error) {
	return mg.apply(m, ActionCancel, "", "")
}

// Can reports whether action is allowed from m's current status.
func (mg *Manager) Can(m Meeting, action Action) bool {
	_, ok := NextStatus(m.status, action)
	return ok
}

func (mg *Manager) apply(m Meeting, action Action, link, notes string) (Meeting, error) {
	to, ok := NextStatus(m.status, action)
	if !ok {
		return Meeting{}, &InvalidTransitionError{From: string(m.status), Action: string(action)}
	}

	ts := mg.touch(m.UpdatedAt)
	next := m
	next.status = to
	next.UpdatedAt = ts

	switch action {
	case ActionApprove:
		if strings.TrimSpace(link) == "" {
			link = mg.placeholderLink()
		}
		next.MeetingLink = link
	case ActionDecline, ActionCancel:
		next.CancelledAt = &ts
	case ActionComplete:
		next.CompletedAt = &ts
		if notes = strings.TrimSpace(notes); notes != "" {
			next.MentorNotes = notes
		}
	}
	return next, nil
}

// timestamp is truncated to microseconds so it survives a Postgres round trip.
func (mg *Manager) timestamp() time.Time {
	return mg.now().UTC().Truncate(time.Microsecond)
}

// touch returns a timestamp strictly after prev.
func (mg *Manager) touch(prev time.Time) time.Time {
	now := mg.timestamp()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

func (mg *Manager) placeholderLink() string {
	code := strings.ReplaceAll(mg.newID(), "-", "")
	if len(code) < 10 {
		code += strings.Repeat("x", 10-len(code))
	}
	return placeholderLinkBase + code[0:3] + "-" + code[3:7] + "-" + code[7:10]
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
