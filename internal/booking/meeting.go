package booking

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state of a Meeting.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no-show"
)

var statusLabels = map[Status]string{
	StatusPending:   "Pending Approval",
	StatusConfirmed: "Confirmed",
	StatusCompleted: "Completed",
	StatusCancelled: "Cancelled",
	StatusNoShow:    "No Show",
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

func (s Status) Label() string { return statusLabels[s] }

// Action is a lifecycle event applied to a Meeting.
type Action string

const (
	ActionApprove  Action = "approve"
	ActionDecline  Action = "decline"
	ActionComplete Action = "complete"
	ActionNoShow   Action = "no-show"
	ActionCancel   Action = "cancel"
)

var meetingTransitions = map[Status]map[Action]Status{
	StatusPending: {
		ActionApprove: StatusConfirmed,
		ActionDecline: StatusCancelled,
	},
	StatusConfirmed: {
		ActionComplete: StatusCompleted,
		ActionNoShow:   StatusNoShow,
		ActionCancel:   StatusCancelled,
	},
}

// NextStatus looks up the target status of action from the transition table.
func NextStatus(from Status, action Action) (Status, bool) {
	to, ok := meetingTransitions[from][action]
	return to, ok
}

// Meeting is a scheduled session between a mentor and a mentee. Its status
// is only changed by Manager.
type Meeting struct {
	ID              string      `json:"id"`
	MentorID        string      `json:"mentor_id"`
	MenteeID        string      `json:"mentee_id"`
	ServiceType     ServiceType `json:"service_type"`
	ScheduledDate   time.Time   `json:"scheduled_date"`
	ScheduledTime   string      `json:"scheduled_time"`
	DurationMinutes int         `json:"duration_minutes"`
	MeetingLink     string      `json:"meeting_link,omitempty"`
	Location        string      `json:"location,omitempty"`
	MenteeNotes     string      `json:"mentee_notes,omitempty"`
	MentorNotes     string      `json:"mentor_notes,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
	CancelledAt     *time.Time  `json:"cancelled_at,omitempty"`
	Version         int64       `json:"version"`

	status Status
}

func (m Meeting) Status() Status { return m.status }

// RestoreMeeting attaches a stored status to a meeting read back from a
// repository.
func RestoreMeeting(m Meeting, status Status) (Meeting, error) {
	if !status.Valid() {
		return Meeting{}, fmt.Errorf("unknown meeting status %q", status)
	}
	m.status = status
	return m, nil
}

type meetingAlias Meeting

type meetingJSON struct {
	meetingAlias
	Status      Status `json:"status"`
	StatusLabel string `json:"status_label,omitempty"`
}

func (m Meeting) MarshalJSON() ([]byte, error) {
	return json.Marshal(meetingJSON{meetingAlias: meetingAlias(m), Status: m.status, StatusLabel: m.status.Label()})
}

func (m *Meeting) UnmarshalJSON(data []byte) error {
	var aux meetingJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	restored, err := RestoreMeeting(Meeting(aux.meetingAlias), aux.Status)
	if err != nil {
		return err
	}
	*m = restored
	return nil
}
