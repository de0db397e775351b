package booking

import "context"

// Repository is the storage collaborator. Lookups of missing records return
// ErrNotFound. Save methods take the version the caller read (0 for a new
// record) and fail with a PersistenceError wrapping ErrConflict when the
// stored version differs; on success the returned value carries the new
// version.
type Repository interface {
	GetMentor(ctx context.Context, id string) (Mentor, error)
	ListMentors(ctx context.Context) ([]Mentor, error)
	SaveMentor(ctx context.Context, m Mentor) error

	GetMentee(ctx context.Context, id string) (Mentee, error)
	SaveMentee(ctx context.Context, m Mentee) error

	GetMeeting(ctx context.Context, id string) (Meeting, error)
	MeetingsForMentor(ctx context.Context, mentorID string) ([]Meeting, error)
	MeetingsForMentee(ctx context.Context, menteeID string) ([]Meeting, error)
	SaveMeeting(ctx context.Context, m Meeting, expectedVersion int64) (Meeting, error)

	GetServiceRequest(ctx context.Context, id string) (ServiceRequest, error)
	ServiceRequestsForMentor(ctx context.Context, mentorID string) ([]ServiceRequest, error)
	ServiceRequestsForMentee(ctx context.Context, menteeID string) ([]ServiceRequest, error)
	SaveServiceRequest(ctx context.Context, r ServiceRequest, expectedVersion int64) (ServiceRequest, error)
}

// LinkProvider produces the join link for a meeting being approved. A
// non-nil release undoes whatever the provider created and is called when
// the approval cannot be saved.
type LinkProvider interface {
	MeetingLink(ctx context.Context, m Meeting) (link string, release func(context.Context) error, err error)
}
