// Package firebase stores profiles, meetings and service requests in the
// Firebase Realtime Database.
//
// Participant queries order by the mentor_id and mentee_id children, so the
// database rules need ".indexOn": ["mentor_id", "mentee_id"] under both
// meetings and service_requests.
package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"

	"mentorship-service/internal/booking"
)

const (
	mentorsPath  = "mentors"
	menteesPath  = "mentees"
	meetingsPath = "meetings"
	requestsPath = "service_requests"
)

type Store struct {
	client *db.Client
}

// New connects to the database at dbURL. An empty credFile falls back to
// application default credentials.
func New(ctx context.Context, credFile, dbURL string) (*Store, error) {
	var opts []option.ClientOption
	if credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}
	conf := &firebase.Config{DatabaseURL: dbURL}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase db: %w", err)
	}
	return &Store{client: client}, nil
}

// Ping reads a shallow key to check connectivity.
func (s *Store) Ping(ctx context.Context) error {
	var v json.RawMessage
	return s.client.NewRef(mentorsPath).OrderByKey().LimitToFirst(1).Get(ctx, &v)
}

func (s *Store) GetMentor(ctx context.Context, id string) (booking.Mentor, error) {
	var m booking.Mentor
	if err := s.get(ctx, mentorsPath, id, &m); err != nil {
		return booking.Mentor{}, err
	}
	return m, nil
}

func (s *Store) ListMentors(ctx context.Context) ([]booking.Mentor, error) {
	var raw map[string]booking.Mentor
	if err := s.client.NewRef(mentorsPath).Get(ctx, &raw); err != nil {
		return nil, &booking.PersistenceError{Op: "list mentors", Err: err}
	}
	out := make([]booking.Mentor, 0, len(raw))
	for _, m := range raw {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveMentor(ctx context.Context, m booking.Mentor) error {
	if err := s.client.NewRef(mentorsPath).Child(m.ID).Set(ctx, m); err != nil {
		return &booking.PersistenceError{Op: "save mentor", Err: err}
	}
	return nil
}

func (s *Store) GetMentee(ctx context.Context, id string) (booking.Mentee, error) {
	var m booking.Mentee
	if err := s.get(ctx, menteesPath, id, &m); err != nil {
		return booking.Mentee{}, err
	}
	return m, nil
}

func (s *Store) SaveMentee(ctx context.Context, m booking.Mentee) error {
	if err := s.client.NewRef(menteesPath).Child(m.ID).Set(ctx, m); err != nil {
		return &booking.PersistenceError{Op: "save mentee", Err: err}
	}
	return nil
}

func (s *Store) GetMeeting(ctx context.Context, id string) (booking.Meeting, error) {
	var m booking.Meeting
	if err := s.get(ctx, meetingsPath, id, &m); err != nil {
		return booking.Meeting{}, err
	}
	return m, nil
}

func (s *Store) MeetingsForMentor(ctx context.Context, mentorID string) ([]booking.Meeting, error) {
	return s.meetingsBy(ctx, "mentor_id", mentorID)
}

func (s *Store) MeetingsForMentee(ctx context.Context, menteeID string) ([]booking.Meeting, error) {
	return s.meetingsBy(ctx, "mentee_id", menteeID)
}

func (s *Store) meetingsBy(ctx context.Context, child, id string) ([]booking.Meeting, error) {
	var raw map[string]booking.Meeting
	if err := s.client.NewRef(meetingsPath).OrderByChild(child).EqualTo(id).Get(ctx, &raw); err != nil {
		return nil, &booking.PersistenceError{Op: "list meetings", Err: err}
	}
	out := make([]booking.Meeting, 0, len(raw))
	for _, m := range raw {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) SaveMeeting(ctx context.Context, m booking.Meeting, expectedVersion int64) (booking.Meeting, error) {
	m.Version = expectedVersion + 1
	if err := s.putVersioned(ctx, meetingsPath, m.ID, m, expectedVersion); err != nil {
		return booking.Meeting{}, err
	}
	return m, nil
}

func (s *Store) GetServiceRequest(ctx context.Context, id string) (booking.ServiceRequest, error) {
	var r booking.ServiceRequest
	if err := s.get(ctx, requestsPath, id, &r); err != nil {
		return booking.ServiceRequest{}, err
	}
	return r, nil
}

func (s *Store) ServiceRequestsForMentor(ctx context.Context, mentorID string) ([]booking.ServiceRequest, error) {
	return s.requestsBy(ctx, "mentor_id", mentorID)
}

func (s *Store) ServiceRequestsForMentee(ctx context.Context, menteeID string) ([]booking.ServiceRequest, error) {
	return s.requestsBy(ctx, "mentee_id", menteeID)
}

func (s *Store) requestsBy(ctx context.Context, child, id string) ([]booking.ServiceRequest, error) {
	var raw map[string]booking.ServiceRequest
	if err := s.client.NewRef(requestsPath).OrderByChild(child).EqualTo(id).Get(ctx, &raw); err != nil {
		return nil, &booking.PersistenceError{Op: "list service requests", Err: err}
	}
	out := make([]booking.ServiceRequest, 0, len(raw))
	for _, r := range raw {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) SaveServiceRequest(ctx context.Context, r booking.ServiceRequest, expectedVersion int64) (booking.ServiceRequest, error) {
	r.Version = expectedVersion + 1
	if err := s.putVersioned(ctx, requestsPath, r.ID, r, expectedVersion); err != nil {
		return booking.ServiceRequest{}, err
	}
	return r, nil
}

// get decodes path/id into v. A null node is ErrNotFound.
func (s *Store) get(ctx context.Context, path, id string, v any) error {
	var raw json.RawMessage
	if err := s.client.NewRef(path).Child(id).Get(ctx, &raw); err != nil {
		return &booking.PersistenceError{Op: "get " + path, Err: err}
	}
	if isNull(raw) {
		return booking.ErrNotFound
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &booking.PersistenceError{Op: "decode " + path, Err: err}
	}
	return nil
}

// putVersioned writes v at path/id inside a transaction that aborts when the
// stored version is not expectedVersion.
func (s *Store) putVersioned(ctx context.Context, path, id string, v any, expectedVersion int64) error {
	err := s.client.NewRef(path).Child(id).Transaction(ctx, func(node db.TransactionNode) (interface{}, error) {
		var cur versioned
		if err := node.Unmarshal(&cur); err != nil {
			return nil, err
		}
		if err := checkVersion(cur, expectedVersion); err != nil {
			return nil, err
		}
		return v, nil
	})
	if errors.Is(err, booking.ErrConflict) {
		return &booking.PersistenceError{Op: "save " + path + "/" + id, Err: booking.ErrConflict}
	}
	if err != nil {
		return &booking.PersistenceError{Op: "save " + path, Err: err}
	}
	return nil
}

type versioned struct {
	Version int64 `json:"version"`
}

func checkVersion(cur versioned, expected int64) error {
	if cur.Version != expected {
		return booking.ErrConflict
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

var _ booking.Repository = (*Store)(nil)
