// Package memory is an in-process booking.Repository used for local runs
// and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"mentorship-service/internal/booking"
)

type Store struct {
	mu       sync.RWMutex
	mentors  map[string]booking.Mentor
	mentees  map[string]booking.Mentee
	meetings map[string]booking.Meeting
	requests map[string]booking.ServiceRequest
}

func New() *Store {
	return &Store{
		mentors:  make(map[string]booking.Mentor),
		mentees:  make(map[string]booking.Mentee),
		meetings: make(map[string]booking.Meeting),
		requests: make(map[string]booking.ServiceRequest),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) GetMentor(_ context.Context, id string) (booking.Mentor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mentors[id]
	if !ok {
		return booking.Mentor{}, booking.ErrNotFound
	}
	return m, nil
}

func (s *Store) ListMentors(context.Context) ([]booking.Mentor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]booking.Mentor, 0, len(s.mentors))
	for _, m := range s.mentors {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveMentor(_ context.Context, m booking.Mentor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mentors[m.ID] = m
	return nil
}

func (s *Store) GetMentee(_ context.Context, id string) (booking.Mentee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mentees[id]
	if !ok {
		return booking.Mentee{}, booking.ErrNotFound
	}
	return m, nil
}

func (s *Store) SaveMentee(_ context.Context, m booking.Mentee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mentees[m.ID] = m
	return nil
}

func (s *Store) GetMeeting(_ context.Context, id string) (booking.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meetings[id]
	if !ok {
		return booking.Meeting{}, booking.ErrNotFound
	}
	return m, nil
}

func (s *Store) MeetingsForMentor(_ context.Context, mentorID string) ([]booking.Meeting, error) {
	return s.meetingsWhere(func(m booking.Meeting) bool { return m.MentorID == mentorID }), nil
}

func (s *Store) MeetingsForMentee(_ context.Context, menteeID string) ([]booking.Meeting, error) {
	return s.meetingsWhere(func(m booking.Meeting) bool { return m.MenteeID == menteeID }), nil
}

func (s *Store) meetingsWhere(keep func(booking.Meeting) bool) []booking.Meeting {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []booking.Meeting{}
	for _, m := range s.meetings {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) SaveMeeting(_ context.Context, m booking.Meeting, expectedVersion int64) (booking.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meetings[m.ID].Version != expectedVersion {
		return booking.Meeting{}, &booking.PersistenceError{Op: "save meeting " + m.ID, Err: booking.ErrConflict}
	}
	m.Version = expectedVersion + 1
	s.meetings[m.ID] = m
	return m, nil
}

func (s *Store) GetServiceRequest(_ context.Context, id string) (booking.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return booking.ServiceRequest{}, booking.ErrNotFound
	}
	return r, nil
}

func (s *Store) ServiceRequestsForMentor(_ context.Context, mentorID string) ([]booking.ServiceRequest, error) {
	return s.requestsWhere(func(r booking.ServiceRequest) bool { return r.MentorID == mentorID }), nil
}

func (s *Store) ServiceRequestsForMentee(_ context.Context, menteeID string) ([]booking.ServiceRequest, error) {
	return s.requestsWhere(func(r booking.ServiceRequest) bool { return r.MenteeID == menteeID }), nil
}

func (s *Store) requestsWhere(keep func(booking.ServiceRequest) bool) []booking.ServiceRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []booking.ServiceRequest{}
	for _, r := range s.requests {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) SaveServiceRequest(_ context.Context, r booking.ServiceRequest, expectedVersion int64) (booking.ServiceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requests[r.ID].Version != expectedVersion {
		return booking.ServiceRequest{}, &booking.PersistenceError{Op: "save service request " + r.ID, Err: booking.ErrConflict}
	}
	r.Version = expectedVersion + 1
	s.requests[r.ID] = r
	return r, nil
}
