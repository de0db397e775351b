package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"mentorship-service/internal/availability"
)

// Service runs lifecycle operations against a Repository on behalf of an
// explicit caller Session.
type Service struct {
	repo    Repository
	manager *Manager
}

func NewService(repo Repository, manager *Manager) *Service {
	if manager == nil {
		manager = NewManager()
	}
	return &Service{repo: repo, manager: manager}
}

type BookRequest struct {
	MentorID    string
	ServiceType ServiceType
	Date        time.Time
	Time        string
	Notes       string
}

// BookMeeting creates a pending meeting for the calling mentee. The
// requested time must be one of the mentor's derived slots for the date.
func (s *Service) BookMeeting(ctx context.Context, sess Session, req BookRequest) (Meeting, error) {
	if sess.Role != RoleMentee || sess.UserID == "" {
		return Meeting{}, ErrForbidden
	}
	if req.ServiceType == "" {
		req.ServiceType = ServiceInitialConsultation
	}

	mentor, err := s.repo.GetMentor(ctx, req.MentorID)
	if err != nil {
		return Meeting{}, err
	}
	if !mentor.IsActive {
		return Meeting{}, &ValidationError{Field: "mentor_id", Reason: "mentor is not accepting new mentees"}
	}
	if !mentor.Offers(req.ServiceType) {
		return Meeting{}, &ValidationError{Field: "service_type", Reason: fmt.Sprintf("mentor does not offer %s", req.ServiceType)}
	}

	m, err := s.manager.Book(mentor.ID, sess.UserID, req.ServiceType, req.Date, req.Time, req.Notes)
	if err != nil {
		return Meeting{}, err
	}

	ok, err := availability.Contains(mentor.Availability, req.Date, req.Time)
	if err != nil {
		return Meeting{}, &ValidationError{Field: "availability", Reason: err.Error()}
	}
	if !ok {
		return Meeting{}, &ValidationError{Field: "scheduled_time", Reason: "not an available slot"}
	}

	if err := s.checkSlotFree(ctx, m); err != nil {
		return Meeting{}, err
	}
	return s.repo.SaveMeeting(ctx, m, 0)
}

// checkSlotFree fails with ErrSlotTaken when another meeting of the same
// mentor is already confirmed at m's date and time.
func (s *Service) checkSlotFree(ctx context.Context, m Meeting) error {
	existing, err := s.repo.MeetingsForMentor(ctx, m.MentorID)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.ID == m.ID || e.Status() != StatusConfirmed {
			continue
		}
		if e.ScheduledDate.Equal(m.ScheduledDate) && e.ScheduledTime == m.ScheduledTime {
			return ErrSlotTaken
		}
	}
	return nil
}

// Meeting returns a meeting the caller takes part in.
func (s *Service) Meeting(ctx context.Context, sess Session, id string) (Meeting, error) {
	m, err := s.repo.GetMeeting(ctx, id)
	if err != nil {
		return Meeting{}, err
	}
	if !participant(sess, m.MentorID, m.MenteeID) {
		return Meeting{}, ErrForbidden
	}
	return m, nil
}

// ApproveMeeting confirms a pending meeting. links may be nil, in which
// case a placeholder link is generated. Only one meeting per mentor slot
// can be confirmed.
func (s *Service) ApproveMeeting(ctx context.Context, sess Session, id string, links LinkProvider) (Meeting, error) {
	m, err := s.mentorMeeting(ctx, sess, id)
	if err != nil {
		return Meeting{}, err
	}
	if !s.manager.Can(m, ActionApprove) {
		return Meeting{}, &InvalidTransitionError{From: string(m.Status()), Action: string(ActionApprove)}
	}
	if err := s.checkSlotFree(ctx, m); err != nil {
		return Meeting{}, err
	}

	var (
		link    string
		release func(context.Context) error
	)
	if links != nil {
		if link, release, err = links.MeetingLink(ctx, m); err != nil {
			return Meeting{}, fmt.Errorf("meeting link: %w", err)
		}
	}
	next, err := s.manager.Approve(m, link)
	if err == nil {
		next, err = s.repo.SaveMeeting(ctx, next, m.Version)
	}
	if err != nil {
		if release != nil {
			if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
				err = errors.Join(err, fmt.Errorf("release meeting link: %w", rerr))
			}
		}
		return Meeting{}, err
	}
	return next, nil
}

func (s *Service) DeclineMeeting(ctx context.Context, sess Session, id string) (Meeting, error) {
	m, err := s.mentorMeeting(ctx, sess, id)
	if err != nil {
		return Meeting{}, err
	}
	next, err := s.manager.Decline(m)
	if err != nil {
		return Meeting{}, err
	}
	return s.repo.SaveMeeting(ctx, next, m.Version)
}

func (s *Service) CompleteMeeting(ctx context.Context, sess Session, id, mentorNotes string) (Meeting, error) {
	m, err := s.mentorMeeting(ctx, sess, id)
	if err != nil {
		return Meeting{}, err
	}
	next, err := s.manager.Complete(m, mentorNotes)
	if err != nil {
		return Meeting{}, err
	}
	return s.repo.SaveMeeting(ctx, next, m.Version)
}

func (s *Service) MarkNoShow(ctx context.Context, sess Session, id string) (Meeting, error) {
	m, err := s.mentorMeeting(ctx, sess, id)
	if err != nil {
		return Meeting{}, err
	}
	next, err := s.manager.MarkNoShow(m)
	if err != nil {
		return Meeting{}, err
	}
	return s.repo.SaveMeeting(ctx, next, m.Version)
}

// CancelMeeting cancels a confirmed meeting; either participant may do so.
func (s *Service) CancelMeeting(ctx context.Context, sess Session, id string) (Meeting, error) {
	m, err := s.Meeting(ctx, sess, id)
	if err != nil {
		return Meeting{}, err
	}
	next, err := s.manager.Cancel(m)
	if err != nil {
		return Meeting{}, err
	}
	return s.repo.SaveMeeting(ctx, next, m.Version)
}

// Dashboard classifies the caller's meetings as of the given date.
func (s *Service) Dashboard(ctx context.Context, sess Session, asOf time.Time) (Dashboard, error) {
	var (
		meetings []Meeting
		err      error
	)
	switch sess.Role {
	case RoleMentor:
		meetings, err = s.repo.MeetingsForMentor(ctx, sess.UserID)
	case RoleMentee:
		meetings, err = s.repo.MeetingsForMentee(ctx, sess.UserID)
	default:
		return Dashboard{}, ErrForbidden
	}
	if err != nil {
		return Dashboard{}, err
	}
	return Classify(meetings, asOf), nil
}

func (s *Service) mentorMeeting(ctx context.Context, sess Session, id string) (Meeting, error) {
	m, err := s.repo.GetMeeting(ctx, id)
	if err != nil {
		return Meeting{}, err
	}
	if sess.Role != RoleMentor || m.MentorID != sess.UserID {
		return Meeting{}, ErrForbidden
	}
	return m, nil
}

// RequestService creates a pending service request from the calling mentee.
func (s *Service) RequestService(ctx context.Context, sess Session, mentorID string, details ServiceDetails) (ServiceRequest, error) {
	if sess.Role != RoleMentee || sess.UserID == "" {
		return ServiceRequest{}, ErrForbidden
	}
	details, err := plainDetails(details)
	if err != nil {
		return ServiceRequest{}, err
	}
	mentor, err := s.repo.GetMentor(ctx, mentorID)
	if err != nil {
		return ServiceRequest{}, err
	}
	if !mentor.IsActive {
		return ServiceRequest{}, &ValidationError{Field: "mentor_id", Reason: "mentor is not accepting new mentees"}
	}
	if !mentor.Offers(details.Type()) {
		return ServiceRequest{}, &ValidationError{Field: "type", Reason: fmt.Sprintf("mentor does not offer %s", details.Type())}
	}

	r, err := s.manager.NewServiceRequest(mentor.ID, sess.UserID, details)
	if err != nil {
		return ServiceRequest{}, err
	}
	return s.repo.SaveServiceRequest(ctx, r, 0)
}

func (s *Service) ServiceRequests(ctx context.Context, sess Session) ([]ServiceRequest, error) {
	var (
		reqs []ServiceRequest
		err  error
	)
	switch sess.Role {
	case RoleMentor:
		reqs, err = s.repo.ServiceRequestsForMentor(ctx, sess.UserID)
	case RoleMentee:
		reqs, err = s.repo.ServiceRequestsForMentee(ctx, sess.UserID)
	default:
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, err
	}
	sort.SliceStable(reqs, func(i, j int) bool {
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
	return reqs, nil
}

// transitionServiceRequest applies a mentor action to one of their requests.
func (s *Service) transitionServiceRequest(ctx context.Context, sess Session, id string, action RequestAction, feedback string) (ServiceRequest, error) {
	r, err := s.repo.GetServiceRequest(ctx, id)
	if err != nil {
		return ServiceRequest{}, err
	}
	if sess.Role != RoleMentor || r.MentorID != sess.UserID {
		return ServiceRequest{}, ErrForbidden
	}
	next, err := s.manager.ApplyRequest(r, action, feedback)
	if err != nil {
		return ServiceRequest{}, err
	}
	return s.repo.SaveServiceRequest(ctx, next, r.Version)
}

func (s *Service) ApproveServiceRequest(ctx context.Context, sess Session, id string) (ServiceRequest, error) {
	return s.transitionServiceRequest(ctx, sess, id, RequestActionApprove, "")
}

func (s *Service) DeclineServiceRequest(ctx context.Context, sess Session, id string) (ServiceRequest, error) {
	return s.transitionServiceRequest(ctx, sess, id, RequestActionDecline, "")
}

func (s *Service) StartServiceRequest(ctx context.Context, sess Session, id string) (ServiceRequest, error) {
	return s.transitionServiceRequest(ctx, sess, id, RequestActionStart, "")
}

// CompleteServiceRequest finishes a request; feedback is kept for resume
// reviews and mock interviews.
func (s *Service) CompleteServiceRequest(ctx context.Context, sess Session, id, feedback string) (ServiceRequest, error) {
	return s.transitionServiceRequest(ctx, sess, id, RequestActionComplete, feedback)
}

func (s *Service) Mentor(ctx context.Context, id string) (Mentor, error) {
	return s.repo.GetMentor(ctx, id)
}

type MentorFilter struct {
	Industry string
	Service  ServiceType
}

// ListMentors returns active mentors matching the filter, ordered by name.
func (s *Service) ListMentors(ctx context.Context, f MentorFilter) ([]Mentor, error) {
	all, err := s.repo.ListMentors(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Mentor, 0, len(all))
	for _, m := range all {
		if !m.IsActive {
			continue
		}
		if f.Industry != "" && !strings.EqualFold(m.Industry, f.Industry) {
			continue
		}
		if f.Service != "" && !m.Offers(f.Service) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

// SaveMentor creates or replaces the caller's own mentor profile.
func (s *Service) SaveMentor(ctx context.Context, sess Session, m Mentor) (Mentor, error) {
	if sess.Role != RoleMentor || sess.UserID == "" || m.ID != sess.UserID {
		return Mentor{}, ErrForbidden
	}
	if strings.TrimSpace(m.FirstName) == "" || strings.TrimSpace(m.LastName) == "" {
		return Mentor{}, &ValidationError{Field: "name", Reason: "first and last name are required"}
	}
	for _, st := range m.ServicesOffered {
		if !st.Valid() {
			return Mentor{}, &ValidationError{Field: "services_offered", Reason: "unknown service type " + string(st)}
		}
	}
	if err := availability.Validate(m.Availability); err != nil {
		return Mentor{}, &ValidationError{Field: "availability", Reason: err.Error()}
	}

	now := s.manager.timestamp()
	m.CreatedAt = now
	if existing, err := s.repo.GetMentor(ctx, m.ID); err == nil {
		m.CreatedAt = existing.CreatedAt
	} else if !IsNotFound(err) {
		return Mentor{}, err
	}
	m.UpdatedAt = now
	if err := s.repo.SaveMentor(ctx, m); err != nil {
		return Mentor{}, err
	}
	return m, nil
}

// Mentee returns a mentee profile to the mentee themself or to a mentor.
func (s *Service) Mentee(ctx context.Context, sess Session, id string) (Mentee, error) {
	if sess.Role != RoleMentor && !(sess.Role == RoleMentee && sess.UserID == id) {
		return Mentee{}, ErrForbidden
	}
	return s.repo.GetMentee(ctx, id)
}

// SaveMentee creates or replaces the caller's own mentee profile.
func (s *Service) SaveMentee(ctx context.Context, sess Session, m Mentee) (Mentee, error) {
	if sess.Role != RoleMentee || sess.UserID == "" || m.ID != sess.UserID {
		return Mentee{}, ErrForbidden
	}
	if strings.TrimSpace(m.FirstName) == "" || strings.TrimSpace(m.LastName) == "" {
		return Mentee{}, &ValidationError{Field: "name", Reason: "first and last name are required"}
	}

	now := s.manager.timestamp()
	m.CreatedAt = now
	if existing, err := s.repo.GetMentee(ctx, m.ID); err == nil {
		m.CreatedAt = existing.CreatedAt
	} else if !IsNotFound(err) {
		return Mentee{}, err
	}
	m.UpdatedAt = now
	if err := s.repo.SaveMentee(ctx, m); err != nil {
		return Mentee{}, err
	}
	return m, nil
}

// SetAvailability replaces the caller's weekly availability.
func (s *Service) SetAvailability(ctx context.Context, sess Session, mentorID string, av availability.WeeklyAvailability) (Mentor, error) {
	if sess.Role != RoleMentor || mentorID != sess.UserID {
		return Mentor{}, ErrForbidden
	}
	if err := availability.Validate(av); err != nil {
		return Mentor{}, &ValidationError{Field: "availability", Reason: err.Error()}
	}
	m, err := s.repo.GetMentor(ctx, mentorID)
	if err != nil {
		return Mentor{}, err
	}
	m.Availability = av
	m.UpdatedAt = s.manager.timestamp()
	if err := s.repo.SaveMentor(ctx, m); err != nil {
		return Mentor{}, err
	}
	return m, nil
}

// Slots derives the bookable start times of a mentor for date.
func (s *Service) Slots(ctx context.Context, mentorID string, date time.Time) ([]string, error) {
	m, err := s.repo.GetMentor(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	slots, err := availability.DeriveSlots(m.Availability, date)
	if err != nil {
		return nil, &ValidationError{Field: "availability", Reason: err.Error()}
	}
	return slots, nil
}

func participant(sess Session, mentorID, menteeID string) bool {
	switch sess.Role {
	case RoleMentor:
		return sess.UserID == mentorID
	case RoleMentee:
		return sess.UserID == menteeID
	}
	return false
}
