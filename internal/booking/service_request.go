package booking

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestApproved   RequestStatus = "approved"
	RequestInProgress RequestStatus = "in-progress"
	RequestCompleted  RequestStatus = "completed"
	RequestDeclined   RequestStatus = "declined"
)

var requestStatusLabels = map[RequestStatus]string{
	RequestPending:    "Pending",
	RequestApproved:   "Approved",
	RequestInProgress: "In Progress",
	RequestCompleted:  "Completed",
	RequestDeclined:   "Declined",
}

func (s RequestStatus) Valid() bool {
	_, ok := requestStatusLabels[s]
	return ok
}

func (s RequestStatus) Label() string { return requestStatusLabels[s] }

type RequestAction string

const (
	RequestActionApprove  RequestAction = "approve"
	RequestActionDecline  RequestAction = "decline"
	RequestActionStart    RequestAction = "start"
	RequestActionComplete RequestAction = "complete"
)

var requestTransitions = map[RequestStatus]map[RequestAction]RequestStatus{
	RequestPending: {
		RequestActionApprove: RequestApproved,
		RequestActionDecline: RequestDeclined,
	},
	RequestApproved: {
		RequestActionStart: RequestInProgress,
	},
	RequestInProgress: {
		RequestActionComplete: RequestCompleted,
	},
}

func NextRequestStatus(from RequestStatus, action RequestAction) (RequestStatus, bool) {
	to, ok := requestTransitions[from][action]
	return to, ok
}

// ServiceDetails is the payload of a ServiceRequest. The concrete type
// decides the request's service type, so exactly one payload exists.
type ServiceDetails interface {
	Type() ServiceType
	validate() error
}

type ReferralDetails struct {
	TargetCompany       string     `json:"target_company"`
	TargetRole          string     `json:"target_role"`
	ApplicationDeadline *time.Time `json:"application_deadline,omitempty"`
}

func (ReferralDetails) Type() ServiceType { return ServiceReferralRequest }

func (d ReferralDetails) validate() error {
	if strings.TrimSpace(d.TargetCompany) == "" {
		return &ValidationError{Field: "details.target_company", Reason: "required"}
	}
	if strings.TrimSpace(d.TargetRole) == "" {
		return &ValidationError{Field: "details.target_role", Reason: "required"}
	}
	return nil
}

type ResumeReviewDetails struct {
	ResumeURL       string   `json:"resume_url"`
	TargetRoles     []string `json:"target_roles"`
	AdditionalNotes string   `json:"additional_notes,omitempty"`
	Feedback        string   `json:"feedback,omitempty"`
}

func (ResumeReviewDetails) Type() ServiceType { return ServiceResumeReview }

func (d ResumeReviewDetails) validate() error {
	if strings.TrimSpace(d.ResumeURL) == "" {
		return &ValidationError{Field: "details.resume_url", Reason: "required"}
	}
	return nil
}

type MockInterviewDetails struct {
	InterviewType   string   `json:"interview_type"`
	TargetRole      string   `json:"target_role"`
	FocusAreas      []string `json:"focus_areas"`
	AdditionalNotes string   `json:"additional_notes,omitempty"`
	Feedback        string   `json:"feedback,omitempty"`
}

func (MockInterviewDetails) Type() ServiceType { return ServiceMockInterview }

func (d MockInterviewDetails) validate() error {
	if strings.TrimSpace(d.InterviewType) == "" {
		return &ValidationError{Field: "details.interview_type", Reason: "required"}
	}
	if strings.TrimSpace(d.TargetRole) == "" {
		return &ValidationError{Field: "details.target_role", Reason: "required"}
	}
	return nil
}

type CareerAdviceDetails struct {
	Topics            string `json:"topics"`
	SpecificQuestions string `json:"specific_questions,omitempty"`
}

func (CareerAdviceDetails) Type() ServiceType { return ServiceCareerAdvice }

func (d CareerAdviceDetails) validate() error {
	if strings.TrimSpace(d.Topics) == "" {
		return &ValidationError{Field: "details.topics", Reason: "required"}
	}
	return nil
}

// DecodeDetails unmarshals raw into the payload type selected by t.
func DecodeDetails(t ServiceType, raw []byte) (ServiceDetails, error) {
	var (
		d   ServiceDetails
		err error
	)
	switch t {
	case ServiceReferralRequest:
		var v ReferralDetails
		err = json.Unmarshal(raw, &v)
		d = v
	case ServiceResumeReview:
		var v ResumeReviewDetails
		err = json.Unmarshal(raw, &v)
		d = v
	case ServiceMockInterview:
		var v MockInterviewDetails
		err = json.Unmarshal(raw, &v)
		d = v
	case ServiceCareerAdvice:
		var v CareerAdviceDetails
		err = json.Unmarshal(raw, &v)
		d = v
	default:
		return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("%q has no service request details", t)}
	}
	if err != nil {
		return nil, &ValidationError{Field: "details", Reason: err.Error()}
	}
	return d, nil
}

// ServiceRequest is a non-calendar deliverable requested by a mentee.
type ServiceRequest struct {
	ID          string
	MentorID    string
	MenteeID    string
	Details     ServiceDetails
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
	Version     int64

	status RequestStatus
}

func (r ServiceRequest) Status() RequestStatus { return r.status }

func (r ServiceRequest) Type() ServiceType {
	if r.Details == nil {
		return ""
	}
	return r.Details.Type()
}

func RestoreServiceRequest(r ServiceRequest, status RequestStatus) (ServiceRequest, error) {
	if !status.Valid() {
		return ServiceRequest{}, fmt.Errorf("unknown service request status %q", status)
	}
	if r.Details == nil {
		return ServiceRequest{}, fmt.Errorf("service request %s has no details", r.ID)
	}
	r.status = status
	return r, nil
}

type serviceRequestJSON struct {
	ID          string          `json:"id"`
	MentorID    string          `json:"mentor_id"`
	MenteeID    string          `json:"mentee_id"`
	Type        ServiceType     `json:"type"`
	Status      RequestStatus   `json:"status"`
	StatusLabel string          `json:"status_label,omitempty"`
	Details     json.RawMessage `json:"details"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Version     int64           `json:"version"`
}

func (r ServiceRequest) MarshalJSON() ([]byte, error) {
	details, err := json.Marshal(r.Details)
	if err != nil {
		return nil, err
	}
	return json.Marshal(serviceRequestJSON{
		ID:          r.ID,
		MentorID:    r.MentorID,
		MenteeID:    r.MenteeID,
		Type:        r.Type(),
		Status:      r.status,
		StatusLabel: r.status.Label(),
		Details:     details,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		CompletedAt: r.CompletedAt,
		Version:     r.Version,
	})
}

func (r *ServiceRequest) UnmarshalJSON(data []byte) error {
	var aux serviceRequestJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	details, err := DecodeDetails(aux.Type, aux.Details)
	if err != nil {
		return err
	}
	restored, err := RestoreServiceRequest(ServiceRequest{
		ID:          aux.ID,
		MentorID:    aux.MentorID,
		MenteeID:    aux.MenteeID,
		Details:     details,
		CreatedAt:   aux.CreatedAt,
		UpdatedAt:   aux.UpdatedAt,
		CompletedAt: aux.CompletedAt,
		Version:     aux.Version,
	}, aux.Status)
	if err != nil {
		return err
	}
	*r = restored
	return nil
}

// plainDetails dereferences pointer payloads so stored details are always
// value types.
func plainDetails(d ServiceDetails) (ServiceDetails, error) {
	required := &ValidationError{Field: "details", Reason: "required"}
	switch v := d.(type) {
	case nil:
		return nil, required
	case *ReferralDetails:
		if v == nil {
			return nil, required
		}
		return *v, nil
	case *ResumeReviewDetails:
		if v == nil {
			return nil, required
		}
		return *v, nil
	case *MockInterviewDetails:
		if v == nil {
			return nil, required
		}
		return *v, nil
	case *CareerAdviceDetails:
		if v == nil {
			return nil, required
		}
		return *v, nil
	}
	return d, nil
}

// NewServiceRequest creates a pending request for the given payload.
func (mg *Manager) NewServiceRequest(mentorID, menteeID string, details ServiceDetails) (ServiceRequest, error) {
	if strings.TrimSpace(mentorID) == "" {
		return ServiceRequest{}, &ValidationError{Field: "mentor_id", Reason: "required"}
	}
	if strings.TrimSpace(menteeID) == "" {
		return ServiceRequest{}, &ValidationError{Field: "mentee_id", Reason: "required"}
	}
	details, err := plainDetails(details)
	if err != nil {
		return ServiceRequest{}, err
	}
	if err := details.validate(); err != nil {
		return ServiceRequest{}, err
	}

	now := mg.timestamp()
	return ServiceRequest{
		ID:        mg.newID(),
		MentorID:  mentorID,
		MenteeID:  menteeID,
		Details:   details,
		CreatedAt: now,
		UpdatedAt: now,
		status:    RequestPending,
	}, nil
}

// ApplyRequest runs action against r. feedback is recorded on completion
// for resume reviews and mock interviews and ignored otherwise.
func (mg *Manager) ApplyRequest(r ServiceRequest, action RequestAction, feedback string) (ServiceRequest, error) {
	to, ok := NextRequestStatus(r.status, action)
	if !ok {
		return ServiceRequest{}, &InvalidTransitionError{From: string(r.status), Action: string(action)}
	}

	ts := mg.touch(r.UpdatedAt)
	next := r
	next.status = to
	next.UpdatedAt = ts

	if action == RequestActionComplete {
		next.CompletedAt = &ts
		if feedback = strings.TrimSpace(feedback); feedback != "" {
			switch d := next.Details.(type) {
			case ResumeReviewDetails:
				d.Feedback = feedback
				next.Details = d
			case MockInterviewDetails:
				d.Feedback = feedback
				next.Details = d
			}
		}
	}
	return next, nil
}
