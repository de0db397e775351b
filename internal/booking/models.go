package booking

import (
	"time"

	"mentorship-service/internal/availability"
)

type ServiceType string

const (
	ServiceInitialConsultation ServiceType = "initial-consultation"
	ServiceReferralRequest     ServiceType = "referral-request"
	ServiceResumeReview        ServiceType = "resume-review"
	ServiceMockInterview       ServiceType = "mock-interview"
	ServiceCareerAdvice        ServiceType = "career-advice"
)

var serviceLabels = map[ServiceType]string{
	ServiceInitialConsultation: "Initial Consultation",
	ServiceReferralRequest:     "Referral Request",
	ServiceResumeReview:        "Resume Review",
	ServiceMockInterview:       "Mock Interview",
	ServiceCareerAdvice:        "Career Advice",
}

var serviceDescriptions = map[ServiceType]string{
	ServiceInitialConsultation: "Get to know your mentor and discuss your career goals",
	ServiceReferralRequest:     "Request a referral to your mentor's company or network",
	ServiceResumeReview:        "Get feedback and suggestions on your resume",
	ServiceMockInterview:       "Practice interviewing with personalized feedback",
	ServiceCareerAdvice:        "General career guidance and mentorship",
}

func (s ServiceType) Valid() bool {
	_, ok := serviceLabels[s]
	return ok
}

func (s ServiceType) Label() string { return serviceLabels[s] }

func (s ServiceType) Description() string { return serviceDescriptions[s] }

// ServiceInfo describes one offered service for the catalog.
type ServiceInfo struct {
	Type        ServiceType `json:"type"`
	Label       string      `json:"label"`
	Description string      `json:"description"`
	// Requestable services can also be sent as a service request.
	Requestable bool `json:"requestable"`
}

var serviceOrder = []ServiceType{
	ServiceInitialConsultation,
	ServiceReferralRequest,
	ServiceResumeReview,
	ServiceMockInterview,
	ServiceCareerAdvice,
}

// Catalog lists every service type in display order.
func Catalog() []ServiceInfo {
	out := make([]ServiceInfo, 0, len(serviceOrder))
	for _, st := range serviceOrder {
		out = append(out, ServiceInfo{
			Type:        st,
			Label:       st.Label(),
			Description: st.Description(),
			Requestable: st != ServiceInitialConsultation,
		})
	}
	return out
}

type Mentor struct {
	ID                   string                          `json:"id"`
	FirstName            string                          `json:"first_name"`
	LastName             string                          `json:"last_name"`
	Email                string                          `json:"email"`
	PhoneNumber          string                          `json:"phone_number,omitempty"`
	Company              string                          `json:"company,omitempty"`
	Title                string                          `json:"title,omitempty"`
	Bio                  string                          `json:"bio,omitempty"`
	Industry             string                          `json:"industry,omitempty"`
	Specialties          []string                        `json:"specialties,omitempty"`
	YearsOfExperience    int                             `json:"years_of_experience"`
	Availability         availability.WeeklyAvailability `json:"availability"`
	Timezone             string                          `json:"timezone,omitempty"`
	ServicesOffered      []ServiceType                   `json:"services_offered"`
	IsActive             bool                            `json:"is_active"`
	MaxMenteesPerMonth   int                             `json:"max_mentees_per_month,omitempty"`
	RegistrationComplete bool                            `json:"registration_complete"`
	CreatedAt            time.Time                       `json:"created_at"`
	UpdatedAt            time.Time                       `json:"updated_at"`
}

func (m Mentor) Offers(s ServiceType) bool {
	for _, offered := range m.ServicesOffered {
		if offered == s {
			return true
		}
	}
	return false
}

type Mentee struct {
	ID                   string    `json:"id"`
	FirstName            string    `json:"first_name"`
	LastName             string    `json:"last_name"`
	Email                string    `json:"email"`
	PhoneNumber          string    `json:"phone_number,omitempty"`
	CurrentRole          string    `json:"current_role,omitempty"`
	CurrentCompany       string    `json:"current_company,omitempty"`
	CareerGoals          string    `json:"career_goals,omitempty"`
	InterestedIndustries []string  `json:"interested_industries,omitempty"`
	InterestedRoles      []string  `json:"interested_roles,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type Role string

const (
	RoleMentor Role = "mentor"
	RoleMentee Role = "mentee"
)

// Session identifies the caller of a Service operation.
type Session struct {
	UserID string
	Role   Role
}
