package models

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus is the lifecycle state of an application.
// An application starts pending and moves to accepted or rejected by the owning NGO.
// Withdrawal deletes the row, freeing the (opportunity, volunteer) pair.
type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
	ApplicationAccepted  ApplicationStatus = "accepted"
	ApplicationRejected  ApplicationStatus = "rejected"
)

// Application is one volunteer's expression of interest in one opportunity.
// The (opportunity_id, volunteer_id) pair is unique.
type Application struct {
	ID            uuid.UUID         `json:"id"`
	OpportunityID uuid.UUID         `json:"opportunity_id"`
	VolunteerID   uuid.UUID         `json:"volunteer_id"`
	Message       string            `json:"message"`
	Status        ApplicationStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// OpportunitySummary is the opportunity projection embedded in a volunteer's application list.
type OpportunitySummary struct {
	ID       uuid.UUID         `json:"id"`
	Title    string            `json:"title"`
	Location string            `json:"location,omitempty"`
	Status   OpportunityStatus `json:"status"`
}

// ApplicationWithOpportunity is an application enriched with its opportunity's title/location/status.
type ApplicationWithOpportunity struct {
	Application
	Opportunity OpportunitySummary `json:"opportunity"`
}

// VolunteerSummary is the applicant projection embedded in an NGO's applicant list.
type VolunteerSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// ApplicationWithVolunteer is an application enriched with the applicant's name and email.
type ApplicationWithVolunteer struct {
	Application
	Volunteer VolunteerSummary `json:"volunteer"`
}
