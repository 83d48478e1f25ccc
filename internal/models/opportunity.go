package models

import (
	"time"

	"github.com/google/uuid"
)

// OpportunityStatus is the lifecycle state of an opportunity.
type OpportunityStatus string

const (
	OpportunityOpen   OpportunityStatus = "Open"
	OpportunityClosed OpportunityStatus = "Closed"
)

// Opportunity represents a volunteering posting owned by exactly one NGO.
// Title is stored trimmed and lowercased; (ngo_id, title) is unique per NGO.
// Dates must satisfy apply_deadline <= start_date <= end_date.
type Opportunity struct {
	ID            uuid.UUID         `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Skills        []string          `json:"skills"`
	Duration      string            `json:"duration,omitempty"`
	Location      string            `json:"location,omitempty"`
	Stipend       *int              `json:"stipend,omitempty"`
	StartDate     time.Time         `json:"start_date"`
	EndDate       time.Time         `json:"end_date"`
	ApplyDeadline time.Time         `json:"apply_deadline"`
	Status        OpportunityStatus `json:"status"`
	NGOID         uuid.UUID         `json:"ngo_id"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// NGOSummary is the owner projection embedded in public listings.
type NGOSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// OpportunityWithNGO is an opportunity enriched with its owning NGO's name and email.
type OpportunityWithNGO struct {
	Opportunity
	NGO NGOSummary `json:"ngo"`
}

// DashboardStats holds per-NGO opportunity counts.
type DashboardStats struct {
	TotalOpportunities  int `json:"total_opportunities"`
	OpenOpportunities   int `json:"open_opportunities"`
	ClosedOpportunities int `json:"closed_opportunities"`
}
