package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user role in the platform.
type Role string

const (
	RoleVolunteer Role = "volunteer"
	RoleNGO       Role = "ngo"
)

// User represents a platform user: a volunteer or an NGO account.
// Volunteers use Location and Skills; NGOs use OrganizationName, Description and Website.
type User struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Password         string    `json:"-"`
	Role             Role      `json:"role"`
	Location         string    `json:"location,omitempty"`
	Skills           []string  `json:"skills,omitempty"`
	OrganizationName string    `json:"organization_name,omitempty"`
	Description      string    `json:"description,omitempty"`
	Website          string    `json:"website,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Role             Role      `json:"role"`
	Location         string    `json:"location,omitempty"`
	Skills           []string  `json:"skills,omitempty"`
	OrganizationName string    `json:"organization_name,omitempty"`
	Description      string    `json:"description,omitempty"`
	Website          string    `json:"website,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Role:             u.Role,
		Location:         u.Location,
		Skills:           u.Skills,
		OrganizationName: u.OrganizationName,
		Description:      u.Description,
		Website:          u.Website,
		CreatedAt:        u.CreatedAt,
	}
}
