package models

import "time"

type UserRole string

const (
	RoleReferrer     UserRole = "referrer"
	RoleTherapist    UserRole = "therapist"
	RoleAdmin        UserRole = "admin"
	RoleClinicalLead UserRole = "clinical_lead"
)

type User struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         UserRole  `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	Organization string    `json:"organization,omitempty"`
}
