package models

import (
	"encoding/json"
	"time"
)

type Therapist struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Joined from users
	Name  string `json:"name"`
	Email string `json:"email"`

	LicenseNumber   string   `json:"license_number"`
	Qualifications  []string `json:"qualifications"`
	Specializations []string `json:"specializations"`
	Languages       []string `json:"languages"`

	// Availability is stored as-is; the matcher does not read it yet.
	Availability json.RawMessage `json:"availability,omitempty"`

	HourlyRate      float64 `json:"hourly_rate"`
	Bio             string  `json:"bio,omitempty"`
	ProfileImageURL string  `json:"profile_image_url,omitempty"`

	IsVerified       bool       `json:"is_verified"`
	VerificationDate *time.Time `json:"verification_date,omitempty"`
	VerifiedBy       string     `json:"verified_by,omitempty"`
}

// HasSpecialization reports whether tag is one of the therapist's specializations.
// Comparison is exact.
func (t *Therapist) HasSpecialization(tag string) bool {
	return containsExact(t.Specializations, tag)
}

func (t *Therapist) SpeaksLanguage(language string) bool {
	return containsExact(t.Languages, language)
}

func containsExact(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// TherapistApplication is the payload of a new therapist registration.
type TherapistApplication struct {
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone,omitempty"`
	LicenseNumber   string          `json:"license_number"`
	Qualifications  []string        `json:"qualifications"`
	Specializations []string        `json:"specializations"`
	Languages       []string        `json:"languages"`
	Availability    json.RawMessage `json:"availability,omitempty"`
	HourlyRate      float64         `json:"hourly_rate"`
	Bio             string          `json:"bio,omitempty"`
	ProfileImageURL string          `json:"profile_image_url,omitempty"`
}

// DocumentType is the kind of credential a therapist uploads for verification.
type DocumentType string

const (
	DocumentLicense       DocumentType = "license"
	DocumentInsurance     DocumentType = "insurance"
	DocumentQualification DocumentType = "qualification"
	DocumentID            DocumentType = "id"
)

func (d DocumentType) Valid() bool {
	switch d {
	case DocumentLicense, DocumentInsurance, DocumentQualification, DocumentID:
		return true
	}
	return false
}

type TherapistDocument struct {
	ID           string       `json:"id"`
	TherapistID  string       `json:"therapist_id"`
	DocumentType DocumentType `json:"document_type"`
	FileURL      string       `json:"file_url"`
	FileName     string       `json:"file_name"`
	Verified     bool         `json:"verified"`
	VerifiedBy   string       `json:"verified_by,omitempty"`
	VerifiedAt   *time.Time   `json:"verified_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}
