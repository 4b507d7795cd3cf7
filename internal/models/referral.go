package models

import "time"

type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralMatched   ReferralStatus = "matched"
	ReferralBooked    ReferralStatus = "booked"
	ReferralCompleted ReferralStatus = "completed"
	ReferralCancelled ReferralStatus = "cancelled"
)

// Referral is a request from a referrer for a young person to be matched
// with a therapist. ClientEmail and ClientPhone hold plaintext in memory and
// are encrypted by the referral store before they reach the database.
type Referral struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	ReferrerID string    `json:"referrer_id"`

	ClientName  string `json:"client_name"`
	ClientAge   int    `json:"client_age"`
	ClientEmail string `json:"client_email,omitempty"`
	ClientPhone string `json:"client_phone,omitempty"`

	IssueType           string   `json:"issue_type"`
	Urgency             Urgency  `json:"urgency"`
	PreferredLanguage   string   `json:"preferred_language"`
	PreferredModality   Modality `json:"preferred_modality"`
	SpecialRequirements string   `json:"special_requirements,omitempty"`

	ConsentGiven bool       `json:"consent_given"`
	ConsentDate  *time.Time `json:"consent_date,omitempty"`

	Status             ReferralStatus `json:"status"`
	MatchedTherapistID string         `json:"matched_therapist_id,omitempty"`
}

// ReferralRequest is the intake payload submitted by a referrer.
type ReferralRequest struct {
	ReferrerName         string `json:"referrer_name"`
	ReferrerEmail        string `json:"referrer_email"`
	ReferrerPhone        string `json:"referrer_phone,omitempty"`
	ReferrerOrganization string `json:"referrer_organization,omitempty"`

	ClientName  string `json:"client_name"`
	ClientAge   int    `json:"client_age"`
	ClientEmail string `json:"client_email,omitempty"`
	ClientPhone string `json:"client_phone,omitempty"`

	IssueType           string `json:"issue_type"`
	Urgency             string `json:"urgency"`
	PreferredLanguage   string `json:"preferred_language"`
	PreferredModality   string `json:"preferred_modality"`
	SpecialRequirements string `json:"special_requirements,omitempty"`
	ConsentGiven        bool   `json:"consent_given"`
}

type BookingStatus string

const (
	BookingScheduled BookingStatus = "scheduled"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
	BookingNoShow    BookingStatus = "no_show"
)

type Booking struct {
	ID              string        `json:"id"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	ReferralID      string        `json:"referral_id"`
	TherapistID     string        `json:"therapist_id"`
	ScheduledDate   time.Time     `json:"scheduled_date"`
	DurationMinutes int           `json:"duration_minutes"`
	Modality        Modality      `json:"modality"`
	MeetingLink     string        `json:"meeting_link,omitempty"`
	Status          BookingStatus `json:"status"`
	Notes           string        `json:"notes,omitempty"`
}

// DashboardStats backs the admin overview.
type DashboardStats struct {
	TotalReferrals     int `json:"total_referrals"`
	PendingReferrals   int `json:"pending_referrals"`
	MatchedReferrals   int `json:"matched_referrals"`
	TotalTherapists    int `json:"total_therapists"`
	VerifiedTherapists int `json:"verified_therapists"`
	PendingTherapists  int `json:"pending_therapists"`
	TotalBookings      int `json:"total_bookings"`
	CompletedSessions  int `json:"completed_sessions"`
}
