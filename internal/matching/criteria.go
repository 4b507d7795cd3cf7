package matching

import "github.com/AnshRaj112/mindmatch-backend/internal/models"

// Criteria is what a referral asks for. Values are expected to be validated
// before they get here: age in 0..25, urgency and modality already parsed.
type Criteria struct {
	IssueType           string          `json:"issue_type"`
	Urgency             models.Urgency  `json:"urgency"`
	PreferredLanguage   string          `json:"preferred_language"`
	PreferredModality   models.Modality `json:"preferred_modality"`
	ClientAge           int             `json:"client_age"`
	SpecialRequirements string          `json:"special_requirements,omitempty"`
}

func CriteriaFromReferral(r *models.Referral) Criteria {
	return Criteria{
		IssueType:           r.IssueType,
		Urgency:             r.Urgency,
		PreferredLanguage:   r.PreferredLanguage,
		PreferredModality:   r.PreferredModality,
		ClientAge:           r.ClientAge,
		SpecialRequirements: r.SpecialRequirements,
	}
}

// MatchResult is a scored candidate. Therapist points into the pool slice
// passed to FindMatches.
type MatchResult struct {
	Therapist *models.Therapist `json:"therapist"`
	Score     int               `json:"score"`
	Reasons   []string          `json:"reasons"`
}
