package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MatchRun is one ranking pass over the verified pool for a referral, kept in
// MongoDB so clinical leads can see why a therapist was chosen.
type MatchRun struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt            time.Time          `bson:"created_at" json:"created_at"`
	ReferralID           string             `bson:"referral_id" json:"referral_id"`
	RulesVersion         string             `bson:"rules_version" json:"rules_version"`
	Limit                int                `bson:"limit" json:"limit"`
	PoolSize             int                `bson:"pool_size" json:"pool_size"`
	Candidates           []MatchCandidate   `bson:"candidates" json:"candidates"`
	CommittedTherapistID string             `bson:"committed_therapist_id,omitempty" json:"committed_therapist_id,omitempty"`
	Trigger              string             `bson:"trigger" json:"trigger"` // auto or manual
}

type MatchCandidate struct {
	TherapistID   string   `bson:"therapist_id" json:"therapist_id"`
	TherapistName string   `bson:"therapist_name" json:"therapist_name"`
	Score         int      `bson:"score" json:"score"`
	Reasons       []string `bson:"reasons" json:"reasons"`
}
