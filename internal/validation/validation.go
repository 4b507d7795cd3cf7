// Package validation checks request bodies against JSON schemas before they
// are decoded into models.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var ErrInvalidPayload = errors.New("invalid payload")

// Error lists every schema violation found in a payload.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidPayload, strings.Join(e.Problems, "; "))
}

func (e *Error) Unwrap() error {
	return ErrInvalidPayload
}

const referralSchema = `{
	"type": "object",
	"required": ["referrer_name", "referrer_email", "client_name", "client_age", "issue_type",
		"urgency", "preferred_language", "preferred_modality", "consent_given"],
	"properties": {
		"referrer_name": {"type": "string", "minLength": 1},
		"referrer_email": {"type": "string", "format": "email"},
		"referrer_phone": {"type": "string"},
		"referrer_organization": {"type": "string"},
		"client_name": {"type": "string", "minLength": 1},
		"client_age": {"type": "integer", "minimum": 0, "maximum": 25},
		"client_email": {"type": "string", "format": "email"},
		"client_phone": {"type": "string"},
		"issue_type": {"type": "string", "minLength": 1},
		"urgency": {"enum": ["low", "medium", "high", "crisis"]},
		"preferred_language": {"type": "string", "minLength": 1},
		"preferred_modality": {"enum": ["video", "phone", "chat", "in_person"]},
		"special_requirements": {"type": "string"},
		"consent_given": {"enum": [true]}
	}
}`

const therapistSchema = `{
	"type": "object",
	"required": ["name", "email", "license_number", "specializations", "languages"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"email": {"type": "string", "format": "email"},
		"phone": {"type": "string"},
		"license_number": {"type": "string", "minLength": 1},
		"qualifications": {"type": "array", "items": {"type": "string"}},
		"specializations": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
		"languages": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
		"availability": {"type": "object"},
		"hourly_rate": {"type": "number", "minimum": 0},
		"bio": {"type": "string"},
		"profile_image_url": {"type": "string"}
	}
}`

const bookingSchema = `{
	"type": "object",
	"required": ["referral_id", "therapist_id", "scheduled_date", "modality"],
	"properties": {
		"referral_id": {"type": "string", "minLength": 1},
		"therapist_id": {"type": "string", "minLength": 1},
		"scheduled_date": {"type": "string", "format": "date-time"},
		"duration_minutes": {"type": "integer", "minimum": 15, "maximum": 240},
		"modality": {"enum": ["video", "phone", "chat", "in_person"]},
		"meeting_link": {"type": "string"},
		"notes": {"type": "string"}
	}
}`

const verificationSchema = `{
	"type": "object",
	"required": ["verified", "verified_by"],
	"properties": {
		"verified": {"type": "boolean"},
		"verified_by": {"type": "string", "minLength": 1},
		"reason": {"type": "string"}
	}
}`

const matchRequestSchema = `{
	"type": "object",
	"properties": {
		"therapist_id": {"type": "string", "minLength": 1}
	}
}`

var (
	Referral     = mustSchema("referral", referralSchema)
	Therapist    = mustSchema("therapist", therapistSchema)
	Booking      = mustSchema("booking", bookingSchema)
	Verification = mustSchema("verification", verificationSchema)
	MatchRequest = mustSchema("match request", matchRequestSchema)
)

// Schema is a compiled request schema.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

func mustSchema(name, src string) *Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile %s schema: %v", name, err))
	}
	return &Schema{name: name, schema: s}
}

// Validate checks a raw JSON body. Malformed JSON is reported as an invalid
// payload too.
func (s *Schema) Validate(body []byte) error {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &Error{Problems: []string{"body is not valid JSON"}}
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return &Error{Problems: problems}
}
