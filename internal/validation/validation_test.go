package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validReferral = `{
	"referrer_name": "Dr. GP",
	"referrer_email": "gp@clinic.ie",
	"client_name": "Aoife",
	"client_age": 15,
	"issue_type": "Anxiety",
	"urgency": "crisis",
	"preferred_language": "Irish",
	"preferred_modality": "video",
	"consent_given": true
}`

func TestReferral_Valid(t *testing.T) {
	assert.NoError(t, Referral.Validate([]byte(validReferral)))
}

func TestReferral_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"age over 25", `{"referrer_name":"a","referrer_email":"a@b.ie","client_name":"c","client_age":26,"issue_type":"Anxiety","urgency":"low","preferred_language":"English","preferred_modality":"video","consent_given":true}`},
		{"unknown urgency", `{"referrer_name":"a","referrer_email":"a@b.ie","client_name":"c","client_age":12,"issue_type":"Anxiety","urgency":"urgent","preferred_language":"English","preferred_modality":"video","consent_given":true}`},
		{"unknown modality", `{"referrer_name":"a","referrer_email":"a@b.ie","client_name":"c","client_age":12,"issue_type":"Anxiety","urgency":"low","preferred_language":"English","preferred_modality":"carrier pigeon","consent_given":true}`},
		{"no consent", `{"referrer_name":"a","referrer_email":"a@b.ie","client_name":"c","client_age":12,"issue_type":"Anxiety","urgency":"low","preferred_language":"English","preferred_modality":"video","consent_given":false}`},
		{"bad email", `{"referrer_name":"a","referrer_email":"nope","client_name":"c","client_age":12,"issue_type":"Anxiety","urgency":"low","preferred_language":"English","preferred_modality":"video","consent_given":true}`},
		{"missing fields", `{}`},
		{"not json", `{"referrer_name":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Referral.Validate([]byte(tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPayload))

			var verr *Error
			require.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Problems)
		})
	}
}

func TestTherapist_Schema(t *testing.T) {
	valid := `{"name":"Dr. Murphy","email":"m@example.com","license_number":"PSI-1","specializations":["Anxiety Disorders"],"languages":["English"],"hourly_rate":80}`
	assert.NoError(t, Therapist.Validate([]byte(valid)))

	noLanguages := `{"name":"Dr. Murphy","email":"m@example.com","license_number":"PSI-1","specializations":["Anxiety Disorders"],"languages":[]}`
	assert.ErrorIs(t, Therapist.Validate([]byte(noLanguages)), ErrInvalidPayload)
}

func TestBooking_Schema(t *testing.T) {
	valid := `{"referral_id":"r","therapist_id":"t","scheduled_date":"2026-03-02T15:30:00Z","duration_minutes":50,"modality":"video"}`
	assert.NoError(t, Booking.Validate([]byte(valid)))

	badDate := `{"referral_id":"r","therapist_id":"t","scheduled_date":"next tuesday","modality":"video"}`
	assert.ErrorIs(t, Booking.Validate([]byte(badDate)), ErrInvalidPayload)
}

func TestVerification_Schema(t *testing.T) {
	assert.NoError(t, Verification.Validate([]byte(`{"verified":false,"verified_by":"admin","reason":"expired license"}`)))
	assert.Error(t, Verification.Validate([]byte(`{"verified":"yes","verified_by":"admin"}`)))
}

func TestMatchRequest_Schema(t *testing.T) {
	assert.NoError(t, MatchRequest.Validate([]byte(`{}`)))
	assert.NoError(t, MatchRequest.Validate([]byte(`{"therapist_id":"th-1"}`)))
	assert.Error(t, MatchRequest.Validate([]byte(`{"therapist_id":""}`)))
}
