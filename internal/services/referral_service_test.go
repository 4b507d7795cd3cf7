package services

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/AnshRaj112/mindmatch-backend/internal/logger"
	"github.com/AnshRaj112/mindmatch-backend/internal/models"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validReferralRequest() *models.ReferralRequest {
	return &models.ReferralRequest{
		ReferrerName:      "Dr. GP",
		ReferrerEmail:     " GP@Clinic.ie ",
		ClientName:        "Aoife",
		ClientAge:         15,
		IssueType:         "Anxiety",
		Urgency:           "Crisis",
		PreferredLanguage: "Irish",
		PreferredModality: "in_person",
		ConsentGiven:      true,
	}
}

func TestReferralFromRequest(t *testing.T) {
	referrer, ref, err := ReferralFromRequest(validReferralRequest())

	require.NoError(t, err)
	assert.Equal(t, "gp@clinic.ie", referrer.Email)
	assert.Equal(t, models.RoleReferrer, referrer.Role)
	assert.Equal(t, models.UrgencyCrisis, ref.Urgency)
	assert.Equal(t, models.ModalityInPerson, ref.PreferredModality)
}

func TestReferralFromRequest_Invalid(t *testing.T) {
	req := validReferralRequest()
	req.Urgency = "urgent"
	_, _, err := ReferralFromRequest(req)
	assert.ErrorIs(t, err, ErrInvalidInput)

	req = validReferralRequest()
	req.PreferredModality = "fax"
	_, _, err = ReferralFromRequest(req)
	assert.ErrorIs(t, err, ErrInvalidInput)

	req = validReferralRequest()
	req.ConsentGiven = false
	_, _, err = ReferralFromRequest(req)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReferralService_SubmitSendsConfirmation(t *testing.T) {
	db, mock := setupDB(t)
	notifier, sesMock, _ := newTestNotifier(t, createTestNotificationConfig())
	svc := NewReferralService(NewReferralStore(db, nil, logger.NewNoOpLogger()), nil, nil, nil, notifier, logger.NewTestLogger(t))

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-1"))
	mock.ExpectQuery(`INSERT INTO referrals`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ref-1"))
	mock.ExpectCommit()

	ref, status, err := svc.Submit(context.Background(), validReferralRequest())

	require.NoError(t, err)
	assert.Equal(t, "ref-1", ref.ID)
	assert.Equal(t, StatusSent, status)
	require.Len(t, sesMock.calls, 1)
	assert.Equal(t, []string{"gp@clinic.ie"}, sesMock.calls[0].Destination.ToAddresses)
}

func TestReferralService_AcceptPublishesEvent(t *testing.T) {
	db, mock := setupDB(t)
	events := &fakePublisher{}
	svc := NewReferralService(NewReferralStore(db, nil, logger.NewNoOpLogger()), nil, nil, events, nil, logger.NewNoOpLogger())

	mock.ExpectExec(`UPDATE referrals`).WithArgs("ref-1", "th-1", "booked", sqlmock.AnyArg(), "matched").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.Accept(context.Background(), "ref-1", "th-1"))
	require.Len(t, events.events, 1)
	assert.Equal(t, EventReferralBooked, events.events[0].Type)
}

func TestReferralService_CreateBooking(t *testing.T) {
	db, mock := setupDB(t)
	svc := NewReferralService(
		NewReferralStore(db, nil, logger.NewNoOpLogger()),
		NewTherapistStore(db, nil, time.Minute, logger.NewNoOpLogger()),
		NewBookingStore(db),
		nil, nil, logger.NewNoOpLogger(),
	)
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	at := time.Date(2025, 6, 3, 15, 0, 0, 0, time.UTC)

	referralRow := func() *sqlmock.Rows {
		return sqlmock.NewRows(referralRowColumns).AddRow(
			"ref-1", "u-1", "Aoife", 15, nil, nil,
			"Anxiety", "medium", "English", "video", nil,
			true, created, "booked", "th-1", created, created,
		)
	}

	mock.ExpectQuery(`FROM referrals WHERE id = \$1`).WithArgs("ref-1").WillReturnRows(referralRow())
	mock.ExpectQuery(`INSERT INTO bookings`).
		WithArgs("ref-1", "th-1", at, 50, "video", nil, "scheduled", nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("bk-1"))
	mock.ExpectQuery(`WHERE t.id = \$1`).WithArgs("th-1").WillReturnRows(therapistRows())

	b, status, err := svc.CreateBooking(context.Background(), &models.Booking{
		ReferralID:    "ref-1",
		TherapistID:   "th-1",
		ScheduledDate: at,
		Modality:      models.ModalityVideo,
	})

	require.NoError(t, err)
	assert.Equal(t, "bk-1", b.ID)
	assert.Equal(t, models.BookingScheduled, b.Status)
	assert.Equal(t, StatusDisabled, status)

	mock.ExpectQuery(`FROM referrals WHERE id = \$1`).WithArgs("ref-1").WillReturnRows(referralRow())
	_, _, err = svc.CreateBooking(context.Background(), &models.Booking{ReferralID: "ref-1", TherapistID: "th-2"})
	assert.ErrorIs(t, err, ErrReferralNotMatched)
}

func TestReferralService_CreateBooking_UppercaseTherapistID(t *testing.T) {
	db, mock := setupDB(t)
	svc := NewReferralService(
		NewReferralStore(db, nil, logger.NewNoOpLogger()),
		NewTherapistStore(db, nil, time.Minute, logger.NewNoOpLogger()),
		NewBookingStore(db),
		nil, nil, logger.NewNoOpLogger(),
	)
	const (
		refID = "7b0b5a52-4f4e-4a53-9a3c-0e3e4e7f2b11"
		thID  = "c1d7a3f0-2b9e-4d3c-8f41-6a5b2e9d0c22"
	)
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	at := time.Date(2025, 6, 3, 15, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM referrals WHERE id = \$1`).WithArgs(refID).WillReturnRows(
		sqlmock.NewRows(referralRowColumns).AddRow(
			refID, "u-1", "Aoife", 15, nil, nil,
			"Anxiety", "medium", "English", "video", nil,
			true, created, "matched", thID, created, created,
		))
	mock.ExpectQuery(`INSERT INTO bookings`).
		WithArgs(refID, thID, at, 50, "video", nil, "scheduled", nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("bk-1"))
	mock.ExpectQuery(`WHERE t.id = \$1`).WithArgs(thID).WillReturnError(sql.ErrNoRows)

	b, _, err := svc.CreateBooking(context.Background(), &models.Booking{
		ReferralID:    refID,
		TherapistID:   strings.ToUpper(thID),
		ScheduledDate: at,
		Modality:      models.ModalityVideo,
	})

	require.NoError(t, err)
	assert.Equal(t, thID, b.TherapistID)
}

func TestSameID(t *testing.T) {
	const id = "c1d7a3f0-2b9e-4d3c-8f41-6a5b2e9d0c22"
	assert.True(t, sameID(id, strings.ToUpper(id)))
	assert.True(t, sameID(id, "{"+id+"}"))
	assert.True(t, sameID("th-1", "th-1"))
	assert.False(t, sameID(id, "c1d7a3f0-2b9e-4d3c-8f41-6a5b2e9d0c23"))
	assert.False(t, sameID("", ""))
}
