package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AnshRaj112/mindmatch-backend/internal/logger"
	"github.com/AnshRaj112/mindmatch-backend/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	calls         []*ses.SendEmailInput
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.calls = append(m.calls, params)
	if m.SendEmailFunc == nil {
		return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
	}
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	calls       []*sns.PublishInput
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.calls = append(m.calls, params)
	if m.PublishFunc == nil {
		return &sns.PublishOutput{MessageId: aws.String("sms-1")}, nil
	}
	return m.PublishFunc(ctx, params, optFns...)
}

// ==========================
// Test Helper Functions
// ==========================

func createTestNotificationConfig() NotificationConfig {
	return NotificationConfig{
		FromEmail:         "MindMatch <noreply@mindmatch.ie>",
		FrontendURL:       "https://mindmatch.ie",
		ClinicalLeadPhone: "+353870000000",
		EmailEnabled:      true,
		SMSEnabled:        true,
	}
}

func newTestNotifier(t *testing.T, cfg NotificationConfig) (*NotificationService, *MockSESService, *MockSNSService) {
	sesMock := &MockSESService{}
	snsMock := &MockSNSService{}
	return NewNotificationService(cfg, sesMock, snsMock, logger.NewTestLogger(t)), sesMock, snsMock
}

func crisisReferral() *models.Referral {
	return &models.Referral{
		ID:         "ref-1",
		ClientName: "Aoife",
		ClientAge:  16,
		IssueType:  "Self-Harm",
		Urgency:    models.UrgencyCrisis,
	}
}

// ==========================
// Tests
// ==========================

func TestSendReferralConfirmation(t *testing.T) {
	n, sesMock, _ := newTestNotifier(t, createTestNotificationConfig())

	err := n.SendReferralConfirmation(context.Background(), "gp@clinic.ie", "Aoife", "ref-1")

	require.NoError(t, err)
	require.Len(t, sesMock.calls, 1)
	in := sesMock.calls[0]
	assert.Equal(t, "MindMatch <noreply@mindmatch.ie>", aws.ToString(in.Source))
	assert.Equal(t, []string{"gp@clinic.ie"}, in.Destination.ToAddresses)
	assert.Equal(t, "Referral Submitted Successfully - MindMatch", aws.ToString(in.Message.Subject.Data))

	body := aws.ToString(in.Message.Body.Html.Data)
	assert.Contains(t, body, "Aoife")
	assert.Contains(t, body, "ref-1")
	assert.Contains(t, body, "Samaritans at 116 123")
}

func TestSendTherapistRejection_OptionalReason(t *testing.T) {
	n, sesMock, _ := newTestNotifier(t, createTestNotificationConfig())
	ctx := context.Background()

	require.NoError(t, n.SendTherapistRejection(ctx, "t@example.com", "Dr. Byrne", "License could not be verified"))
	require.NoError(t, n.SendTherapistRejection(ctx, "t@example.com", "Dr. Byrne", ""))

	require.Len(t, sesMock.calls, 2)
	assert.Contains(t, aws.ToString(sesMock.calls[0].Message.Body.Html.Data), "License could not be verified")
	assert.NotContains(t, aws.ToString(sesMock.calls[1].Message.Body.Html.Data), "Reason:")
}

func TestSendMatchNotification_EscapesTherapistBio(t *testing.T) {
	n, sesMock, _ := newTestNotifier(t, createTestNotificationConfig())
	th := &models.Therapist{ID: "th-1", Name: "Dr. Murphy", Bio: "<script>alert(1)</script>"}

	require.NoError(t, n.SendMatchNotification(context.Background(), "gp@clinic.ie", "Aoife", th))

	body := aws.ToString(sesMock.calls[0].Message.Body.Html.Data)
	assert.Contains(t, body, "Dr. Murphy")
	assert.Contains(t, body, "https://mindmatch.ie/therapists/th-1")
	assert.NotContains(t, body, "<script>")
}

func TestSendTherapistMatchNotification(t *testing.T) {
	n, sesMock, _ := newTestNotifier(t, createTestNotificationConfig())

	require.NoError(t, n.SendTherapistMatchNotification(context.Background(), "t@example.com", crisisReferral()))

	body := aws.ToString(sesMock.calls[0].Message.Body.Html.Data)
	assert.Contains(t, body, "Self-Harm")
	assert.Contains(t, body, "crisis")
	assert.Contains(t, body, "16")
}

func TestSendBookingConfirmation_MeetingLink(t *testing.T) {
	n, sesMock, _ := newTestNotifier(t, createTestNotificationConfig())
	at := time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)

	require.NoError(t, n.SendBookingConfirmation(context.Background(), "c@example.com", "Aoife", "Dr. Murphy", at, "https://meet.example.com/x"))

	body := aws.ToString(sesMock.calls[0].Message.Body.Html.Data)
	assert.Contains(t, body, "Monday 2 March 2026, 15:30 UTC")
	assert.Contains(t, body, "https://meet.example.com/x")
}

func TestSendEmail_Disabled(t *testing.T) {
	cfg := createTestNotificationConfig()
	cfg.EmailEnabled = false
	n, sesMock, _ := newTestNotifier(t, cfg)

	err := n.SendTherapistApproval(context.Background(), "t@example.com", "Dr. Byrne")

	assert.ErrorIs(t, err, ErrNotificationDisabled)
	assert.Equal(t, StatusDisabled, DeliveryStatus(err))
	assert.Empty(t, sesMock.calls)
}

func TestSendEmail_NoRecipient(t *testing.T) {
	n, sesMock, _ := newTestNotifier(t, createTestNotificationConfig())

	err := n.SendReferralConfirmation(context.Background(), "", "Aoife", "ref-1")

	assert.ErrorIs(t, err, ErrNotificationDisabled)
	assert.Empty(t, sesMock.calls)
}

func TestSendEmail_SESFailure(t *testing.T) {
	n, sesMock, _ := newTestNotifier(t, createTestNotificationConfig())
	sesMock.SendEmailFunc = func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
		return nil, errors.New("throttled")
	}

	err := n.SendTherapistApproval(context.Background(), "t@example.com", "Dr. Byrne")

	require.Error(t, err)
	assert.Equal(t, StatusFailed, DeliveryStatus(err))
}

func TestSendCrisisAlert(t *testing.T) {
	n, _, snsMock := newTestNotifier(t, createTestNotificationConfig())

	require.NoError(t, n.SendCrisisAlert(context.Background(), crisisReferral(), "Dr. Murphy"))

	require.Len(t, snsMock.calls, 1)
	assert.Equal(t, "+353870000000", aws.ToString(snsMock.calls[0].PhoneNumber))
	assert.Contains(t, aws.ToString(snsMock.calls[0].Message), "ref-1")
	assert.Contains(t, aws.ToString(snsMock.calls[0].Message), "Dr. Murphy")
}

func TestSendCrisisAlert_DisabledWithoutPhone(t *testing.T) {
	cfg := createTestNotificationConfig()
	cfg.ClinicalLeadPhone = ""
	n, _, snsMock := newTestNotifier(t, cfg)

	err := n.SendCrisisAlert(context.Background(), crisisReferral(), "Dr. Murphy")

	assert.ErrorIs(t, err, ErrNotificationDisabled)
	assert.Empty(t, snsMock.calls)
}

func TestDeliveryStatus(t *testing.T) {
	assert.Equal(t, StatusSent, DeliveryStatus(nil))
	assert.Equal(t, StatusDisabled, DeliveryStatus(ErrNotificationDisabled))
	assert.Equal(t, StatusFailed, DeliveryStatus(errors.New("boom")))
}
