package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/AnshRaj112/mindmatch-backend/internal/logger"
	"github.com/AnshRaj112/mindmatch-backend/internal/metrics"
	"github.com/AnshRaj112/mindmatch-backend/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SESService and SNSService are the slices of the AWS clients we call, so
// tests can swap them out.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// ErrNotificationDisabled is returned when a channel is switched off or there
// is nobody to send to. It is not a delivery failure.
var ErrNotificationDisabled = errors.New("notification channel disabled")

const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

// DeliveryStatus collapses a Send* result into the status reported to callers.
func DeliveryStatus(err error) string {
	switch {
	case err == nil:
		return StatusSent
	case errors.Is(err, ErrNotificationDisabled):
		return StatusDisabled
	default:
		return StatusFailed
	}
}

const (
	tplReferralConfirmation = "referral_confirmation"
	tplTherapistApproval    = "therapist_approval"
	tplTherapistRejection   = "therapist_rejection"
	tplBookingConfirmation  = "booking_confirmation"
	tplMatchNotification    = "match_notification"
	tplTherapistMatch       = "therapist_match"
	tplCrisisAlert          = "crisis_alert"
	crisisFooter            = "If this is a crisis situation, please contact emergency services or the Samaritans at 116 123."
	notificationSendTimeout = 10 * time.Second
)

var subjects = map[string]string{
	tplReferralConfirmation: "Referral Submitted Successfully - MindMatch",
	tplTherapistApproval:    "Welcome to MindMatch - Your Application Has Been Approved",
	tplTherapistRejection:   "MindMatch Application Update",
	tplBookingConfirmation:  "Session Confirmed - MindMatch",
	tplMatchNotification:    "Therapist Match Found - MindMatch",
	tplTherapistMatch:       "New Client Match - MindMatch",
}

var emailTemplates = template.Must(template.New("email").Parse(`
{{define "layout"}}<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
<h1 style="color: #2563eb;">MindMatch</h1>
<p style="color: #6b7280;">Rapid Mental Health Support</p>
{{template "body" .}}
<p>Best regards,<br>The MindMatch Team</p>
<hr style="border: none; border-top: 1px solid #e5e7eb;">
<p style="font-size: 12px; color: #6b7280;">MindMatch facilitates connections between clients and therapists. We are not a healthcare provider and do not provide medical advice.<br>{{.Footer}}</p>
</body>
</html>{{end}}

{{define "referral_confirmation"}}
<h2>Referral Submitted Successfully</h2>
<p>Thank you for submitting a referral for <strong>{{.ClientName}}</strong>. Our clinical team will begin the matching process within 24 hours.</p>
<ul>
<li>Our clinical team reviews your referral</li>
<li>We match you with verified therapists</li>
<li>Book your first session directly with your chosen therapist</li>
</ul>
<p><strong>Reference ID:</strong> {{.ReferralID}}</p>
<p><a href="{{.Link}}">Visit MindMatch</a></p>
{{end}}

{{define "therapist_approval"}}
<h2>Welcome to MindMatch!</h2>
<p>Dear {{.TherapistName}},</p>
<p>Your application to join the MindMatch network has been approved. You will now start receiving matched referrals.</p>
<p><a href="{{.Link}}">Access Your Dashboard</a></p>
{{end}}

{{define "therapist_rejection"}}
<h2>Application Update</h2>
<p>Dear {{.TherapistName}},</p>
<p>Thank you for your interest in joining the MindMatch network. After careful review of your application, we are unable to approve your request at this time.</p>
{{if .Reason}}<p><strong>Reason:</strong> {{.Reason}}</p>{{end}}
<p>You are welcome to reapply if your circumstances change or you obtain additional qualifications.</p>
{{end}}

{{define "booking_confirmation"}}
<h2>Session Confirmed</h2>
<p>Hello {{.ClientName}},</p>
<p>Your session with <strong>{{.TherapistName}}</strong> has been confirmed.</p>
<p><strong>Date &amp; Time:</strong> {{.When}}</p>
{{if .Link}}<p><strong>Meeting Link:</strong> <a href="{{.Link}}">Join Session</a></p>{{end}}
<p>Please join the session 5 minutes early. To reschedule or cancel, contact your therapist directly or reply to this email.</p>
{{end}}

{{define "match_notification"}}
<h2>Great News! We Found a Match</h2>
<p>We've found a verified therapist for <strong>{{.ClientName}}</strong>:</p>
<h3>{{.TherapistName}}</h3>
<p>{{.TherapistBio}}</p>
<p><a href="{{.Link}}">Book Session</a></p>
<p>If you'd like to see other options, please let us know.</p>
{{end}}

{{define "therapist_match"}}
<h2>New Client Match</h2>
<p>You have a new potential client match:</p>
<p><strong>Name:</strong> {{.ClientName}}<br>
<strong>Age:</strong> {{.ClientAge}}<br>
<strong>Issue:</strong> {{.IssueType}}<br>
<strong>Urgency:</strong> {{.Urgency}}</p>
<p><a href="{{.Link}}">View Details &amp; Accept</a></p>
{{end}}
`))

type emailData struct {
	Title         string
	Footer        string
	Link          string
	ReferralID    string
	ClientName    string
	ClientAge     int
	IssueType     string
	Urgency       string
	TherapistName string
	TherapistBio  string
	Reason        string
	When          string
}

type NotificationConfig struct {
	FromEmail         string
	FrontendURL       string
	ClinicalLeadPhone string
	EmailEnabled      bool
	SMSEnabled        bool
}

// NotificationService sends transactional email through SES and crisis
// alerts through SNS. Every Send* logs its own failures, so callers only need
// the returned error to report a delivery status. A nil *NotificationService
// reports every channel as disabled.
type NotificationService struct {
	config    NotificationConfig
	sesClient SESService
	snsClient SNSService
	logger    logger.Logger
}

func NewNotificationService(cfg NotificationConfig, sesClient SESService, snsClient SNSService, log logger.Logger) *NotificationService {
	return &NotificationService{
		config:    cfg,
		sesClient: sesClient,
		snsClient: snsClient,
		logger:    log.WithFields(map[string]interface{}{"component": "notifications"}),
	}
}

// NewAWSNotificationService loads the default AWS credential chain.
func NewAWSNotificationService(ctx context.Context, region string, cfg NotificationConfig, log logger.Logger) (*NotificationService, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewNotificationService(cfg, ses.NewFromConfig(awsCfg), sns.NewFromConfig(awsCfg), log), nil
}

func (n *NotificationService) link(path string) string {
	if n == nil {
		return path
	}
	return n.config.FrontendURL + path
}

func renderEmail(name string, data emailData) (string, error) {
	t, err := emailTemplates.Clone()
	if err != nil {
		return "", err
	}
	if _, err := t.New("body").Parse(`{{template "` + name + `" .}}`); err != nil {
		return "", err
	}
	data.Title = subjects[name]
	data.Footer = crisisFooter

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (n *NotificationService) sendEmail(ctx context.Context, name, to string, data emailData) error {
	if n == nil {
		return ErrNotificationDisabled
	}
	if !n.config.EmailEnabled || n.sesClient == nil || to == "" {
		metrics.NotificationsSent.WithLabelValues("email", name, StatusDisabled).Inc()
		return ErrNotificationDisabled
	}

	body, err := renderEmail(name, data)
	if err != nil {
		metrics.NotificationsSent.WithLabelValues("email", name, StatusFailed).Inc()
		n.logger.Error("email render failed", map[string]interface{}{"template": name, "error": err})
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, notificationSendTimeout)
	defer cancel()

	_, err = n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(n.config.FromEmail),
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subjects[name]), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		metrics.NotificationsSent.WithLabelValues("email", name, StatusFailed).Inc()
		n.logger.Error("email send failed", map[string]interface{}{"template": name, "error": err})
		return fmt.Errorf("send %s email: %w", name, err)
	}

	metrics.NotificationsSent.WithLabelValues("email", name, StatusSent).Inc()
	n.logger.Info("email sent", map[string]interface{}{"template": name})
	return nil
}

func (n *NotificationService) SendReferralConfirmation(ctx context.Context, to, clientName, referralID string) error {
	return n.sendEmail(ctx, tplReferralConfirmation, to, emailData{
		ClientName: clientName,
		ReferralID: referralID,
		Link:       n.link("/"),
	})
}

func (n *NotificationService) SendTherapistApproval(ctx context.Context, to, therapistName string) error {
	return n.sendEmail(ctx, tplTherapistApproval, to, emailData{
		TherapistName: therapistName,
		Link:          n.link("/therapist-dashboard"),
	})
}

func (n *NotificationService) SendTherapistRejection(ctx context.Context, to, therapistName, reason string) error {
	return n.sendEmail(ctx, tplTherapistRejection, to, emailData{
		TherapistName: therapistName,
		Reason:        reason,
	})
}

func (n *NotificationService) SendBookingConfirmation(ctx context.Context, to, clientName, therapistName string, at time.Time, meetingLink string) error {
	return n.sendEmail(ctx, tplBookingConfirmation, to, emailData{
		ClientName:    clientName,
		TherapistName: therapistName,
		When:          at.UTC().Format("Monday 2 January 2006, 15:04 MST"),
		Link:          meetingLink,
	})
}

// SendMatchNotification tells the referrer who was matched.
func (n *NotificationService) SendMatchNotification(ctx context.Context, to, clientName string, t *models.Therapist) error {
	return n.sendEmail(ctx, tplMatchNotification, to, emailData{
		ClientName:    clientName,
		TherapistName: t.Name,
		TherapistBio:  t.Bio,
		Link:          n.link("/therapists/" + t.ID),
	})
}

// SendTherapistMatchNotification tells the therapist about the new client.
func (n *NotificationService) SendTherapistMatchNotification(ctx context.Context, to string, r *models.Referral) error {
	return n.sendEmail(ctx, tplTherapistMatch, to, emailData{
		ClientName: r.ClientName,
		ClientAge:  r.ClientAge,
		IssueType:  r.IssueType,
		Urgency:    r.Urgency.String(),
		Link:       n.link("/therapist-dashboard?referral=" + r.ID),
	})
}

// SendCrisisAlert texts the clinical lead when a crisis referral is matched.
func (n *NotificationService) SendCrisisAlert(ctx context.Context, r *models.Referral, therapistName string) error {
	if n == nil {
		return ErrNotificationDisabled
	}
	if !n.config.SMSEnabled || n.snsClient == nil || n.config.ClinicalLeadPhone == "" {
		metrics.NotificationsSent.WithLabelValues("sms", tplCrisisAlert, StatusDisabled).Inc()
		return ErrNotificationDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, notificationSendTimeout)
	defer cancel()

	msg := fmt.Sprintf("MindMatch CRISIS referral %s (%s, %d) matched to %s. Please follow up now.",
		r.ID, r.IssueType, r.ClientAge, therapistName)
	_, err := n.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(n.config.ClinicalLeadPhone),
		Message:     aws.String(msg),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
		},
	})
	if err != nil {
		metrics.NotificationsSent.WithLabelValues("sms", tplCrisisAlert, StatusFailed).Inc()
		n.logger.Error("crisis SMS failed", map[string]interface{}{"referral_id": r.ID, "error": err})
		return fmt.Errorf("send crisis alert: %w", err)
	}

	metrics.NotificationsSent.WithLabelValues("sms", tplCrisisAlert, StatusSent).Inc()
	n.logger.Info("crisis SMS sent", map[string]interface{}{"referral_id": r.ID})
	return nil
}
