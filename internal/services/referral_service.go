package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/AnshRaj112/mindmatch-backend/internal/logger"
	"github.com/AnshRaj112/mindmatch-backend/internal/models"
	"github.com/google/uuid"
)

// ReferralService handles referral intake and the steps after a match:
// the therapist accepting and booking sessions.
type ReferralService struct {
	referrals  *ReferralStore
	therapists *TherapistStore
	bookings   *BookingStore
	events     EventPublisher
	notifier   *NotificationService
	logger     logger.Logger
}

func NewReferralService(referrals *ReferralStore, therapists *TherapistStore, bookings *BookingStore, events EventPublisher, notifier *NotificationService, log logger.Logger) *ReferralService {
	return &ReferralService{
		referrals:  referrals,
		therapists: therapists,
		bookings:   bookings,
		events:     events,
		notifier:   notifier,
		logger:     log.WithFields(map[string]interface{}{"component": "referrals"}),
	}
}

// ReferralFromRequest parses the enum fields of an intake payload.
func ReferralFromRequest(req *models.ReferralRequest) (*models.User, *models.Referral, error) {
	urgency, err := models.ParseUrgency(req.Urgency)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	modality, err := models.ParseModality(req.PreferredModality)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !req.ConsentGiven {
		return nil, nil, fmt.Errorf("%w: consent is required", ErrInvalidInput)
	}

	referrer := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.ReferrerEmail)),
		FullName:     strings.TrimSpace(req.ReferrerName),
		Role:         models.RoleReferrer,
		Phone:        strings.TrimSpace(req.ReferrerPhone),
		Organization: strings.TrimSpace(req.ReferrerOrganization),
	}
	ref := &models.Referral{
		ClientName:          strings.TrimSpace(req.ClientName),
		ClientAge:           req.ClientAge,
		ClientEmail:         strings.TrimSpace(req.ClientEmail),
		ClientPhone:         strings.TrimSpace(req.ClientPhone),
		IssueType:           req.IssueType,
		Urgency:             urgency,
		PreferredLanguage:   req.PreferredLanguage,
		PreferredModality:   modality,
		SpecialRequirements: req.SpecialRequirements,
		ConsentGiven:        req.ConsentGiven,
	}
	return referrer, ref, nil
}

// Submit stores a new referral and emails the referrer a confirmation. The
// returned status describes the confirmation email.
func (s *ReferralService) Submit(ctx context.Context, req *models.ReferralRequest) (*models.Referral, string, error) {
	referrer, ref, err := ReferralFromRequest(req)
	if err != nil {
		return nil, "", err
	}
	if err := s.referrals.Create(ctx, referrer, ref); err != nil {
		return nil, "", err
	}

	status := DeliveryStatus(s.notifier.SendReferralConfirmation(ctx, referrer.Email, ref.ClientName, ref.ID))
	return ref, status, nil
}

func (s *ReferralService) Get(ctx context.Context, id string) (*models.Referral, error) {
	return s.referrals.Get(ctx, id)
}

func (s *ReferralService) ListPending(ctx context.Context) ([]models.Referral, error) {
	return s.referrals.ListByStatus(ctx, models.ReferralPending)
}

func (s *ReferralService) ListForTherapist(ctx context.Context, therapistID string) ([]models.Referral, error) {
	return s.referrals.ListForTherapist(ctx, therapistID)
}

func (s *ReferralService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	return s.referrals.Stats(ctx)
}

// Accept is the matched therapist taking the referral on.
func (s *ReferralService) Accept(ctx context.Context, referralID, therapistID string) error {
	if err := s.referrals.Accept(ctx, referralID, therapistID); err != nil {
		return err
	}
	s.logger.Info("referral accepted", map[string]interface{}{"referral_id": referralID, "therapist_id": therapistID})

	if s.events != nil {
		err := s.events.Publish(ctx, MatchEvent{Type: EventReferralBooked, ReferralID: referralID, TherapistID: therapistID})
		if err != nil {
			s.logger.Warn("booked event publish failed", map[string]interface{}{"referral_id": referralID, "error": err})
		}
	}
	return nil
}

// CreateBooking schedules a session with the therapist the referral is
// matched to and confirms it to the client when an email is on file.
func (s *ReferralService) CreateBooking(ctx context.Context, b *models.Booking) (*models.Booking, string, error) {
	ref, err := s.referrals.Get(ctx, b.ReferralID)
	if err != nil {
		return nil, "", err
	}
	if !sameID(ref.MatchedTherapistID, b.TherapistID) {
		return nil, "", ErrReferralNotMatched
	}
	b.ReferralID = ref.ID
	b.TherapistID = ref.MatchedTherapistID
	if b.DurationMinutes == 0 {
		b.DurationMinutes = 50
	}

	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, "", err
	}

	therapistName := ""
	if t, err := s.therapists.Get(ctx, b.TherapistID); err == nil {
		therapistName = t.Name
	} else {
		s.logger.Warn("therapist lookup for booking email failed", map[string]interface{}{"therapist_id": b.TherapistID, "error": err})
	}

	status := DeliveryStatus(s.notifier.SendBookingConfirmation(ctx, ref.ClientEmail, ref.ClientName, therapistName, b.ScheduledDate, b.MeetingLink))
	return b, status, nil
}

func (s *ReferralService) ListBookings(ctx context.Context, therapistID string) ([]models.Booking, error) {
	return s.bookings.ListForTherapist(ctx, therapistID)
}

// sameID compares ids as UUIDs when both parse, so case and braces do not
// matter, and as plain strings otherwise.
func sameID(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	ua, errA := uuid.Parse(a)
	ub, errB := uuid.Parse(b)
	return errA == nil && errB == nil && ua == ub
}
