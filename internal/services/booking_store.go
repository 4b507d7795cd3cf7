package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/AnshRaj112/mindmatch-backend/internal/models"
)

type BookingStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewBookingStore(db *sql.DB) *BookingStore {
	return &BookingStore{db: db, now: time.Now}
}

func (s *BookingStore) Create(ctx context.Context, b *models.Booking) error {
	now := s.now().UTC()
	b.Status = models.BookingScheduled
	b.CreatedAt = now
	b.UpdatedAt = now

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO bookings (referral_id, therapist_id, scheduled_date, duration_minutes, modality,
			meeting_link, status, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		 RETURNING id`,
		b.ReferralID, b.TherapistID, b.ScheduledDate, b.DurationMinutes, b.Modality,
		nullString(b.MeetingLink), string(b.Status), nullString(b.Notes), now,
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (s *BookingStore) ListForTherapist(ctx context.Context, therapistID string) ([]models.Booking, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, referral_id, therapist_id, scheduled_date, duration_minutes, modality,
			meeting_link, status, notes, created_at, updated_at
		 FROM bookings
		 WHERE therapist_id = $1
		 ORDER BY scheduled_date ASC`, therapistID)
	if err != nil {
		return nil, fmt.Errorf("list bookings for therapist %s: %w", therapistID, err)
	}
	defer rows.Close()

	out := make([]models.Booking, 0)
	for rows.Next() {
		var (
			b           models.Booking
			link, notes sql.NullString
			status      string
		)
		if err := rows.Scan(&b.ID, &b.ReferralID, &b.TherapistID, &b.ScheduledDate, &b.DurationMinutes,
			&b.Modality, &link, &status, &notes, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.MeetingLink = link.String
		b.Notes = notes.String
		b.Status = models.BookingStatus(status)
		out = append(out, b)
	}
	return out, rows.Err()
}
