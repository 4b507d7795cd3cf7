package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AnshRaj112/mindmatch-backend/internal/logger"
	"github.com/AnshRaj112/mindmatch-backend/internal/models"
	"github.com/AnshRaj112/mindmatch-backend/pkg/utils"
)

const referralColumns = `id, referrer_id, client_name, client_age, client_email_encrypted, client_phone_encrypted,
	issue_type, urgency, preferred_language, preferred_modality, special_requirements,
	consent_given, consent_date, status, matched_therapist_id, created_at, updated_at`

// ReferralStore persists referrals. Client email and phone are encrypted
// before they are written and decrypted on read.
type ReferralStore struct {
	db     *sql.DB
	cipher *utils.FieldCipher
	logger logger.Logger
	now    func() time.Time
}

// NewReferralStore accepts a nil cipher; referrals carrying client contact
// details are then rejected with ErrEncryptionUnavailable.
func NewReferralStore(db *sql.DB, cipher *utils.FieldCipher, log logger.Logger) *ReferralStore {
	return &ReferralStore{
		db:     db,
		cipher: cipher,
		logger: log.WithFields(map[string]interface{}{"component": "referral_store"}),
		now:    time.Now,
	}
}

func (s *ReferralStore) encrypt(v string) (sql.NullString, error) {
	if v == "" {
		return sql.NullString{}, nil
	}
	if s.cipher == nil {
		return sql.NullString{}, ErrEncryptionUnavailable
	}
	enc, err := s.cipher.Encrypt(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: enc, Valid: true}, nil
}

func (s *ReferralStore) decrypt(v sql.NullString) (string, error) {
	if !v.Valid || v.String == "" {
		return "", nil
	}
	if s.cipher == nil {
		return "", ErrEncryptionUnavailable
	}
	return s.cipher.Decrypt(v.String)
}

// Create upserts the referrer by email and inserts the referral as pending.
func (s *ReferralStore) Create(ctx context.Context, referrer *models.User, r *models.Referral) error {
	email, err := s.encrypt(r.ClientEmail)
	if err != nil {
		return err
	}
	phone, err := s.encrypt(r.ClientPhone)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := s.now().UTC()
	err = tx.QueryRowContext(ctx,
		`INSERT INTO users (email, full_name, role, phone, organization, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 ON CONFLICT (email) DO UPDATE
		 SET full_name = EXCLUDED.full_name,
		     phone = COALESCE(EXCLUDED.phone, users.phone),
		     organization = COALESCE(EXCLUDED.organization, users.organization),
		     updated_at = EXCLUDED.updated_at
		 RETURNING id`,
		referrer.Email, referrer.FullName, string(models.RoleReferrer),
		nullString(referrer.Phone), nullString(referrer.Organization), now,
	).Scan(&referrer.ID)
	if err != nil {
		return fmt.Errorf("upsert referrer: %w", err)
	}

	r.ReferrerID = referrer.ID
	r.Status = models.ReferralPending
	r.CreatedAt = now
	r.UpdatedAt = now
	if r.ConsentGiven && r.ConsentDate == nil {
		r.ConsentDate = &now
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO referrals (referrer_id, client_name, client_age, client_email_encrypted, client_phone_encrypted,
			issue_type, urgency, preferred_language, preferred_modality, special_requirements,
			consent_given, consent_date, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		 RETURNING id`,
		r.ReferrerID, r.ClientName, r.ClientAge, email, phone,
		r.IssueType, r.Urgency, r.PreferredLanguage, r.PreferredModality, nullString(r.SpecialRequirements),
		r.ConsentGiven, r.ConsentDate, string(r.Status), now,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("insert referral: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Info("referral created", map[string]interface{}{
		"referral_id": r.ID,
		"issue_type":  r.IssueType,
		"urgency":     r.Urgency.String(),
	})
	return nil
}

func (s *ReferralStore) scanReferral(row rowScanner) (*models.Referral, error) {
	var (
		r            models.Referral
		email, phone sql.NullString
		requirements sql.NullString
		consentDate  sql.NullTime
		status       string
		matchedID    sql.NullString
	)
	err := row.Scan(&r.ID, &r.ReferrerID, &r.ClientName, &r.ClientAge, &email, &phone,
		&r.IssueType, &r.Urgency, &r.PreferredLanguage, &r.PreferredModality, &requirements,
		&r.ConsentGiven, &consentDate, &status, &matchedID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	r.SpecialRequirements = requirements.String
	r.Status = models.ReferralStatus(status)
	r.MatchedTherapistID = matchedID.String
	if consentDate.Valid {
		ts := consentDate.Time
		r.ConsentDate = &ts
	}

	if r.ClientEmail, err = s.decrypt(email); err != nil {
		return nil, fmt.Errorf("decrypt client email: %w", err)
	}
	if r.ClientPhone, err = s.decrypt(phone); err != nil {
		return nil, fmt.Errorf("decrypt client phone: %w", err)
	}
	return &r, nil
}

func (s *ReferralStore) Get(ctx context.Context, id string) (*models.Referral, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+referralColumns+` FROM referrals WHERE id = $1`, id)
	r, err := s.scanReferral(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReferralNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get referral %s: %w", id, err)
	}
	return r, nil
}

func (s *ReferralStore) list(ctx context.Context, where string, args ...interface{}) ([]models.Referral, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+referralColumns+` FROM referrals WHERE `+where+` ORDER BY created_at ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Referral, 0)
	for rows.Next() {
		r, err := s.scanReferral(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ListByStatus returns referrals oldest first, which is the order admins work
// the queue in.
func (s *ReferralStore) ListByStatus(ctx context.Context, status models.ReferralStatus) ([]models.Referral, error) {
	out, err := s.list(ctx, "status = $1", string(status))
	if err != nil {
		return nil, fmt.Errorf("list %s referrals: %w", status, err)
	}
	return out, nil
}

func (s *ReferralStore) ListForTherapist(ctx context.Context, therapistID string) ([]models.Referral, error) {
	out, err := s.list(ctx, "matched_therapist_id = $1", therapistID)
	if err != nil {
		return nil, fmt.Errorf("list referrals for therapist %s: %w", therapistID, err)
	}
	return out, nil
}

// CommitMatch assigns the therapist and moves the referral to matched. It is
// a single-row update with no retry; concurrent commits for the same referral
// resolve as last write wins. Only pending or matched referrals are updated,
// so a commit never undoes a booking.
func (s *ReferralStore) CommitMatch(ctx context.Context, referralID, therapistID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE referrals
		 SET matched_therapist_id = $2, status = $3, updated_at = $4
		 WHERE id = $1 AND status IN ($5, $6)`,
		referralID, therapistID, string(models.ReferralMatched), s.now().UTC(),
		string(models.ReferralPending), string(models.ReferralMatched),
	)
	if err != nil {
		return fmt.Errorf("commit match for referral %s: %w", referralID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM referrals WHERE id = $1)`, referralID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("commit match for referral %s: %w", referralID, err)
	}
	if exists {
		return ErrReferralClosed
	}
	return ErrReferralNotFound
}

// Accept marks a matched referral as booked by its matched therapist.
func (s *ReferralStore) Accept(ctx context.Context, referralID, therapistID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE referrals
		 SET status = $3, updated_at = $4
		 WHERE id = $1 AND matched_therapist_id = $2 AND status = $5`,
		referralID, therapistID, string(models.ReferralBooked), s.now().UTC(), string(models.ReferralMatched),
	)
	if err != nil {
		return fmt.Errorf("accept referral %s: %w", referralID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrReferralNotMatched
	}
	return nil
}

func (s *ReferralStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var (
		u          models.User
		role       string
		phone, org sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, full_name, role, phone, organization, created_at, updated_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.FullName, &role, &phone, &org, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	u.Role = models.UserRole(role)
	u.Phone = phone.String
	u.Organization = org.String
	return &u, nil
}

// Stats backs the admin dashboard.
func (s *ReferralStore) Stats(ctx context.Context) (*models.DashboardStats, error) {
	var st models.DashboardStats
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM referrals),
		(SELECT COUNT(*) FROM referrals WHERE status = 'pending'),
		(SELECT COUNT(*) FROM referrals WHERE status = 'matched'),
		(SELECT COUNT(*) FROM therapists),
		(SELECT COUNT(*) FROM therapists WHERE is_verified = TRUE),
		(SELECT COUNT(*) FROM therapists WHERE is_verified = FALSE),
		(SELECT COUNT(*) FROM bookings),
		(SELECT COUNT(*) FROM bookings WHERE status = 'completed')`,
	).Scan(&st.TotalReferrals, &st.PendingReferrals, &st.MatchedReferrals,
		&st.TotalTherapists, &st.VerifiedTherapists, &st.PendingTherapists,
		&st.TotalBookings, &st.CompletedSessions)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return &st, nil
}
