package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AnshRaj112/mindmatch-backend/internal/logger"
	"github.com/AnshRaj112/mindmatch-backend/internal/models"
	"github.com/lib/pq"
)

var verifiedPoolKey = CacheKey("therapists", "verified")

const therapistColumns = `t.id, t.user_id, u.full_name, u.email, t.license_number,
	t.qualifications, t.specializations, t.languages, t.availability, t.hourly_rate,
	t.bio, t.profile_image_url, t.is_verified, t.verification_date, t.verified_by,
	t.created_at, t.updated_at`

// TherapistStore reads and writes therapist profiles in Postgres. The verified
// pool used for matching is cached in Redis and dropped whenever a
// verification decision changes it.
type TherapistStore struct {
	db       *sql.DB
	cache    *CacheService
	cacheTTL time.Duration
	logger   logger.Logger
	now      func() time.Time
}

func NewTherapistStore(db *sql.DB, cache *CacheService, cacheTTL time.Duration, log logger.Logger) *TherapistStore {
	return &TherapistStore{
		db:       db,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   log.WithFields(map[string]interface{}{"component": "therapist_store"}),
		now:      time.Now,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTherapist(row rowScanner) (*models.Therapist, error) {
	var (
		t            models.Therapist
		availability []byte
		bio          sql.NullString
		image        sql.NullString
		verifiedAt   sql.NullTime
		verifiedBy   sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.Name, &t.Email, &t.LicenseNumber,
		pq.Array(&t.Qualifications), pq.Array(&t.Specializations), pq.Array(&t.Languages),
		&availability, &t.HourlyRate,
		&bio, &image, &t.IsVerified, &verifiedAt, &verifiedBy,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(availability) > 0 {
		t.Availability = json.RawMessage(availability)
	}
	t.Bio = bio.String
	t.ProfileImageURL = image.String
	t.VerifiedBy = verifiedBy.String
	if verifiedAt.Valid {
		ts := verifiedAt.Time
		t.VerificationDate = &ts
	}
	return &t, nil
}

func (s *TherapistStore) queryTherapists(ctx context.Context, where string, args ...interface{}) ([]models.Therapist, error) {
	query := `SELECT ` + therapistColumns + `
		FROM therapists t
		JOIN users u ON u.id = t.user_id
		WHERE ` + where + `
		ORDER BY t.created_at ASC, t.id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	therapists := make([]models.Therapist, 0)
	for rows.Next() {
		t, err := scanTherapist(rows)
		if err != nil {
			return nil, err
		}
		therapists = append(therapists, *t)
	}
	return therapists, rows.Err()
}

// ListVerified returns the matching pool in a stable order (oldest
// registration first), so ties in the ranking are deterministic.
func (s *TherapistStore) ListVerified(ctx context.Context) ([]models.Therapist, error) {
	if s.cache != nil {
		var cached []models.Therapist
		hit, err := s.cache.Get(ctx, verifiedPoolKey, &cached)
		if err != nil {
			s.logger.Warn("verified pool cache read failed", map[string]interface{}{"error": err})
		}
		if hit {
			return cached, nil
		}
	}

	therapists, err := s.queryTherapists(ctx, "t.is_verified = TRUE")
	if err != nil {
		return nil, fmt.Errorf("list verified therapists: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, verifiedPoolKey, therapists, s.cacheTTL); err != nil {
			s.logger.Warn("verified pool cache write failed", map[string]interface{}{"error": err})
		}
	}
	return therapists, nil
}

func (s *TherapistStore) ListPending(ctx context.Context) ([]models.Therapist, error) {
	therapists, err := s.queryTherapists(ctx, "t.is_verified = FALSE")
	if err != nil {
		return nil, fmt.Errorf("list pending therapists: %w", err)
	}
	return therapists, nil
}

func (s *TherapistStore) Get(ctx context.Context, id string) (*models.Therapist, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+therapistColumns+`
		FROM therapists t
		JOIN users u ON u.id = t.user_id
		WHERE t.id = $1`, id)

	t, err := scanTherapist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTherapistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get therapist %s: %w", id, err)
	}
	return t, nil
}

// IsTherapistAvailable reports whether the therapist may take referrals.
// Only the verification flag is consulted; calendars are not.
func (s *TherapistStore) IsTherapistAvailable(ctx context.Context, id string) (bool, error) {
	var verified bool
	err := s.db.QueryRowContext(ctx, `SELECT is_verified FROM therapists WHERE id = $1`, id).Scan(&verified)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrTherapistNotFound
	}
	if err != nil {
		return false, fmt.Errorf("check therapist %s: %w", id, err)
	}
	return verified, nil
}

// Create registers an unverified therapist together with their user row.
func (s *TherapistStore) Create(ctx context.Context, app *models.TherapistApplication) (*models.Therapist, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := s.now().UTC()
	var userID string
	err = tx.QueryRowContext(ctx,
		`INSERT INTO users (email, full_name, role, phone, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 RETURNING id`,
		app.Email, app.Name, string(models.RoleTherapist), nullString(app.Phone), now,
	).Scan(&userID)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, fmt.Errorf("insert therapist user: %w", err)
	}

	var availability interface{}
	if len(app.Availability) > 0 {
		availability = []byte(app.Availability)
	}

	t := &models.Therapist{
		UserID:          userID,
		Name:            app.Name,
		Email:           app.Email,
		LicenseNumber:   app.LicenseNumber,
		Qualifications:  app.Qualifications,
		Specializations: app.Specializations,
		Languages:       app.Languages,
		Availability:    app.Availability,
		HourlyRate:      app.HourlyRate,
		Bio:             app.Bio,
		ProfileImageURL: app.ProfileImageURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO therapists (user_id, license_number, qualifications, specializations, languages,
			availability, hourly_rate, bio, profile_image_url, is_verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, $10, $10)
		 RETURNING id`,
		userID, app.LicenseNumber, pq.Array(nonNil(app.Qualifications)), pq.Array(nonNil(app.Specializations)), pq.Array(nonNil(app.Languages)),
		availability, app.HourlyRate, nullString(app.Bio), nullString(app.ProfileImageURL), now,
	).Scan(&t.ID)
	if err != nil {
		return nil, fmt.Errorf("insert therapist: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("therapist registered", map[string]interface{}{"therapist_id": t.ID})
	return t, nil
}

// SetVerification records an admin decision. Approval stamps the
// verification date; rejection clears it.
func (s *TherapistStore) SetVerification(ctx context.Context, id string, verified bool, verifiedBy string) (*models.Therapist, error) {
	now := s.now().UTC()
	var verificationDate interface{}
	if verified {
		verificationDate = now
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE therapists
		 SET is_verified = $2, verification_date = $3, verified_by = $4, updated_at = $5
		 WHERE id = $1`,
		id, verified, verificationDate, nullString(verifiedBy), now,
	)
	if err != nil {
		return nil, fmt.Errorf("update therapist verification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrTherapistNotFound
	}

	s.InvalidatePool(ctx)
	return s.Get(ctx, id)
}

// InvalidatePool drops the cached verified pool.
func (s *TherapistStore) InvalidatePool(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, verifiedPoolKey); err != nil {
		s.logger.Warn("verified pool cache invalidation failed", map[string]interface{}{"error": err})
	}
}

func (s *TherapistStore) AddDocument(ctx context.Context, doc *models.TherapistDocument) error {
	doc.CreatedAt = s.now().UTC()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO therapist_documents (therapist_id, document_type, file_url, file_name, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		doc.TherapistID, string(doc.DocumentType), doc.FileURL, doc.FileName, doc.CreatedAt,
	).Scan(&doc.ID)
	if err != nil {
		return fmt.Errorf("insert therapist document: %w", err)
	}
	return nil
}

func (s *TherapistStore) ListDocuments(ctx context.Context, therapistID string) ([]models.TherapistDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, therapist_id, document_type, file_url, file_name, verified, verified_by, verified_at, created_at
		 FROM therapist_documents
		 WHERE therapist_id = $1
		 ORDER BY created_at DESC`, therapistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]models.TherapistDocument, 0)
	for rows.Next() {
		var (
			d          models.TherapistDocument
			docType    string
			verifiedBy sql.NullString
			verifiedAt sql.NullTime
		)
		if err := rows.Scan(&d.ID, &d.TherapistID, &docType, &d.FileURL, &d.FileName,
			&d.Verified, &verifiedBy, &verifiedAt, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.DocumentType = models.DocumentType(docType)
		d.VerifiedBy = verifiedBy.String
		if verifiedAt.Valid {
			ts := verifiedAt.Time
			d.VerifiedAt = &ts
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// nonNil keeps pq from writing NULL into NOT NULL array columns.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
