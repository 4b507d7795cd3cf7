package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/AnshRaj112/mindmatch-backend/internal/logger"
	_ "github.com/lib/pq"
)

var PostgresDB *sql.DB

// ConnectPostgres opens the pool, pings it and creates missing tables.
func ConnectPostgres(postgresURI string, log logger.Logger) error {
	db, err := sql.Open("postgres", postgresURI)
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	log.Info("connected to PostgreSQL", nil)

	if err = InitPostgresTables(ctx, db); err != nil {
		db.Close()
		return err
	}
	log.Info("PostgreSQL tables initialized", nil)

	PostgresDB = db
	return nil
}

// Schema is applied in order on startup. Every statement is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email VARCHAR(255) NOT NULL UNIQUE,
		full_name VARCHAR(255) NOT NULL,
		role VARCHAR(20) NOT NULL CHECK (role IN ('referrer', 'therapist', 'admin', 'clinical_lead')),
		phone VARCHAR(50),
		organization VARCHAR(255),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS therapists (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		license_number VARCHAR(255) NOT NULL,
		qualifications TEXT[] NOT NULL DEFAULT '{}',
		specializations TEXT[] NOT NULL DEFAULT '{}',
		languages TEXT[] NOT NULL DEFAULT '{}',
		availability JSONB,
		hourly_rate NUMERIC(10,2) NOT NULL DEFAULT 0,
		is_verified BOOLEAN NOT NULL DEFAULT FALSE,
		verification_date TIMESTAMPTZ,
		verified_by VARCHAR(255),
		bio TEXT,
		profile_image_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS referrals (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		referrer_id UUID NOT NULL REFERENCES users(id),
		client_name VARCHAR(255) NOT NULL,
		client_age INTEGER NOT NULL CHECK (client_age BETWEEN 0 AND 25),
		client_email_encrypted TEXT,
		client_phone_encrypted TEXT,
		issue_type VARCHAR(100) NOT NULL,
		urgency VARCHAR(10) NOT NULL CHECK (urgency IN ('low', 'medium', 'high', 'crisis')),
		preferred_language VARCHAR(100) NOT NULL,
		preferred_modality VARCHAR(20) NOT NULL CHECK (preferred_modality IN ('video', 'phone', 'chat', 'in_person')),
		special_requirements TEXT,
		consent_given BOOLEAN NOT NULL,
		consent_date TIMESTAMPTZ,
		status VARCHAR(20) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'matched', 'booked', 'completed', 'cancelled')),
		matched_therapist_id UUID REFERENCES therapists(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		referral_id UUID NOT NULL REFERENCES referrals(id) ON DELETE CASCADE,
		therapist_id UUID NOT NULL REFERENCES therapists(id),
		scheduled_date TIMESTAMPTZ NOT NULL,
		duration_minutes INTEGER NOT NULL DEFAULT 50,
		modality VARCHAR(20) NOT NULL,
		meeting_link TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'scheduled' CHECK (status IN ('scheduled', 'completed', 'cancelled', 'no_show')),
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS therapist_documents (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		therapist_id UUID NOT NULL REFERENCES therapists(id) ON DELETE CASCADE,
		document_type VARCHAR(20) NOT NULL CHECK (document_type IN ('license', 'insurance', 'qualification', 'id')),
		file_url TEXT NOT NULL,
		file_name VARCHAR(255) NOT NULL,
		verified BOOLEAN NOT NULL DEFAULT FALSE,
		verified_by VARCHAR(255),
		verified_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_therapists_is_verified ON therapists(is_verified)`,
	`CREATE INDEX IF NOT EXISTS idx_therapists_specializations ON therapists USING GIN (specializations)`,
	`CREATE INDEX IF NOT EXISTS idx_referrals_status ON referrals(status)`,
	`CREATE INDEX IF NOT EXISTS idx_referrals_referrer_id ON referrals(referrer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_referrals_matched_therapist_id ON referrals(matched_therapist_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_therapist_id ON bookings(therapist_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_referral_id ON bookings(referral_id)`,
	`CREATE INDEX IF NOT EXISTS idx_therapist_documents_therapist_id ON therapist_documents(therapist_id)`,
}

// InitPostgresTables creates all necessary tables if they don't exist
func InitPostgresTables(ctx context.Context, db *sql.DB) error {
	for i, query := range Schema {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}

// DisconnectPostgres closes the PostgreSQL connection
func DisconnectPostgres() error {
	if PostgresDB != nil {
		return PostgresDB.Close()
	}
	return nil
}
