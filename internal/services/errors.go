package services

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrReferralNotFound      = errors.New("referral not found")
	ErrReferralNotMatched    = errors.New("referral is not matched to this therapist")
	ErrReferralClosed        = errors.New("referral is no longer open for matching")
	ErrTherapistNotFound     = errors.New("therapist not found")
	ErrTherapistNotVerified  = errors.New("therapist is not verified")
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrEncryptionUnavailable = errors.New("encryption key not configured; cannot store client contact details")
	ErrUploadsDisabled       = errors.New("document uploads are not configured")
	ErrInvalidInput          = errors.New("invalid input")
)

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
