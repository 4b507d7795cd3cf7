package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/AnshRaj112/mindmatch-backend/internal/logger"
	"github.com/AnshRaj112/mindmatch-backend/internal/matching"
	"github.com/AnshRaj112/mindmatch-backend/internal/models"
	"github.com/AnshRaj112/mindmatch-backend/internal/services"
	"github.com/AnshRaj112/mindmatch-backend/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	requestTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
	maxUploadBytes = 10 << 20
)

type Matcher interface {
	PreviewMatches(ctx context.Context, referralID string, limit int) ([]matching.MatchResult, error)
	ProcessReferral(ctx context.Context, referralID, therapistID string) (*services.MatchOutcome, error)
	MatchHistory(ctx context.Context, referralID string) ([]models.MatchRun, error)
}

type Referrals interface {
	Submit(ctx context.Context, req *models.ReferralRequest) (*models.Referral, string, error)
	Get(ctx context.Context, id string) (*models.Referral, error)
	ListPending(ctx context.Context) ([]models.Referral, error)
	ListForTherapist(ctx context.Context, therapistID string) ([]models.Referral, error)
	Stats(ctx context.Context) (*models.DashboardStats, error)
	Accept(ctx context.Context, referralID, therapistID string) error
	CreateBooking(ctx context.Context, b *models.Booking) (*models.Booking, string, error)
	ListBookings(ctx context.Context, therapistID string) ([]models.Booking, error)
}

type Therapists interface {
	Apply(ctx context.Context, app *models.TherapistApplication) (*models.Therapist, error)
	ListVerified(ctx context.Context) ([]models.Therapist, error)
	ListPending(ctx context.Context) ([]models.Therapist, error)
	Get(ctx context.Context, id string) (*models.Therapist, error)
	Verify(ctx context.Context, id string, verified bool, verifiedBy, reason string) (*models.Therapist, string, error)
	UploadDocument(ctx context.Context, therapistID string, docType models.DocumentType, fileName string, file io.Reader) (*models.TherapistDocument, error)
	ListDocuments(ctx context.Context, therapistID string) ([]models.TherapistDocument, error)
}

// Watchers is the live match feed the websocket endpoint registers with.
type Watchers interface {
	Register(conn services.EventConn) string
	Unregister(id string)
}

// Handler carries the services behind the HTTP API.
type Handler struct {
	matcher    Matcher
	referrals  Referrals
	therapists Therapists
	watchers   Watchers
	logger     logger.Logger
}

func New(matcher Matcher, referrals Referrals, therapists Therapists, watchers Watchers, log logger.Logger) *Handler {
	return &Handler{
		matcher:    matcher,
		referrals:  referrals,
		therapists: therapists,
		watchers:   watchers,
		logger:     log.WithFields(map[string]interface{}{"component": "http"}),
	}
}

func writeJSON(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, body map[string]interface{}) {
	if body == nil {
		body = map[string]interface{}{}
	}
	body["success"] = true
	writeJSON(w, status, body)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// statusFor maps service errors onto HTTP status codes. Anything unknown is
// treated as a server-side failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, validation.ErrInvalidPayload), errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrReferralNotFound), errors.Is(err, services.ErrTherapistNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrReferralClosed),
		errors.Is(err, services.ErrReferralNotMatched),
		errors.Is(err, services.ErrTherapistNotVerified),
		errors.Is(err, services.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, services.ErrUploadsDisabled), errors.Is(err, services.ErrEncryptionUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fail writes an error response. Server errors get a generic message and
// are logged; client errors echo the error text.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, serverMsg string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		h.logger.Error(serverMsg, map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
			"error":  err,
		})
		writeFailure(w, status, serverMsg)
		return
	}
	writeFailure(w, status, err.Error())
}

// readBody reads and validates a JSON body against schema.
func readBody(r *http.Request, schema *validation.Schema) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, &validation.Error{Problems: []string{"could not read body"}}
	}
	if err := schema.Validate(body); err != nil {
		return nil, err
	}
	return body, nil
}

// pathID returns the named URL parameter when it is a UUID.
func pathID(r *http.Request, name string) (string, bool) {
	return canonicalID(chi.URLParam(r, name))
}

// canonicalID parses any form uuid.Parse accepts and returns the lowercase
// hyphenated form Postgres stores.
func canonicalID(raw string) (string, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}
