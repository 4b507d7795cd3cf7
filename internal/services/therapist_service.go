package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/AnshRaj112/mindmatch-backend/internal/logger"
	"github.com/AnshRaj112/mindmatch-backend/internal/models"
	"github.com/google/uuid"
)

// TherapistService covers applications, admin verification and credential
// documents.
type TherapistService struct {
	store          *TherapistStore
	uploader       FileUploader
	documentFolder string
	notifier       *NotificationService
	logger         logger.Logger
}

// NewTherapistService accepts a nil uploader; document uploads then fail with
// ErrUploadsDisabled.
func NewTherapistService(store *TherapistStore, uploader FileUploader, documentFolder string, notifier *NotificationService, log logger.Logger) *TherapistService {
	return &TherapistService{
		store:          store,
		uploader:       uploader,
		documentFolder: documentFolder,
		notifier:       notifier,
		logger:         log.WithFields(map[string]interface{}{"component": "therapists"}),
	}
}

func (s *TherapistService) Apply(ctx context.Context, app *models.TherapistApplication) (*models.Therapist, error) {
	app.Email = strings.ToLower(strings.TrimSpace(app.Email))
	app.Name = strings.TrimSpace(app.Name)
	return s.store.Create(ctx, app)
}

func (s *TherapistService) ListVerified(ctx context.Context) ([]models.Therapist, error) {
	return s.store.ListVerified(ctx)
}

func (s *TherapistService) ListPending(ctx context.Context) ([]models.Therapist, error) {
	return s.store.ListPending(ctx)
}

func (s *TherapistService) Get(ctx context.Context, id string) (*models.Therapist, error) {
	return s.store.Get(ctx, id)
}

// Verify records an approval or rejection and emails the therapist. Approval
// puts the therapist into the matching pool straight away.
func (s *TherapistService) Verify(ctx context.Context, id string, verified bool, verifiedBy, reason string) (*models.Therapist, string, error) {
	t, err := s.store.SetVerification(ctx, id, verified, verifiedBy)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("therapist verification updated", map[string]interface{}{
		"therapist_id": id,
		"verified":     verified,
		"verified_by":  verifiedBy,
	})

	var sendErr error
	if verified {
		sendErr = s.notifier.SendTherapistApproval(ctx, t.Email, t.Name)
	} else {
		sendErr = s.notifier.SendTherapistRejection(ctx, t.Email, t.Name, reason)
	}
	return t, DeliveryStatus(sendErr), nil
}

// UploadDocument stores a credential file and records it against the
// therapist for admin review.
func (s *TherapistService) UploadDocument(ctx context.Context, therapistID string, docType models.DocumentType, fileName string, file io.Reader) (*models.TherapistDocument, error) {
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	if !docType.Valid() {
		return nil, fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, docType)
	}
	if _, err := s.store.Get(ctx, therapistID); err != nil {
		return nil, err
	}

	publicID := string(docType) + "-" + uuid.NewString()
	url, err := s.uploader.Upload(ctx, file, DocumentFolder(s.documentFolder, therapistID), publicID)
	if err != nil {
		return nil, err
	}

	doc := &models.TherapistDocument{
		TherapistID:  therapistID,
		DocumentType: docType,
		FileURL:      url,
		FileName:     filepath.Base(fileName),
	}
	if err := s.store.AddDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *TherapistService) ListDocuments(ctx context.Context, therapistID string) ([]models.TherapistDocument, error) {
	return s.store.ListDocuments(ctx, therapistID)
}
