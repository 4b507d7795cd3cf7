package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/AnshRaj112/mindmatch-backend/internal/models"
	"github.com/AnshRaj112/mindmatch-backend/internal/services"
	"github.com/AnshRaj112/mindmatch-backend/internal/validation"
)

// ApplyTherapist handles POST /api/therapists. New therapists start
// unverified and stay out of matching until an admin approves them.
func (h *Handler) ApplyTherapist(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, validation.Therapist)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	var app models.TherapistApplication
	if err := json.Unmarshal(body, &app); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	t, err := h.therapists.Apply(ctx, &app)
	if err != nil {
		h.fail(w, r, err, "Failed to submit application")
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]interface{}{
		"message":   "Application submitted. You will be notified once it has been reviewed.",
		"therapist": t,
	})
}

// ListTherapists handles GET /api/therapists
func (h *Handler) ListTherapists(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	list, err := h.therapists.ListVerified(ctx)
	if err != nil {
		h.fail(w, r, err, "Failed to load therapists")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"therapists": list,
		"count":      len(list),
	})
}

// GetTherapist handles GET /api/therapists/{id}
func (h *Handler) GetTherapist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, "Invalid therapist id")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	t, err := h.therapists.Get(ctx, id)
	if err != nil {
		h.fail(w, r, err, "Failed to load therapist")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"therapist": t})
}

// TherapistReferrals handles GET /api/therapists/{id}/referrals
func (h *Handler) TherapistReferrals(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, "Invalid therapist id")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	refs, err := h.referrals.ListForTherapist(ctx, id)
	if err != nil {
		h.fail(w, r, err, "Failed to load referrals")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"referrals": refs,
		"count":     len(refs),
	})
}

// TherapistBookings handles GET /api/therapists/{id}/bookings
func (h *Handler) TherapistBookings(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, "Invalid therapist id")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	bookings, err := h.referrals.ListBookings(ctx, id)
	if err != nil {
		h.fail(w, r, err, "Failed to load bookings")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// UploadDocument handles POST /api/therapists/{id}/documents. Expects a
// multipart form with "file" and "document_type".
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, "Invalid therapist id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeFailure(w, http.StatusBadRequest, "Failed to parse form: "+err.Error())
		return
	}

	_, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "No file provided")
		return
	}
	file, err := services.OpenUpload(fileHeader)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	ctx, cancel := requestContext(r)
	defer cancel()

	docType := models.DocumentType(r.FormValue("document_type"))
	doc, err := h.therapists.UploadDocument(ctx, id, docType, fileHeader.Filename, file)
	if err != nil {
		h.fail(w, r, err, "Failed to upload document")
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]interface{}{
		"message":  "File uploaded successfully",
		"document": doc,
	})
}

// ListDocuments handles GET /api/therapists/{id}/documents
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, "Invalid therapist id")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	docs, err := h.therapists.ListDocuments(ctx, id)
	if err != nil {
		h.fail(w, r, err, "Failed to load documents")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"documents": docs})
}
