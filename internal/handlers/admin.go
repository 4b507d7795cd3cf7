package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/AnshRaj112/mindmatch-backend/internal/validation"
)

// PendingTherapists handles GET /api/admin/therapists/pending
func (h *Handler) PendingTherapists(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	list, err := h.therapists.ListPending(ctx)
	if err != nil {
		h.fail(w, r, err, "Failed to load therapists")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"therapists": list,
		"count":      len(list),
	})
}

type verifyRequest struct {
	Verified   bool   `json:"verified"`
	VerifiedBy string `json:"verified_by"`
	Reason     string `json:"reason"`
}

// VerifyTherapist handles PUT /api/admin/therapists/{id}/verify
func (h *Handler) VerifyTherapist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, "Invalid therapist id")
		return
	}
	body, err := readBody(r, validation.Verification)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	var req verifyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	t, emailStatus, err := h.therapists.Verify(ctx, id, req.Verified, req.VerifiedBy, req.Reason)
	if err != nil {
		h.fail(w, r, err, "Failed to update therapist")
		return
	}

	message := "Therapist approved"
	if !req.Verified {
		message = "Therapist rejected"
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"message":      message,
		"therapist":    t,
		"email_status": emailStatus,
	})
}

// Stats handles GET /api/admin/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	stats, err := h.referrals.Stats(ctx)
	if err != nil {
		h.fail(w, r, err, "Failed to load stats")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"stats": stats})
}
