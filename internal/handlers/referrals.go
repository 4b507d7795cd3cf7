package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/AnshRaj112/mindmatch-backend/internal/models"
	"github.com/AnshRaj112/mindmatch-backend/internal/validation"
)

// SubmitReferral handles POST /api/referrals
func (h *Handler) SubmitReferral(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, validation.Referral)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	var req models.ReferralRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	ref, emailStatus, err := h.referrals.Submit(ctx, &req)
	if err != nil {
		h.fail(w, r, err, "Failed to submit referral")
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]interface{}{
		"message":      "Referral submitted successfully",
		"referral":     ref,
		"email_status": emailStatus,
	})
}

// GetReferral handles GET /api/referrals/{id}
func (h *Handler) GetReferral(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, "Invalid referral id")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	ref, err := h.referrals.Get(ctx, id)
	if err != nil {
		h.fail(w, r, err, "Failed to load referral")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"referral": ref})
}

// PreviewMatches handles GET /api/referrals/{id}/matches?limit=N. Nothing is
// committed.
func (h *Handler) PreviewMatches(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, "Invalid referral id")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	matches, err := h.matcher.PreviewMatches(ctx, id, limit)
	if err != nil {
		h.fail(w, r, err, "Failed to rank therapists")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"referral_id": id,
		"matches":     matches,
	})
}

type matchRequest struct {
	TherapistID string `json:"therapist_id"`
}

// ProcessReferral handles POST /api/referrals/{id}/match. An empty body
// commits the top-ranked therapist.
func (h *Handler) ProcessReferral(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, "Invalid referral id")
		return
	}

	var req matchRequest
	if r.ContentLength != 0 {
		body, err := readBody(r, validation.MatchRequest)
		if err != nil {
			h.fail(w, r, err, "")
			return
		}
		if err := json.Unmarshal(body, &req); err != nil {
			writeFailure(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.TherapistID != "" {
			if req.TherapistID, ok = canonicalID(req.TherapistID); !ok {
				writeFailure(w, http.StatusBadRequest, "Invalid therapist id")
				return
			}
		}
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	outcome, err := h.matcher.ProcessReferral(ctx, id, req.TherapistID)
	if err != nil {
		h.fail(w, r, err, "Failed to process referral")
		return
	}

	message := "Referral matched"
	if !outcome.Committed {
		message = "No suitable therapist found; referral remains pending"
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"message": message,
		"outcome": outcome,
	})
}

// GetMatchRuns handles GET /api/referrals/{id}/match-runs
func (h *Handler) GetMatchRuns(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, "Invalid referral id")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	runs, err := h.matcher.MatchHistory(ctx, id)
	if err != nil {
		h.fail(w, r, err, "Failed to load match history")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"referral_id": id,
		"runs":        runs,
	})
}

// AcceptReferral handles PUT /api/referrals/{id}/accept. The body names the
// therapist accepting; it must be the one the referral is matched to.
func (h *Handler) AcceptReferral(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, "Invalid referral id")
		return
	}

	var req matchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TherapistID, ok = canonicalID(req.TherapistID); !ok {
		writeFailure(w, http.StatusBadRequest, "Invalid therapist id")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.referrals.Accept(ctx, id, req.TherapistID); err != nil {
		h.fail(w, r, err, "Failed to accept referral")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"message":     "Referral accepted",
		"referral_id": id,
		"status":      models.ReferralBooked,
	})
}

// PendingReferrals handles GET /api/admin/referrals/pending
func (h *Handler) PendingReferrals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	refs, err := h.referrals.ListPending(ctx)
	if err != nil {
		h.fail(w, r, err, "Failed to load referrals")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"referrals": refs,
		"count":     len(refs),
	})
}
