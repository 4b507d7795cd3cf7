package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/AnshRaj112/mindmatch-backend/internal/models"
	"github.com/AnshRaj112/mindmatch-backend/internal/validation"
)

// CreateBooking handles POST /api/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, validation.Booking)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	var b models.Booking
	if err := json.Unmarshal(body, &b); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	var ok bool
	if b.ReferralID, ok = canonicalID(b.ReferralID); !ok {
		writeFailure(w, http.StatusBadRequest, "Invalid referral id")
		return
	}
	if b.TherapistID, ok = canonicalID(b.TherapistID); !ok {
		writeFailure(w, http.StatusBadRequest, "Invalid therapist id")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	booking, emailStatus, err := h.referrals.CreateBooking(ctx, &b)
	if err != nil {
		h.fail(w, r, err, "Failed to create booking")
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]interface{}{
		"message":      "Session booked",
		"booking":      booking,
		"email_status": emailStatus,
	})
}
