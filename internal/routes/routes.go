package routes

import (
	"net/http"

	"github.com/AnshRaj112/mindmatch-backend/internal/handlers"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers the API. matchLimit wraps the ranking endpoints,
// which hit the database on every call; pass nil to leave them unlimited.
func SetupRoutes(r *chi.Mux, h *handlers.Handler, matchLimit func(http.Handler) http.Handler) {
	// Health check and metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Referral intake
	r.Post("/api/referrals", h.SubmitReferral)
	r.Get("/api/referrals/{id}", h.GetReferral)
	r.Put("/api/referrals/{id}/accept", h.AcceptReferral)
	r.Get("/api/referrals/{id}/match-runs", h.GetMatchRuns)

	// Matching
	r.Group(func(r chi.Router) {
		if matchLimit != nil {
			r.Use(matchLimit)
		}
		r.Get("/api/referrals/{id}/matches", h.PreviewMatches)
		r.Post("/api/referrals/{id}/match", h.ProcessReferral)
	})

	// Therapists
	r.Post("/api/therapists", h.ApplyTherapist)
	r.Get("/api/therapists", h.ListTherapists)
	r.Get("/api/therapists/{id}", h.GetTherapist)
	r.Get("/api/therapists/{id}/referrals", h.TherapistReferrals)
	r.Get("/api/therapists/{id}/bookings", h.TherapistBookings)
	r.Post("/api/therapists/{id}/documents", h.UploadDocument)
	r.Get("/api/therapists/{id}/documents", h.ListDocuments)

	// Bookings
	r.Post("/api/bookings", h.CreateBooking)

	// Admin routes
	r.Get("/api/admin/stats", h.Stats)
	r.Get("/api/admin/referrals/pending", h.PendingReferrals)
	r.Get("/api/admin/therapists/pending", h.PendingTherapists)
	r.Put("/api/admin/therapists/{id}/verify", h.VerifyTherapist)

	// Live match feed for clinical leads
	r.Get("/ws/matches", h.MatchFeed)
}
