package routes

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/AnshRaj112/mindmatch-backend/internal/handlers"
	"github.com/AnshRaj112/mindmatch-backend/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupRoutes_RegistersAPI(t *testing.T) {
	r := chi.NewRouter()
	SetupRoutes(r, handlers.New(nil, nil, nil, nil, logger.NewNoOpLogger()), nil)

	var got []string
	require.NoError(t, chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		got = append(got, method+" "+route)
		return nil
	}))
	sort.Strings(got)

	for _, want := range []string{
		"GET /health",
		"POST /api/referrals",
		"GET /api/referrals/{id}",
		"GET /api/referrals/{id}/matches",
		"POST /api/referrals/{id}/match",
		"GET /api/referrals/{id}/match-runs",
		"PUT /api/referrals/{id}/accept",
		"POST /api/therapists",
		"GET /api/therapists",
		"GET /api/therapists/{id}",
		"GET /api/therapists/{id}/referrals",
		"GET /api/therapists/{id}/bookings",
		"POST /api/therapists/{id}/documents",
		"GET /api/therapists/{id}/documents",
		"POST /api/bookings",
		"GET /api/admin/stats",
		"GET /api/admin/referrals/pending",
		"GET /api/admin/therapists/pending",
		"PUT /api/admin/therapists/{id}/verify",
		"GET /ws/matches",
	} {
		assert.Contains(t, got, want)
	}
}

func TestSetupRoutes_MatchLimitOnlyOnRanking(t *testing.T) {
	var limited []string
	limit := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limited = append(limited, r.URL.Path)
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	r := chi.NewRouter()
	SetupRoutes(r, handlers.New(nil, nil, nil, nil, logger.NewNoOpLogger()), limit)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/referrals/abc/matches"},
		{http.MethodPost, "/api/referrals/abc/match"},
		{http.MethodGet, "/health"},
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
	}

	assert.Equal(t, []string{"/api/referrals/abc/matches", "/api/referrals/abc/match"}, limited)
}
