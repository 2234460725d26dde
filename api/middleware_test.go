package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yairkad/vaad-bayit-sub000/auth"
	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

func TestAuthenticate_StoresScope(t *testing.T) {
	var got billing.BuildingScope
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = scopeOf(r)
		w.WriteHeader(http.StatusNoContent)
	})
	handler := Authenticate(testSecret)(next)

	token, err := auth.NewToken(committee, testSecret, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/tenants", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, committee, got)
}

func TestAuthenticate_BuildinglessToken(t *testing.T) {
	// GIVEN: an admin token without a building
	// WHEN: calling a building route and the building list
	// THEN: only the building list accepts it
	handler := Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	token, err := auth.NewToken(billing.BuildingScope{UserID: "u-admin", Role: billing.RoleAdmin}, testSecret, time.Hour)
	require.NoError(t, err)

	for path, want := range map[string]int{
		"/api/tenants":   http.StatusBadRequest,
		"/api/buildings": http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, path)
	}
}

func TestRateLimiter_PerClientWithRefill(t *testing.T) {
	// GIVEN: a limiter of 2 per minute and a controllable clock
	// WHEN: one client exhausts its burst
	// THEN: it is refused until a token refills; other clients are unaffected
	now := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2)
	rl.now = func() time.Time { return now }

	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/invites/x/redeem", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:5000"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:5002"), "port does not matter")
	assert.Equal(t, http.StatusOK, call("10.0.0.2:5000"))

	now = now.Add(30 * time.Second)
	assert.Equal(t, http.StatusOK, call("10.0.0.1:5003"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:5004"))
}

func TestRateLimiter_DropsIdleClients(t *testing.T) {
	now := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1)
	rl.now = func() time.Time { return now }

	rl.getClientLimiter("10.0.0.1")
	rl.getClientLimiter("10.0.0.2")
	assert.Len(t, rl.clients, 2)

	now = now.Add(time.Hour)
	rl.getClientLimiter("10.0.0.3")
	assert.Len(t, rl.clients, 1)
	assert.Contains(t, rl.clients, "10.0.0.3")
}

func TestNewRateLimiter_MinimumOne(t *testing.T) {
	rl := NewRateLimiter(0)
	assert.Equal(t, 1, rl.burst)
}
