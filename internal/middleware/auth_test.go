package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareRejectsMissingKey(t *testing.T) {
	handler := AuthMiddleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/reservations/res-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsInvalidKey(t *testing.T) {
	t.Setenv("API_KEYS", "valid-key")
	handler := AuthMiddleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/reservations/res-1", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareAcceptsConfiguredKey(t *testing.T) {
	t.Setenv("API_KEYS", "valid-key, other-key")
	handler := AuthMiddleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/reservations/res-1", nil)
	req.Header.Set("X-API-Key", "other-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAuthMiddlewareForbidsNonAdminKey(t *testing.T) {
	t.Setenv("API_KEYS", "valid-key")
	t.Setenv("ADMIN_API_KEYS", "admin-secret")
	handler := AdminAuthMiddleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/sweep", nil)
	req.Header.Set("X-API-Key", "valid-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	req.Header.Set("X-API-Key", "admin-secret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterEnforcesIPLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		Enabled:           true,
		Type:              RateLimitTypeIP,
		RequestsPerMinute: 2,
		WindowMinutes:     1,
	})
	defer rl.Stop()

	allowed, _ := rl.IsAllowed("10.0.0.1", false)
	assert.True(t, allowed)
	allowed, _ = rl.IsAllowed("10.0.0.1", false)
	assert.True(t, allowed)
	allowed, info := rl.IsAllowed("10.0.0.1", false)
	assert.False(t, allowed)
	assert.Equal(t, 2, info.Limit)

	// Other IPs have their own budget.
	allowed, _ = rl.IsAllowed("10.0.0.2", false)
	assert.True(t, allowed)
}

func TestRateLimiterDisabledAllowsEverything(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Enabled: false})
	defer rl.Stop()

	for i := 0; i < 100; i++ {
		allowed, info := rl.IsAllowed("10.0.0.1", false)
		assert.True(t, allowed)
		assert.Equal(t, -1, info.Limit)
	}
}
