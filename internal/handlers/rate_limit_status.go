package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"inventory-reservation-api/internal/middleware"
)

// RateLimitStatusHandler handles rate limiting status requests
type RateLimitStatusHandler struct {
	rateLimiter *middleware.RateLimiter
}

// NewRateLimitStatusHandler creates a new rate limit status handler
func NewRateLimitStatusHandler(rateLimiter *middleware.RateLimiter) *RateLimitStatusHandler {
	return &RateLimitStatusHandler{
		rateLimiter: rateLimiter,
	}
}

// GetRateLimitStatus returns current rate limiting statistics
func (h *RateLimitStatusHandler) GetRateLimitStatus(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Getting rate limit status", "remote_addr", r.RemoteAddr)

	if h.rateLimiter == nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "rate_limiter_unavailable", "Rate limiter not available", nil)
		return
	}

	writeJSONResponse(w, http.StatusOK, h.rateLimiter.GetRateLimitStats())
}

// ResetRateLimits resets all rate limiting counters (admin only)
func (h *RateLimitStatusHandler) ResetRateLimits(w http.ResponseWriter, r *http.Request) {
	slog.Info("Resetting rate limits", "remote_addr", r.RemoteAddr)

	if h.rateLimiter == nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "rate_limiter_unavailable", "Rate limiter not available", nil)
		return
	}

	h.rateLimiter.ResetRateLimits()

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message":   "Rate limits reset successfully",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
