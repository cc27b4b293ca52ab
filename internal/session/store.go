// Package session provides the checkout-session store: an explicit,
// injectable map from session id to checkout state, replacing any notion of
// a process-wide session dictionary. Entries are TTL-evicted; the reservation
// TTL remains the authority for holds, the session is only correlation state.
package session

import (
	"context"
	"time"
)

// CheckoutSession is the per-checkout state the HTTP layer tracks between
// reserve and confirm/release: which reservations the session holds and when
// they lapse.
type CheckoutSession struct {
	SessionID      string    `json:"sessionId"`
	UserID         string    `json:"userId"`
	Source         string    `json:"source"`
	ReservationIDs []string  `json:"reservationIds"`
	ExpiresAt      time.Time `json:"expiresAt"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Store is the session persistence contract. The in-memory implementation
// serves a single process; the Redis implementation serves multi-worker
// deployments. Both evict by TTL.
type Store interface {
	// Get returns the session and whether it exists (expired counts as
	// absent).
	Get(ctx context.Context, sessionID string) (*CheckoutSession, bool, error)

	// Put stores or replaces the session with the store's TTL.
	Put(ctx context.Context, s *CheckoutSession) error

	// Delete removes the session; deleting an absent session is a no-op.
	Delete(ctx context.Context, sessionID string) error
}
