// Package lock serializes work per key, across processes when Redis is configured.
package lock

import (
	"context"
	"time"

	"sickfits-be/internal/apperr"
)

var ErrLocked = apperr.New(apperr.KindConflict, "a checkout is already in progress")

// Release gives the lock back. It is safe to call more than once.
type Release func()

type Locker interface {
	// Acquire takes key for at most ttl, failing fast with ErrLocked when it
	// is already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

func CheckoutKey(userID string) string {
	return "checkout-lock:" + userID
}
