package lock

import (
	"context"
	"testing"
	"time"

	"sickfits-be/internal/apperr"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker(t *testing.T) {
	ctx := context.Background()
	key := CheckoutKey("user-1")

	t.Run("ExclusiveUntilReleased", func(t *testing.T) {
		l := NewMemoryLocker()

		release, err := l.Acquire(ctx, key, time.Minute)
		require.NoError(t, err)

		_, err = l.Acquire(ctx, key, time.Minute)
		assert.ErrorIs(t, err, ErrLocked)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

		_, err = l.Acquire(ctx, CheckoutKey("user-2"), time.Minute)
		assert.NoError(t, err)

		release()
		release()

		_, err = l.Acquire(ctx, key, time.Minute)
		assert.NoError(t, err)
	})

	t.Run("ExpiredLockCanBeTaken", func(t *testing.T) {
		l := NewMemoryLocker()
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		l.now = func() time.Time { return now }

		staleRelease, err := l.Acquire(ctx, key, time.Second)
		require.NoError(t, err)

		now = now.Add(2 * time.Second)
		_, err = l.Acquire(ctx, key, time.Minute)
		require.NoError(t, err)

		// A stale holder must not release the new owner's lock.
		staleRelease()
		_, err = l.Acquire(ctx, key, time.Minute)
		assert.ErrorIs(t, err, ErrLocked)
	})
}

func TestRedisLocker_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	defer client.Close()

	_, err := NewRedisLocker(client).Acquire(context.Background(), CheckoutKey("user-1"), time.Second)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
	assert.Contains(t, err.Error(), "acquire lock checkout-lock:user-1")
}
