package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	locker, err := NewLocker(NewMemoryStore(), "test", time.Minute)
	require.NoError(t, err)

	lease, err := locker.Acquire(ctx, "order:1")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "order:1")
	assert.ErrorIs(t, err, ErrLocked)

	other, err := locker.Acquire(ctx, "order:2")
	require.NoError(t, err, "different names must not contend")
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lease.Release(ctx))
	require.NoError(t, lease.Release(ctx), "second release is a no-op")

	again, err := locker.Acquire(ctx, "order:1")
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLocker_ExpiredLeaseDoesNotReleaseNewOwner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	locker, err := NewLocker(store, "", time.Second)
	require.NoError(t, err)

	stale, err := locker.Acquire(ctx, "order:1")
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := locker.Acquire(ctx, "order:1")
	require.NoError(t, err, "expired lease can be taken over")

	require.NoError(t, stale.Release(ctx))

	_, err = locker.Acquire(ctx, "order:1")
	assert.ErrorIs(t, err, ErrLocked, "stale release must not free the new owner's lock")
	require.NoError(t, fresh.Release(ctx))
}

func TestLocker_ConcurrentAcquireHasOneWinner(t *testing.T) {
	ctx := context.Background()
	locker, err := NewLocker(NewMemoryStore(), "test", time.Minute)
	require.NoError(t, err)

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := locker.Acquire(ctx, "order:race"); err == nil {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestNewLocker_Validation(t *testing.T) {
	_, err := NewLocker(nil, "x", time.Second)
	assert.Error(t, err)

	locker, err := NewLocker(NewMemoryStore(), "x", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, locker.ttl)

	_, err = locker.Acquire(context.Background(), "")
	assert.Error(t, err)
}

func TestIdempotencyGuard(t *testing.T) {
	ctx := context.Background()
	guard, err := NewIdempotencyGuard(NewMemoryStore(), time.Hour, "test", "stripe")
	require.NoError(t, err)

	seen, err := guard.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = guard.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, guard.Delete(ctx, "evt_1"))
	seen, err = guard.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen, "deleted event is processed again")

	_, err = guard.CheckAndMark(ctx, "")
	assert.Error(t, err)
}

func TestNewIdempotencyGuard_Validation(t *testing.T) {
	tests := []struct {
		name  string
		store Store
		ttl   time.Duration
		scope string
	}{
		{name: "nil store", store: nil, ttl: time.Hour, scope: "stripe"},
		{name: "negative ttl", store: NewMemoryStore(), ttl: -time.Second, scope: "stripe"},
		{name: "empty scope", store: NewMemoryStore(), ttl: time.Hour, scope: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIdempotencyGuard(tt.store, tt.ttl, "ns", tt.scope)
			assert.Error(t, err)
		})
	}
}
