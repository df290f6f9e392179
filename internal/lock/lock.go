package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 2 * time.Minute

// ErrLocked is returned when another owner holds the lock.
var ErrLocked = errors.New("lock is held by another owner")

// Locker hands out exclusive, expiring leases on named resources.
type Locker struct {
	store     Store
	namespace string
	ttl       time.Duration
}

// NewLocker constructs a Locker. Keys are written as "<namespace>:lock:<name>".
func NewLocker(store Store, namespace string, ttl time.Duration) (*Locker, error) {
	if store == nil {
		return nil, errors.New("store required for lock")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Locker{store: store, namespace: namespace, ttl: ttl}, nil
}

// Lease is a held lock. Release it exactly once.
type Lease struct {
	store Store
	key   string
	owner string
}

// Acquire takes the lock for name or returns ErrLocked.
func (l *Locker) Acquire(ctx context.Context, name string) (*Lease, error) {
	if name == "" {
		return nil, errors.New("lock name is required")
	}
	key := l.key(name)
	owner := uuid.NewString()
	ok, err := l.store.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &Lease{store: l.store, key: key, owner: owner}, nil
}

// Release frees the lock only if this lease still owns it. A lease that
// expired and was taken by someone else is left alone.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.owner == "" {
		return nil
	}
	if _, err := l.store.CompareAndDelete(ctx, l.key, l.owner); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	l.owner = ""
	return nil
}

func (l *Locker) key(name string) string {
	if l.namespace == "" {
		return "lock:" + name
	}
	return l.namespace + ":lock:" + name
}
