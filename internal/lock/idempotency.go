package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// IdempotencyGuard remembers processed event ids for a TTL.
type IdempotencyGuard struct {
	store     Store
	ttl       time.Duration
	namespace string
	scope     string
}

// NewIdempotencyGuard constructs a guard for one scope, e.g. "stripe".
func NewIdempotencyGuard(store Store, ttl time.Duration, namespace, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store:     store,
		ttl:       ttl,
		namespace: namespace,
		scope:     scope,
	}, nil
}

// CheckAndMark marks eventID as seen and reports whether it had been seen before.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	set, err := g.store.SetNX(ctx, g.key(eventID), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete forgets eventID so a redelivery is processed again.
func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.Del(ctx, g.key(eventID))
}

func (g *IdempotencyGuard) key(eventID string) string {
	key := "idempotency:" + g.scope + ":" + eventID
	if g.namespace == "" {
		return key
	}
	return g.namespace + ":" + key
}
