package checkout

import (
	"context"
	"sync"
	"time"

	"repairshop/internal/cart"
	"repairshop/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultSessionTTL = 30 * time.Minute

// Registry holds the active checkout sessions of this process.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*Session
	intents   IntentRequester
	confirmer Confirmer
	timeout   time.Duration
	ttl       time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// NewRegistry creates a registry whose sessions call intents and confirmer
// with the given gateway timeout. Idle sessions expire after ttl.
func NewRegistry(intents IntentRequester, confirmer Confirmer, timeout, ttl time.Duration, logger zerolog.Logger) *Registry {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Registry{
		sessions:  make(map[uuid.UUID]*Session),
		intents:   intents,
		confirmer: confirmer,
		timeout:   timeout,
		ttl:       ttl,
		now:       time.Now,
		logger:    logger.With().Str("component", "checkout-registry").Logger(),
	}
}

// Start opens a session for the given cart.
func (r *Registry) Start(c cart.Cart) (*Session, error) {
	s, err := NewSession(uuid.New(), c, r.intents, r.confirmer, r.timeout)
	if err != nil {
		return nil, err
	}
	s.now = r.now
	s.touch()

	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()

	r.logger.Debug().Str("session_id", s.id.String()).Int("items", c.Len()).Msg("checkout session started")
	return s, nil
}

// Get returns a live session.
func (r *Registry) Get(id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok || s.expired(r.now(), r.ttl) {
		return nil, model.ErrSessionNotFound
	}
	return s, nil
}

// Remove forgets a session.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep drops idle sessions and returns how many were removed.
func (r *Registry) Sweep() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.expired(now, r.ttl) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on every tick until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug().Int("removed", n).Msg("expired checkout sessions swept")
			}
		}
	}
}
