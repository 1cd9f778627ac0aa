package ratelimit

import (
	"context"
	"fmt"
	"time"
)

const (
	// Failed attempts allowed before the client is locked out
	DefaultMaxAttempts = 5

	// How long the counter lives after the first failure
	DefaultWindow = 5 * time.Minute

	keyPrefix = "login:"
)

// AttemptStore is a key to counter map with per key expiry. Incr must be
// atomic so concurrent failures from the same client never lose updates.
type AttemptStore interface {
	// Incr adds one to the counter, starting the ttl window if none is
	// running. The window is not extended for an already running counter.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Get returns the current count, zero if the key expired or never existed
	Get(ctx context.Context, key string) (int64, error)

	// TTL returns how long until the key expires, zero if it does not exist
	TTL(ctx context.Context, key string) (time.Duration, error)

	Clear(ctx context.Context, key string) error
}

type Config struct {
	// Both optional, defaults applied in New
	MaxAttempts int
	Window      time.Duration
}

// Limiter throttles failed authentication attempts per client identifier.
// Keying by client IP rather than by account means an attacker cannot lock
// a legitimate user out by deliberately failing that user's login.
type Limiter struct {
	store  AttemptStore
	max    int
	window time.Duration
}

func New(cfg Config, store AttemptStore) *Limiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if store == nil {
		store = NewMemoryStore()
	}

	return &Limiter{
		store:  store,
		max:    cfg.MaxAttempts,
		window: cfg.Window,
	}
}

// IsLocked reports whether the client reached the attempt limit within the
// current window
func (l *Limiter) IsLocked(ctx context.Context, clientID string) (bool, error) {
	count, err := l.store.Get(ctx, keyPrefix+clientID)
	if err != nil {
		return false, fmt.Errorf("rate limit store error: %w", err)
	}
	return count >= int64(l.max), nil
}

// RecordFailure counts one more failed attempt for the client
func (l *Limiter) RecordFailure(ctx context.Context, clientID string) error {
	_, err := l.store.Incr(ctx, keyPrefix+clientID, l.window)
	if err != nil {
		return fmt.Errorf("rate limit store error: %w", err)
	}
	return nil
}

// Reset clears the counter, called on successful authentication
func (l *Limiter) Reset(ctx context.Context, clientID string) error {
	err := l.store.Clear(ctx, keyPrefix+clientID)
	if err != nil {
		return fmt.Errorf("rate limit store error: %w", err)
	}
	return nil
}

// Remaining returns attempts left before lockout, floored at zero
func (l *Limiter) Remaining(ctx context.Context, clientID string) (int, error) {
	count, err := l.store.Get(ctx, keyPrefix+clientID)
	if err != nil {
		return 0, fmt.Errorf("rate limit store error: %w", err)
	}

	remaining := l.max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// TimeRemaining returns how long until the window expires. Meaningful only
// when the client is locked.
func (l *Limiter) TimeRemaining(ctx context.Context, clientID string) (time.Duration, error) {
	ttl, err := l.store.TTL(ctx, keyPrefix+clientID)
	if err != nil {
		return 0, fmt.Errorf("rate limit store error: %w", err)
	}
	return ttl, nil
}
